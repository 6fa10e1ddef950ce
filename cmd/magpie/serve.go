package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pdiddy/magpie/internal/server"
	"github.com/pdiddy/magpie/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored papers over a read-only JSON API",
	Long: `Serve exposes the paper database over HTTP:

  GET /papers?limit=N   most recently fetched papers
  GET /papers/:id       one paper
  GET /search?q=TEXT    papers whose title or summaries contain TEXT
  GET /healthz          liveness and paper count
  GET /metrics          Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		if cfg.Log.Mode == "prod" || cfg.Log.Mode == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		return server.New(st, logger).ListenAndServe(cmd.Context(), cfg.Serve.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	bindFlag("serve.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
