// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the magpie CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/magpie/internal/logging"
	"github.com/pdiddy/magpie/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is built once per invocation from defaults, config file,
	// environment and flags.
	cfg types.Config

	logger = zap.NewNop()
)

// rootCmd is the base command for the magpie CLI.
var rootCmd = &cobra.Command{
	Use:   "magpie",
	Short: "Collect and summarize recent AI agent papers",
	Long: `magpie queries arXiv for recent papers on intelligent and autonomous
agents, downloads each new paper, summarizes it with a local language model
and stores the result in SQLite.

Run "magpie ingest" on a schedule to keep the database current, then browse
it with "magpie papers" or serve it over HTTP with "magpie serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		c, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = c

		l, err := logging.New(cfg.Log.Mode, cfg.Log.File)
		if err != nil {
			return err
		}
		logger = l
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./magpie.yaml or ~/.config/magpie/magpie.yaml)")
	pf.String("db", "", "SQLite database path (default magpie.db)")
	pf.String("log-mode", "", "log format: dev or prod (default dev)")
	pf.String("log-file", "", "also write logs to this file")

	bindFlag("store.path", pf.Lookup("db"))
	bindFlag("log.mode", pf.Lookup("log-mode"))
	bindFlag("log.file", pf.Lookup("log-file"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("magpie")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "magpie"))
		}
	}

	configureViper(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}
}

// configureViper installs defaults and environment binding on v.
func configureViper(v *viper.Viper) {
	d := types.DefaultConfig()
	defaults := map[string]any{
		"source.base_url":     d.Source.BaseURL,
		"source.query":        d.Source.Query,
		"source.max_results":  d.Source.MaxResults,
		"source.page_size":    d.Source.PageSize,
		"source.page_delay":   d.Source.PageDelay,
		"source.max_retries":  d.Source.MaxRetries,
		"source.timeout":      d.Source.Timeout,
		"source.user_agent":   d.Source.UserAgent,
		"extract.timeout":     d.Extract.Timeout,
		"extract.user_agent":  d.Extract.UserAgent,
		"extract.max_bytes":   d.Extract.MaxBytes,
		"summarize.base_url":  d.Summarize.BaseURL,
		"summarize.model":     d.Summarize.Model,
		"summarize.timeout":   d.Summarize.Timeout,
		"summarize.max_chars": d.Summarize.MaxChars,
		"store.path":          d.Store.Path,
		"store.recent_limit":  d.Store.RecentLimit,
		"serve.addr":          d.Serve.Addr,
		"log.mode":            d.Log.Mode,
		"log.file":            d.Log.File,
		"metrics_file":        d.MetricsFile,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("MAGPIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadConfig decodes the merged settings of v into a Config.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var c types.Config
	if err := v.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	return c, nil
}

// bindFlag binds flag to a configuration key on the global viper. Flags
// left unset fall through to the environment, config file and defaults.
func bindFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag for %s: %v", key, err))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
