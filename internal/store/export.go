// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/magpie/pkg/types"
)

// exportDoc is the top-level structure of a store export.
type exportDoc struct {
	Count  int           `json:"count" yaml:"count"`
	Papers []types.Paper `json:"papers" yaml:"papers"`
}

// ExportYAML writes every stored paper to w as YAML.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) error {
	doc, err := s.exportDoc(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encoding YAML export: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes every stored paper to w as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	doc, err := s.exportDoc(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encoding JSON export: %w", err)
	}
	return nil
}

func (s *Store) exportDoc(ctx context.Context) (exportDoc, error) {
	papers, err := s.All(ctx)
	if err != nil {
		return exportDoc{}, err
	}
	if papers == nil {
		papers = []types.Paper{}
	}
	return exportDoc{Count: len(papers), Papers: papers}, nil
}
