package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteDefault writes a commented starter config to path. Existing files
// are left untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config: %w", err)
	}

	cfg := Default()
	doc := map[string]any{
		"addr":         cfg.Addr,
		"platform":     cfg.Platform,
		"prime_domain": cfg.PrimeDomain,
		"catalog":      "",
		"limits": map[string]any{
			"max_depth":           cfg.Limits.MaxDepth,
			"max_collection_size": cfg.Limits.MaxCollectionSize,
			"max_objects":         cfg.Limits.MaxObjects,
		},
		"bulk": map[string]any{
			"max_depth":           cfg.Bulk.MaxDepth,
			"max_collection_size": cfg.Bulk.MaxCollectionSize,
			"max_objects":         cfg.Bulk.MaxObjects,
		},
		"history": map[string]any{
			"enabled":     cfg.History.Enabled,
			"retention":   cfg.History.Retention.String(),
			"max_entries": cfg.History.MaxEntries,
			"path":        "",
		},
		"tracing": map[string]any{
			"enabled":  cfg.Tracing.Enabled,
			"exporter": cfg.Tracing.Exporter,
		},
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
