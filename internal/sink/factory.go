package sink

import (
	"context"
	"fmt"
	"path/filepath"

	"rufas/internal/config"
	"rufas/internal/rufas"
)

// NewSinkFromConfig creates a Sink implementation based on the export config
// type. Relative filesystem directories are resolved against root.
func NewSinkFromConfig(ctx context.Context, cfg config.ExportConfig, root string) (rufas.Sink, error) {
	switch cfg.Type {
	case "filesystem", "":
		dir := cfg.Dir
		if dir == "" {
			dir = filepath.Join(".rufas", "exports")
		}
		return NewFileSystemSink(config.ResolveDir(root, dir))
	case "s3":
		return NewS3SinkFromConfig(ctx, cfg)
	case "memory":
		return NewMemorySink(), nil
	default:
		return nil, fmt.Errorf("unknown export type: %s", cfg.Type)
	}
}
