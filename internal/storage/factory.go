package storage

import (
	"fmt"
	"path/filepath"

	"rufas/internal/config"
	"rufas/internal/database"
	"rufas/internal/rufas"
)

// SQLiteFileName is the database file used by the sqlite backend.
const SQLiteFileName = "rufas.db"

// NewStoreFromConfig creates a Store for the folder at root based on the
// storage config type. Backends that timestamp writes use clock.
func NewStoreFromConfig(cfg config.StorageConfig, root string, clock rufas.Clock) (rufas.Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(".rufas", "database")
	}
	dir = config.ResolveDir(root, dir)

	switch cfg.Type {
	case "json", "":
		return NewJSONStore(dir), nil
	case "sqlite":
		return database.NewSQLiteStore(filepath.Join(dir, SQLiteFileName), clock)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Type)
	}
}
