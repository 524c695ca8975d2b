package main

import (
	"fmt"

	"github.com/hypernym-ai/modelprint/pkg/cache"
	fscache "github.com/hypernym-ai/modelprint/pkg/cache/fs"
	sqlitecache "github.com/hypernym-ai/modelprint/pkg/cache/sqlite"
	"github.com/hypernym-ai/modelprint/pkg/config"
)

// openStore constructs the response cache selected by configuration.
func openStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "sqlite":
		return sqlitecache.New(cfg.Cache.DBPath)
	case "memory":
		return cache.NewMemory(), nil
	case "", "fs":
		return fscache.New(cfg.Cache.Dir)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
