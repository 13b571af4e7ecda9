// Package storage provides the durable backends for cooldown records.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/keshon/cmdguard/internal/config"
	"github.com/keshon/cmdguard/internal/cooldown"
)

const (
	DriverDatastore = "datastore"
	DriverRedis     = "redis"
	DriverSQLite    = "sqlite"
)

// Store is a cooldown.Store that owns a connection or file.
type Store interface {
	cooldown.Store
	io.Closer
	Driver() string
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (Store, error) {
	var st Store
	switch cfg.Driver {
	case "", DriverDatastore:
		ds, err := OpenDatastore(cfg.Path, log)
		if err != nil {
			return nil, err
		}
		st = ds
	case DriverRedis:
		rs, err := OpenRedis(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		st = rs
	case DriverSQLite:
		ss, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		st = ss
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}

	log.Info().Str("driver", st.Driver()).Msg("Cooldown store opened")
	return st, nil
}
