package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/cmdguard/datastore"
	"github.com/keshon/cmdguard/internal/cooldown"
)

const cooldownKeyPrefix = "cooldown:"

// DatastoreStore keeps cooldown records in the JSON datastore under
// "cooldown:<id>" with an RFC 3339 expiry. Every mutation is flushed to disk
// so write failures reach the caller.
type DatastoreStore struct {
	ds  *datastore.DataStore
	log zerolog.Logger
}

// OpenDatastore opens (or creates) the JSON file at path.
func OpenDatastore(path string, log zerolog.Logger) (*DatastoreStore, error) {
	cfg := datastore.DefaultConfig(path)
	cfg.Logger = log.With().Str("component", "datastore").Logger()
	// mutations are flushed synchronously
	cfg.AutoSaveInterval = 0
	ds, err := datastore.NewWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	return &DatastoreStore{ds: ds, log: cfg.Logger}, nil
}

// NewDatastoreStore wraps an already open datastore.
func NewDatastoreStore(ds *datastore.DataStore) *DatastoreStore {
	return &DatastoreStore{ds: ds, log: zerolog.Nop()}
}

func (s *DatastoreStore) Driver() string { return DriverDatastore }

func (s *DatastoreStore) Close() error { return s.ds.Close() }

// Stats reports the backing file and how many keys it holds, cooldown or not.
func (s *DatastoreStore) Stats() datastore.Stats { return s.ds.Stats() }

// DeleteExpired also drops records whose expiry cannot be parsed.
func (s *DatastoreStore) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	n, err := s.ds.DeleteFunc(cooldownKeyPrefix, func(_ string, v any) bool {
		exp, err := parseExpiry(v)
		return err != nil || exp.Before(before)
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if err := s.ds.SaveToFile(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (s *DatastoreStore) LoadAll(context.Context) ([]cooldown.Record, error) {
	keys := s.ds.Keys(cooldownKeyPrefix)
	out := make([]cooldown.Record, 0, len(keys))
	for _, k := range keys {
		v, ok := s.ds.Get(k)
		if !ok {
			continue
		}
		exp, err := parseExpiry(v)
		if err != nil {
			s.log.Warn().Err(err).Str("key", k).Msg("Skipping unreadable cooldown record")
			continue
		}
		out = append(out, cooldown.Record{ID: strings.TrimPrefix(k, cooldownKeyPrefix), Expires: exp})
	}
	return out, nil
}

func (s *DatastoreStore) Upsert(_ context.Context, rec cooldown.Record) error {
	if err := s.ds.Set(cooldownKeyPrefix+rec.ID, rec.Expires.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return s.ds.SaveToFile()
}

func (s *DatastoreStore) Delete(_ context.Context, id string) error {
	key := cooldownKeyPrefix + id
	if _, ok := s.ds.Get(key); !ok {
		return nil
	}
	if err := s.ds.Delete(key); err != nil {
		return err
	}
	return s.ds.SaveToFile()
}

func parseExpiry(v any) (time.Time, error) {
	str, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("expiry has type %T, want string", v)
	}
	return time.Parse(time.RFC3339Nano, str)
}
