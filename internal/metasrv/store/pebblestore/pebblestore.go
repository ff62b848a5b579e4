// Package pebblestore implements the catalog store on a local pebble
// instance. Commits are applied as a single WAL-synced batch, so the
// atomic-multi-key contract holds across process crashes.
package pebblestore

import (
	"context"

	"github.com/avast/retry-go/v4"
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
	"github.com/streamhouse/streamhouse/internal/metasrv/store"
)

const commitAttempts = 3

type Store struct {
	db   *pebble.DB
	path string
}

// Open opens (or creates) a pebble-backed catalog store at path.
func Open(path string) (*Store, apperrors.Error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, store.ErrStoreUnavailable.MsgErr("failed to open pebble store", err)
	}
	return &Store{db: db, path: path}, nil
}

// Commit applies all writes as one synced batch. Transient apply failures
// are retried a few times; the batch either lands whole or not at all.
func (s *Store) Commit(ctx context.Context, writes []store.Write) apperrors.Error {
	err := retry.Do(
		func() error {
			batch := s.db.NewBatch()
			defer batch.Close()
			for _, w := range writes {
				if w.Delete {
					if err := batch.Delete([]byte(w.Key), nil); err != nil {
						return errors.Wrap(err, "batch delete")
					}
					continue
				}
				if err := batch.Set([]byte(w.Key), w.Value, nil); err != nil {
					return errors.Wrap(err, "batch set")
				}
			}
			return s.db.Apply(batch, pebble.Sync)
		},
		retry.Context(ctx),
		retry.Attempts(commitAttempts),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Int("writes", len(writes)).Msg("pebble commit failed")
		return store.ErrStoreUnavailable.Err(err)
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) (map[string][]byte, apperrors.Error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, store.ErrStoreUnavailable.MsgErr("failed to open iterator", err)
	}
	defer iter.Close()

	out := make(map[string][]byte)
	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return nil, store.ErrStoreUnavailable.MsgErr("failed to read value", err)
		}
		key := string(iter.Key())
		copied := make([]byte, len(value))
		copy(copied, value)
		out[key] = copied
	}
	if err := iter.Error(); err != nil {
		return nil, store.ErrStoreUnavailable.MsgErr("iterator error", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)
