// Package store persists users, rooms, and messages in BadgerDB.
// Keys are namespaced by record kind; message keys embed an inverted
// timestamp so prefix iteration yields newest-first order.
package store

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Open opens the database at dir, or an in-memory instance when dir is
// empty (tests).
func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return db, nil
}

// badgerLogger routes badger's internal logging through zerolog so the
// process has one log stream.
type badgerLogger struct{}

func (badgerLogger) logger() zerolog.Logger {
	return log.With().Str("module", "store.badger").Logger()
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	lg := l.logger()
	lg.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	lg := l.logger()
	lg.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {}

func (l badgerLogger) Debugf(format string, args ...interface{}) {}
