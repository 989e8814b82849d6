package saver

import (
	"context"
	"errors"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arimas/srelay/internal/pkg/persistence"
)

// ErrNotConfigured indicates there is no store behind the saver
var ErrNotConfigured = errors.New("Database not configured")

const pgUndefinedTable = "42P01"

// Store provides transcript persistence
type Store interface {
	InsertTranscript(ctx context.Context, tr *persistence.Transcript) error
	ListTranscripts(ctx context.Context, limit int) ([]persistence.Transcript, error)
}

// Outcome is a persistence attempt result.
// A failed attempt is a value, not an error - it must never abort a request
type Outcome struct {
	Success bool
	Message string
	Error   string
	Data    *persistence.Transcript
}

// Saver persists transcripts on a best effort basis.
// The store may be nil - then every call reports a not configured outcome
type Saver struct {
	store Store
}

// NewSaver creates a Saver instance
func NewSaver(store Store) *Saver {
	return &Saver{store: store}
}

// Configured returns true if a real store is attached
func (s *Saver) Configured() bool {
	return s.store != nil
}

// Save inserts one transcript row and reports the outcome
func (s *Saver) Save(ctx context.Context, tr *persistence.Transcript) *Outcome {
	if s.store == nil {
		return &Outcome{Success: false, Message: ErrNotConfigured.Error()}
	}
	if tr.Text == "" {
		return &Outcome{Success: false, Error: "Empty text"}
	}
	tr.CharCount = len(tr.Text)
	if err := s.store.InsertTranscript(ctx, tr); err != nil {
		goapp.Log.Error().Err(err).Msg("can't save transcript")
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
			return &Outcome{Success: false, Error: "Table not found", Message: "Create table before use"}
		}
		return &Outcome{Success: false, Error: err.Error()}
	}
	return &Outcome{Success: true, Data: tr}
}

// List loads up to limit newest transcripts
func (s *Saver) List(ctx context.Context, limit int) ([]persistence.Transcript, error) {
	if s.store == nil {
		return nil, ErrNotConfigured
	}
	res, err := s.store.ListTranscripts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("can't list transcripts: %w", err)
	}
	return res, nil
}
