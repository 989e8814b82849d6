package postgres

import (
	"context"
	"fmt"

	"github.com/arimas/srelay/internal/pkg/persistence"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	return &DB{pool: pool}, nil
}

// InsertTranscript inserts one transcript row.
// ID and Created are generated by the DB and filled into tr
func (db *DB) InsertTranscript(ctx context.Context, tr *persistence.Transcript) error {
	err := db.pool.QueryRow(ctx, `INSERT INTO transcriptions(text, language, audio_size, duration,
	file_name, file_type, confidence, transcription_type, word_count, char_count, status)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) 
	RETURNING id, created_at`, tr.Text, tr.Language, tr.AudioSize, tr.Duration,
		tr.FileName, tr.FileType, tr.Confidence, tr.TranscriptionType,
		tr.WordCount, tr.CharCount, tr.Status,
	).Scan(&tr.ID, &tr.Created)
	if err != nil {
		return fmt.Errorf("can't insert transcript: %w", err)
	}
	return nil
}

// ListTranscripts loads up to limit newest transcripts, most recent first
func (db *DB) ListTranscripts(ctx context.Context, limit int) ([]persistence.Transcript, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, text, language, audio_size, duration,
	file_name, file_type, confidence, transcription_type, word_count, char_count, status, created_at 
	FROM transcriptions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("can't select transcripts: %w", err)
	}
	defer rows.Close()
	var res []persistence.Transcript
	for rows.Next() {
		var tr persistence.Transcript
		if err := rows.Scan(&tr.ID, &tr.Text, &tr.Language, &tr.AudioSize, &tr.Duration,
			&tr.FileName, &tr.FileType, &tr.Confidence, &tr.TranscriptionType,
			&tr.WordCount, &tr.CharCount, &tr.Status, &tr.Created); err != nil {
			return nil, fmt.Errorf("can't scan transcript: %w", err)
		}
		res = append(res, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't read transcripts: %w", err)
	}
	return res, nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'transcriptions')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
