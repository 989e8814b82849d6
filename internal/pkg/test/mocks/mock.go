package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/arimas/srelay/internal/pkg/deepgram"
	"github.com/arimas/srelay/internal/pkg/persistence"
	"github.com/arimas/srelay/internal/pkg/saver"
)

// Transcriber is deepgram client mock
type Transcriber struct{ mock.Mock }

func (m *Transcriber) Transcribe(ctx context.Context, audio []byte, language, mimeType string) (*deepgram.Result, error) {
	args := m.Called(ctx, audio, language, mimeType)
	return to[*deepgram.Result](args.Get(0)), args.Error(1)
}

// Store is postgres DB mock
type Store struct{ mock.Mock }

func (m *Store) InsertTranscript(ctx context.Context, tr *persistence.Transcript) error {
	args := m.Called(ctx, tr)
	return args.Error(0)
}

func (m *Store) ListTranscripts(ctx context.Context, limit int) ([]persistence.Transcript, error) {
	args := m.Called(ctx, limit)
	return to[[]persistence.Transcript](args.Get(0)), args.Error(1)
}

// Saver is persistence adapter mock
type Saver struct{ mock.Mock }

func (m *Saver) Save(ctx context.Context, tr *persistence.Transcript) *saver.Outcome {
	args := m.Called(ctx, tr)
	return to[*saver.Outcome](args.Get(0))
}

func (m *Saver) List(ctx context.Context, limit int) ([]persistence.Transcript, error) {
	args := m.Called(ctx, limit)
	return to[[]persistence.Transcript](args.Get(0)), args.Error(1)
}

func (m *Saver) Configured() bool {
	args := m.Called()
	return args.Bool(0)
}

// Archiver is audio archive mock
type Archiver struct{ mock.Mock }

func (m *Archiver) SaveAudio(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, name, r, size, contentType)
	return args.Error(0)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
