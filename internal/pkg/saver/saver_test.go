package saver_test

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arimas/srelay/internal/pkg/persistence"
	"github.com/arimas/srelay/internal/pkg/saver"
	"github.com/arimas/srelay/internal/pkg/test"
	"github.com/arimas/srelay/internal/pkg/test/mocks"
)

var (
	storeMock *mocks.Store
	tSaver    *saver.Saver
)

func initTest(t *testing.T) {
	storeMock = &mocks.Store{}
	tSaver = saver.NewSaver(storeMock)
}

func TestSave(t *testing.T) {
	initTest(t)
	storeMock.On("InsertTranscript", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		tr := args.Get(1).(*persistence.Transcript)
		tr.ID = "id-1"
	}).Return(nil)

	res := tSaver.Save(test.Ctx(t), &persistence.Transcript{Text: "olia"})

	assert.True(t, res.Success)
	require.NotNil(t, res.Data)
	assert.Equal(t, "id-1", res.Data.ID)
	storeMock.AssertNumberOfCalls(t, "InsertTranscript", 1)
}

func TestSave_CountsChars(t *testing.T) {
	initTest(t)
	var saved *persistence.Transcript
	storeMock.On("InsertTranscript", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*persistence.Transcript)
	}).Return(nil)

	res := tSaver.Save(test.Ctx(t), &persistence.Transcript{Text: "olia text"})

	assert.True(t, res.Success)
	require.NotNil(t, saved)
	assert.Equal(t, len("olia text"), saved.CharCount)
	assert.Equal(t, len("olia text"), res.Data.CharCount)
}

func TestSave_NotConfigured(t *testing.T) {
	tSaver := saver.NewSaver(nil)

	res := tSaver.Save(test.Ctx(t), &persistence.Transcript{Text: "olia"})

	assert.False(t, res.Success)
	assert.Equal(t, "Database not configured", res.Message)
	assert.False(t, tSaver.Configured())
}

func TestSave_EmptyText(t *testing.T) {
	initTest(t)

	res := tSaver.Save(test.Ctx(t), &persistence.Transcript{})

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	storeMock.AssertNotCalled(t, "InsertTranscript")
}

func TestSave_Fails(t *testing.T) {
	initTest(t)
	storeMock.On("InsertTranscript", mock.Anything, mock.Anything).Return(fmt.Errorf("olia err"))

	res := tSaver.Save(test.Ctx(t), &persistence.Transcript{Text: "olia"})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "olia err")
	assert.Nil(t, res.Data)
}

func TestSave_NoTable(t *testing.T) {
	initTest(t)
	storeMock.On("InsertTranscript", mock.Anything, mock.Anything).
		Return(fmt.Errorf("can't insert: %w", &pgconn.PgError{Code: "42P01"}))

	res := tSaver.Save(test.Ctx(t), &persistence.Transcript{Text: "olia"})

	assert.False(t, res.Success)
	assert.Equal(t, "Table not found", res.Error)
	assert.Equal(t, "Create table before use", res.Message)
}

func TestList(t *testing.T) {
	initTest(t)
	storeMock.On("ListTranscripts", mock.Anything, 2).
		Return([]persistence.Transcript{{ID: "2"}, {ID: "1"}}, nil)

	res, err := tSaver.List(test.Ctx(t), 2)

	require.Nil(t, err)
	require.Equal(t, 2, len(res))
	assert.Equal(t, "2", res[0].ID)
	assert.True(t, tSaver.Configured())
}

func TestList_NotConfigured(t *testing.T) {
	tSaver := saver.NewSaver(nil)

	res, err := tSaver.List(test.Ctx(t), 10)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, saver.ErrNotConfigured)
}

func TestList_Fails(t *testing.T) {
	initTest(t)
	storeMock.On("ListTranscripts", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("olia err"))

	res, err := tSaver.List(test.Ctx(t), 10)

	assert.Nil(t, res)
	assert.NotNil(t, err)
}
