//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type config struct {
	srvURL     string
	dbURL      string
	httpclient *http.Client
}

var cfg config

func TestMain(m *testing.M) {
	cfg.srvURL = GetEnvOrFail("SRV_URL")
	cfg.dbURL = GetEnvOrFail("DB_URL")
	cfg.httpclient = &http.Client{Timeout: time.Second * 30}

	tCtx, cf := context.WithTimeout(context.Background(), time.Second*20)
	defer cf()
	WaitForOpenOrFail(tCtx, cfg.srvURL)
	waitForDB(tCtx, cfg.dbURL)

	os.Exit(m.Run())
}

type speechResult struct {
	Success  bool   `json:"success"`
	Text     string `json:"text"`
	Mode     string `json:"mode"`
	Error    string `json:"error"`
	Database *struct {
		Success bool `json:"success"`
	} `json:"database"`
}

type listResult struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		CharCount int    `json:"char_count"`
	} `json:"data"`
}

func TestLiveProbe(t *testing.T) {
	t.Parallel()
	checkCode(t, invoke(t, NewRequest(t, http.MethodGet, cfg.srvURL, "/live", nil)), http.StatusOK)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	resp := checkCode(t, invoke(t, NewRequest(t, http.MethodGet, cfg.srvURL, "/health", nil)), http.StatusOK)
	res := decode[map[string]interface{}](t, resp)
	assert.Equal(t, true, res["success"])
}

func TestSpeechLive_NoAudio(t *testing.T) {
	t.Parallel()
	req := NewAudioRequest(t, cfg.srvURL, "/speech/live", nil, nil)
	resp := checkCode(t, invoke(t, req), http.StatusBadRequest)
	res := decode[speechResult](t, resp)
	assert.False(t, res.Success)
	assert.Equal(t, "No audio file", res.Error)
}

func TestSpeechUpload(t *testing.T) {
	t.Parallel()
	req := NewAudioRequest(t, cfg.srvURL, "/speech/upload", []byte("0123456789"), nil)
	resp := checkCode(t, invoke(t, req), http.StatusOK)
	res := decode[speechResult](t, resp)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Text)
}

func TestTranscriptions(t *testing.T) {
	t.Parallel()
	resp := checkCode(t, invoke(t, NewRequest(t, http.MethodGet, cfg.srvURL, "/transcriptions?limit=2", nil)), http.StatusOK)
	res := decode[listResult](t, resp)
	require.True(t, res.Success)
	assert.Equal(t, len(res.Data), res.Count)
	assert.LessOrEqual(t, len(res.Data), 2)
	for _, tr := range res.Data {
		assert.Equal(t, len(tr.Text), tr.CharCount, "id %s", tr.ID)
	}
}

func invoke(t *testing.T, r *http.Request) *http.Response {
	t.Helper()
	resp, err := cfg.httpclient.Do(r)
	require.Nil(t, err, "not nil error = %v", err)
	t.Cleanup(func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	})
	return resp
}

func checkCode(t *testing.T, resp *http.Response, expected int) *http.Response {
	t.Helper()
	if resp.StatusCode != expected {
		b, _ := io.ReadAll(resp.Body)
		require.Equal(t, expected, resp.StatusCode, string(b))
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var res T
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}
