package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/arimas/srelay/internal/pkg/api"
	"github.com/arimas/srelay/internal/pkg/archive"
	"github.com/arimas/srelay/internal/pkg/deepgram"
	"github.com/arimas/srelay/internal/pkg/persistence"
	"github.com/arimas/srelay/internal/pkg/saver"
	"github.com/arimas/srelay/internal/pkg/utils"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Transcriber calls the remote transcription provider
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language, mimeType string) (*deepgram.Result, error)
}

// Saver persists transcripts on a best effort basis
type Saver interface {
	Save(ctx context.Context, tr *persistence.Transcript) *saver.Outcome
	List(ctx context.Context, limit int) ([]persistence.Transcript, error)
	Configured() bool
}

// Archiver keeps raw audio payloads
type Archiver interface {
	SaveAudio(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
}

// Data keeps data required for service work
type Data struct {
	Port int
	// Transcriber may be nil - then the service runs in mock mode
	Transcriber Transcriber
	Saver       Saver
	// Archiver is optional
	Archiver Archiver
}

const (
	defaultListLimit = 50
	bodyLimit        = "50M"
)

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP speech relay service")
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Saver == nil {
		return errors.New("no saver")
	}
	if data.Transcriber == nil {
		goapp.Log.Warn().Msg("no transcriber - running in mock mode")
	}
	if data.Archiver == nil {
		goapp.Log.Warn().Msg("no audio archive")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("srelay", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.BodyLimit(bodyLimit))
	promMdlw.Use(e)

	e.GET("/", info(data))
	e.POST("/speech/live", liveRecording(data))
	e.POST("/speech/upload", fileUpload(data))
	e.GET("/transcriptions", listTranscriptions(data))
	e.GET("/health", health(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

type infoResult struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Mode      string            `json:"mode"`
	Endpoints map[string]string `json:"endpoints"`
}

func info(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		mode := api.ModeDeepgram
		if data.Transcriber == nil {
			mode = api.ModeMock
		}
		return c.JSON(http.StatusOK, infoResult{Success: true, Message: "Speech to text relay",
			Mode: mode, Endpoints: map[string]string{
				"live":           "POST /speech/live",
				"upload":         "POST /speech/upload",
				"transcriptions": "GET /transcriptions",
				"health":         "GET /health",
			}})
	}
}

type result struct {
	Success    bool      `json:"success"`
	Text       string    `json:"text,omitempty"`
	Language   string    `json:"language,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	FileName   string    `json:"file_name,omitempty"`
	Mode       string    `json:"mode,omitempty"`
	Database   *dbResult `json:"database,omitempty"`
	Archive    string    `json:"archive,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type dbResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    *transcript `json:"data,omitempty"`
}

type transcript struct {
	ID                string    `json:"id"`
	Text              string    `json:"text"`
	Language          string    `json:"language"`
	AudioSize         int64     `json:"audio_size"`
	Duration          float64   `json:"duration"`
	FileName          string    `json:"file_name,omitempty"`
	FileType          string    `json:"file_type,omitempty"`
	Confidence        *float64  `json:"confidence,omitempty"`
	TranscriptionType string    `json:"transcription_type"`
	WordCount         int       `json:"word_count"`
	CharCount         int       `json:"char_count"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

type listResult struct {
	Success bool         `json:"success"`
	Data    []transcript `json:"data"`
	Count   int          `json:"count"`
	Error   string       `json:"error,omitempty"`
}

type healthResult struct {
	Success  bool            `json:"success"`
	Services serviceStatuses `json:"services"`
}

type serviceStatuses struct {
	Provider bool `json:"provider"`
	Store    bool `json:"store"`
	Archive  bool `json:"archive"`
}

type audioData struct {
	bytes    []byte
	fileName string
	mimeType string
}

func liveRecording(data *Data) func(echo.Context) error {
	return func(c echo.Context) (err error) {
		defer goapp.Estimate("live recording method")()
		defer func() {
			if r := recover(); r != nil {
				goapp.Log.Error().Msgf("live recording panic: %v", r)
				err = c.JSON(http.StatusInternalServerError, result{Success: false, Error: "Processing failed"})
			}
		}()
		ctx := c.Request().Context()

		audio, aErr := takeAudio(c)
		if aErr != nil {
			return c.JSON(http.StatusBadRequest, result{Success: false, Error: "No audio file"})
		}
		language := takeLanguage(c)
		duration := parseDuration(c.FormValue(api.PrmDuration))
		goapp.Log.Info().Int("bytes", len(audio.bytes)).Str("language", language).Msg("live recording request")

		if data.Transcriber == nil {
			return respondMock(c, data, audio, mockLiveText(c.FormValue(api.PrmDuration), len(audio.bytes)),
				&persistence.Transcript{Language: language, AudioSize: int64(len(audio.bytes)),
					Duration: duration, TranscriptionType: persistence.TypeLive,
					Status: persistence.StatusCompleted})
		}

		res, trErr := data.Transcriber.Transcribe(ctx, audio.bytes, language, audio.mimeType)
		if trErr != nil {
			goapp.Log.Error().Err(trErr).Msg("transcription failed")
			return c.JSON(http.StatusOK, result{Success: false, Error: trErr.Error(),
				Text: fmt.Sprintf("Transcription failed\n\nError: %s\n\nTry recording shorter audio and speak clearly.", trErr.Error())})
		}

		tr := &persistence.Transcript{Text: res.Text, Language: language,
			AudioSize: int64(len(audio.bytes)), Duration: duration,
			Confidence: utils.ToSQLFloat(res.Confidence),
			TranscriptionType: persistence.TypeLive, WordCount: res.WordCount,
			Status: persistence.StatusCompleted}
		dbRes := data.Saver.Save(ctx, tr)

		return c.JSON(http.StatusOK, result{Success: true, Text: res.Text, Language: language,
			Confidence: res.Confidence, Mode: api.ModeDeepgram, Database: mapOutcome(dbRes),
			Archive: archiveAudio(ctx, data, audio)})
	}
}

func fileUpload(data *Data) func(echo.Context) error {
	return func(c echo.Context) (err error) {
		defer goapp.Estimate("file upload method")()
		defer func() {
			if r := recover(); r != nil {
				goapp.Log.Error().Msgf("file upload panic: %v", r)
				err = c.JSON(http.StatusInternalServerError, result{Success: false, Error: "Upload failed"})
			}
		}()
		ctx := c.Request().Context()

		audio, aErr := takeAudio(c)
		if aErr != nil {
			return c.JSON(http.StatusBadRequest, result{Success: false, Error: "No audio file"})
		}
		language := takeLanguage(c)
		goapp.Log.Info().Int("bytes", len(audio.bytes)).Str("file", audio.fileName).
			Str("language", language).Msg("file upload request")

		if data.Transcriber == nil {
			return respondMock(c, data, audio, mockUploadText(audio.fileName, len(audio.bytes)),
				&persistence.Transcript{Language: language, AudioSize: int64(len(audio.bytes)),
					FileName: utils.ToSQLStr(audio.fileName), FileType: utils.ToSQLStr(audio.mimeType),
					TranscriptionType: persistence.TypeFileUpload, Status: persistence.StatusCompleted})
		}

		res, trErr := data.Transcriber.Transcribe(ctx, audio.bytes, language, audio.mimeType)
		if trErr != nil {
			goapp.Log.Error().Err(trErr).Msg("transcription failed")
			return c.JSON(http.StatusOK, result{Success: false, Error: trErr.Error(),
				Text: fmt.Sprintf("File transcription failed\n\nError: %s\n\nTry converting to MP3 format.", trErr.Error())})
		}

		tr := &persistence.Transcript{Text: res.Text, Language: language,
			AudioSize: int64(len(audio.bytes)),
			FileName:  utils.ToSQLStr(audio.fileName), FileType: utils.ToSQLStr(audio.mimeType),
			Confidence: utils.ToSQLFloat(res.Confidence),
			TranscriptionType: persistence.TypeFileUpload, WordCount: res.WordCount,
			Status: persistence.StatusCompleted}
		dbRes := data.Saver.Save(ctx, tr)

		return c.JSON(http.StatusOK, result{Success: true, Text: res.Text, Language: language,
			Confidence: res.Confidence, FileName: audio.fileName, Mode: api.ModeDeepgram,
			Database: mapOutcome(dbRes), Archive: archiveAudio(ctx, data, audio)})
	}
}

func respondMock(c echo.Context, data *Data, audio *audioData, text string, tr *persistence.Transcript) error {
	tr.Text = text
	dbRes := data.Saver.Save(c.Request().Context(), tr)
	return c.JSON(http.StatusOK, result{Success: true, Text: text, Language: tr.Language,
		FileName: utils.FromSQLStr(tr.FileName), Mode: api.ModeMock, Database: mapOutcome(dbRes),
		Archive: archiveAudio(c.Request().Context(), data, audio)})
}

func listTranscriptions(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("list method")()

		limit := defaultListLimit
		if s := c.QueryParam("limit"); s != "" {
			if v, err := strconv.Atoi(s); err == nil && v > 0 {
				limit = v
			}
		}
		trs, err := data.Saver.List(c.Request().Context(), limit)
		if err != nil {
			if errors.Is(err, saver.ErrNotConfigured) {
				return c.JSON(http.StatusOK, listResult{Success: false,
					Error: saver.ErrNotConfigured.Error(), Data: []transcript{}})
			}
			goapp.Log.Error().Err(err).Send()
			return c.JSON(http.StatusInternalServerError, listResult{Success: false,
				Error: "Service error", Data: []transcript{}})
		}
		res := listResult{Success: true, Data: make([]transcript, 0, len(trs)), Count: len(trs)}
		for i := range trs {
			res.Data = append(res.Data, *mapTranscript(&trs[i]))
		}
		return c.JSON(http.StatusOK, res)
	}
}

func health(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResult{Success: true,
			Services: serviceStatuses{Provider: data.Transcriber != nil,
				Store: data.Saver.Configured(), Archive: data.Archiver != nil}})
	}
}

func takeAudio(c echo.Context) (*audioData, error) {
	fh, err := c.FormFile(api.PrmAudio)
	if err != nil {
		return nil, fmt.Errorf("no form param audio: %w", err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("can't open audio: %w", err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("can't read audio: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("empty audio")
	}
	return &audioData{bytes: b, fileName: fh.Filename,
		mimeType: fh.Header.Get(echo.HeaderContentType)}, nil
}

func takeLanguage(c echo.Context) string {
	if v := c.FormValue(api.PrmLanguage); v != "" {
		return v
	}
	return api.DefaultLanguage
}

func parseDuration(s string) float64 {
	res, err := strconv.ParseFloat(s, 64)
	if err != nil || res < 0 {
		return 0
	}
	return res
}

func mockLiveText(duration string, size int) string {
	if duration == "" {
		duration = "unknown"
	}
	return fmt.Sprintf("Live Recording (Mock Mode)\n\nDuration: %s seconds\nSize: %.1f KB\n\n"+
		"Deepgram would transcribe your audio here. Set the provider key to enable it.",
		duration, float64(size)/1024)
}

func mockUploadText(fileName string, size int) string {
	return fmt.Sprintf("File: %s\nSize: %.2f MB\n\n"+
		"Deepgram would transcribe this file (Mock Mode). Set the provider key to enable it.",
		fileName, float64(size)/1024/1024)
}

func mapOutcome(o *saver.Outcome) *dbResult {
	if o == nil {
		return nil
	}
	res := &dbResult{Success: o.Success, Message: o.Message, Error: o.Error}
	if o.Data != nil {
		res.Data = mapTranscript(o.Data)
	}
	return res
}

func mapTranscript(tr *persistence.Transcript) *transcript {
	return &transcript{ID: tr.ID, Text: tr.Text, Language: tr.Language,
		AudioSize: tr.AudioSize, Duration: tr.Duration,
		FileName: utils.FromSQLStr(tr.FileName), FileType: utils.FromSQLStr(tr.FileType),
		Confidence: utils.FromSQLFloat(tr.Confidence),
		TranscriptionType: tr.TranscriptionType, WordCount: tr.WordCount,
		CharCount: tr.CharCount, Status: tr.Status, CreatedAt: tr.Created}
}

func archiveAudio(ctx context.Context, data *Data, audio *audioData) string {
	if data.Archiver == nil {
		return ""
	}
	name := archive.ObjectName(audio.fileName, audio.mimeType)
	if err := data.Archiver.SaveAudio(ctx, name, bytes.NewReader(audio.bytes),
		int64(len(audio.bytes)), audio.mimeType); err != nil {
		goapp.Log.Error().Err(err).Msg("can't archive audio")
		return ""
	}
	return name
}
