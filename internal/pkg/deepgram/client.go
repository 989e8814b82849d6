package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/arimas/srelay/internal/pkg/api"
)

// DefaultURL is the deepgram pre-recorded transcription endpoint
const DefaultURL = "https://api.deepgram.com/v1/listen"

// ErrNoTranscription is returned when the provider response contains no transcript
var ErrNoTranscription = fmt.Errorf("No transcription received")

// Result is a normalized transcription outcome
type Result struct {
	Text       string
	Confidence *float64
	WordCount  int
}

// Client communicates with the deepgram transcription service
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	timeout    time.Duration
}

// NewClient creates a deepgram client
func NewClient(urlStr, key string) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("no key")
	}
	if urlStr == "" {
		urlStr = DefaultURL
	}
	res := Client{}
	res.url = urlStr
	res.key = key
	res.timeout = time.Minute * 2
	res.httpclient = sttHTTPClient()
	return &res, nil
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string   `json:"transcript"`
				Confidence *float64 `json:"confidence"`
				Words      []struct {
					Word string `json:"word"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe sends audio bytes and returns a normalized transcript.
// The first attempt posts raw bytes with only a content type set,
// on an empty transcript one more attempt is made with explicit query params
func (cl *Client) Transcribe(ctx context.Context, audio []byte, language, mimeType string) (*Result, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("no audio data")
	}
	if language == "" {
		language = api.DefaultLanguage
	}
	res, err := cl.call(ctx, cl.url, audio, mimeType)
	if err != nil {
		return nil, err
	}
	if r := mapResult(res); r != nil {
		return r, nil
	}

	goapp.Log.Info().Msg("no transcript, retrying with explicit params")
	prms := url.Values{}
	prms.Set("language", language)
	prms.Set("punctuate", "true")
	prms.Set("smart_format", "true")
	res, err = cl.call(ctx, cl.url+"?"+prms.Encode(), audio, mimeType)
	if err != nil {
		return nil, err
	}
	if r := mapResult(res); r != nil {
		return r, nil
	}
	return nil, ErrNoTranscription
}

func (cl *Client) call(ctx context.Context, urlStr string, audio []byte, mimeType string) (*listenResponse, error) {
	ctx, cancelF := context.WithTimeout(ctx, cl.timeout)
	defer cancelF()
	req, err := http.NewRequest(http.MethodPost, urlStr, bytes.NewReader(audio))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+cl.key)
	if mimeType != "" {
		req.Header.Set("Content-Type", mimeType)
	}
	req = req.WithContext(ctx)
	goapp.Log.Info().Str("url", req.URL.Path).Int("bytes", len(audio)).Msg("call deepgram")
	resp, err := cl.httpclient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return nil, fmt.Errorf("can't invoke deepgram: %w", err)
	}
	res := &listenResponse{}
	if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
		return nil, fmt.Errorf("can't decode response: %w", err)
	}
	return res, nil
}

func mapResult(resp *listenResponse) *Result {
	if len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
		return nil
	}
	alt := resp.Results.Channels[0].Alternatives[0]
	if alt.Transcript == "" {
		return nil
	}
	return &Result{Text: alt.Transcript, Confidence: alt.Confidence, WordCount: len(alt.Words)}
}

func sttHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	// default roundripper is not well suited for our case
	// it has just 2 idle connections per host, so try to tune a bit
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}
