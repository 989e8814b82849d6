package archive

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		wantExt  string
	}{
		{name: "from file", fileName: "meeting.mp3", mimeType: "audio/webm", wantExt: ".mp3"},
		{name: "upper case", fileName: "meeting.MP3", mimeType: "", wantExt: ".mp3"},
		{name: "no ext", fileName: "", mimeType: "audio/mpeg", wantExt: ".mp3"},
		{name: "unknown", fileName: "", mimeType: "olia/olia", wantExt: ".bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ObjectName(tt.fileName, tt.mimeType)
			assert.True(t, strings.HasSuffix(got, tt.wantExt), "got %s, want suffix %s", got, tt.wantExt)
			assert.Greater(t, len(got), len(tt.wantExt))
		})
	}
}

func TestObjectName_Unique(t *testing.T) {
	assert.NotEqual(t, ObjectName("a.mp3", ""), ObjectName("a.mp3", ""))
}

func TestNewFiler_Fails(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "no URL", opts: Options{Bucket: "olia"}},
		{name: "no bucket", opts: Options{URL: "http://localhost:9000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFiler(context.Background(), tt.opts)
			assert.NotNil(t, err)
		})
	}
}
