package archive

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options is minio config for the audio archive
type Options struct {
	URL    string
	Bucket string
	User   string
	Key    string
}

// Filer keeps raw audio payloads in an object store
type Filer struct {
	client *minio.Client
	bucket string
}

// NewFiler creates the archive filer and makes sure the bucket exists
func NewFiler(ctx context.Context, opts Options) (*Filer, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("no URL")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("no bucket")
	}
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("can't parse url: %w", err)
	}
	cl, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Key, ""),
		Secure: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("can't init minio client: %w", err)
	}
	res := &Filer{client: cl, bucket: opts.Bucket}
	exists, err := cl.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("can't check bucket: %w", err)
	}
	if !exists {
		if err := cl.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("can't create bucket '%s': %w", opts.Bucket, err)
		}
		goapp.Log.Info().Str("bucket", opts.Bucket).Msg("created bucket")
	}
	return res, nil
}

// SaveAudio stores one audio payload under name
func (f *Filer) SaveAudio(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	goapp.Log.Info().Str("name", name).Int64("size", size).Msg("archive audio")
	_, err := f.client.PutObject(ctx, f.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchBucket" {
			return fmt.Errorf("no bucket '%s': %w", f.bucket, err)
		}
		return fmt.Errorf("can't put object: %w", err)
	}
	return nil
}

var audioExt = map[string]string{
	"audio/webm": ".webm",
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
	"audio/wav":  ".wav",
	"audio/ogg":  ".ogg",
}

// ObjectName makes a unique archive object name keeping the audio extension
func ObjectName(fileName, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		mt, _, err := mime.ParseMediaType(mimeType)
		if err == nil {
			ext = audioExt[mt]
		}
	}
	if ext == "" {
		ext = ".bin"
	}
	return uuid.New().String() + ext
}
