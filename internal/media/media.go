package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/pot-code/learnhub/internal/infrastructure/uuid"
	"go.elastic.co/apm"
)

type Bucket string

const (
	BucketCourseMedia Bucket = "course_media"
	BucketMedia       Bucket = "media"
)

// Kind decides the object prefix
type Kind string

const (
	KindLesson Kind = "lesson"
	KindImage  Kind = "image"
	KindVideo  Kind = "video"
	KindAudio  Kind = "audio"
	KindFile   Kind = "file"
)

var prefixes = map[Kind]string{
	KindLesson: "lessons/",
	KindImage:  "images/",
	KindVideo:  "videos/",
	KindAudio:  "audios/",
	KindFile:   "files/",
}

var (
	ErrUnknownBucket = errors.New("Unknown media bucket")
	ErrUnknownKind   = errors.New("Unknown media kind")
	ErrTooLarge      = errors.New("Upload exceeds the size limit")
	ErrObjectMissing = errors.New("Media object not found")
)

func (b Bucket) Valid() bool {
	return b == BucketCourseMedia || b == BucketMedia
}

// Store object storage backend
type Store interface {
	Put(ctx context.Context, bucket Bucket, name, contentType string, r io.Reader) error
	Delete(ctx context.Context, bucket Bucket, name string) error
	PublicURL(bucket Bucket, name string) string
}

// Object an uploaded file
type Object struct {
	Bucket      Bucket `json:"bucket"`
	Path        string `json:"path"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// KindFor guess the kind from a content type, unknown types are plain files
func KindFor(contentType string) Kind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return KindImage
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo
	case strings.HasPrefix(contentType, "audio/"):
		return KindAudio
	}
	return KindFile
}

// Service names, writes and removes media objects
type Service struct {
	Store    Store
	IDs      uuid.Generator
	MaxBytes int64
}

func NewService(store Store, ids uuid.Generator, maxBytes int64) *Service {
	return &Service{Store: store, IDs: ids, MaxBytes: maxBytes}
}

// ObjectPath <prefix><random id>.<ext of filename>
func (s *Service) ObjectPath(kind Kind, filename string) (string, error) {
	prefix, ok := prefixes[kind]
	if !ok {
		return "", ErrUnknownKind
	}
	id, err := s.IDs.Generate()
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(path.Ext(filename))
	return prefix + id + ext, nil
}

// Upload stream r into bucket, size is the declared length and -1 when unknown
func (s *Service) Upload(ctx context.Context, bucket Bucket, kind Kind, filename string, size int64, r io.Reader) (*Object, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "media.Service.Upload", "service")
	defer apmSpan.End()

	if !bucket.Valid() {
		return nil, ErrUnknownBucket
	}
	if s.MaxBytes > 0 {
		if size > s.MaxBytes {
			return nil, ErrTooLarge
		}
		r = &limitedReader{r: r, left: s.MaxBytes}
	}
	name, err := s.ObjectPath(kind, filename)
	if err != nil {
		return nil, err
	}
	contentType := mime.TypeByExtension(path.Ext(name))
	if err := s.Store.Put(ctx, bucket, name, contentType, r); err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("put %s/%s: %w", bucket, name, err)
	}
	return &Object{
		Bucket:      bucket,
		Path:        name,
		URL:         s.Store.PublicURL(bucket, name),
		ContentType: contentType,
	}, nil
}

func (s *Service) Delete(ctx context.Context, bucket Bucket, name string) error {
	apmSpan, ctx := apm.StartSpan(ctx, "media.Service.Delete", "service")
	defer apmSpan.End()

	if !bucket.Valid() {
		return ErrUnknownBucket
	}
	return s.Store.Delete(ctx, bucket, strings.TrimLeft(name, "/"))
}

// limitedReader fails instead of truncating once the limit is crossed
type limitedReader struct {
	r    io.Reader
	left int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
