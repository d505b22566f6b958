package media

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

const uploadTimeout = 2 * time.Minute

// GCSStore Store backed by Google Cloud Storage
type GCSStore struct {
	client    *storage.Client
	cdnDomain string
}

var _ Store = &GCSStore{}

// NewGCSStore application default credentials are used when credentialsFile is empty
func NewGCSStore(ctx context.Context, credentialsFile, cdnDomain string) (*GCSStore, error) {
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create storage client")
	}
	return &GCSStore{client: client, cdnDomain: cdnDomain}, nil
}

func (gs *GCSStore) Put(ctx context.Context, bucket Bucket, name, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := gs.client.Bucket(string(bucket)).Object(name).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return errors.Wrap(w.Close(), "close GCS writer")
}

func (gs *GCSStore) Delete(ctx context.Context, bucket Bucket, name string) error {
	err := gs.client.Bucket(string(bucket)).Object(name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectMissing
	}
	return errors.Wrap(err, "delete GCS object")
}

func (gs *GCSStore) PublicURL(bucket Bucket, name string) string {
	return publicURL(gs.cdnDomain, bucket, name)
}

func (gs *GCSStore) Close() error {
	return gs.client.Close()
}

func publicURL(cdnDomain string, bucket Bucket, name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s/%s", cdnDomain, bucket, name)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, name)
}
