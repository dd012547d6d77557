package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/cyclopcam/logs"
	"google.golang.org/api/iterator"
)

// Upper bound on a single metadata operation. Uploads and downloads are bounded by the caller closing the stream.
const gcsTimeout = 30 * time.Second

// StorageGCS keeps snapshots in a Google Cloud Storage bucket.
// If the bucket is publicly readable, snapshot links point straight at GCS instead of through our API.
type StorageGCS struct {
	bucketName string
	bucket     *gcs.BucketHandle
	isPublic   bool
	log        logs.Log
}

func NewStorageGCS(log logs.Log, bucketName string, isPublic bool) (*StorageGCS, error) {
	client, err := gcs.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("Failed to create GCS client: %w", err)
	}
	log.Infof("Snapshots go to gs://%v (public: %v)", bucketName, isPublic)
	return &StorageGCS{
		bucketName: bucketName,
		bucket:     client.Bucket(bucketName),
		isPublic:   isPublic,
		log:        log,
	}, nil
}

// Snapshot names are unique and never rewritten, so public objects can be cached forever
func (s *StorageGCS) WriteFile(name string) (io.WriteCloser, error) {
	w := s.bucket.Object(name).NewWriter(context.Background())
	w.ContentType = contentType(name)
	if s.isPublic {
		w.CacheControl = "public, max-age=31536000, immutable"
	}
	return w, nil
}

func (s *StorageGCS) ReadFile(name string) (*File, error) {
	r, err := s.bucket.Object(name).NewReader(context.Background())
	if err != nil {
		return nil, gcsError(name, err)
	}
	return &File{
		Reader:     r,
		ModifiedAt: r.Attrs.LastModified,
		Size:       r.Attrs.Size,
	}, nil
}

func (s *StorageGCS) DeleteFile(name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), gcsTimeout)
	defer cancel()
	s.log.Infof("Deleting gs://%v/%v", s.bucketName, name)
	return gcsError(name, s.bucket.Object(name).Delete(ctx))
}

func (s *StorageGCS) ListFiles(prefix string) ([]FileInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gcsTimeout)
	defer cancel()
	q := &gcs.Query{Prefix: prefix}
	if err := q.SetAttrSelection([]string{"Name", "Updated", "Size"}); err != nil {
		return nil, err
	}
	it := s.bucket.Objects(ctx, q)
	files := []FileInfo{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Failed to list gs://%v/%v: %w", s.bucketName, prefix, err)
		}
		files = append(files, FileInfo{
			Name:       attrs.Name,
			ModifiedAt: attrs.Updated,
			Size:       attrs.Size,
		})
	}
	return files, nil
}

func (s *StorageGCS) URL(name string) (string, error) {
	if !s.isPublic {
		return "", ErrNoPublicUrl
	}
	return publicObjectURL(s.bucketName, name), nil
}

func publicObjectURL(bucket, name string) string {
	parts := strings.Split(name, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return "https://storage.googleapis.com/" + bucket + "/" + strings.Join(parts, "/")
}

func contentType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Missing objects look the same as missing files on the filesystem backend
func gcsError(name string, err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("%v: %w", name, fs.ErrNotExist)
	}
	return err
}
