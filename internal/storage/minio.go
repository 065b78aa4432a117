package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"imgupload/internal/config"
)

// minioStorage implements ImageStore on an S3-compatible backend (MinIO, AWS S3, etc.).
// Objects live under a key prefix so originals and thumbnails can share one bucket.
// It is safe for concurrent use by multiple goroutines.
type minioStorage struct {
	client  *minio.Client
	bucket  string
	prefix  string
	exclude map[string]bool
}

// NewMinIO creates an S3-compatible store backed by MinIO.
// It validates connectivity and ensures the bucket exists (creates it if missing).
// Outbound S3 calls are traced through the global tracer provider.
func NewMinIO(cfg config.MinIOConfig, prefix string, exclude ...string) (ImageStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	tr, err := minio.DefaultTransport(cfg.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("create minio transport: %w", err)
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Transport: otelhttp.NewTransport(tr),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return newMinIOStorage(cli, cfg.Bucket, prefix, exclude...), nil
}

func newMinIOStorage(cli *minio.Client, bucket, prefix string, exclude ...string) *minioStorage {
	ex := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		ex[e] = true
	}
	return &minioStorage{client: cli, bucket: bucket, prefix: normalizePrefix(prefix), exclude: ex}
}

func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

func (m *minioStorage) key(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return m.prefix + name, nil
}

// Put uploads an object using streaming I/O only.
func (m *minioStorage) Put(ctx context.Context, name string, r io.Reader, size int64) (ObjectInfo, error) {
	key, err := m.key(name)
	if err != nil {
		return ObjectInfo{}, err
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: ContentType(name),
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put %s: %w", name, err)
	}
	modTime := info.LastModified
	if modTime.IsZero() {
		// PutObject does not always report LastModified
		modTime = time.Now()
	}
	return ObjectInfo{Name: name, Size: info.Size, ModTime: modTime}, nil
}

// Get downloads an object content as a ReadCloser along with basic info.
func (m *minioStorage) Get(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error) {
	key, err := m.key(name)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, mapMinIOError(name, err)
	}
	// Fetch stat to populate info; avoid reading content into memory.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, ObjectInfo{}, mapMinIOError(name, err)
	}
	return obj, ObjectInfo{Name: name, Size: st.Size, ModTime: st.LastModified}, nil
}

func (m *minioStorage) Stat(ctx context.Context, name string) (ObjectInfo, error) {
	key, err := m.key(name)
	if err != nil {
		return ObjectInfo{}, err
	}
	st, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, mapMinIOError(name, err)
	}
	return ObjectInfo{Name: name, Size: st.Size, ModTime: st.LastModified}, nil
}

// List is non-recursive; nested prefixes (such as the thumbnail prefix) come back as
// directory markers and are skipped.
func (m *minioStorage) List(ctx context.Context) ([]ObjectInfo, error) {
	items := make([]ObjectInfo, 0)
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    m.prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", m.prefix, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, m.prefix)
		if name == "" || strings.HasSuffix(name, "/") || m.exclude[name] {
			continue
		}
		items = append(items, ObjectInfo{Name: name, Size: obj.Size, ModTime: obj.LastModified})
	}
	return items, nil
}

// Delete removes an object by name. S3 deletes are idempotent, so existence is checked first.
func (m *minioStorage) Delete(ctx context.Context, name string) error {
	if _, err := m.Stat(ctx, name); err != nil {
		return err
	}
	key, _ := m.key(name)
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (m *minioStorage) Ping(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", m.bucket)
	}
	return nil
}

func mapMinIOError(name string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return err
}
