package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"imgupload/internal/imageproc"
	"imgupload/internal/metrics"
	"imgupload/internal/model"
	"imgupload/internal/naming"
	"imgupload/internal/storage"
	"imgupload/internal/validation"
)

const (
	// PublicPrefix is the URL prefix originals are served under.
	PublicPrefix = "/uploads/"
	// ThumbnailPrefix is the URL prefix thumbnails are served under.
	ThumbnailPrefix = "/uploads/thumbnails/"

	fallbackStem = "image"
)

var (
	ErrNoFile   = errors.New("no file uploaded")
	ErrNoFiles  = errors.New("no files uploaded")
	ErrNotFound = errors.New("image not found")
)

// UploadInput is one file taken from a multipart request.
type UploadInput struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// Options selects the optional derived steps.
type Options struct {
	Thumbnail bool
	Optimize  bool
}

// Outcome reports a best-effort step. Attempted is false when the step was not requested.
type Outcome struct {
	Attempted bool
	OK        bool
	Err       error
}

// UploadResult is the stored image plus the outcome of each derived step.
type UploadResult struct {
	Image     model.Image
	Thumbnail Outcome
	Optimize  Outcome
}

// MultiResult aggregates a multi-file upload. Skipped holds names rejected by validation.
type MultiResult struct {
	Uploaded []UploadResult
	Skipped  []string
}

// Images returns the stored images in upload order.
func (r *MultiResult) Images() []model.Image {
	out := make([]model.Image, 0, len(r.Uploaded))
	for _, u := range r.Uploaded {
		out = append(out, u.Image)
	}
	return out
}

// ImageService defines the use cases for handling uploaded images.
type ImageService interface {
	// Upload validates, names and stores one file, then runs the requested derived steps.
	// Validation failures return the validation sentinel errors unchanged.
	Upload(ctx context.Context, in *UploadInput, opt Options) (*UploadResult, error)

	// UploadMany stores every valid file. Files failing validation are skipped, not reported as errors.
	// A storage failure aborts the whole batch.
	UploadMany(ctx context.Context, files []UploadInput, opt Options) (*MultiResult, error)

	// List returns stored originals sorted by filename, with sizes and dates read fresh from the store.
	List(ctx context.Context) ([]model.CatalogEntry, error)

	// Open returns the content of an original, or of its thumbnail.
	Open(ctx context.Context, name string, thumbnail bool) (io.ReadCloser, storage.ObjectInfo, error)

	// Delete removes the original and its thumbnail if one exists.
	Delete(ctx context.Context, name string) error

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}

type imageService struct {
	originals storage.ImageStore
	thumbs    storage.ImageStore
	namer     naming.Namer
	proc      *imageproc.Processor
	metrics   *metrics.Pipeline
	log       *zap.Logger
	tracer    trace.Tracer
}

// NewImageService constructs an ImageService. m may be nil.
func NewImageService(originals, thumbs storage.ImageStore, namer naming.Namer, proc *imageproc.Processor, m *metrics.Pipeline, log *zap.Logger) ImageService {
	if log == nil {
		log = zap.NewNop()
	}
	return &imageService{
		originals: originals,
		thumbs:    thumbs,
		namer:     namer,
		proc:      proc,
		metrics:   m,
		log:       log,
		tracer:    otel.Tracer("imgupload/service"),
	}
}

func (s *imageService) Upload(ctx context.Context, in *UploadInput, opt Options) (*UploadResult, error) {
	if in == nil || in.Open == nil {
		return nil, ErrNoFile
	}
	if err := validation.ValidateUpload(in.Filename); err != nil {
		return nil, err
	}
	return s.store(ctx, in, opt)
}

func (s *imageService) UploadMany(ctx context.Context, files []UploadInput, opt Options) (*MultiResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	res := &MultiResult{Uploaded: make([]UploadResult, 0, len(files))}
	for i := range files {
		in := &files[i]
		if in.Open == nil || validation.ValidateUpload(in.Filename) != nil {
			res.Skipped = append(res.Skipped, in.Filename)
			continue
		}
		up, err := s.store(ctx, in, opt)
		if err != nil {
			return nil, err
		}
		res.Uploaded = append(res.Uploaded, *up)
	}

	if len(res.Skipped) > 0 {
		s.metrics.Skipped(len(res.Skipped))
		s.log.Info("multi upload skipped invalid files", zap.Strings("files", res.Skipped))
	}
	return res, nil
}

// store runs the pipeline for one validated file: name, write, thumbnail, optimize.
func (s *imageService) store(ctx context.Context, in *UploadInput, opt Options) (*UploadResult, error) {
	ctx, span := s.tracer.Start(ctx, "ImageService.store")
	defer span.End()

	original := storedBaseName(in.Filename)
	name := s.namer.Name(original)
	span.SetAttributes(attribute.String("image.filename", name))

	rc, err := in.Open()
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("open upload %s: %w", in.Filename, err))
	}
	defer rc.Close()

	info, err := s.originals.Put(ctx, name, rc, in.Size)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("store %s: %w", name, err))
	}
	s.metrics.Stored(info.Size)
	span.SetAttributes(attribute.Int64("image.size", info.Size))

	res := &UploadResult{Image: model.Image{
		Filename:     name,
		OriginalName: original,
		Size:         info.Size,
		Path:         PublicPrefix + name,
		UploadDate:   info.ModTime,
	}}

	if opt.Thumbnail {
		res.Thumbnail = s.thumbnail(ctx, name)
		if res.Thumbnail.OK {
			res.Image.Thumbnail = ThumbnailPrefix + name
		}
	}
	if opt.Optimize {
		res.Optimize = s.optimize(ctx, name)
	}

	s.log.Info("image stored",
		zap.String("filename", name),
		zap.String("original_name", original),
		zap.Int64("size", info.Size),
	)
	return res, nil
}

func (s *imageService) thumbnail(ctx context.Context, name string) Outcome {
	ctx, span := s.tracer.Start(ctx, "ImageService.thumbnail")
	defer span.End()

	err := func() error {
		rc, _, err := s.originals.Get(ctx, name)
		if err != nil {
			return err
		}
		defer rc.Close()

		data, err := s.proc.Thumbnail(rc, name)
		if err != nil {
			return err
		}
		_, err = s.thumbs.Put(ctx, name, bytes.NewReader(data), int64(len(data)))
		return err
	}()
	return s.outcome(span, metrics.StepThumbnail, name, err)
}

// optimize rewrites the original in place. On failure the stored bytes are left untouched.
func (s *imageService) optimize(ctx context.Context, name string) Outcome {
	ctx, span := s.tracer.Start(ctx, "ImageService.optimize")
	defer span.End()

	err := func() error {
		rc, _, err := s.originals.Get(ctx, name)
		if err != nil {
			return err
		}
		data, err := s.proc.Optimize(rc, name)
		rc.Close()
		if err != nil {
			return err
		}
		_, err = s.originals.Put(ctx, name, bytes.NewReader(data), int64(len(data)))
		return err
	}()
	return s.outcome(span, metrics.StepOptimize, name, err)
}

func (s *imageService) outcome(span trace.Span, step, name string, err error) Outcome {
	s.metrics.Step(step, err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, step+" failed")
		s.log.Warn(step+" failed", zap.String("filename", name), zap.Error(err))
		return Outcome{Attempted: true, Err: err}
	}
	return Outcome{Attempted: true, OK: true}
}

func (s *imageService) List(ctx context.Context) ([]model.CatalogEntry, error) {
	ctx, span := s.tracer.Start(ctx, "ImageService.List")
	defer span.End()

	objs, err := s.originals.List(ctx)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("list images: %w", err))
	}

	items := make([]model.CatalogEntry, 0, len(objs))
	for _, o := range objs {
		items = append(items, model.CatalogEntry{
			Filename:   o.Name,
			Path:       PublicPrefix + o.Name,
			Size:       o.Size,
			UploadDate: o.ModTime,
		})
	}
	slices.SortFunc(items, func(a, b model.CatalogEntry) int {
		return strings.Compare(a.Filename, b.Filename)
	})
	return items, nil
}

func (s *imageService) Open(ctx context.Context, name string, thumbnail bool) (io.ReadCloser, storage.ObjectInfo, error) {
	store := s.originals
	if thumbnail {
		store = s.thumbs
	}
	rc, info, err := store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
			return nil, storage.ObjectInfo{}, ErrNotFound
		}
		return nil, storage.ObjectInfo{}, err
	}
	return rc, info, nil
}

func (s *imageService) Delete(ctx context.Context, name string) error {
	ctx, span := s.tracer.Start(ctx, "ImageService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("image.filename", name))

	if !storage.ValidName(name) {
		return ErrNotFound
	}

	if err := s.originals.Delete(ctx, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return s.fail(span, fmt.Errorf("delete %s: %w", name, err))
	}

	if err := s.thumbs.Delete(ctx, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return s.fail(span, fmt.Errorf("delete thumbnail %s: %w", name, err))
	}

	s.metrics.Deleted()
	s.log.Info("image deleted", zap.String("filename", name))
	return nil
}

func (s *imageService) Ping(ctx context.Context) error {
	return s.originals.Ping(ctx)
}

func (s *imageService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// storedBaseName sanitizes an already validated upload name. When sanitizing strips the extension
// (e.g. a fully non-Latin stem), the name falls back to "image" plus the validated extension.
func storedBaseName(raw string) string {
	clean := validation.SanitizeFilename(raw)
	if validation.AllowedFile(clean) {
		return clean
	}
	return fallbackStem + strings.ToLower(path.Ext(strings.ReplaceAll(raw, `\`, "/")))
}
