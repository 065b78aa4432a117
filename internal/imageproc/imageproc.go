package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var ErrEncodeUnsupported = errors.New("no encoder for image format")

const (
	DefaultThumbnailWidth  = 200
	DefaultThumbnailHeight = 200
	DefaultOptimizeQuality = 80

	thumbnailJPEGQuality = 85
)

// Options configures a Processor. Zero values fall back to the defaults above.
type Options struct {
	ThumbnailWidth  int
	ThumbnailHeight int
	OptimizeQuality int
}

// Processor derives thumbnails and optimized re-encodings from stored images.
// It works on byte streams so it does not care which storage backend holds the files.
type Processor struct {
	thumbW  int
	thumbH  int
	quality int
}

func New(opt Options) *Processor {
	p := &Processor{
		thumbW:  opt.ThumbnailWidth,
		thumbH:  opt.ThumbnailHeight,
		quality: opt.OptimizeQuality,
	}
	if p.thumbW <= 0 {
		p.thumbW = DefaultThumbnailWidth
	}
	if p.thumbH <= 0 {
		p.thumbH = DefaultThumbnailHeight
	}
	if p.quality <= 0 || p.quality > 100 {
		p.quality = DefaultOptimizeQuality
	}
	return p
}

// ThumbnailBox returns the bounding box thumbnails are fitted into.
func (p *Processor) ThumbnailBox() (int, int) {
	return p.thumbW, p.thumbH
}

// Thumbnail scales src down to fit the configured box with Lanczos resampling.
// Aspect ratio is preserved and images already inside the box are not upscaled.
// The output is encoded in the format implied by name.
func (p *Processor) Thumbnail(src io.Reader, name string) ([]byte, error) {
	format, err := encoderFor(name)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	thumb := imaging.Fit(img, p.thumbW, p.thumbH, imaging.Lanczos)
	return encode(thumb, format, imaging.JPEGQuality(thumbnailJPEGQuality))
}

// Optimize re-encodes src at reduced quality. Images with transparency are flattened onto opaque white
// first, so the result never carries an alpha channel.
func (p *Processor) Optimize(src io.Reader, name string) ([]byte, error) {
	format, err := encoderFor(name)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return encode(Flatten(img), format,
		imaging.JPEGQuality(p.quality),
		imaging.PNGCompressionLevel(png.BestCompression),
	)
}

// Flatten composites img over an opaque white background. Opaque images are returned unchanged.
func Flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func encoderFor(name string) (imaging.Format, error) {
	f, err := imaging.FormatFromFilename(name)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, ErrEncodeUnsupported)
	}
	return f, nil
}

func encode(img image.Image, format imaging.Format, opts ...imaging.EncodeOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, opts...); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
