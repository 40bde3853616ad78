package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Generator renders a preview of sourcePath into destPath. On failure no
// file is left at destPath.
type Generator interface {
	Render(ctx context.Context, sourcePath string, destPath string) error
}

type Options struct {
	MaxDimension    int
	MaxBytes        int
	Quality         int
	FallbackQuality int
}

// JPEGGenerator fits images into a square box, flattens transparency onto
// white and encodes JPEG. Output above MaxBytes is re-encoded once at
// FallbackQuality and kept even if it is still larger.
type JPEGGenerator struct {
	opts Options
}

var _ Generator = (*JPEGGenerator)(nil)

func NewJPEGGenerator(opts Options) *JPEGGenerator {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = 150
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 30 * 1024
	}
	if opts.Quality <= 0 {
		opts.Quality = 85
	}
	if opts.FallbackQuality <= 0 {
		opts.FallbackQuality = 60
	}
	return &JPEGGenerator{opts: opts}
}

func (g *JPEGGenerator) Render(ctx context.Context, sourcePath string, destPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(sourcePath), err)
	}

	preview := imaging.Fit(flatten(src), g.opts.MaxDimension, g.opts.MaxDimension, imaging.Lanczos)

	encoded, err := g.encode(preview)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return writeAtomic(destPath, encoded)
}

func (g *JPEGGenerator) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(g.opts.Quality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	if buf.Len() <= g.opts.MaxBytes {
		return buf.Bytes(), nil
	}

	buf.Reset()
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(g.opts.FallbackQuality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	return buf.Bytes(), nil
}

func flatten(src image.Image) image.Image {
	bounds := src.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(background, src, image.Pt(0, 0), 1.0)
}

func writeAtomic(destPath string, data []byte) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare thumbnail directory: %w", err)
	}

	tempPath := filepath.Join(dir, ".tmp-"+uuid.NewString()+".jpg")
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("write thumbnail: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("store thumbnail: %w", err)
	}

	return nil
}
