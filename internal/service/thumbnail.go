package service

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"path"
	"strings"
	"time"

	"quiz_engine_backend/internal/config"
	"quiz_engine_backend/internal/util"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// ThumbnailProcessor normalizes uploaded cover images into bounded WebP files.
type ThumbnailProcessor struct {
	MaxWidth  int
	MaxHeight int
	Quality   float32
	MaxBytes  int64
}

func NewThumbnailProcessor(cfg config.ThumbnailConfig) *ThumbnailProcessor {
	return &ThumbnailProcessor{
		MaxWidth:  cfg.MaxWidth,
		MaxHeight: cfg.MaxHeight,
		Quality:   cfg.Quality,
		MaxBytes:  int64(cfg.MaxUploadMB) << 20,
	}
}

// Process decodes a jpeg, png or webp image, downscales it to fit the
// configured box and re-encodes it as WebP.
func (p *ThumbnailProcessor) Process(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, util.NewValidationError("thumbnail", "empty file")
	}
	if p.MaxBytes > 0 && int64(len(data)) > p.MaxBytes {
		return nil, util.NewValidationError("thumbnail", fmt.Sprintf("file exceeds %d bytes", p.MaxBytes))
	}

	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	img = downscale(img, p.MaxWidth, p.MaxHeight)

	quality := p.Quality
	if quality <= 0 {
		quality = 80
	}
	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Lossless: false, Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

// ObjectKey returns a fresh, date-partitioned key for a thumbnail blob.
func (p *ThumbnailProcessor) ObjectKey(now time.Time) string {
	return path.Join(util.ThumbnailFolder, now.UTC().Format("2006/01"), uuid.NewString()+".webp")
}

func decodeImage(data []byte) (image.Image, error) {
	ct, _ := util.SniffMimeType(data)

	var (
		img image.Image
		err error
	)
	switch {
	case strings.Contains(ct, "jpeg"):
		img, err = jpeg.Decode(bytes.NewReader(data))
	case strings.Contains(ct, "png"):
		img, err = png.Decode(bytes.NewReader(data))
	case strings.Contains(ct, "webp"):
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return nil, util.NewValidationError("thumbnail", "unsupported image format "+ct)
	}
	if err != nil {
		return nil, util.NewValidationError("thumbnail", "cannot decode image")
	}
	return img, nil
}

// downscale keeps the aspect ratio and never upscales.
func downscale(src image.Image, maxW, maxH int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if (maxW <= 0 || w <= maxW) && (maxH <= 0 || h <= maxH) {
		return src
	}

	scale := 1.0
	if maxW > 0 {
		scale = math.Min(scale, float64(maxW)/float64(w))
	}
	if maxH > 0 {
		scale = math.Min(scale, float64(maxH)/float64(h))
	}
	nw := int(math.Max(1, math.Round(float64(w)*scale)))
	nh := int(math.Max(1, math.Round(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
