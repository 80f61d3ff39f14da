// Package imaging normalizes uploaded reference images before they are
// attached to a backend call or cached for regeneration.
//
// Sanitize enforces the upload contract (allowed types, size ceiling) and
// re-encodes every accepted image as baseline JPEG, downscaled so neither
// dimension exceeds the configured bound. The re-encode is what strips
// embedded metadata (EXIF camera/location tags); it is a required side effect
// of sanitization, not an optimization.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	// Register decoders for the allowed input formats.
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Sentinel errors for the upload contract. Decode/encode failures are
// returned wrapped and can be distinguished from contract violations with
// errors.Is.
var (
	// ErrUnsupportedType is returned when the declared MIME type is not an
	// allowed image format.
	ErrUnsupportedType = errors.New("unsupported image type")

	// ErrTooLarge is returned when the upload exceeds the size ceiling.
	ErrTooLarge = errors.New("image too large")
)

// allowedMIME is the accepted declared-type set for uploads.
var allowedMIME = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// Sanitizer re-encodes uploaded images into a single canonical format.
//
// Sanitizer is stateless and safe for concurrent use.
type Sanitizer struct {
	// MaxBytes is the upload ceiling; inputs larger than this are rejected
	// before decoding.
	MaxBytes int64
	// MaxDim bounds both output dimensions. Images already within bounds are
	// never upscaled.
	MaxDim int
	// JPEGQuality is the re-encode quality setting, typically 80.
	JPEGQuality int
}

// NewSanitizer constructs a Sanitizer, coercing non-positive settings to the
// production defaults (5 MiB, 1024px, quality 80).
func NewSanitizer(maxBytes int64, maxDim, quality int) *Sanitizer {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	if maxDim <= 0 {
		maxDim = 1024
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Sanitizer{MaxBytes: maxBytes, MaxDim: maxDim, JPEGQuality: quality}
}

// Sanitize validates and canonicalizes one uploaded image.
//
// Steps, in order:
//  1. reject when declaredMIME is not jpeg/png/webp (ErrUnsupportedType);
//  2. reject when the payload exceeds MaxBytes (ErrTooLarge);
//  3. decode, downscale so the longer side is at most MaxDim while preserving
//     aspect ratio (images already within bounds keep their dimensions);
//  4. re-encode as JPEG, which drops any embedded metadata.
//
// The returned bytes are always a fresh JPEG, even when the input was already
// JPEG and within bounds, so callers can rely on metadata having been
// discarded.
func (s *Sanitizer) Sanitize(data []byte, declaredMIME string) ([]byte, error) {
	if _, ok := allowedMIME[declaredMIME]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, declaredMIME)
	}
	if int64(len(data)) > s.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(data), s.MaxBytes)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	out := s.scaleDown(src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: s.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// scaleDown returns src resized so that max(w, h) <= MaxDim, or src unchanged
// when it is already within bounds.
func (s *Sanitizer) scaleDown(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= s.MaxDim && h <= s.MaxDim {
		return src
	}

	// Scale by the longer side; integer truncation may undershoot by a pixel
	// but never exceeds the bound.
	var dw, dh int
	if w >= h {
		dw = s.MaxDim
		dh = h * s.MaxDim / w
	} else {
		dh = s.MaxDim
		dw = w * s.MaxDim / h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
