// Package imagenorm turns uploaded photos into opaque, size-bounded JPEG bytes.
package imagenorm

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers the webp decoder

	"relatorios/internal/apperrors"
)

const (
	MaxWidth  = 800
	MaxHeight = 600
	Quality   = 85
)

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"webp": true,
}

// Extension returns the lower-cased extension of filename including the dot.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// ValidateExtension checks filename against the upload allow-list. Only the
// declared extension is inspected, the content is not sniffed.
func ValidateExtension(filename string) error {
	ext := Extension(filename)
	if !allowedExtensions[strings.TrimPrefix(ext, ".")] {
		return apperrors.UnsupportedFormat(ext)
	}
	return nil
}

// Normalize validates, decodes, flattens, downscales and re-encodes an upload.
func Normalize(filename string, raw []byte) ([]byte, error) {
	if err := ValidateExtension(filename); err != nil {
		return nil, err
	}
	img, err := decode(raw)
	if err != nil {
		return nil, err
	}
	img = imaging.Fit(flatten(img), MaxWidth, MaxHeight, imaging.Lanczos)
	return encode(img)
}

// NormalizeDataURI decodes a "<header>,<base64>" payload and re-encodes it
// without resizing, so in-place edits keep the dimensions already on disk.
func NormalizeDataURI(dataURI string) ([]byte, error) {
	_, payload, ok := strings.Cut(dataURI, ",")
	if !ok {
		return nil, apperrors.Decode(apperrors.New("data URI has no payload separator"))
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, apperrors.Decode(err)
	}
	img, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return encode(flatten(img))
}

// ToJPEG re-encodes any decodable image as opaque JPEG at the original size.
func ToJPEG(raw []byte) ([]byte, error) {
	img, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return encode(flatten(img))
}

func decode(raw []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.Decode(err)
	}
	return img, nil
}

// flatten composites img over an opaque white canvas of the same size.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	background := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(Quality)); err != nil {
		return nil, apperrors.Storage("failed to encode image", err)
	}
	return buf.Bytes(), nil
}
