// Package media prepares uploaded post images and hands them to the image
// host.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"net/http"
	"strings"

	"snapgram/internal/models"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	MaxDimension = 2048
	JPEGQuality  = 82

	DefaultMaxUploadSizeMB = 10
)

// Normalized is an upload re-encoded as JPEG.
type Normalized struct {
	Data        []byte
	Width       int
	Height      int
	ContentType string
}

// Normalize validates an uploaded image, scales it to fit within
// MaxDimension on both axes and re-encodes it as JPEG. Transparent areas are
// flattened onto white. maxBytes <= 0 disables the size check.
func Normalize(content []byte, maxBytes int64) (*Normalized, error) {
	if len(content) == 0 {
		return nil, models.NewBadRequestError("Empty image file")
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return nil, models.NewBadRequestError(fmt.Sprintf("File too large (max %dMB)", maxBytes/(1024*1024)))
	}
	if !isAllowedImageMIME(http.DetectContentType(content)) {
		return nil, models.NewBadRequestError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewBadRequestError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewBadRequestError("Unsupported image format")
	}

	flat := resizeToFit(decoded, MaxDimension, MaxDimension)
	out, err := encodeJPEG(flat, JPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	b := flat.Bounds()
	return &Normalized{
		Data:        out,
		Width:       b.Dx(),
		Height:      b.Dy(),
		ContentType: "image/jpeg",
	}, nil
}

// resizeToFit returns src scaled down to fit maxWidth x maxHeight, drawn on
// an opaque white canvas.
func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	newW, newH := w, h
	if w > maxWidth || h > maxHeight {
		scale := float64(maxWidth) / float64(w)
		if s := float64(maxHeight) / float64(h); s < scale {
			scale = s
		}
		newW = max(int(float64(w)*scale), 1)
		newH = max(int(float64(h)*scale), 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if newW == w && newH == h {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "webp":
		return true
	default:
		return false
	}
}
