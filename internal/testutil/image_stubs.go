// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"sync"
)

// UploaderStub is an in-memory image host for tests.
type UploaderStub struct {
	mu      sync.Mutex
	uploads map[string][]byte
	order   []string
	// Err, when set, is returned by every Upload call.
	Err error
}

// NewUploaderStub creates an empty UploaderStub.
func NewUploaderStub() *UploaderStub {
	return &UploaderStub{uploads: make(map[string][]byte)}
}

// Upload stores data and returns a deterministic URL.
func (s *UploaderStub) Upload(_ context.Context, filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	url := fmt.Sprintf("https://cdn.test/%d/%s", len(s.order)+1, filename)
	s.uploads[url] = data
	s.order = append(s.order, url)
	return url, nil
}

// URLs returns the uploaded URLs in upload order.
func (s *UploaderStub) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Data returns the bytes stored under url.
func (s *UploaderStub) Data(url string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads[url]
}

type fataler interface {
	Helper()
	Fatalf(string, ...any)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t fataler, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// TinyGIF returns a single-frame GIF, a format uploads must reject.
func TinyGIF(t fataler, w, h int) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{color.Black, color.White})
	buf := bytes.NewBuffer(nil)
	if err := gif.Encode(buf, img, nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}
