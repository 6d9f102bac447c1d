// Package filesystem defines the storage-agnostic file contract that
// backends implement, along with the attribute, error and listing types
// shared by every backend.
package filesystem

import (
	"context"
	"io"
	"time"
)

// Adapter is the contract a storage backend implements.
//
// Paths are slash-separated and case-sensitive with no leading slash.
// Every call is independent: adapters hold no per-call state.
type Adapter interface {
	FileExists(ctx context.Context, path string) (bool, error)
	DirectoryExists(ctx context.Context, path string) (bool, error)

	Write(ctx context.Context, path string, contents []byte, cfg Config) error
	WriteStream(ctx context.Context, path string, contents io.Reader, cfg Config) error
	Read(ctx context.Context, path string) ([]byte, error)
	ReadStream(ctx context.Context, path string) (io.ReadCloser, error)

	Delete(ctx context.Context, path string) error
	DeleteDirectory(ctx context.Context, path string) error
	CreateDirectory(ctx context.Context, path string, cfg Config) error

	SetVisibility(ctx context.Context, path string, visibility Visibility) error
	Visibility(ctx context.Context, path string) (FileAttributes, error)
	MimeType(ctx context.Context, path string) (FileAttributes, error)
	LastModified(ctx context.Context, path string) (FileAttributes, error)
	FileSize(ctx context.Context, path string) (FileAttributes, error)

	// ListContents returns a lazy listing; no backend call happens until
	// the first Next.
	ListContents(ctx context.Context, path string, deep bool) *Listing

	Move(ctx context.Context, source, destination string, cfg Config) error
	Copy(ctx context.Context, source, destination string, cfg Config) error
}

// URLGenerator is implemented by adapters that can build direct links.
type URLGenerator interface {
	URL(path string) string
}

// UploadURL is a signed upload target plus any headers the client must send.
type UploadURL struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// TemporaryURLGenerator is implemented by adapters that can sign
// time-limited links.
type TemporaryURLGenerator interface {
	ProvidesTemporaryURLs() bool
	TemporaryURL(ctx context.Context, path string, expiration time.Time, cfg Config) (string, error)
	TemporaryUploadURL(ctx context.Context, path string, expiration time.Time, cfg Config) (UploadURL, error)
}

// Config carries per-call options such as the content type of an upload.
// A Config is never mutated; With returns a modified copy.
type Config struct {
	values map[string]any
}

// Option keys understood by the bundled adapters.
const (
	OptionContentType = "ContentType"
	OptionMimeType    = "mimetype"
)

func NewConfig(values map[string]any) Config {
	c := Config{values: make(map[string]any, len(values))}
	for k, v := range values {
		c.values[k] = v
	}
	return c
}

func (c Config) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// String returns the option as a string, or def when absent or not a string.
func (c Config) String(key, def string) string {
	if v, ok := c.values[key].(string); ok {
		return v
	}
	return def
}

func (c Config) With(key string, value any) Config {
	next := NewConfig(c.values)
	next.values[key] = value
	return next
}
