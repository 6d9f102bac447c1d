package filesystem

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Visibility is the public/private read classification of a file.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// ParseVisibility accepts "public" or "private".
func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case Public, Private:
		return Visibility(s), nil
	default:
		return "", fmt.Errorf("unknown visibility %q", s)
	}
}

// MetadataEntry is one backend-specific attribute. Entries keep the order
// in which the adapter added them.
type MetadataEntry struct {
	Key   string
	Value any
}

// FileAttributes describes one stored object. The zero value of every
// optional field means the backend did not report it. Values are built
// fresh per call and are never mutated after construction.
type FileAttributes struct {
	path         string
	fileSize     *int64
	lastModified *int64
	mimeType     *string
	visibility   *Visibility
	extra        []MetadataEntry
}

// AttributeOption sets one optional field of FileAttributes.
type AttributeOption func(*FileAttributes)

func WithFileSize(size int64) AttributeOption {
	return func(a *FileAttributes) { a.fileSize = &size }
}

// WithLastModified takes epoch seconds.
func WithLastModified(unix int64) AttributeOption {
	return func(a *FileAttributes) { a.lastModified = &unix }
}

func WithMimeType(mimeType string) AttributeOption {
	return func(a *FileAttributes) { a.mimeType = &mimeType }
}

func WithVisibility(v Visibility) AttributeOption {
	return func(a *FileAttributes) { a.visibility = &v }
}

// WithExtraMetadata appends an entry, replacing an existing one with the same key in place.
func WithExtraMetadata(key string, value any) AttributeOption {
	return func(a *FileAttributes) {
		for i := range a.extra {
			if a.extra[i].Key == key {
				a.extra[i].Value = value
				return
			}
		}
		a.extra = append(a.extra, MetadataEntry{Key: key, Value: value})
	}
}

func NewFileAttributes(path string, opts ...AttributeOption) FileAttributes {
	a := FileAttributes{path: path}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func (a FileAttributes) Path() string { return a.path }

func (a FileAttributes) FileSize() (int64, bool) {
	if a.fileSize == nil {
		return 0, false
	}
	return *a.fileSize, true
}

func (a FileAttributes) LastModified() (int64, bool) {
	if a.lastModified == nil {
		return 0, false
	}
	return *a.lastModified, true
}

func (a FileAttributes) MimeType() (string, bool) {
	if a.mimeType == nil {
		return "", false
	}
	return *a.mimeType, true
}

func (a FileAttributes) Visibility() (Visibility, bool) {
	if a.visibility == nil {
		return "", false
	}
	return *a.visibility, true
}

// ExtraMetadata returns a copy of the backend-specific entries in insertion order.
func (a FileAttributes) ExtraMetadata() []MetadataEntry {
	if len(a.extra) == 0 {
		return nil
	}
	out := make([]MetadataEntry, len(a.extra))
	copy(out, a.extra)
	return out
}

// Extra looks up a single extra metadata entry.
func (a FileAttributes) Extra(key string) (any, bool) {
	for _, e := range a.extra {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// MarshalJSON writes absent fields as omitted keys and extra metadata as an
// object whose keys keep insertion order.
func (a FileAttributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeJSONField(&buf, "path", a.path, true); err != nil {
		return nil, err
	}
	if a.fileSize != nil {
		if err := writeJSONField(&buf, "file_size", *a.fileSize, false); err != nil {
			return nil, err
		}
	}
	if a.lastModified != nil {
		if err := writeJSONField(&buf, "last_modified", *a.lastModified, false); err != nil {
			return nil, err
		}
	}
	if a.mimeType != nil {
		if err := writeJSONField(&buf, "mime_type", *a.mimeType, false); err != nil {
			return nil, err
		}
	}
	if a.visibility != nil {
		if err := writeJSONField(&buf, "visibility", string(*a.visibility), false); err != nil {
			return nil, err
		}
	}
	if len(a.extra) > 0 {
		buf.WriteString(`,"extra_metadata":{`)
		for i, e := range a.extra {
			if err := writeJSONField(&buf, e.Key, e.Value, i == 0); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONField(buf *bytes.Buffer, key string, value any, first bool) error {
	if !first {
		buf.WriteByte(',')
	}
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
