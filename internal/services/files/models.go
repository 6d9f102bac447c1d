package files

import (
	"time"

	"github.com/asad/azurefs/internal/filesystem"
)

// TransferRequest is the body of POST /copy and POST /move.
type TransferRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// ListResult is the response of GET /list.
type ListResult struct {
	Prefix string                      `json:"prefix"`
	Deep   bool                        `json:"deep"`
	Items  []filesystem.FileAttributes `json:"items"`
}

// AttributesResult combines the object attributes with the container
// visibility.
type AttributesResult struct {
	Path          string                `json:"path"`
	FileSize      *int64                `json:"file_size,omitempty"`
	LastModified  *int64                `json:"last_modified,omitempty"`
	MimeType      *string               `json:"mime_type,omitempty"`
	Visibility    filesystem.Visibility `json:"visibility"`
	ExtraMetadata map[string]any        `json:"extra_metadata,omitempty"`
}

func newAttributesResult(attrs filesystem.FileAttributes, visibility filesystem.Visibility) AttributesResult {
	res := AttributesResult{Path: attrs.Path(), Visibility: visibility}
	if size, ok := attrs.FileSize(); ok {
		res.FileSize = &size
	}
	if modified, ok := attrs.LastModified(); ok {
		res.LastModified = &modified
	}
	if mimeType, ok := attrs.MimeType(); ok {
		res.MimeType = &mimeType
	}
	if extra := attrs.ExtraMetadata(); len(extra) > 0 {
		res.ExtraMetadata = make(map[string]any, len(extra))
		for _, e := range extra {
			res.ExtraMetadata[e.Key] = e.Value
		}
	}
	return res
}

// URLResult is the response of GET /url and GET /temporary-url.
type URLResult struct {
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
}
