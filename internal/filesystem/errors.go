package filesystem

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a filesystem failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotSupported marks a permanent capability gap of the backend.
	KindNotSupported
	KindWrite
	KindRead
	KindDelete
	KindCopy
	KindMove
	// KindListing is raised when the listing call itself fails. Failures while
	// fetching individual listed items are KindRead.
	KindListing
	KindMetadata
	KindConfiguration
	// KindInvalidPath is raised by Disk before an adapter is reached.
	KindInvalidPath
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindNotSupported:  "not_supported",
	KindWrite:         "write",
	KindRead:          "read",
	KindDelete:        "delete",
	KindCopy:          "copy",
	KindMove:          "move",
	KindListing:       "listing",
	KindMetadata:      "metadata",
	KindConfiguration: "configuration",
	KindInvalidPath:   "invalid_path",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MetadataField names the attribute a metadata lookup was asked for.
type MetadataField string

const (
	FieldVisibility   MetadataField = "visibility"
	FieldMimeType     MetadataField = "mime_type"
	FieldLastModified MetadataField = "last_modified"
	FieldFileSize     MetadataField = "file_size"
)

// Error is the single error type returned by adapters. The backend failure,
// if any, is kept as the cause and is reachable through errors.Unwrap.
type Error struct {
	Kind        Kind
	Path        string
	Destination string
	Field       MetadataField
	Deep        bool
	Reason      string
	Err         error
}

// Sentinels for errors.Is matching on kind alone.
var (
	ErrNotSupported  = &Error{Kind: KindNotSupported}
	ErrWrite         = &Error{Kind: KindWrite}
	ErrRead          = &Error{Kind: KindRead}
	ErrDelete        = &Error{Kind: KindDelete}
	ErrCopy          = &Error{Kind: KindCopy}
	ErrMove          = &Error{Kind: KindMove}
	ErrListing       = &Error{Kind: KindListing}
	ErrMetadata      = &Error{Kind: KindMetadata}
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrInvalidPath   = &Error{Kind: KindInvalidPath}
)

func (e *Error) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindWrite:
		fmt.Fprintf(&b, "unable to write file at location: %s", e.Path)
	case KindRead:
		fmt.Fprintf(&b, "unable to read file from location: %s", e.Path)
	case KindDelete:
		fmt.Fprintf(&b, "unable to delete file located at: %s", e.Path)
	case KindCopy:
		fmt.Fprintf(&b, "unable to copy file from %s to %s", e.Path, e.Destination)
	case KindMove:
		fmt.Fprintf(&b, "unable to move file from %s to %s", e.Path, e.Destination)
	case KindListing:
		mode := "shallow"
		if e.Deep {
			mode = "deep"
		}
		fmt.Fprintf(&b, "unable to list contents for '%s', %s listing", e.Path, mode)
	case KindMetadata:
		fmt.Fprintf(&b, "unable to retrieve the %s for file at location: %s", e.Field, e.Path)
	case KindConfiguration:
		b.WriteString("invalid configuration")
	case KindInvalidPath:
		fmt.Fprintf(&b, "invalid path %q", e.Path)
	case KindNotSupported:
		if e.Reason != "" {
			return e.Reason
		}
		return "operation not supported"
	default:
		b.WriteString("filesystem error")
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Path == "" && t.Err == nil && t.Reason == ""
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fsErr *Error
	if errors.As(err, &fsErr) {
		return fsErr.Kind
	}
	return KindUnknown
}

func causeMessage(reason string, cause error) string {
	if reason == "" && cause != nil {
		return cause.Error()
	}
	return reason
}

// NotSupported reports a capability the backend does not have.
func NotSupported(reason string) *Error {
	return &Error{Kind: KindNotSupported, Reason: reason}
}

func UnableToWrite(path, reason string, cause error) *Error {
	return &Error{Kind: KindWrite, Path: path, Reason: causeMessage(reason, cause), Err: cause}
}

func UnableToRead(path, reason string, cause error) *Error {
	return &Error{Kind: KindRead, Path: path, Reason: causeMessage(reason, cause), Err: cause}
}

func UnableToDelete(path, reason string, cause error) *Error {
	return &Error{Kind: KindDelete, Path: path, Reason: causeMessage(reason, cause), Err: cause}
}

func UnableToCopy(source, destination string, cause error) *Error {
	return &Error{Kind: KindCopy, Path: source, Destination: destination, Reason: causeMessage("", cause), Err: cause}
}

func UnableToMove(source, destination string, cause error) *Error {
	return &Error{Kind: KindMove, Path: source, Destination: destination, Reason: causeMessage("", cause), Err: cause}
}

func UnableToList(path string, deep bool, cause error) *Error {
	return &Error{Kind: KindListing, Path: path, Deep: deep, Reason: causeMessage("", cause), Err: cause}
}

func UnableToRetrieveMetadata(path string, field MetadataField, reason string, cause error) *Error {
	return &Error{Kind: KindMetadata, Path: path, Field: field, Reason: causeMessage(reason, cause), Err: cause}
}

// InvalidConfiguration is raised while building clients, never per operation.
func InvalidConfiguration(reason string, cause error) *Error {
	return &Error{Kind: KindConfiguration, Reason: causeMessage(reason, cause), Err: cause}
}

func InvalidPath(path, reason string) *Error {
	return &Error{Kind: KindInvalidPath, Path: path, Reason: reason}
}
