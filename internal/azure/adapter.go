// Package azure maps the filesystem contract onto an Azure Blob Storage
// container.
//
// Blob storage is flat: directories do not exist and visibility is a
// property of the whole container, so directory operations and
// SetVisibility always fail with filesystem.ErrNotSupported. Reads are
// buffered in memory; ReadStream and WriteStream hold the whole object.
package azure

import (
	"bytes"
	"context"
	"io"
	"mime"
	"path"
	"time"

	"github.com/asad/azurefs/internal/filesystem"
)

// Adapter implements filesystem.Adapter for one container. It holds no
// state besides the client and container name and is safe for concurrent use.
type Adapter struct {
	client    BlobClient
	container string
}

// NewAdapter binds client to container. The container is neither created
// nor checked.
func NewAdapter(client BlobClient, container string) *Adapter {
	return &Adapter{client: client, container: container}
}

var (
	_ filesystem.Adapter               = (*Adapter)(nil)
	_ filesystem.URLGenerator          = (*Adapter)(nil)
	_ filesystem.TemporaryURLGenerator = (*Adapter)(nil)
)

func (a *Adapter) Client() BlobClient { return a.client }

func (a *Adapter) Container() string { return a.container }

// URL returns the unsigned link to path. The link may still require
// authentication to be usable.
func (a *Adapter) URL(p string) string {
	return a.client.URI(a.container + "/" + p)
}

func (a *Adapter) ProvidesTemporaryURLs() bool {
	return true
}

// TemporaryURL signs a read link. Signing failures are configuration
// problems and are returned unchanged rather than as filesystem errors.
func (a *Adapter) TemporaryURL(ctx context.Context, p string, expiration time.Time, _ filesystem.Config) (string, error) {
	return a.client.TemporaryURL(ctx, a.container, p, expiration, PermissionRead)
}

// TemporaryUploadURL signs a link that accepts uploads. Azure needs no
// extra headers, so Headers is always empty.
func (a *Adapter) TemporaryUploadURL(ctx context.Context, p string, expiration time.Time, _ filesystem.Config) (filesystem.UploadURL, error) {
	url, err := a.client.TemporaryURL(ctx, a.container, p, expiration, PermissionRead|PermissionCreate|PermissionWrite)
	if err != nil {
		return filesystem.UploadURL{}, err
	}
	return filesystem.UploadURL{URL: url, Headers: map[string]string{}}, nil
}

// FileExists reports whether the blob can be fetched. Every failure,
// not only "not found", yields false.
func (a *Adapter) FileExists(ctx context.Context, p string) (bool, error) {
	if _, err := a.client.Get(ctx, a.container, p); err != nil {
		return false, nil
	}
	return true, nil
}

func (a *Adapter) DirectoryExists(_ context.Context, _ string) (bool, error) {
	return false, filesystem.NotSupported("directory existence is not supported")
}

// Write uploads contents as a single block, overwriting any existing blob.
func (a *Adapter) Write(ctx context.Context, p string, contents []byte, cfg filesystem.Config) error {
	if err := a.client.PutBlock(ctx, a.container, p, contents, contentType(p, cfg)); err != nil {
		return filesystem.UnableToWrite(p, "", err)
	}
	return nil
}

// WriteStream buffers contents fully before uploading.
func (a *Adapter) WriteStream(ctx context.Context, p string, contents io.Reader, cfg filesystem.Config) error {
	data, err := io.ReadAll(contents)
	if err != nil {
		return filesystem.UnableToWrite(p, "", err)
	}
	return a.Write(ctx, p, data, cfg)
}

func (a *Adapter) Read(ctx context.Context, p string) ([]byte, error) {
	file, err := a.client.Get(ctx, a.container, p)
	if err != nil {
		return nil, filesystem.UnableToRead(p, "", err)
	}
	return file.Content, nil
}

// ReadStream fetches the whole blob and returns a reader over the buffer.
func (a *Adapter) ReadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	file, err := a.client.Get(ctx, a.container, p)
	if err != nil {
		return nil, filesystem.UnableToRead(p, "", err)
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

// Delete force-deletes the blob. A missing blob is reported the same way
// as any other backend failure.
func (a *Adapter) Delete(ctx context.Context, p string) error {
	if err := a.client.Delete(ctx, a.container, p, true); err != nil {
		return filesystem.UnableToDelete(p, "", err)
	}
	return nil
}

func (a *Adapter) DeleteDirectory(_ context.Context, _ string) error {
	return filesystem.NotSupported("directory deletion is not supported")
}

func (a *Adapter) CreateDirectory(_ context.Context, _ string, _ filesystem.Config) error {
	return filesystem.NotSupported("directory creation is not supported")
}

func (a *Adapter) SetVisibility(_ context.Context, _ string, _ filesystem.Visibility) error {
	return filesystem.NotSupported("setting visibility is not supported")
}

// Visibility reports the container's visibility under p. The answer is the
// same for every path in the container.
func (a *Adapter) Visibility(ctx context.Context, p string) (filesystem.FileAttributes, error) {
	props, err := a.client.ContainerProperties(ctx, a.container)
	if err != nil {
		return filesystem.FileAttributes{}, filesystem.UnableToRetrieveMetadata(p, filesystem.FieldVisibility, "", err)
	}
	return visibilityAttributes(p, props), nil
}

func (a *Adapter) MimeType(ctx context.Context, p string) (filesystem.FileAttributes, error) {
	return a.metadata(ctx, p, filesystem.FieldMimeType)
}

func (a *Adapter) LastModified(ctx context.Context, p string) (filesystem.FileAttributes, error) {
	return a.metadata(ctx, p, filesystem.FieldLastModified)
}

func (a *Adapter) FileSize(ctx context.Context, p string) (filesystem.FileAttributes, error) {
	return a.metadata(ctx, p, filesystem.FieldFileSize)
}

// metadata performs a full fetch; there is no properties-only call.
func (a *Adapter) metadata(ctx context.Context, p string, field filesystem.MetadataField) (filesystem.FileAttributes, error) {
	file, err := a.client.Get(ctx, a.container, p)
	if err != nil {
		return filesystem.FileAttributes{}, filesystem.UnableToRetrieveMetadata(p, field, "", err)
	}
	return fileAttributes(p, file), nil
}

// Move copies then force-deletes the source. If the delete fails the
// object exists at both locations and a move error is returned; the copy
// is not rolled back.
func (a *Adapter) Move(ctx context.Context, source, destination string, _ filesystem.Config) error {
	if err := a.client.Copy(ctx, a.container, source, destination); err != nil {
		return filesystem.UnableToMove(source, destination, err)
	}
	if err := a.client.Delete(ctx, a.container, source, true); err != nil {
		return filesystem.UnableToMove(source, destination, err)
	}
	return nil
}

func (a *Adapter) Copy(ctx context.Context, source, destination string, _ filesystem.Config) error {
	if err := a.client.Copy(ctx, a.container, source, destination); err != nil {
		return filesystem.UnableToCopy(source, destination, err)
	}
	return nil
}

// contentType picks the upload content type: explicit option first, then
// the extension. Unknown types are left for the backend to default.
func contentType(p string, cfg filesystem.Config) string {
	if ct := cfg.String(filesystem.OptionContentType, ""); ct != "" {
		return ct
	}
	if ct := cfg.String(filesystem.OptionMimeType, ""); ct != "" {
		return ct
	}
	return mime.TypeByExtension(path.Ext(p))
}
