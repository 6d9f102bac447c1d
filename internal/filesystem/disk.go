package filesystem

import (
	"context"
	"io"
	"time"
)

// Disk is a named, path-normalizing front for an Adapter. It is what the
// driver registry hands to applications.
type Disk struct {
	name    string
	driver  string
	adapter Adapter
}

func NewDisk(name, driver string, adapter Adapter) *Disk {
	return &Disk{name: name, driver: driver, adapter: adapter}
}

func (d *Disk) Name() string { return d.name }

func (d *Disk) Driver() string { return d.driver }

// Adapter returns the wrapped backend.
func (d *Disk) Adapter() Adapter { return d.adapter }

var _ Adapter = (*Disk)(nil)

func (d *Disk) FileExists(ctx context.Context, path string) (bool, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return false, err
	}
	return d.adapter.FileExists(ctx, p)
}

// Has is an alias of FileExists.
func (d *Disk) Has(ctx context.Context, path string) (bool, error) {
	return d.FileExists(ctx, path)
}

func (d *Disk) DirectoryExists(ctx context.Context, path string) (bool, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return false, err
	}
	return d.adapter.DirectoryExists(ctx, p)
}

func (d *Disk) Write(ctx context.Context, path string, contents []byte, cfg Config) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}
	return d.adapter.Write(ctx, p, contents, cfg)
}

func (d *Disk) WriteStream(ctx context.Context, path string, contents io.Reader, cfg Config) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}
	return d.adapter.WriteStream(ctx, p, contents, cfg)
}

func (d *Disk) Read(ctx context.Context, path string) ([]byte, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	return d.adapter.Read(ctx, p)
}

func (d *Disk) ReadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	return d.adapter.ReadStream(ctx, p)
}

func (d *Disk) Delete(ctx context.Context, path string) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}
	return d.adapter.Delete(ctx, p)
}

func (d *Disk) DeleteDirectory(ctx context.Context, path string) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}
	return d.adapter.DeleteDirectory(ctx, p)
}

func (d *Disk) CreateDirectory(ctx context.Context, path string, cfg Config) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}
	return d.adapter.CreateDirectory(ctx, p, cfg)
}

func (d *Disk) SetVisibility(ctx context.Context, path string, visibility Visibility) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}
	return d.adapter.SetVisibility(ctx, p, visibility)
}

func (d *Disk) Visibility(ctx context.Context, path string) (FileAttributes, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return FileAttributes{}, err
	}
	return d.adapter.Visibility(ctx, p)
}

func (d *Disk) MimeType(ctx context.Context, path string) (FileAttributes, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return FileAttributes{}, err
	}
	return d.adapter.MimeType(ctx, p)
}

func (d *Disk) LastModified(ctx context.Context, path string) (FileAttributes, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return FileAttributes{}, err
	}
	return d.adapter.LastModified(ctx, p)
}

func (d *Disk) FileSize(ctx context.Context, path string) (FileAttributes, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return FileAttributes{}, err
	}
	return d.adapter.FileSize(ctx, p)
}

func (d *Disk) ListContents(ctx context.Context, path string, deep bool) *Listing {
	p, err := NormalizePath(path)
	if err != nil {
		return FailedListing(err)
	}
	return d.adapter.ListContents(ctx, p, deep)
}

func (d *Disk) Move(ctx context.Context, source, destination string, cfg Config) error {
	src, dst, err := normalizePair(source, destination)
	if err != nil {
		return err
	}
	return d.adapter.Move(ctx, src, dst, cfg)
}

func (d *Disk) Copy(ctx context.Context, source, destination string, cfg Config) error {
	src, dst, err := normalizePair(source, destination)
	if err != nil {
		return err
	}
	return d.adapter.Copy(ctx, src, dst, cfg)
}

// URL builds a direct link when the adapter supports it.
func (d *Disk) URL(path string) (string, error) {
	gen, ok := d.adapter.(URLGenerator)
	if !ok {
		return "", NotSupported("this driver does not support retrieving URLs")
	}
	p, err := NormalizePath(path)
	if err != nil {
		return "", err
	}
	return gen.URL(p), nil
}

func (d *Disk) ProvidesTemporaryURLs() bool {
	gen, ok := d.adapter.(TemporaryURLGenerator)
	return ok && gen.ProvidesTemporaryURLs()
}

func (d *Disk) TemporaryURL(ctx context.Context, path string, expiration time.Time, cfg Config) (string, error) {
	gen, ok := d.adapter.(TemporaryURLGenerator)
	if !ok || !gen.ProvidesTemporaryURLs() {
		return "", NotSupported("this driver does not support creating temporary URLs")
	}
	p, err := NormalizePath(path)
	if err != nil {
		return "", err
	}
	return gen.TemporaryURL(ctx, p, expiration, cfg)
}

func (d *Disk) TemporaryUploadURL(ctx context.Context, path string, expiration time.Time, cfg Config) (UploadURL, error) {
	gen, ok := d.adapter.(TemporaryURLGenerator)
	if !ok || !gen.ProvidesTemporaryURLs() {
		return UploadURL{}, NotSupported("this driver does not support creating temporary upload URLs")
	}
	p, err := NormalizePath(path)
	if err != nil {
		return UploadURL{}, err
	}
	return gen.TemporaryUploadURL(ctx, p, expiration, cfg)
}

func normalizePair(source, destination string) (string, string, error) {
	src, err := NormalizePath(source)
	if err != nil {
		return "", "", err
	}
	dst, err := NormalizePath(destination)
	if err != nil {
		return "", "", err
	}
	return src, dst, nil
}
