// Package filestore is a directory-backed blob store for local
// development and tests. It behaves like a single storage account:
// containers are directories, blobs are files, and the properties Azure
// would report are kept in JSON sidecar files.
package filestore

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/asad/azurefs/internal/azure"
)

var (
	ErrBlobNotFound      = errors.New("blob not found")
	ErrContainerNotFound = errors.New("container not found")
	// ErrSigningUnsupported is returned by TemporaryURL: local files cannot
	// carry a signature.
	ErrSigningUnsupported = errors.New("filestore: temporary URLs are not supported")
)

const defaultContentType = "application/octet-stream"

// Store implements azure.BlobClient on the local filesystem. Content lives
// under <root>/data/<container>/<name> and properties under
// <root>/meta/<container>/<name>.json.
type Store struct {
	dataDir      string
	metaDir      string
	publicAccess string
	now          func() time.Time

	mu sync.RWMutex
}

var _ azure.BlobClient = (*Store)(nil)

type Option func(*Store)

// WithPublicAccess sets the access level reported for every container.
// Empty means private.
func WithPublicAccess(level string) Option {
	return func(s *Store) { s.publicAccess = level }
}

// WithClock overrides the time source used for creation times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// blobMeta is the sidecar record written next to each blob.
type blobMeta struct {
	ContentType  string    `json:"content_type"`
	ContentMD5   string    `json:"content_md5"`
	CreationTime time.Time `json:"creation_time"`
}

// NewStore creates the data and meta directories under root.
func NewStore(root string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store root: %w", err)
	}

	s := &Store{
		dataDir: filepath.Join(abs, "data"),
		metaDir: filepath.Join(abs, "meta"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, dir := range []string{s.dataDir, s.metaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return s, nil
}

func (s *Store) containerPath(container string) string {
	return filepath.Join(s.dataDir, container)
}

// paths returns the content and sidecar locations of a blob. Names that
// would leave the container directory are rejected.
func (s *Store) paths(container, name string) (string, string, error) {
	if name == "" || strings.HasSuffix(name, "/") {
		return "", "", fmt.Errorf("invalid blob name %q", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." || part == "." || part == "" {
			return "", "", fmt.Errorf("invalid blob name %q", name)
		}
	}
	rel := filepath.FromSlash(name)
	return filepath.Join(s.dataDir, container, rel),
		filepath.Join(s.metaDir, container, rel+".json"), nil
}

// CreateContainer makes the container directory. It is a no-op when the
// container already exists.
func (s *Store) CreateContainer(_ context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, dir := range []string{s.containerPath(container), filepath.Join(s.metaDir, container)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create container directory: %w", err)
		}
	}
	return nil
}

func (s *Store) containerExists(container string) bool {
	info, err := os.Stat(s.containerPath(container))
	return err == nil && info.IsDir()
}

func (s *Store) Get(_ context.Context, container, name string) (*azure.BlobFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dataPath, metaPath, err := s.paths(container, name)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(dataPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || isDirErr(dataPath) {
			return nil, fmt.Errorf("blob %s does not exist: %w", name, ErrBlobNotFound)
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	info, err := os.Stat(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat blob: %w", err)
	}

	meta, err := readMeta(metaPath)
	if err != nil {
		return nil, err
	}

	size := int64(len(content))
	modified := info.ModTime().UTC()
	file := &azure.BlobFile{
		Name:          name,
		Content:       content,
		ContentLength: &size,
		LastModified:  &modified,
		ContentMD5:    meta.ContentMD5,
	}
	contentType := meta.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	file.ContentType = &contentType
	if !meta.CreationTime.IsZero() {
		created := meta.CreationTime.UTC()
		file.CreationTime = &created
	}
	return file, nil
}

func isDirErr(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// readMeta loads a sidecar. A missing sidecar yields empty properties so
// files dropped into the data directory by hand are still readable.
func readMeta(p string) (blobMeta, error) {
	var meta blobMeta
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return meta, nil
		}
		return meta, fmt.Errorf("failed to read blob metadata: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("failed to decode blob metadata: %w", err)
	}
	return meta, nil
}

func (s *Store) PutBlock(_ context.Context, container, name string, content []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.containerExists(container) {
		return fmt.Errorf("container %s does not exist: %w", container, ErrContainerNotFound)
	}
	return s.put(container, name, content, contentType, true)
}

// put writes content and sidecar. With keepCreated, an overwritten blob
// keeps its creation time. Callers hold the write lock.
func (s *Store) put(container, name string, content []byte, contentType string, keepCreated bool) error {
	dataPath, metaPath, err := s.paths(container, name)
	if err != nil {
		return err
	}

	created := s.now().UTC()
	if keepCreated {
		if existing, err := readMeta(metaPath); err == nil && !existing.CreationTime.IsZero() {
			if _, statErr := os.Stat(dataPath); statErr == nil {
				created = existing.CreationTime
			}
		}
	}

	if contentType == "" {
		contentType = defaultContentType
	}
	sum := md5.Sum(content)
	meta, err := json.Marshal(blobMeta{
		ContentType:  contentType,
		ContentMD5:   base64.StdEncoding.EncodeToString(sum[:]),
		CreationTime: created,
	})
	if err != nil {
		return fmt.Errorf("failed to encode blob metadata: %w", err)
	}

	if err := writeFileAtomic(dataPath, content); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := writeFileAtomic(metaPath, meta); err != nil {
		return fmt.Errorf("failed to write blob metadata: %w", err)
	}
	return nil
}

// writeFileAtomic writes through a temporary file in the target directory
// and renames it into place.
func writeFileAtomic(p string, data []byte) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".azurefs-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// Delete removes a blob and its sidecar. force is accepted for interface
// compatibility; local blobs have no snapshots.
func (s *Store) Delete(_ context.Context, container, name string, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dataPath, metaPath, err := s.paths(container, name)
	if err != nil {
		return err
	}
	if isDirErr(dataPath) {
		return fmt.Errorf("blob %s does not exist: %w", name, ErrBlobNotFound)
	}
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("blob %s does not exist: %w", name, ErrBlobNotFound)
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	if err := os.Remove(metaPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob metadata: %w", err)
	}

	pruneEmptyDirs(filepath.Dir(dataPath), s.containerPath(container))
	pruneEmptyDirs(filepath.Dir(metaPath), filepath.Join(s.metaDir, container))
	return nil
}

// pruneEmptyDirs removes empty directories from dir up to, but not
// including, stop.
func pruneEmptyDirs(dir, stop string) {
	for dir != stop && strings.HasPrefix(dir, stop) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// Copy duplicates content and content type. The destination gets a fresh
// creation time, as a server-side copy would.
func (s *Store) Copy(_ context.Context, container, source, destination string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	srcData, srcMeta, err := s.paths(container, source)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(srcData)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || isDirErr(srcData) {
			return fmt.Errorf("blob %s does not exist: %w", source, ErrBlobNotFound)
		}
		return fmt.Errorf("failed to read blob: %w", err)
	}
	meta, err := readMeta(srcMeta)
	if err != nil {
		return err
	}

	return s.put(container, destination, content, meta.ContentType, false)
}

// List walks the container and returns every blob name starting with
// prefix, in lexical order.
func (s *Store) List(_ context.Context, container, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root := s.containerPath(container)
	if !s.containerExists(container) {
		return nil, fmt.Errorf("container %s does not exist: %w", container, ErrContainerNotFound)
	}

	var names []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".azurefs-") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) TemporaryURL(_ context.Context, _, _ string, _ time.Time, _ azure.Permission) (string, error) {
	return "", ErrSigningUnsupported
}

func (s *Store) ContainerProperties(_ context.Context, container string) (*azure.ContainerProperties, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.containerExists(container) {
		return nil, fmt.Errorf("container %s does not exist: %w", container, ErrContainerNotFound)
	}
	props := &azure.ContainerProperties{}
	if s.publicAccess != "" {
		level := s.publicAccess
		props.PublicAccess = &level
	}
	return props, nil
}

// URI returns a file:// URL for "container/name".
func (s *Store) URI(pathWithContainer string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(s.dataDir) + "/" + strings.TrimPrefix(pathWithContainer, "/"),
	}
	return u.String()
}
