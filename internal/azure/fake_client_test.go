package azure

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var errBlobNotFound = errors.New("BlobNotFound: the specified blob does not exist")

// fakeClient is an in-memory BlobClient with per-operation failure injection.
type fakeClient struct {
	mu    sync.Mutex
	now   time.Time
	blobs map[string]*BlobFile

	publicAccess *string

	getErrs   map[string]error
	putErr    error
	deleteErr error
	copyErr   error
	listErr   error
	propsErr  error
	signErr   error

	calls []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		now:     time.Date(2021, 10, 1, 0, 0, 0, 0, time.UTC),
		blobs:   make(map[string]*BlobFile),
		getErrs: make(map[string]error),
	}
}

func (c *fakeClient) key(container, name string) string {
	return container + "/" + name
}

func (c *fakeClient) record(format string, args ...any) {
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

func (c *fakeClient) callsWithPrefix(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, call := range c.calls {
		if strings.HasPrefix(call, prefix) {
			out = append(out, call)
		}
	}
	return out
}

func (c *fakeClient) Get(_ context.Context, container, name string) (*BlobFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("get %s", name)
	if err := c.getErrs[name]; err != nil {
		return nil, err
	}
	file, ok := c.blobs[c.key(container, name)]
	if !ok {
		return nil, errBlobNotFound
	}
	clone := *file
	clone.Content = append([]byte(nil), file.Content...)
	return &clone, nil
}

func (c *fakeClient) PutBlock(_ context.Context, container, name string, content []byte, contentType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("put %s %s", name, contentType)
	if c.putErr != nil {
		return c.putErr
	}
	c.store(container, name, content, contentType)
	return nil
}

func (c *fakeClient) store(container, name string, content []byte, contentType string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := int64(len(content))
	sum := md5.Sum(content)
	modified := c.now
	created := c.now
	if existing, ok := c.blobs[c.key(container, name)]; ok && existing.CreationTime != nil {
		created = *existing.CreationTime
	}
	c.blobs[c.key(container, name)] = &BlobFile{
		Name:          name,
		Content:       append([]byte(nil), content...),
		ContentLength: &size,
		ContentType:   &contentType,
		LastModified:  &modified,
		ContentMD5:    base64.StdEncoding.EncodeToString(sum[:]),
		CreationTime:  &created,
	}
}

func (c *fakeClient) Delete(_ context.Context, container, name string, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("delete %s force=%t", name, force)
	if c.deleteErr != nil {
		return c.deleteErr
	}
	if _, ok := c.blobs[c.key(container, name)]; !ok {
		return errBlobNotFound
	}
	delete(c.blobs, c.key(container, name))
	return nil
}

func (c *fakeClient) Copy(_ context.Context, container, source, destination string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("copy %s %s", source, destination)
	if c.copyErr != nil {
		return c.copyErr
	}
	src, ok := c.blobs[c.key(container, source)]
	if !ok {
		return errBlobNotFound
	}
	c.store(container, destination, src.Content, *src.ContentType)
	return nil
}

func (c *fakeClient) List(_ context.Context, container, prefix string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("list %s", prefix)
	if c.listErr != nil {
		return nil, c.listErr
	}
	var names []string
	for key, file := range c.blobs {
		if strings.HasPrefix(key, container+"/") && strings.HasPrefix(file.Name, prefix) {
			names = append(names, file.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *fakeClient) TemporaryURL(_ context.Context, container, name string, expiration time.Time, perms Permission) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("sign %s %s", name, perms)
	if c.signErr != nil {
		return "", c.signErr
	}
	return fmt.Sprintf("https://account.blob.core.windows.net/%s/%s?se=%d&sp=%s",
		container, name, expiration.Unix(), perms), nil
}

func (c *fakeClient) ContainerProperties(_ context.Context, container string) (*ContainerProperties, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("properties %s", container)
	if c.propsErr != nil {
		return nil, c.propsErr
	}
	return &ContainerProperties{PublicAccess: c.publicAccess}, nil
}

func (c *fakeClient) URI(pathWithContainer string) string {
	return "https://account.blob.core.windows.net/" + pathWithContainer
}

var _ BlobClient = (*fakeClient)(nil)
