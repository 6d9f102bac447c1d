// Package azureblob implements azure.BlobClient on the Azure SDK for Go.
package azureblob

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"

	"github.com/asad/azurefs/internal/azure"
	"github.com/asad/azurefs/internal/config"
	"github.com/asad/azurefs/internal/logging"
)

// ErrCopyFailed is returned when a server-side copy ends in a state other
// than success.
var ErrCopyFailed = errors.New("azureblob: copy did not complete")

const defaultCopyPollInterval = 500 * time.Millisecond

// Client talks to one storage account.
type Client struct {
	svc    *service.Client
	auth   AuthProvider
	secure bool
	logger logging.Logger

	copyPollInterval time.Duration
}

var _ azure.BlobClient = (*Client)(nil)

type ClientOption func(*Client)

func WithLogger(logger logging.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithCopyPollInterval sets how often a pending copy is checked.
func WithCopyPollInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.copyPollInterval = d }
}

// clientOptions tags requests with the application id and bounds retries.
func clientOptions() *service.ClientOptions {
	return &service.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Telemetry: policy.TelemetryOptions{ApplicationID: "azurefs"},
			Retry: policy.RetryOptions{
				MaxRetries: 3,
				RetryDelay: 500 * time.Millisecond,
			},
		},
	}
}

// NewClient validates disk and builds an SDK client for it.
func NewClient(disk config.DiskConfig, opts ...ClientOption) (*Client, error) {
	if err := disk.Validate(); err != nil {
		return nil, err
	}

	auth, err := NewAuthProvider(disk)
	if err != nil {
		return nil, err
	}

	var serviceURL string
	if auth.Method() != config.AuthConnectionString {
		if serviceURL, err = disk.ServiceURL(); err != nil {
			return nil, err
		}
	}

	svc, err := auth.ServiceClient(serviceURL, clientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create blob service client: %w", err)
	}
	return newClient(svc, auth, disk.IsSecure(), opts...), nil
}

func newClient(svc *service.Client, auth AuthProvider, secure bool, opts ...ClientOption) *Client {
	c := &Client{
		svc:              svc,
		auth:             auth,
		secure:           secure,
		logger:           logging.NewNop(),
		copyPollInterval: defaultCopyPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) blobClient(containerName, name string) *blob.Client {
	return c.svc.NewContainerClient(containerName).NewBlobClient(name)
}

func (c *Client) Get(ctx context.Context, containerName, name string) (*azure.BlobFile, error) {
	resp, err := c.blobClient(containerName, name).DownloadStream(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("blob %s does not exist: %w", name, err)
		}
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob content: %w", err)
	}

	file := &azure.BlobFile{
		Name:          name,
		Content:       content,
		ContentLength: resp.ContentLength,
		ContentType:   resp.ContentType,
		LastModified:  resp.LastModified,
		CreationTime:  resp.CreationTime,
	}
	if len(resp.ContentMD5) > 0 {
		file.ContentMD5 = base64.StdEncoding.EncodeToString(resp.ContentMD5)
	}
	return file, nil
}

func (c *Client) PutBlock(ctx context.Context, containerName, name string, content []byte, contentType string) error {
	var opts blockblob.UploadOptions
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)}
	}

	body := streaming.NopCloser(bytes.NewReader(content))
	if _, err := c.svc.NewContainerClient(containerName).NewBlockBlobClient(name).Upload(ctx, body, &opts); err != nil {
		return fmt.Errorf("failed to upload blob: %w", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, containerName, name string, force bool) error {
	var opts blob.DeleteOptions
	if force {
		opts.DeleteSnapshots = to.Ptr(blob.DeleteSnapshotsOptionTypeInclude)
	}
	if _, err := c.blobClient(containerName, name).Delete(ctx, &opts); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Copy starts a server-side copy and waits until it leaves the pending
// state or ctx is done.
func (c *Client) Copy(ctx context.Context, containerName, source, destination string) error {
	src := c.blobClient(containerName, source)
	dst := c.blobClient(containerName, destination)

	resp, err := dst.StartCopyFromURL(ctx, src.URL(), nil)
	if err != nil {
		return fmt.Errorf("failed to start copy: %w", err)
	}

	if err := copyOutcome(resp.CopyStatus, nil); err != nil {
		return err
	}

	status := resp.CopyStatus
	for status != nil && *status == blob.CopyStatusTypePending {
		c.logger.Debug("waiting for blob copy",
			logging.String("container", containerName),
			logging.String("source", source),
			logging.String("destination", destination),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.copyPollInterval):
		}

		props, err := dst.GetProperties(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to poll copy status: %w", err)
		}
		if err := copyOutcome(props.CopyStatus, props.CopyStatusDescription); err != nil {
			return err
		}
		status = props.CopyStatus
	}
	return nil
}

// copyOutcome reports ErrCopyFailed for any status other than pending or
// success. A missing status counts as success.
func copyOutcome(status *blob.CopyStatusType, description *string) error {
	if status == nil || *status == blob.CopyStatusTypePending || *status == blob.CopyStatusTypeSuccess {
		return nil
	}
	desc := ""
	if description != nil {
		desc = *description
	}
	return fmt.Errorf("%w: status %s %s", ErrCopyFailed, *status, desc)
}

func (c *Client) List(ctx context.Context, containerName, prefix string) ([]string, error) {
	opts := &container.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = to.Ptr(prefix)
	}

	var names []string
	pager := c.svc.NewContainerClient(containerName).NewListBlobsFlatPager(opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("container %s does not exist: %w", containerName, err)
			}
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

// TemporaryURL delegates to the auth provider; anonymous clients cannot sign.
func (c *Client) TemporaryURL(ctx context.Context, containerName, name string, expiration time.Time, perms azure.Permission) (string, error) {
	return c.auth.SignBlob(ctx, c.svc, c.blobClient(containerName, name), perms, expiration, c.secure)
}

func (c *Client) ContainerProperties(ctx context.Context, containerName string) (*azure.ContainerProperties, error) {
	resp, err := c.svc.NewContainerClient(containerName).GetProperties(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("container %s does not exist: %w", containerName, err)
		}
		return nil, fmt.Errorf("failed to get container properties: %w", err)
	}

	props := &azure.ContainerProperties{}
	if resp.BlobPublicAccess != nil {
		props.PublicAccess = to.Ptr(string(*resp.BlobPublicAccess))
	}
	return props, nil
}

// URI joins the service endpoint and "container/name" without escaping.
func (c *Client) URI(pathWithContainer string) string {
	return strings.TrimSuffix(c.svc.URL(), "/") + "/" + strings.TrimPrefix(pathWithContainer, "/")
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusNotFound
	}
	return false
}
