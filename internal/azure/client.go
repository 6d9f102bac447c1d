package azure

import (
	"context"
	"time"
)

// BlobClient is the remote blob API the adapter translates onto. Every
// method addresses a single container; implementations own authentication,
// transport and retries.
type BlobClient interface {
	// Get fetches a blob with its content and properties. Any failure,
	// including a missing blob, is returned as an error.
	Get(ctx context.Context, container, name string) (*BlobFile, error)

	// PutBlock uploads content as a single block, replacing any existing
	// blob. An empty contentType leaves the backend default in place.
	PutBlock(ctx context.Context, container, name string, content []byte, contentType string) error

	// Delete removes a blob. With force set, snapshots go with it.
	Delete(ctx context.Context, container, name string, force bool) error

	// Copy duplicates source to destination within the container and
	// returns once the copy has completed.
	Copy(ctx context.Context, container, source, destination string) error

	// List returns the names of all blobs starting with prefix.
	List(ctx context.Context, container, prefix string) ([]string, error)

	// TemporaryURL signs a time-limited link to the blob.
	TemporaryURL(ctx context.Context, container, name string, expiration time.Time, perms Permission) (string, error)

	ContainerProperties(ctx context.Context, container string) (*ContainerProperties, error)

	// URI builds the unsigned resource URL for "container/name".
	URI(pathWithContainer string) string
}

// BlobFile is a fetched blob. Pointer fields are nil when the backend did
// not return the corresponding header.
type BlobFile struct {
	Name          string
	Content       []byte
	ContentLength *int64
	ContentType   *string
	LastModified  *time.Time
	// ContentMD5 is base64 encoded, empty when not reported.
	ContentMD5   string
	CreationTime *time.Time
}

// ContainerProperties holds the container-level fields the adapter reads.
type ContainerProperties struct {
	// PublicAccess is nil when no public access level is configured.
	PublicAccess *string
}

// Permission is a set of SAS permissions.
type Permission uint8

const (
	PermissionRead Permission = 1 << iota
	PermissionCreate
	PermissionWrite
)

func (p Permission) Has(flag Permission) bool {
	return p&flag != 0
}

// String renders the permission in SAS order ("rcw").
func (p Permission) String() string {
	s := ""
	if p.Has(PermissionRead) {
		s += "r"
	}
	if p.Has(PermissionCreate) {
		s += "c"
	}
	if p.Has(PermissionWrite) {
		s += "w"
	}
	return s
}
