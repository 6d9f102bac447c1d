package azure

import (
	"github.com/asad/azurefs/internal/filesystem"
)

// Extra metadata keys reported by the adapter.
const (
	MetaContentMD5   = "contentMd5"
	MetaCreationTime = "creationTime"
)

// fileAttributes builds attributes from a fetched blob. Only extra metadata
// the backend actually returned is included.
func fileAttributes(path string, file *BlobFile) filesystem.FileAttributes {
	var opts []filesystem.AttributeOption
	if file.ContentLength != nil {
		opts = append(opts, filesystem.WithFileSize(*file.ContentLength))
	}
	if file.LastModified != nil {
		opts = append(opts, filesystem.WithLastModified(file.LastModified.Unix()))
	}
	if file.ContentType != nil {
		opts = append(opts, filesystem.WithMimeType(*file.ContentType))
	}
	if file.ContentMD5 != "" {
		opts = append(opts, filesystem.WithExtraMetadata(MetaContentMD5, file.ContentMD5))
	}
	if file.CreationTime != nil && !file.CreationTime.IsZero() && file.CreationTime.Unix() != 0 {
		opts = append(opts, filesystem.WithExtraMetadata(MetaCreationTime, file.CreationTime.Unix()))
	}
	return filesystem.NewFileAttributes(path, opts...)
}

// visibilityAttributes derives visibility from the container: any public
// access level makes every blob public.
func visibilityAttributes(path string, props *ContainerProperties) filesystem.FileAttributes {
	visibility := filesystem.Private
	if props != nil && props.PublicAccess != nil {
		visibility = filesystem.Public
	}
	return filesystem.NewFileAttributes(path, filesystem.WithVisibility(visibility))
}
