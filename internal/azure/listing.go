package azure

import (
	"context"
	"strings"

	"github.com/asad/azurefs/internal/filesystem"
)

// ListContents lists every blob under the "p/" prefix. The listing call
// runs on the first Next; each item then costs one more fetch, made only
// when the consumer advances. deep is accepted for the contract but has
// no effect since blob names have no hierarchy.
func (a *Adapter) ListContents(ctx context.Context, p string, deep bool) *filesystem.Listing {
	var (
		prefix = listingPrefix(p)
		names  []string
		listed bool
		next   int
	)

	return filesystem.NewListing(func() (filesystem.FileAttributes, bool, error) {
		if !listed {
			found, err := a.client.List(ctx, a.container, prefix)
			if err != nil {
				return filesystem.FileAttributes{}, false, filesystem.UnableToList(p, deep, err)
			}
			names, listed = found, true
		}
		if next >= len(names) {
			return filesystem.FileAttributes{}, false, nil
		}

		name := names[next]
		next++
		file, err := a.client.Get(ctx, a.container, name)
		if err != nil {
			return filesystem.FileAttributes{}, false, filesystem.UnableToRead(name, "", err)
		}
		return fileAttributes(name, file), true, nil
	})
}

// listingPrefix appends a slash to p and collapses repeated slashes. The
// container root lists with an empty prefix.
func listingPrefix(p string) string {
	prefix := p + "/"
	for strings.Contains(prefix, "//") {
		prefix = strings.ReplaceAll(prefix, "//", "/")
	}
	if prefix == "/" {
		return ""
	}
	return prefix
}
