// Package driver turns disk configuration into ready filesystem.Disks.
package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/asad/azurefs/internal/azure"
	"github.com/asad/azurefs/internal/blobstore/azureblob"
	"github.com/asad/azurefs/internal/blobstore/filestore"
	"github.com/asad/azurefs/internal/config"
	"github.com/asad/azurefs/internal/filesystem"
	"github.com/asad/azurefs/internal/logging"
)

// Factory builds the disk for one DiskConfig.
type Factory func(ctx context.Context, disk config.DiskConfig, logger logging.Logger) (*filesystem.Disk, error)

// Registry maps driver names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Drivers returns the registered driver names in sorted order.
func (r *Registry) Drivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build validates disk and hands it to its driver's factory.
func (r *Registry) Build(ctx context.Context, disk config.DiskConfig, logger logging.Logger) (*filesystem.Disk, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	factory, ok := r.Lookup(disk.Driver)
	if !ok {
		return nil, filesystem.InvalidConfiguration(
			fmt.Sprintf("disk [%s] uses unsupported driver [%s]", disk.Name, disk.Driver), nil)
	}
	if err := disk.Validate(); err != nil {
		return nil, err
	}

	d, err := factory(ctx, disk, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("disk ready",
		logging.String("disk", disk.Name),
		logging.String("driver", disk.Driver),
		logging.String("container", disk.Container),
	)
	return d, nil
}

// Open resolves name in file, falling back to fallback when name and the
// file default are both empty, and builds the disk.
func (r *Registry) Open(ctx context.Context, file *config.DisksFile, name, fallback string, logger logging.Logger) (*filesystem.Disk, error) {
	disk, err := file.Disk(name, fallback)
	if err != nil {
		return nil, err
	}
	return r.Build(ctx, disk, logger)
}

// Default returns a registry with the azure and azure-local drivers.
// Local disks without a root are placed under dataDir/<disk name>.
func Default(dataDir string) *Registry {
	r := NewRegistry()
	r.Register(config.DriverAzure, openAzure)
	r.Register(config.DriverAzureLocal, localOpener(dataDir))
	return r
}

func openAzure(_ context.Context, disk config.DiskConfig, logger logging.Logger) (*filesystem.Disk, error) {
	client, err := azureblob.NewClient(disk, azureblob.WithLogger(logger.With(logging.String("disk", disk.Name))))
	if err != nil {
		return nil, err
	}
	return filesystem.NewDisk(disk.Name, disk.Driver, azure.NewAdapter(client, disk.Container)), nil
}

func localOpener(dataDir string) Factory {
	return func(ctx context.Context, disk config.DiskConfig, _ logging.Logger) (*filesystem.Disk, error) {
		root := disk.Root
		if root == "" {
			root = filepath.Join(dataDir, disk.Name)
		}

		store, err := filestore.NewStore(root, filestore.WithPublicAccess(disk.PublicAccess))
		if err != nil {
			return nil, filesystem.InvalidConfiguration("failed to open local blob store", err)
		}
		if err := store.CreateContainer(ctx, disk.Container); err != nil {
			return nil, filesystem.InvalidConfiguration("failed to create local container", err)
		}
		return filesystem.NewDisk(disk.Name, disk.Driver, azure.NewAdapter(store, disk.Container)), nil
	}
}
