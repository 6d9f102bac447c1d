package azure

import (
	"context"
	"errors"
	"io"
	"mime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asad/azurefs/internal/filesystem"
)

const testContainer = "container"

func setupAdapter(t *testing.T) (*Adapter, *fakeClient) {
	t.Helper()
	client := newFakeClient()
	return NewAdapter(client, testContainer), client
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("stream closed")
}

func TestAdapter_URL(t *testing.T) {
	adapter, _ := setupAdapter(t)

	assert.Equal(t, "https://account.blob.core.windows.net/container/file.txt", adapter.URL("file.txt"))
	assert.Equal(t, "https://account.blob.core.windows.net/container/a/b/c.txt", adapter.URL("a/b/c.txt"))
}

func TestAdapter_ProvidesTemporaryURLs(t *testing.T) {
	adapter, _ := setupAdapter(t)
	assert.True(t, adapter.ProvidesTemporaryURLs())
}

func TestAdapter_TemporaryURL(t *testing.T) {
	ctx := context.Background()
	expiration := time.Now().Add(5 * time.Minute)

	t.Run("read link", func(t *testing.T) {
		adapter, client := setupAdapter(t)

		url, err := adapter.TemporaryURL(ctx, "file.txt", expiration, filesystem.Config{})
		require.NoError(t, err)
		assert.Contains(t, url, "/container/file.txt?")
		assert.Contains(t, url, "sp=r")
		assert.Equal(t, []string{"sign file.txt r"}, client.callsWithPrefix("sign"))
	})

	t.Run("upload link", func(t *testing.T) {
		adapter, client := setupAdapter(t)

		upload, err := adapter.TemporaryUploadURL(ctx, "file.txt", expiration, filesystem.Config{})
		require.NoError(t, err)
		assert.Contains(t, upload.URL, "/container/file.txt?")
		assert.NotNil(t, upload.Headers)
		assert.Empty(t, upload.Headers)
		assert.Equal(t, []string{"sign file.txt rcw"}, client.callsWithPrefix("sign"))
	})

	t.Run("signing failure is returned unchanged", func(t *testing.T) {
		adapter, client := setupAdapter(t)
		signErr := errors.New("credential cannot sign")
		client.signErr = signErr

		_, err := adapter.TemporaryURL(ctx, "file.txt", expiration, filesystem.Config{})
		assert.ErrorIs(t, err, signErr)
		assert.Equal(t, filesystem.KindUnknown, filesystem.KindOf(err))

		_, err = adapter.TemporaryUploadURL(ctx, "file.txt", expiration, filesystem.Config{})
		assert.ErrorIs(t, err, signErr)
	})
}

func TestAdapter_FileExists(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(c *fakeClient)
		exists bool
	}{
		{
			name: "file exists",
			setup: func(c *fakeClient) {
				c.store(testContainer, "file.txt", []byte("x"), "")
			},
			exists: true,
		},
		{
			name:   "file does not exist",
			setup:  func(c *fakeClient) {},
			exists: false,
		},
		{
			name: "transport failure reads as missing",
			setup: func(c *fakeClient) {
				c.store(testContainer, "file.txt", []byte("x"), "")
				c.getErrs["file.txt"] = errors.New("dial tcp: connection refused")
			},
			exists: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, client := setupAdapter(t)
			tt.setup(client)

			exists, err := adapter.FileExists(context.Background(), "file.txt")
			require.NoError(t, err)
			assert.Equal(t, tt.exists, exists)
		})
	}
}

func TestAdapter_UnsupportedOperations(t *testing.T) {
	ctx := context.Background()
	adapter, client := setupAdapter(t)

	ops := map[string]func() error{
		"directory exists": func() error {
			_, err := adapter.DirectoryExists(ctx, "path")
			return err
		},
		"delete directory": func() error { return adapter.DeleteDirectory(ctx, "path") },
		"create directory": func() error { return adapter.CreateDirectory(ctx, "path", filesystem.Config{}) },
		"set visibility":   func() error { return adapter.SetVisibility(ctx, "path", filesystem.Public) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			require.Error(t, err)
			assert.ErrorIs(t, err, filesystem.ErrNotSupported)
		})
	}
	assert.Empty(t, client.calls, "unsupported operations must not reach the backend")
}

func TestAdapter_Write(t *testing.T) {
	ctx := context.Background()

	writers := map[string]func(a *Adapter, p string, contents string, cfg filesystem.Config) error{
		"write": func(a *Adapter, p string, contents string, cfg filesystem.Config) error {
			return a.Write(ctx, p, []byte(contents), cfg)
		},
		"write stream": func(a *Adapter, p string, contents string, cfg filesystem.Config) error {
			return a.WriteStream(ctx, p, strings.NewReader(contents), cfg)
		},
	}

	for name, write := range writers {
		t.Run(name+" without exception", func(t *testing.T) {
			adapter, client := setupAdapter(t)

			require.NoError(t, write(adapter, "path/file.txt", "contents", filesystem.Config{}))

			got, err := adapter.Read(ctx, "path/file.txt")
			require.NoError(t, err)
			assert.Equal(t, "contents", string(got))
			assert.Equal(t, []string{"put path/file.txt " + mime.TypeByExtension(".txt")}, client.callsWithPrefix("put"))
		})

		t.Run(name+" with exception", func(t *testing.T) {
			adapter, client := setupAdapter(t)
			client.putErr = errors.New("Unable to write file")

			err := write(adapter, "path/file.txt", "contents", filesystem.Config{})
			require.Error(t, err)
			assert.ErrorIs(t, err, filesystem.ErrWrite)
			assert.ErrorIs(t, err, client.putErr)

			var fsErr *filesystem.Error
			require.ErrorAs(t, err, &fsErr)
			assert.Equal(t, "path/file.txt", fsErr.Path)
			assert.Contains(t, fsErr.Error(), "Unable to write file")
		})
	}

	t.Run("explicit content type wins", func(t *testing.T) {
		adapter, client := setupAdapter(t)
		cfg := filesystem.NewConfig(map[string]any{filesystem.OptionContentType: "application/json"})

		require.NoError(t, adapter.Write(ctx, "data.txt", []byte("{}"), cfg))
		assert.Equal(t, []string{"put data.txt application/json"}, client.callsWithPrefix("put"))
	})

	t.Run("unknown extension leaves content type unset", func(t *testing.T) {
		adapter, client := setupAdapter(t)

		require.NoError(t, adapter.Write(ctx, "blob.unknownext", []byte("x"), filesystem.Config{}))
		assert.Equal(t, []string{"put blob.unknownext "}, client.callsWithPrefix("put"))
	})

	t.Run("stream read failure", func(t *testing.T) {
		adapter, client := setupAdapter(t)

		err := adapter.WriteStream(ctx, "file.txt", failingReader{}, filesystem.Config{})
		assert.ErrorIs(t, err, filesystem.ErrWrite)
		assert.Empty(t, client.callsWithPrefix("put"))
	})

	t.Run("overwrites existing blob", func(t *testing.T) {
		adapter, _ := setupAdapter(t)

		require.NoError(t, adapter.Write(ctx, "file.txt", []byte("first"), filesystem.Config{}))
		require.NoError(t, adapter.Write(ctx, "file.txt", []byte("second"), filesystem.Config{}))

		got, err := adapter.Read(ctx, "file.txt")
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})
}

func TestAdapter_Read(t *testing.T) {
	ctx := context.Background()

	readers := map[string]func(a *Adapter, p string) (string, error){
		"read": func(a *Adapter, p string) (string, error) {
			b, err := a.Read(ctx, p)
			return string(b), err
		},
		"read stream": func(a *Adapter, p string) (string, error) {
			rc, err := a.ReadStream(ctx, p)
			if err != nil {
				return "", err
			}
			defer rc.Close()
			b, err := io.ReadAll(rc)
			return string(b), err
		},
	}

	for name, read := range readers {
		t.Run(name+" without exception", func(t *testing.T) {
			adapter, client := setupAdapter(t)
			client.store(testContainer, "path/file.txt", []byte("contents"), "text/plain")

			got, err := read(adapter, "path/file.txt")
			require.NoError(t, err)
			assert.Equal(t, "contents", got)
		})

		t.Run(name+" with exception", func(t *testing.T) {
			adapter, client := setupAdapter(t)
			client.getErrs["path/file.txt"] = errors.New("Unable to read file")

			_, err := read(adapter, "path/file.txt")
			assert.ErrorIs(t, err, filesystem.ErrRead)
			assert.ErrorIs(t, err, client.getErrs["path/file.txt"])
		})
	}
}

func TestAdapter_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("without exception", func(t *testing.T) {
		adapter, client := setupAdapter(t)
		client.store(testContainer, "path/file.txt", []byte("x"), "")

		require.NoError(t, adapter.Delete(ctx, "path/file.txt"))
		assert.Equal(t, []string{"delete path/file.txt force=true"}, client.callsWithPrefix("delete"))

		exists, _ := adapter.FileExists(ctx, "path/file.txt")
		assert.False(t, exists)
	})

	t.Run("with exception", func(t *testing.T) {
		adapter, client := setupAdapter(t)
		client.deleteErr = errors.New("Unable to delete file")

		err := adapter.Delete(ctx, "path/file.txt")
		assert.ErrorIs(t, err, filesystem.ErrDelete)
	})

	t.Run("missing blob is a delete failure", func(t *testing.T) {
		adapter, _ := setupAdapter(t)

		err := adapter.Delete(ctx, "missing.txt")
		assert.ErrorIs(t, err, filesystem.ErrDelete)
	})
}

func TestAdapter_Visibility(t *testing.T) {
	blob := "blob"
	empty := ""

	tests := []struct {
		name         string
		publicAccess *string
		want         filesystem.Visibility
	}{
		{name: "public container", publicAccess: &blob, want: filesystem.Public},
		{name: "empty access level is still configured", publicAccess: &empty, want: filesystem.Public},
		{name: "private container", publicAccess: nil, want: filesystem.Private},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, client := setupAdapter(t)
			client.publicAccess = tt.publicAccess

			for _, p := range []string{"file.txt", "other/dir/file.bin"} {
				attrs, err := adapter.Visibility(context.Background(), p)
				require.NoError(t, err)

				visibility, ok := attrs.Visibility()
				require.True(t, ok)
				assert.Equal(t, tt.want, visibility)
				assert.Equal(t, p, attrs.Path())

				_, hasSize := attrs.FileSize()
				assert.False(t, hasSize)
			}
			assert.Equal(t, []string{"properties container", "properties container"}, client.callsWithPrefix("properties"))
		})
	}

	t.Run("properties failure", func(t *testing.T) {
		adapter, client := setupAdapter(t)
		client.propsErr = errors.New("AuthorizationFailure")

		_, err := adapter.Visibility(context.Background(), "file.txt")
		assert.ErrorIs(t, err, filesystem.ErrMetadata)

		var fsErr *filesystem.Error
		require.ErrorAs(t, err, &fsErr)
		assert.Equal(t, filesystem.FieldVisibility, fsErr.Field)
	})
}

func TestAdapter_Metadata(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		field filesystem.MetadataField
		call  func(a *Adapter, p string) (filesystem.FileAttributes, error)
	}{
		{
			name:  "mime type",
			field: filesystem.FieldMimeType,
			call: func(a *Adapter, p string) (filesystem.FileAttributes, error) {
				return a.MimeType(ctx, p)
			},
		},
		{
			name:  "last modified",
			field: filesystem.FieldLastModified,
			call: func(a *Adapter, p string) (filesystem.FileAttributes, error) {
				return a.LastModified(ctx, p)
			},
		},
		{
			name:  "file size",
			field: filesystem.FieldFileSize,
			call: func(a *Adapter, p string) (filesystem.FileAttributes, error) {
				return a.FileSize(ctx, p)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" without exception", func(t *testing.T) {
			adapter, client := setupAdapter(t)
			cfg := filesystem.NewConfig(map[string]any{filesystem.OptionContentType: "text/plain"})
			require.NoError(t, adapter.Write(ctx, "a/b.txt", []byte("hello"), cfg))

			attrs, err := tt.call(adapter, "a/b.txt")
			require.NoError(t, err)

			size, ok := attrs.FileSize()
			require.True(t, ok)
			assert.Equal(t, int64(5), size)

			mimeType, ok := attrs.MimeType()
			require.True(t, ok)
			assert.Equal(t, "text/plain", mimeType)

			modified, ok := attrs.LastModified()
			require.True(t, ok)
			assert.Equal(t, client.now.Unix(), modified)

			_, hasVisibility := attrs.Visibility()
			assert.False(t, hasVisibility)
		})

		t.Run(tt.name+" with exception", func(t *testing.T) {
			adapter, client := setupAdapter(t)
			client.getErrs["a/b.txt"] = errors.New("Unable to read file")

			_, err := tt.call(adapter, "a/b.txt")
			assert.ErrorIs(t, err, filesystem.ErrMetadata)

			var fsErr *filesystem.Error
			require.ErrorAs(t, err, &fsErr)
			assert.Equal(t, tt.field, fsErr.Field)
			assert.Equal(t, "a/b.txt", fsErr.Path)
		})
	}
}

func TestAdapter_Copy(t *testing.T) {
	ctx := context.Background()

	t.Run("without exception", func(t *testing.T) {
		adapter, client := setupAdapter(t)
		client.store(testContainer, "source/file.txt", []byte("payload"), "text/plain")

		require.NoError(t, adapter.Copy(ctx, "source/file.txt", "destination/file.txt", filesystem.Config{}))

		for _, p := range []string{"source/file.txt", "destination/file.txt"} {
			got, err := adapter.Read(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, "payload", string(got))
		}
	})

	t.Run("with exception", func(t *testing.T) {
		adapter, client := setupAdapter(t)
		client.copyErr = errors.New("Unable to copy file")

		err := adapter.Copy(ctx, "source/file.txt", "destination/file.txt", filesystem.Config{})
		assert.ErrorIs(t, err, filesystem.ErrCopy)

		var fsErr *filesystem.Error
		require.ErrorAs(t, err, &fsErr)
		assert.Equal(t, "source/file.txt", fsErr.Path)
		assert.Equal(t, "destination/file.txt", fsErr.Destination)
	})
}

func TestAdapter_Move(t *testing.T) {
	ctx := context.Background()
	src, dst := "source/file.txt", "destination/file.txt"

	t.Run("moves the object", func(t *testing.T) {
		adapter, client := setupAdapter(t)
		client.store(testContainer, src, []byte("payload"), "text/plain")

		require.NoError(t, adapter.Move(ctx, src, dst, filesystem.Config{}))

		got, err := adapter.Read(ctx, dst)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(got))

		_, err = adapter.Read(ctx, src)
		assert.ErrorIs(t, err, filesystem.ErrRead)
		assert.Equal(t, []string{"delete source/file.txt force=true"}, client.callsWithPrefix("delete"))
	})

	t.Run("copy failure skips delete", func(t *testing.T) {
		adapter, client := setupAdapter(t)
		client.store(testContainer, src, []byte("payload"), "text/plain")
		client.copyErr = errors.New("Unable to copy file")

		err := adapter.Move(ctx, src, dst, filesystem.Config{})
		assert.ErrorIs(t, err, filesystem.ErrMove)
		assert.Empty(t, client.callsWithPrefix("delete"))
	})

	t.Run("delete failure leaves both copies", func(t *testing.T) {
		adapter, client := setupAdapter(t)
		client.store(testContainer, src, []byte("payload"), "text/plain")
		client.deleteErr = errors.New("Unable to delete file")

		err := adapter.Move(ctx, src, dst, filesystem.Config{})
		assert.ErrorIs(t, err, filesystem.ErrMove)
		assert.ErrorIs(t, err, client.deleteErr)

		for _, p := range []string{src, dst} {
			got, err := adapter.Read(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, "payload", string(got))
		}
	})
}
