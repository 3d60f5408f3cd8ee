package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfold/skyls/pkg/storage"
)

// writeTree lays out buckets (top-level dirs) and objects (files) under a
// temp base dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	base := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(base, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return base
}

func newTestAccessor(t *testing.T, files map[string]string) *Accessor {
	t.Helper()
	a, err := New(Config{BaseDir: writeTree(t, files)})
	require.NoError(t, err)
	return a
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseDir: "   "})
	assert.Error(t, err)
}

func TestListBuckets(t *testing.T) {
	a := newTestAccessor(t, map[string]string{
		"data/a.txt":  "aaa",
		"media/b.jpg": "bb",
	})

	buckets, err := a.ListBuckets(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "data", buckets[0].Name)
	assert.Equal(t, "media", buckets[1].Name)
}

func TestListFlat(t *testing.T) {
	a := newTestAccessor(t, map[string]string{
		"data/a.txt":     "aaa",
		"data/dir/b.txt": "bbbb",
	})

	res, err := a.List(context.Background(), storage.ListOptions{Bucket: "data"})
	require.NoError(t, err)
	require.Len(t, res.Objects, 2)
	assert.Equal(t, "a.txt", res.Objects[0].Key)
	assert.Equal(t, int64(3), res.Objects[0].Size)
	assert.Equal(t, "dir/b.txt", res.Objects[1].Key)
	assert.Empty(t, res.CommonPrefixes)
	assert.False(t, res.IsTruncated)
}

func TestListDelimited(t *testing.T) {
	a := newTestAccessor(t, map[string]string{
		"data/a.txt":     "aaa",
		"data/dir/b.txt": "bbbb",
		"data/dir/c.txt": "cc",
	})

	res, err := a.List(context.Background(), storage.ListOptions{Bucket: "data", Delimiter: "/"})
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "a.txt", res.Objects[0].Key)
	assert.Equal(t, []string{"dir/"}, res.CommonPrefixes)
}

func TestListDelimitedWithPrefix(t *testing.T) {
	a := newTestAccessor(t, map[string]string{
		"data/dir/b.txt":     "bbbb",
		"data/dir/sub/c.txt": "cc",
		"data/other/d.txt":   "d",
	})

	res, err := a.List(context.Background(), storage.ListOptions{Bucket: "data", Prefix: "dir/", Delimiter: "/"})
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "dir/b.txt", res.Objects[0].Key)
	assert.Equal(t, []string{"dir/sub/"}, res.CommonPrefixes)
}

func TestListPagination(t *testing.T) {
	a := newTestAccessor(t, map[string]string{
		"data/k1": "1",
		"data/k2": "2",
		"data/k3": "3",
	})

	var keys []string
	token := ""
	for {
		res, err := a.List(context.Background(), storage.ListOptions{
			Bucket:            "data",
			ContinuationToken: token,
			MaxKeys:           2,
		})
		require.NoError(t, err)
		for _, o := range res.Objects {
			keys = append(keys, o.Key)
		}
		if !res.IsTruncated {
			break
		}
		token = res.ContinuationToken
	}
	assert.Equal(t, []string{"k1", "k2", "k3"}, keys)
}

func TestListDelimitedPagination(t *testing.T) {
	a := newTestAccessor(t, map[string]string{
		"data/a.txt":      "a",
		"data/sub/k0.txt": "0",
		"data/sub/k1.txt": "1",
		"data/sub/k2.txt": "2",
		"data/sub/k3.txt": "3",
	})

	var keys, prefixes []string
	token := ""
	for {
		res, err := a.List(context.Background(), storage.ListOptions{
			Bucket:            "data",
			Delimiter:         "/",
			ContinuationToken: token,
			MaxKeys:           2,
		})
		require.NoError(t, err)
		for _, o := range res.Objects {
			keys = append(keys, o.Key)
		}
		prefixes = append(prefixes, res.CommonPrefixes...)
		if !res.IsTruncated {
			break
		}
		token = res.ContinuationToken
	}
	assert.Equal(t, []string{"a.txt"}, keys)
	assert.Equal(t, []string{"sub/"}, prefixes, "a page break inside the group must not repeat the prefix")
}

func TestListBucketNotFound(t *testing.T) {
	a := newTestAccessor(t, map[string]string{"data/a.txt": "a"})

	_, err := a.List(context.Background(), storage.ListOptions{Bucket: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrBucketNotFound)
}

func TestHead(t *testing.T) {
	a := newTestAccessor(t, map[string]string{"data/dir/b.txt": "bbbb"})

	meta, err := a.Head(context.Background(), "data", "dir/b.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(4), meta.Size)
	assert.Equal(t, "application/octet-stream", meta.ContentType)
	assert.False(t, meta.LastModified.IsZero())
}

func TestHeadNotFound(t *testing.T) {
	a := newTestAccessor(t, map[string]string{"data/a.txt": "a"})

	_, err := a.Head(context.Background(), "data", "missing.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// A directory is not an object.
	a2 := newTestAccessor(t, map[string]string{"data/dir/b.txt": "b"})
	_, err = a2.Head(context.Background(), "data", "dir")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHeadRejectsTraversal(t *testing.T) {
	a := newTestAccessor(t, map[string]string{"data/a.txt": "a"})

	_, err := a.Head(context.Background(), "data", "../../../etc/passwd")
	require.Error(t, err)
}

func TestObjectACLRendersFileMode(t *testing.T) {
	base := writeTree(t, map[string]string{"data/a.txt": "a"})
	// Pin the mode; the umask may have narrowed the create perms.
	require.NoError(t, os.Chmod(filepath.Join(base, "data", "a.txt"), 0o644))
	a, err := New(Config{BaseDir: base})
	require.NoError(t, err)

	acl, err := a.ObjectACL(context.Background(), "data", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "<Owner:local, <FileMode: 0644>: FULL_CONTROL>", acl)
}

func TestBucketACLAndDefaults(t *testing.T) {
	a := newTestAccessor(t, map[string]string{"data/a.txt": "a"})
	ctx := context.Background()

	acl, err := a.BucketACL(ctx, "data")
	require.NoError(t, err)
	assert.Contains(t, acl, "FULL_CONTROL")

	defACL, err := a.BucketDefaultACL(ctx, "data")
	require.NoError(t, err)
	assert.Equal(t, "<>", defACL)

	loc, err := a.BucketLocation(ctx, "data")
	require.NoError(t, err)
	assert.Empty(t, loc)
}
