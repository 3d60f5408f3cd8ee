package wildcard

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfold/skyls/pkg/storage"
)

// fakeStore is an in-memory accessor with real delimiter and pagination
// semantics, so iterator tests exercise the same listing shapes the cloud
// stores produce.
type fakeStore struct {
	buckets   map[string][]storage.ObjectSummary
	pageSize  int
	listCalls int
}

func newFakeStore(buckets map[string][]string) *fakeStore {
	fs := &fakeStore{buckets: map[string][]storage.ObjectSummary{}}
	for b, keys := range buckets {
		for i, k := range keys {
			fs.buckets[b] = append(fs.buckets[b], storage.ObjectSummary{
				Bucket:       b,
				Key:          k,
				Size:         int64(100 * (i + 1)),
				ETag:         "etag-" + k,
				LastModified: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			})
		}
	}
	return fs
}

func (f *fakeStore) ListBuckets(ctx context.Context) ([]storage.BucketSummary, error) {
	var out []storage.BucketSummary
	for name := range f.buckets {
		out = append(out, storage.BucketSummary{Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) List(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	f.listCalls++

	objs, ok := f.buckets[opts.Bucket]
	if !ok {
		return nil, &storage.StorageError{Op: "List", Bucket: opts.Bucket, Err: storage.ErrBucketNotFound}
	}

	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	if f.pageSize > 0 && f.pageSize < maxKeys {
		maxKeys = f.pageSize
	}

	sorted := append([]storage.ObjectSummary(nil), objs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	res := &storage.ListResult{}
	seen := map[string]struct{}{}
	var lastKey string
	for _, o := range sorted {
		if opts.Prefix != "" && !strings.HasPrefix(o.Key, opts.Prefix) {
			continue
		}
		if tok := opts.ContinuationToken; tok != "" {
			if o.Key <= tok {
				continue
			}
			// A token ending in the delimiter covers its whole prefix group.
			if opts.Delimiter != "" && strings.HasSuffix(tok, opts.Delimiter) && strings.HasPrefix(o.Key, tok) {
				continue
			}
		}
		if len(res.Objects)+len(res.CommonPrefixes) >= maxKeys {
			res.IsTruncated = true
			res.ContinuationToken = lastKey
			return res, nil
		}

		if opts.Delimiter != "" {
			rest := o.Key[len(opts.Prefix):]
			if idx := strings.Index(rest, opts.Delimiter); idx >= 0 {
				cp := opts.Prefix + rest[:idx+len(opts.Delimiter)]
				if _, dup := seen[cp]; !dup {
					seen[cp] = struct{}{}
					res.CommonPrefixes = append(res.CommonPrefixes, cp)
					lastKey = cp
				}
				continue
			}
		}
		res.Objects = append(res.Objects, o)
		lastKey = o.Key
	}
	return res, nil
}

func (f *fakeStore) Head(ctx context.Context, bucket, key string) (*storage.ObjectMeta, error) {
	for _, o := range f.buckets[bucket] {
		if o.Key == key {
			return &storage.ObjectMeta{ObjectSummary: o, ContentType: "application/octet-stream"}, nil
		}
	}
	return nil, &storage.StorageError{Op: "Head", Bucket: bucket, Key: key, Err: storage.ErrNotFound}
}

func (f *fakeStore) ObjectACL(ctx context.Context, bucket, key string) (string, error) {
	return "<Owner:test, <UserById: test>: FULL_CONTROL>", nil
}

func (f *fakeStore) BucketACL(ctx context.Context, bucket string) (string, error) {
	return "<Owner:test, <UserById: test>: FULL_CONTROL>", nil
}

func (f *fakeStore) BucketDefaultACL(ctx context.Context, bucket string) (string, error) {
	return "<>", nil
}

func (f *fakeStore) BucketLocation(ctx context.Context, bucket string) (string, error) {
	return "", nil
}

func (f *fakeStore) Close() error { return nil }

func refKeys(refs []Ref) []string {
	var out []string
	for _, r := range refs {
		out = append(out, r.URI.Key)
	}
	return out
}

func TestExpandExactBucket(t *testing.T) {
	fs := newFakeStore(map[string][]string{"data": {"a.txt"}})
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "data"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, RefBucket, refs[0].Kind)
	assert.Equal(t, "gs://data/", refs[0].URI.String())
	assert.Zero(t, fs.listCalls, "exact bucket names need no listing call")
}

func TestExpandBucketWildcard(t *testing.T) {
	fs := newFakeStore(map[string][]string{
		"alpha": {"x"},
		"alps":  {"y"},
		"beta":  {"z"},
	})
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "alp*"})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "alpha", refs[0].URI.Bucket)
	assert.Equal(t, "alps", refs[1].URI.Bucket)
	for _, r := range refs {
		assert.Equal(t, RefBucket, r.Kind)
	}
}

func TestExpandProviderWide(t *testing.T) {
	fs := newFakeStore(map[string][]string{"b1": {"x"}, "b2": {"y"}})
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "*"})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestExpandBucketWildcardWithKey(t *testing.T) {
	fs := newFakeStore(map[string][]string{
		"logs-a": {"app.log", "sys.log"},
		"logs-b": {"app.log"},
		"media":  {"app.log"},
	})
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "logs-*", Key: "app.*"})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "logs-a", refs[0].URI.Bucket)
	assert.Equal(t, "logs-b", refs[1].URI.Bucket)
}

func TestExpandLiteralKeyNoServiceCall(t *testing.T) {
	fs := newFakeStore(map[string][]string{"data": {}})
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "data", Key: "exact/key.txt"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, RefURI, refs[0].Kind)
	assert.Equal(t, "exact/key.txt", refs[0].URI.Key)
	assert.Zero(t, fs.listCalls)
}

func TestExpandLiteralKeyUnescaped(t *testing.T) {
	fs := newFakeStore(map[string][]string{"data": {}})
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "data", Key: `weird\*name`})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "weird*name", refs[0].URI.Key)
}

func TestExpandSingleLevelWildcard(t *testing.T) {
	fs := newFakeStore(map[string][]string{"data": {
		"a.txt",
		"b.log",
		"dir/c.txt",
	}})
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "data", Key: "*.txt"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, RefKey, refs[0].Kind)
	assert.Equal(t, "a.txt", refs[0].URI.Key)
	require.NotNil(t, refs[0].Object)
	assert.Equal(t, int64(100), refs[0].Object.Size)
}

func TestExpandWildcardYieldsKeysAndPrefixes(t *testing.T) {
	fs := newFakeStore(map[string][]string{"data": {
		"abcd",
		"abce/x.txt",
	}})
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "data", Key: "abc*"})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, RefKey, refs[0].Kind)
	assert.Equal(t, "abcd", refs[0].URI.Key)
	assert.Equal(t, RefPrefix, refs[1].Kind)
	assert.Equal(t, "abce/", refs[1].URI.Key)
}

func TestExpandKeyAndPrefixSameName(t *testing.T) {
	fs := newFakeStore(map[string][]string{"data": {
		"dir",
		"dir/x.txt",
	}})
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "data", Key: "dir*"})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, RefKey, refs[0].Kind)
	assert.Equal(t, RefPrefix, refs[1].Kind)
}

func TestExpandNonFinalWildcardDescends(t *testing.T) {
	fs := newFakeStore(map[string][]string{"data": {
		"dir1/c.txt",
		"dir2/c.txt",
		"dir2/d.txt",
		"other/c.txt",
	}})
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "data", Key: "dir*/c.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dir1/c.txt", "dir2/c.txt"}, refKeys(refs))
	for _, r := range refs {
		assert.Equal(t, RefKey, r.Kind)
	}
}

func TestExpandNonFinalWildcardWithWildcardRest(t *testing.T) {
	fs := newFakeStore(map[string][]string{"data": {
		"dir1/a.txt",
		"dir1/b.log",
		"dir2/c.txt",
	}})
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "data", Key: "dir*/*.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dir1/a.txt", "dir2/c.txt"}, refKeys(refs))
}

func TestExpandRecursivePattern(t *testing.T) {
	fs := newFakeStore(map[string][]string{"data": {
		"a.txt",
		"b.log",
		"dir/c.txt",
		"dir/sub/d.txt",
	}})
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "data", Key: "**"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.log", "dir/c.txt", "dir/sub/d.txt"}, refKeys(refs))
	for _, r := range refs {
		assert.Equal(t, RefKey, r.Kind, "recursive expansion yields keys only")
	}
}

func TestExpandRecursivePatternFiltered(t *testing.T) {
	fs := newFakeStore(map[string][]string{"data": {
		"a.txt",
		"b.log",
		"dir/c.txt",
		"dir/sub/d.txt",
	}})
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "data", Key: "**/*.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "dir/c.txt", "dir/sub/d.txt"}, refKeys(refs))
}

func TestExpandPaginates(t *testing.T) {
	keys := []string{"k01", "k02", "k03", "k04", "k05", "k06", "k07"}
	fs := newFakeStore(map[string][]string{"data": keys})
	fs.pageSize = 2
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "data", Key: "k*"})
	require.NoError(t, err)
	assert.Equal(t, keys, refKeys(refs))
	assert.GreaterOrEqual(t, fs.listCalls, 4, "expansion must walk all pages")
}

func TestExpandPaginatedDelimiterListsPrefixOnce(t *testing.T) {
	fs := newFakeStore(map[string][]string{"data": {
		"a.txt",
		"sub/k0.txt",
		"sub/k1.txt",
		"sub/k2.txt",
		"sub/k3.txt",
	}})
	fs.pageSize = 2
	it := NewIterator(fs, Config{})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "data", Key: "*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "sub/"}, refKeys(refs))
	require.Len(t, refs, 2)
	assert.Equal(t, RefKey, refs[0].Kind)
	assert.Equal(t, RefPrefix, refs[1].Kind, "a page break inside the group must not repeat the prefix")
}

func TestExpandMissingScheme(t *testing.T) {
	fs := newFakeStore(nil)
	it := NewIterator(fs, Config{})

	_, err := it.Expand(context.Background(), URI{Bucket: "data", Key: "*"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidURI)
}

func TestExpandBucketNotFound(t *testing.T) {
	fs := newFakeStore(map[string][]string{"data": {"a"}})
	it := NewIterator(fs, Config{})

	_, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "missing", Key: "*"})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrBucketNotFound)
}

func TestExpandRateLimited(t *testing.T) {
	fs := newFakeStore(map[string][]string{"data": {"a.txt", "b.txt"}})
	it := NewIterator(fs, Config{RateLimit: 1000})

	refs, err := it.Expand(context.Background(), URI{Scheme: "gs", Bucket: "data", Key: "*"})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}
