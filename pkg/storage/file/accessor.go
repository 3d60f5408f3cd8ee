// Package file implements the storage accessor over a local directory tree.
//
// Top-level directories under BaseDir act as buckets and files below them as
// objects. It exists for development listings (file:// URIs) and for hermetic
// tests of the wildcard and listing layers.
package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/skyfold/skyls/pkg/storage"
)

// Accessor implements storage.Accessor for local filesystem paths.
type Accessor struct {
	baseDir string
}

var _ storage.Accessor = (*Accessor)(nil)

type Config struct {
	BaseDir string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	return nil
}

func New(cfg Config) (*Accessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Accessor{baseDir: filepath.Clean(cfg.BaseDir)}, nil
}

func (a *Accessor) Close() error { return nil }

func (a *Accessor) ListBuckets(ctx context.Context) ([]storage.BucketSummary, error) {
	_ = ctx
	entries, err := os.ReadDir(a.baseDir)
	if err != nil {
		return nil, a.wrapError("ListBuckets", "", "", err)
	}

	var buckets []storage.BucketSummary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		buckets = append(buckets, storage.BucketSummary{Name: e.Name(), CreatedAt: info.ModTime()})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

func (a *Accessor) List(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	_ = ctx
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	keys, err := a.collectKeys(opts.Bucket)
	if err != nil {
		return nil, a.wrapError("List", opts.Bucket, opts.Prefix, err)
	}
	sort.Strings(keys)

	// Delimiter grouping mirrors the store-side roll-up: keys whose remainder
	// past the prefix contains the delimiter collapse into one common prefix.
	var (
		objects  []storage.ObjectSummary
		prefixes []string
		seen     = map[string]struct{}{}
		token    = opts.ContinuationToken
		lastKey  string
		trunc    bool
	)

	for _, k := range keys {
		if opts.Prefix != "" && !strings.HasPrefix(k, opts.Prefix) {
			continue
		}
		if skipBeforeToken(k, token, opts.Delimiter) {
			continue
		}
		if len(objects)+len(prefixes) >= maxKeys {
			trunc = true
			break
		}

		if opts.Delimiter != "" {
			rest := k[len(opts.Prefix):]
			if idx := strings.Index(rest, opts.Delimiter); idx >= 0 {
				cp := opts.Prefix + rest[:idx+len(opts.Delimiter)]
				if _, ok := seen[cp]; !ok {
					seen[cp] = struct{}{}
					prefixes = append(prefixes, cp)
					// Resume past the whole group, not just this key, so a
					// page boundary inside the group cannot re-emit the prefix.
					lastKey = cp
				}
				continue
			}
		}

		st, err := os.Stat(filepath.Join(a.baseDir, opts.Bucket, filepath.FromSlash(k)))
		if err != nil || st.IsDir() {
			continue
		}
		objects = append(objects, storage.ObjectSummary{
			Bucket:       opts.Bucket,
			Key:          k,
			Size:         st.Size(),
			LastModified: st.ModTime(),
		})
		lastKey = k
	}

	res := &storage.ListResult{Objects: objects, CommonPrefixes: prefixes}
	if trunc {
		res.IsTruncated = true
		res.ContinuationToken = lastKey
	}
	return res, nil
}

// skipBeforeToken reports whether key k was already covered by a previous
// page. A token ending in the delimiter marks a fully emitted common prefix;
// every key rolled up under it is skipped along with everything sorting at or
// before it.
func skipBeforeToken(k, token, delimiter string) bool {
	if token == "" {
		return false
	}
	if delimiter != "" && strings.HasSuffix(token, delimiter) && strings.HasPrefix(k, token) {
		return true
	}
	return k <= token
}

func (a *Accessor) Head(ctx context.Context, bucket, key string) (*storage.ObjectMeta, error) {
	_ = ctx
	full, err := a.fullPath(bucket, key)
	if err != nil {
		return nil, a.wrapError("Head", bucket, key, err)
	}
	st, err := os.Stat(full)
	if err != nil || st.IsDir() {
		if err == nil || os.IsNotExist(err) {
			return nil, &storage.StorageError{Op: "Head", Scheme: "file", Bucket: bucket, Key: key, Err: storage.ErrNotFound}
		}
		return nil, a.wrapError("Head", bucket, key, err)
	}

	return &storage.ObjectMeta{
		ObjectSummary: storage.ObjectSummary{
			Bucket:       bucket,
			Key:          key,
			Size:         st.Size(),
			LastModified: st.ModTime(),
		},
		ContentType: "application/octet-stream",
	}, nil
}

// ObjectACL renders the file permission bits as a single grant.
func (a *Accessor) ObjectACL(ctx context.Context, bucket, key string) (string, error) {
	_ = ctx
	full, err := a.fullPath(bucket, key)
	if err != nil {
		return "", a.wrapError("ObjectACL", bucket, key, err)
	}
	st, err := os.Stat(full)
	if err != nil {
		return "", a.wrapError("ObjectACL", bucket, key, err)
	}
	return fmt.Sprintf("<Owner:local, <FileMode: %04o>: FULL_CONTROL>", st.Mode().Perm()), nil
}

func (a *Accessor) BucketACL(ctx context.Context, bucket string) (string, error) {
	_ = ctx
	st, err := os.Stat(filepath.Join(a.baseDir, bucket))
	if err != nil {
		return "", a.wrapError("BucketACL", bucket, "", err)
	}
	return fmt.Sprintf("<Owner:local, <FileMode: %04o>: FULL_CONTROL>", st.Mode().Perm()), nil
}

func (a *Accessor) BucketDefaultACL(ctx context.Context, bucket string) (string, error) {
	_ = ctx
	_ = bucket
	return "<>", nil
}

func (a *Accessor) BucketLocation(ctx context.Context, bucket string) (string, error) {
	_ = ctx
	_ = bucket
	return "", nil
}

func (a *Accessor) fullPath(bucket, key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	// Prevent path traversal.
	clean := filepath.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key path")
	}
	return filepath.Join(a.baseDir, bucket, filepath.FromSlash(clean)), nil
}

func (a *Accessor) collectKeys(bucket string) ([]string, error) {
	root := filepath.Join(a.baseDir, bucket)
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrBucketNotFound
		}
		return nil, err
	}

	var keys []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	return keys, nil
}

func (a *Accessor) wrapError(op, bucket, key string, err error) error {
	wrapped := &storage.StorageError{Op: op, Scheme: "file", Bucket: bucket, Key: key, Err: err}
	if err == nil {
		wrapped.Err = fmt.Errorf("unknown error")
	}
	// Normalize common filesystem errors to storage sentinels.
	if os.IsNotExist(err) {
		wrapped.Err = storage.ErrNotFound
	}
	if os.IsPermission(err) {
		wrapped.Err = storage.ErrAccessDenied
	}
	return wrapped
}
