package wildcard

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/skyfold/skyls/pkg/storage"
)

// Iterator is the matching service: it resolves a URI pattern against real
// storage listings and yields the matches as tagged listing references.
//
// Expansion strategy:
//   - bucket wildcards enumerate account buckets and glob-filter by name
//   - single-level key wildcards walk segment-wise with delimiter listings,
//     so matches are tagged key or prefix exactly as the store reports them
//   - recursive (**) patterns use flat listings and yield keys only
//   - literal keys yield one unresolved reference without a service call;
//     callers wanting a confirmed listing append "*" and filter
//
// The Iterator performs no sorting: result order is the store's listing
// order, page by page, keys before common prefixes within a page.
type Iterator struct {
	store   storage.Accessor
	maxKeys int
	limiter *rate.Limiter
}

// Config configures an Iterator.
type Config struct {
	// MaxKeys is the page size for listing calls. Zero uses the accessor default.
	MaxKeys int

	// RateLimit caps listing requests per second. Zero disables pacing.
	RateLimit float64
}

// NewIterator creates an Iterator over the given accessor.
func NewIterator(store storage.Accessor, cfg Config) *Iterator {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &Iterator{
		store:   store,
		maxKeys: cfg.MaxKeys,
		limiter: limiter,
	}
}

// Expand resolves the URI pattern into zero or more listing references.
func (it *Iterator) Expand(ctx context.Context, u URI) ([]Ref, error) {
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme", ErrInvalidURI)
	}

	if u.NamesProvider() || ContainsWildcard(u.Bucket) {
		return it.expandBuckets(ctx, u)
	}

	if u.Key == "" {
		// Exact bucket name: no listing call needed.
		return []Ref{{URI: URI{Scheme: u.Scheme, Bucket: u.Bucket}, Kind: RefBucket}}, nil
	}

	return it.expandKeys(ctx, u.Scheme, u.Bucket, u.Key)
}

// expandBuckets enumerates account buckets and filters them by the bucket
// pattern, descending into key expansion when the URI has a key part.
func (it *Iterator) expandBuckets(ctx context.Context, u URI) ([]Ref, error) {
	pattern := u.Bucket
	if pattern == "" {
		pattern = "*"
	}

	if err := it.wait(ctx); err != nil {
		return nil, err
	}
	buckets, err := it.store.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}

	var refs []Ref
	for _, b := range buckets {
		if !matchPattern(pattern, b.Name) {
			continue
		}
		if u.Key == "" {
			refs = append(refs, Ref{URI: URI{Scheme: u.Scheme, Bucket: b.Name}, Kind: RefBucket})
			continue
		}
		sub, err := it.expandKeys(ctx, u.Scheme, b.Name, u.Key)
		if err != nil {
			return nil, err
		}
		refs = append(refs, sub...)
	}
	return refs, nil
}

// expandKeys resolves a key pattern within one bucket.
func (it *Iterator) expandKeys(ctx context.Context, scheme, bucket, pattern string) ([]Ref, error) {
	if !ContainsWildcard(pattern) {
		// Literal object name: yielded without confirming existence.
		return []Ref{{
			URI:  URI{Scheme: scheme, Bucket: bucket, Key: unescape(pattern)},
			Kind: RefURI,
		}}, nil
	}
	if hasRecursiveSegment(pattern) {
		return it.expandFlat(ctx, scheme, bucket, pattern)
	}
	return it.expandSegments(ctx, scheme, bucket, pattern)
}

// expandFlat handles ** patterns with an undelimited listing. Every key under
// the static prefix is matched against the full pattern; prefixes are not
// synthesized, so results are keys only.
func (it *Iterator) expandFlat(ctx context.Context, scheme, bucket, pattern string) ([]Ref, error) {
	prefix := staticPrefix(pattern)

	var refs []Ref
	token := ""
	for {
		if err := it.wait(ctx); err != nil {
			return nil, err
		}
		res, err := it.store.List(ctx, storage.ListOptions{
			Bucket:            bucket,
			Prefix:            prefix,
			ContinuationToken: token,
			MaxKeys:           it.maxKeys,
		})
		if err != nil {
			return nil, err
		}

		for _, obj := range res.Objects {
			if !matchPattern(pattern, obj.Key) {
				continue
			}
			o := obj
			o.Bucket = bucket
			refs = append(refs, Ref{
				URI:    URI{Scheme: scheme, Bucket: bucket, Key: obj.Key},
				Kind:   RefKey,
				Object: &o,
			})
		}

		if !res.IsTruncated || res.ContinuationToken == "" {
			break
		}
		token = res.ContinuationToken
	}
	return refs, nil
}

// expandSegments walks a single-level wildcard pattern one path segment at a
// time. A delimiter listing at the static prefix produces the candidates for
// the wildcard segment; keys and trimmed common prefixes are glob-matched
// against it, and matching prefixes are descended into when pattern segments
// remain.
func (it *Iterator) expandSegments(ctx context.Context, scheme, bucket, pattern string) ([]Ref, error) {
	segs := strings.Split(pattern, "/")
	wi := -1
	for i, seg := range segs {
		if ContainsWildcard(seg) {
			wi = i
			break
		}
	}
	if wi == -1 {
		// Callers route literals elsewhere.
		return nil, fmt.Errorf("%w: pattern %q has no wildcard", ErrInvalidURI, pattern)
	}

	base := ""
	if wi > 0 {
		base = unescape(strings.Join(segs[:wi], "/")) + "/"
	}
	segPat := segs[wi]
	rest := strings.Join(segs[wi+1:], "/")
	final := wi == len(segs)-1 || rest == ""

	var (
		refs     []Ref
		children []string
		token    string
	)
	for {
		if err := it.wait(ctx); err != nil {
			return nil, err
		}
		res, err := it.store.List(ctx, storage.ListOptions{
			Bucket:            bucket,
			Prefix:            base + staticPrefix(segPat),
			Delimiter:         "/",
			ContinuationToken: token,
			MaxKeys:           it.maxKeys,
		})
		if err != nil {
			return nil, err
		}

		if final {
			for _, obj := range res.Objects {
				rel := strings.TrimPrefix(obj.Key, base)
				if !matchPattern(segPat, rel) {
					continue
				}
				o := obj
				o.Bucket = bucket
				refs = append(refs, Ref{
					URI:    URI{Scheme: scheme, Bucket: bucket, Key: obj.Key},
					Kind:   RefKey,
					Object: &o,
				})
			}
		}

		for _, cp := range res.CommonPrefixes {
			rel := strings.TrimSuffix(strings.TrimPrefix(cp, base), "/")
			// Objects named with a leading separator roll up into an empty
			// remainder; "*" must still surface them as a prefix.
			if !matchPattern(segPat, rel) && !(rel == "" && segPat == "*") {
				continue
			}
			if final {
				refs = append(refs, Ref{
					URI:  URI{Scheme: scheme, Bucket: bucket, Key: cp},
					Kind: RefPrefix,
				})
			} else {
				children = append(children, cp)
			}
		}

		if !res.IsTruncated || res.ContinuationToken == "" {
			break
		}
		token = res.ContinuationToken
	}

	for _, cp := range children {
		var (
			sub []Ref
			err error
		)
		if ContainsWildcard(rest) {
			sub, err = it.expandKeys(ctx, scheme, bucket, cp+rest)
		} else {
			sub, err = it.expandExact(ctx, scheme, bucket, cp+rest)
		}
		if err != nil {
			return nil, err
		}
		refs = append(refs, sub...)
	}
	return refs, nil
}

// expandExact confirms a literal name against a delimiter listing,
// distinguishing object, prefix, or both. Used for the trailing literal
// segments of patterns like "a*/b".
func (it *Iterator) expandExact(ctx context.Context, scheme, bucket, key string) ([]Ref, error) {
	wantKey := !strings.HasSuffix(key, "/")
	target := unescape(strings.TrimSuffix(key, "/"))

	var refs []Ref
	token := ""
	for {
		if err := it.wait(ctx); err != nil {
			return nil, err
		}
		res, err := it.store.List(ctx, storage.ListOptions{
			Bucket:            bucket,
			Prefix:            target,
			Delimiter:         "/",
			ContinuationToken: token,
			MaxKeys:           it.maxKeys,
		})
		if err != nil {
			return nil, err
		}

		for _, obj := range res.Objects {
			if wantKey && obj.Key == target {
				o := obj
				o.Bucket = bucket
				refs = append(refs, Ref{
					URI:    URI{Scheme: scheme, Bucket: bucket, Key: obj.Key},
					Kind:   RefKey,
					Object: &o,
				})
			}
		}
		for _, cp := range res.CommonPrefixes {
			if cp == target+"/" {
				refs = append(refs, Ref{
					URI:  URI{Scheme: scheme, Bucket: bucket, Key: cp},
					Kind: RefPrefix,
				})
			}
		}

		if !res.IsTruncated || res.ContinuationToken == "" {
			break
		}
		token = res.ContinuationToken
	}
	return refs, nil
}

func (it *Iterator) wait(ctx context.Context) error {
	if it.limiter == nil {
		return nil
	}
	return it.limiter.Wait(ctx)
}
