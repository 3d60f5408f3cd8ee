// Package listing implements bucket summarization, wildcard-driven listing
// expansion, and per-object detail printing for the ls command.
//
// The expansion is an explicit breadth-first worklist over tagged listing
// references rather than call-stack recursion, which keeps the top-level and
// sibling-count bookkeeping simple and bounds stack depth independent of
// directory depth.
package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/skyfold/skyls/pkg/storage"
	"github.com/skyfold/skyls/pkg/wildcard"
)

// Style selects the listing output verbosity.
type Style int

const (
	// StyleShort prints bare URIs only.
	StyleShort Style = iota

	// StyleLong prints size, timestamp, and URI per object.
	StyleLong

	// StyleLongLong prints a multi-line metadata block per object. Strictly
	// more expensive: each object costs an extra metadata fetch and an ACL
	// fetch on top of the listing.
	StyleLongLong
)

// Service resolves a URI pattern into tagged listing references.
// *wildcard.Iterator satisfies it.
type Service interface {
	Expand(ctx context.Context, u wildcard.URI) ([]wildcard.Ref, error)
}

// NoMatchError reports a literal (wildcard-free) URI that resolved to nothing.
type NoMatchError struct {
	URI string
}

func (e *NoMatchError) Error() string {
	return "No such object " + e.URI
}

// Lister drives listing expansion and printing against one matching service
// and one storage accessor. Output is line-oriented text on out.
type Lister struct {
	svc   Service
	store storage.Accessor
	out   io.Writer
}

// New creates a Lister writing to out.
func New(svc Service, store storage.Accessor, out io.Writer) *Lister {
	return &Lister{svc: svc, store: store, out: out}
}

// SummarizeBucket prints listing info for one bucket and returns its
// (object count, byte total) contribution.
//
// Short style prints only the bucket URI and performs no enumeration; its
// zero return is display-only and must not feed no-match accounting.
// Long style enumerates every object under the bucket. LongLong additionally
// fetches bucket location and ACLs, which costs extra service round-trips.
func (l *Lister) SummarizeBucket(ctx context.Context, u wildcard.URI, style Style) (int64, int64, error) {
	bucketURI := wildcard.URI{Scheme: u.Scheme, Bucket: u.Bucket}

	if style == StyleShort {
		fmt.Fprintln(l.out, bucketURI)
		return 0, 0, nil
	}

	refs, err := l.svc.Expand(ctx, wildcard.URI{Scheme: u.Scheme, Bucket: u.Bucket, Key: "**"})
	if err != nil {
		return 0, 0, err
	}
	var objs, bytes int64
	for _, r := range refs {
		if !r.HasKey() {
			continue
		}
		objs++
		bytes += r.Object.Size
	}

	if style == StyleLong {
		fmt.Fprintf(l.out, "%s : %d objects, %s\n", bucketURI, objs, HumanReadableBytes(bytes))
		return objs, bytes, nil
	}

	location, err := l.store.BucketLocation(ctx, u.Bucket)
	if err != nil {
		return objs, bytes, err
	}
	locationOut := ""
	if location != "" {
		locationOut = "\n\tLocationConstraint: " + location
	}
	acl, err := l.store.BucketACL(ctx, u.Bucket)
	if err != nil {
		return objs, bytes, err
	}
	defACL, err := l.store.BucketDefaultACL(ctx, u.Bucket)
	if err != nil {
		return objs, bytes, err
	}
	fmt.Fprintf(l.out, "%s :\n\t%d objects, %s%s\n\tACL: %s\n\tDefault ACL: %s\n",
		bucketURI, objs, HumanReadableBytes(bytes), locationOut, acl, defACL)
	return objs, bytes, nil
}

// ListURI expands wildcards and buckets/subdirectories for the URI as
// needed, printing each match, and returns the matched (object count,
// byte total).
//
// The traversal is a FIFO worklist processed level by level: resolved keys
// print immediately, subdirectories either enqueue for the next level (top
// level of a non-bucket URI, or recursive listings) or print as one-line
// markers. Only the very first pass over the root URI gets top-level
// treatment.
func (l *Lister) ListURI(ctx context.Context, u wildcard.URI, style Style, recursive bool) (int64, int64, error) {
	queue := []wildcard.Ref{{URI: u, Kind: wildcard.RefURI}}

	var (
		numObjs     int64
		numBytes    int64
		topLevel    = true
		printedOne  bool
		numExpanded int
	)

	for len(queue) > 0 {
		// Blank separator between listing sections, the way ls spaces
		// multiple directory arguments.
		if printedOne {
			fmt.Fprintln(l.out)
		}
		ref := queue[0]
		queue = queue[1:]

		var (
			expansion []wildcard.Ref
			err       error
		)
		switch {
		case ref.HasKey():
			expansion = []wildcard.Ref{ref}

		case ref.HasPrefix():
			// Bucket subdir from a previous level. Print a header line only
			// when listing more than one subdir or when recursing, consistent
			// with how UNIX ls prints directory arguments.
			if numExpanded > 1 || recursive {
				fmt.Fprintf(l.out, "%s:\n", ref.URI)
				printedOne = true
			}
			pattern := wildcard.URI{
				Scheme: ref.URI.Scheme,
				Bucket: ref.URI.Bucket,
				Key:    strings.TrimRight(ref.URI.Key, "/") + "/*",
			}
			expansion, err = l.svc.Expand(ctx, pattern)
			if err != nil {
				return numObjs, numBytes, err
			}

		case ref.NamesBucket():
			pattern := wildcard.URI{Scheme: ref.URI.Scheme, Bucket: ref.URI.Bucket, Key: "*"}
			expansion, err = l.svc.Expand(ctx, pattern)
			if err != nil {
				return numObjs, numBytes, err
			}

		default:
			// Reference instantiated from a user-supplied URI, not from a
			// bucket listing: resolve the object-vs-subdirectory ambiguity.
			expansion, err = l.expandRootRef(ctx, ref)
			if err != nil {
				return numObjs, numBytes, err
			}
			numExpanded += len(expansion)
			if numExpanded == 0 && !u.ContainsWildcard() {
				return numObjs, numBytes, &NoMatchError{URI: u.String()}
			}
		}

		for _, cur := range expansion {
			if cur.HasKey() {
				no, nb, err := l.printObjectInfo(ctx, cur, style)
				if err != nil {
					return numObjs, numBytes, err
				}
				numObjs += no
				numBytes += nb
				printedOne = true
				continue
			}

			// Subdir. At the top level of a bucket listing the contents are
			// printed directly (the way ls on a directory prints contents,
			// not the name followed by contents), so only enqueue when
			// expanding a non-bucket root or recursing.
			if (topLevel && !u.NamesBucket()) || recursive {
				if strings.HasSuffix(cur.URI.String(), "//") {
					// An object literally named with a leading slash produces
					// a prefix whose listing is itself; rewrite to a wildcard
					// so the traversal cannot loop on it.
					rewritten, perr := wildcard.Parse(cur.URI.String() + "*")
					if perr != nil {
						return numObjs, numBytes, perr
					}
					cur = wildcard.Ref{URI: rewritten, Kind: wildcard.RefURI}
				}
				queue = append(queue, cur)
				continue
			}

			// Non-recursive subdir marker; the long style pads to align
			// under the size and timestamp columns.
			if style == StyleLong {
				fmt.Fprintf(l.out, "%-33s%s\n", "", cur.URI)
			} else {
				fmt.Fprintln(l.out, cur.URI)
			}
		}
		topLevel = false
	}

	return numObjs, numBytes, nil
}

// expandRootRef resolves an unresolved, user-supplied reference.
//
// A delimited wildcard expansion reports each match as key or prefix, so a
// bucket holding keys "abcd" and "abce/x.txt" expands "abc*" to one of each.
// For a wildcard-free URI, "<uri>*" is expanded instead (forcing a real
// bucket listing rather than a literal single-key lookup) and the results
// filtered to those whose trimmed URI equals the original trimmed URI -
// discarding unrelated names that merely share the prefix. Zero, one, or two
// results are all legal; two occurs when an object and a subdirectory share
// a name.
func (l *Lister) expandRootRef(ctx context.Context, ref wildcard.Ref) ([]wildcard.Ref, error) {
	stripped := wildcard.URI{
		Scheme: ref.URI.Scheme,
		Bucket: ref.URI.Bucket,
		Key:    strings.TrimRight(ref.URI.Key, "/"),
	}

	if stripped.ContainsWildcard() {
		return l.svc.Expand(ctx, stripped)
	}

	expansion, err := l.svc.Expand(ctx, wildcard.URI{
		Scheme: stripped.Scheme,
		Bucket: stripped.Bucket,
		Key:    stripped.Key + "*",
	})
	if err != nil {
		return nil, err
	}

	want := stripped.RStripped()
	var result []wildcard.Ref
	for _, cur := range expansion {
		if cur.URI.RStripped() == want {
			result = append(result, cur)
		}
	}
	return result, nil
}

// printObjectInfo prints one resolved object at the given detail level and
// returns its (count, bytes) contribution to the running totals.
//
// The extended style re-fetches the object's metadata directly - a second,
// authoritative lookup distinct from the listing data - before printing the
// block. An authorization failure on the ACL fetch specifically is downgraded
// to an explanatory line (a user may hold READ on the bucket listing yet lack
// FULL_CONTROL on individual objects); any other failure propagates.
func (l *Lister) printObjectInfo(ctx context.Context, ref wildcard.Ref, style Style) (int64, int64, error) {
	u := ref.URI

	switch style {
	case StyleShort:
		fmt.Fprintln(l.out, u)
		return 1, 0, nil

	case StyleLong:
		fmt.Fprintf(l.out, "%10d  %s  %s\n",
			ref.Object.Size, formatListingTime(ref.Object.LastModified), u)
		return 1, ref.Object.Size, nil

	case StyleLongLong:
		fmt.Fprintf(l.out, "%s:\n", u)

		meta, err := l.store.Head(ctx, u.Bucket, u.Key)
		if err != nil {
			return 0, 0, err
		}

		fmt.Fprintf(l.out, "\tObject size:\t%d\n", meta.Size)
		fmt.Fprintf(l.out, "\tLast mod:\t%s\n", formatFullTime(meta.LastModified))
		if meta.CacheControl != "" {
			fmt.Fprintf(l.out, "\tCache control:\t%s\n", meta.CacheControl)
		}
		fmt.Fprintf(l.out, "\tMIME type:\t%s\n", meta.ContentType)
		if meta.ContentDisposition != "" {
			fmt.Fprintf(l.out, "\tContent-Disposition:\t%s\n", meta.ContentDisposition)
		}
		if meta.ContentEncoding != "" {
			fmt.Fprintf(l.out, "\tContent-Encoding:\t%s\n", meta.ContentEncoding)
		}
		if meta.ContentLanguage != "" {
			fmt.Fprintf(l.out, "\tContent-Language:\t%s\n", meta.ContentLanguage)
		}
		if len(meta.Metadata) > 0 {
			names := make([]string, 0, len(meta.Metadata))
			for name := range meta.Metadata {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(l.out, "\tMetadata:\t%s = %s\n", name, meta.Metadata[name])
			}
		}
		fmt.Fprintf(l.out, "\tEtag:\t%s\n", strings.Trim(meta.ETag, "\"'"))

		acl, err := l.store.ObjectACL(ctx, u.Bucket, u.Key)
		if err != nil {
			if errors.Is(err, storage.ErrAccessDenied) {
				fmt.Fprintf(l.out, "\tACCESS DENIED for reading ACL. Note: you need FULL_CONTROL"+
					" permission on each\n\tobject in order to read its ACL.\n")
				return 1, meta.Size, nil
			}
			return 0, 0, err
		}
		fmt.Fprintf(l.out, "\tACL:\t%s\n", acl)
		return 1, meta.Size, nil

	default:
		return 0, 0, fmt.Errorf("unexpected listing style %d", style)
	}
}
