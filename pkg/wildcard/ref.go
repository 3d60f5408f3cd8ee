package wildcard

import "github.com/skyfold/skyls/pkg/storage"

// RefKind classifies a listing reference.
//
// Classification is lazy: a RefURI reference says nothing about what exists
// in storage until it is expanded. A reference is never both a key and a
// prefix, but two references sharing the same trimmed URI - one key, one
// prefix - can coexist, since flat storage allows an object and a
// "directory" of the same name.
type RefKind int

const (
	// RefURI marks an unresolved reference built directly from user input,
	// not yet matched against a listing.
	RefURI RefKind = iota

	// RefKey marks a reference confirmed to be an object key.
	RefKey

	// RefPrefix marks a reference confirmed to be a subdirectory prefix.
	RefPrefix

	// RefBucket marks a reference naming a bucket exactly.
	RefBucket
)

// Ref is one node in a listing traversal: a URI, its classification, and -
// for resolved keys - the object metadata the listing response carried.
type Ref struct {
	// URI locates the referenced entity.
	URI URI

	// Kind is the reference's classification.
	Kind RefKind

	// Object holds listing metadata. Set only when Kind is RefKey.
	Object *storage.ObjectSummary
}

// HasKey returns true if the reference resolved to an object key.
func (r Ref) HasKey() bool {
	return r.Kind == RefKey
}

// HasPrefix returns true if the reference resolved to a subdirectory prefix.
func (r Ref) HasPrefix() bool {
	return r.Kind == RefPrefix
}

// NamesBucket returns true if the reference names a bucket exactly, either
// because a bucket listing produced it or because the user-supplied URI has
// no key part.
func (r Ref) NamesBucket() bool {
	if r.Kind == RefBucket {
		return true
	}
	return r.Kind == RefURI && r.URI.NamesBucket()
}
