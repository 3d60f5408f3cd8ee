// Package storage defines abstractions for cloud object storage listings.
//
// Accessors implement a minimal surface area focused on listing and metadata
// retrieval. Authentication uses SDK default credential chains - accessors
// should not implement custom auth logic.
package storage

import (
	"context"
	"time"
)

// Accessor abstracts cloud storage listing and metadata operations.
//
// Unlike a bucket-scoped client, an Accessor is account-scoped: every
// operation names its bucket explicitly so a single accessor can serve
// bucket-wildcard expansion and provider-wide listings.
//
// Implementations should:
//   - Use SDK default credential chains (AWS default config, GCP interop keys)
//   - Support pagination via continuation tokens
//   - Be safe for concurrent use
type Accessor interface {
	// ListBuckets returns all buckets visible to the configured credentials.
	ListBuckets(ctx context.Context) ([]BucketSummary, error)

	// List returns a page of objects under the given bucket and prefix.
	// When Delimiter is set, keys sharing a delimiter-terminated prefix are
	// rolled up into CommonPrefixes instead of being returned as objects.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Head returns full metadata for a single object.
	// Returns ErrNotFound if the object does not exist.
	Head(ctx context.Context, bucket, key string) (*ObjectMeta, error)

	// ObjectACL returns the rendered ACL of an object.
	// Returns ErrAccessDenied when the caller may list the object but lacks
	// permission to read its ACL.
	ObjectACL(ctx context.Context, bucket, key string) (string, error)

	// BucketACL returns the rendered ACL of a bucket.
	BucketACL(ctx context.Context, bucket string) (string, error)

	// BucketDefaultACL returns the rendered default object ACL of a bucket.
	// Accessors for stores without a default-object-ACL concept return the
	// empty ACL rendering.
	BucketDefaultACL(ctx context.Context, bucket string) (string, error)

	// BucketLocation returns the bucket's location constraint.
	// Empty string means the store's default location.
	BucketLocation(ctx context.Context, bucket string) (string, error)

	// Close releases any resources held by the accessor.
	Close() error
}

// ListOptions configures a List operation.
type ListOptions struct {
	// Bucket is the bucket to list (required).
	Bucket string

	// Prefix filters results to keys starting with this value.
	// Empty string lists all objects.
	Prefix string

	// Delimiter groups keys (e.g., "/"). Empty string disables grouping,
	// producing a flat listing of every key under Prefix.
	Delimiter string

	// ContinuationToken resumes listing from a previous ListResult.
	// Empty string starts from the beginning.
	ContinuationToken string

	// MaxKeys limits the number of keys returned per page.
	// Zero uses the accessor default (typically 1000).
	MaxKeys int
}

// ListResult contains a page of results from a List operation.
type ListResult struct {
	// Objects contains the object summaries for this page.
	Objects []ObjectSummary

	// CommonPrefixes are the immediate child prefixes (delimiter listings only).
	CommonPrefixes []string

	// ContinuationToken is used to retrieve the next page.
	// Empty string indicates no more pages.
	ContinuationToken string

	// IsTruncated indicates whether more results are available.
	IsTruncated bool
}

// BucketSummary contains bucket identity returned from ListBuckets.
type BucketSummary struct {
	// Name is the bucket name.
	Name string

	// CreatedAt is when the bucket was created.
	CreatedAt time.Time
}

// ObjectSummary contains the metadata available from a bucket listing.
type ObjectSummary struct {
	// Bucket is the owning bucket name.
	Bucket string

	// Key is the full object key (path) in the bucket.
	Key string

	// Size is the object size in bytes.
	Size int64

	// ETag is the entity tag, typically an MD5 hash of the object.
	ETag string

	// LastModified is when the object was last modified.
	LastModified time.Time
}

// ObjectMeta contains full metadata for a single object.
// Returned by Head operations, which are authoritative where listing
// data may be stale or incomplete.
type ObjectMeta struct {
	ObjectSummary

	// ContentType is the MIME type of the object.
	ContentType string

	// CacheControl is the object's Cache-Control header, if set.
	CacheControl string

	// ContentDisposition is the object's Content-Disposition header, if set.
	ContentDisposition string

	// ContentEncoding is the object's Content-Encoding header, if set.
	ContentEncoding string

	// ContentLanguage is the object's Content-Language header, if set.
	ContentLanguage string

	// Metadata contains user-defined metadata key-value pairs.
	Metadata map[string]string
}

// Scheme identifies a cloud storage URI scheme.
type Scheme string

const (
	// SchemeS3 represents AWS S3 or S3-compatible storage.
	SchemeS3 Scheme = "s3"

	// SchemeGS represents Google Cloud Storage via the interop API.
	SchemeGS Scheme = "gs"
)

// String returns the string representation of the scheme.
func (s Scheme) String() string {
	return string(s)
}
