package wildcard

import (
	"errors"
	"fmt"
	"strings"
)

// URI parsing errors
var (
	// ErrInvalidURI indicates the URI could not be parsed.
	ErrInvalidURI = errors.New("invalid URI")

	// ErrUnsupportedScheme indicates the URI scheme is not supported.
	ErrUnsupportedScheme = errors.New("unsupported scheme")
)

// supportedSchemes are the URI schemes the CLI accepts.
var supportedSchemes = map[string]bool{
	"s3":   true,
	"gs":   true,
	"file": true,
}

// URI represents a parsed cloud storage URI, possibly containing wildcards
// in its bucket or key components.
//
// Example URIs:
//   - gs://                   (provider only)
//   - gs://bucket             (bucket)
//   - gs://bucket/key/path
//   - gs://bucket/prefix/
//   - gs://bucket/images*
type URI struct {
	// Scheme is the storage scheme (e.g., "gs", "s3").
	Scheme string

	// Bucket is the bucket name or bucket pattern.
	// Empty for provider-only URIs.
	Bucket string

	// Key is the object key, prefix, or key pattern.
	// May be empty for bucket and provider URIs.
	Key string
}

// String returns the URI in canonical form. Bucket URIs carry a trailing
// slash, matching how they appear in listing output.
func (u URI) String() string {
	if u.Bucket == "" {
		return u.Scheme + "://"
	}
	if u.Key == "" {
		return fmt.Sprintf("%s://%s/", u.Scheme, u.Bucket)
	}
	return fmt.Sprintf("%s://%s/%s", u.Scheme, u.Bucket, u.Key)
}

// RStripped returns the URI string with all trailing path separators removed.
// This is the form ambiguous-root resolution compares against, so that an
// object "dir" and a subdirectory "dir/" reduce to the same trimmed name.
func (u URI) RStripped() string {
	return strings.TrimRight(u.String(), "/")
}

// NamesProvider returns true if the URI names only a provider (gs://).
func (u URI) NamesProvider() bool {
	return u.Bucket == ""
}

// NamesBucket returns true if the URI names a bucket with no key part.
func (u URI) NamesBucket() bool {
	return u.Bucket != "" && u.Key == ""
}

// ContainsWildcard returns true if the bucket or key component contains
// unescaped glob metacharacters.
func (u URI) ContainsWildcard() bool {
	return ContainsWildcard(u.Bucket) || ContainsWildcard(u.Key)
}

// Parse parses a cloud storage URI into its components.
//
// Supported forms:
//   - gs://
//   - gs://bucket
//   - gs://bucket/
//   - gs://bucket/key
//   - gs://bucket/prefix/
//   - gs://bucket/images*
//
// Wildcards are preserved verbatim in Bucket/Key; classification against
// real storage happens at expansion time, not parse time.
func Parse(uri string) (URI, error) {
	if uri == "" {
		return URI{}, fmt.Errorf("%w: empty URI", ErrInvalidURI)
	}

	// Parse manually: url.Parse treats glob characters like ? as query
	// delimiters. Expected format: scheme://bucket/key
	schemeEnd := strings.Index(uri, "://")
	if schemeEnd == -1 {
		return URI{}, fmt.Errorf("%w: missing scheme (expected gs://... or s3://...)", ErrInvalidURI)
	}

	scheme := strings.ToLower(uri[:schemeEnd])
	if !supportedSchemes[scheme] {
		return URI{}, fmt.Errorf("%w: %s (supported: gs, s3, file)", ErrUnsupportedScheme, scheme)
	}

	remainder := uri[schemeEnd+3:]
	if remainder == "" {
		return URI{Scheme: scheme}, nil
	}

	var bucket, key string
	slashIdx := strings.Index(remainder, "/")
	if slashIdx == -1 {
		bucket = remainder
	} else {
		bucket = remainder[:slashIdx]
		key = remainder[slashIdx+1:]
	}

	if bucket == "" {
		return URI{}, fmt.Errorf("%w: empty bucket in %s", ErrInvalidURI, uri)
	}

	return URI{Scheme: scheme, Bucket: bucket, Key: key}, nil
}
