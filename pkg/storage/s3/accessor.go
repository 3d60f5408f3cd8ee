package s3

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithymiddleware "github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/skyfold/skyls/pkg/storage"
)

// Accessor implements storage.Accessor for AWS S3 and S3-compatible storage.
//
// The accessor is account-scoped: bucket names are supplied per operation so
// one accessor serves bucket-wildcard expansion and provider-wide listings.
type Accessor struct {
	client  *s3.Client
	scheme  storage.Scheme
	maxKeys int
}

// Ensure Accessor implements the interface.
var _ storage.Accessor = (*Accessor)(nil)

// New creates a new S3 accessor with the given configuration.
//
// The accessor uses AWS SDK v2's default credential chain unless explicit
// credentials are provided in the config.
func New(ctx context.Context, cfg Config) (*Accessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scheme := storage.SchemeS3
	if cfg.Scheme != "" {
		scheme = storage.Scheme(cfg.Scheme)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &storage.StorageError{
			Op:     "New",
			Scheme: scheme,
			Err:    err,
		}
	}

	// Build S3 client options
	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
		},
	}

	// Custom endpoint for S3-compatible stores
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	// GCS interop endpoints require the project ID as a request header for
	// account-level operations. Injected as a Build-step middleware so every
	// operation carries it without per-call plumbing.
	if cfg.ProjectID != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.APIOptions = append(o.APIOptions, withProjectHeader(cfg.ProjectID))
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	return &Accessor{
		client:  client,
		scheme:  scheme,
		maxKeys: maxKeys,
	}, nil
}

// loadAWSConfig builds the AWS configuration with appropriate credentials.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	// Only apply explicit region if user set one in config.
	// Let SDK resolve from env/profile first.
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	// Set profile if specified
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	// Use explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for long-term credentials)
		)
		opts = append(opts, config.WithCredentialsProvider(staticCreds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	// Apply region defaulting logic
	awsCfg.Region = resolveRegion(cfg.Region, cfg.Endpoint, awsCfg.Region)

	return awsCfg, nil
}

// withProjectHeader returns an API option that sets the x-goog-project-id
// header on outbound requests.
func withProjectHeader(projectID string) func(*smithymiddleware.Stack) error {
	return func(stack *smithymiddleware.Stack) error {
		return stack.Build.Add(smithymiddleware.BuildMiddlewareFunc("ProjectIDHeader",
			func(ctx context.Context, in smithymiddleware.BuildInput, next smithymiddleware.BuildHandler) (
				smithymiddleware.BuildOutput, smithymiddleware.Metadata, error,
			) {
				if req, ok := in.Request.(*smithyhttp.Request); ok {
					req.Header.Set("x-goog-project-id", projectID)
				}
				return next.HandleBuild(ctx, in)
			}), smithymiddleware.After)
	}
}

// ListBuckets returns all buckets visible to the configured credentials.
func (a *Accessor) ListBuckets(ctx context.Context) ([]storage.BucketSummary, error) {
	output, err := a.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, a.wrapError("ListBuckets", "", "", err)
	}

	buckets := make([]storage.BucketSummary, 0, len(output.Buckets))
	for _, b := range output.Buckets {
		buckets = append(buckets, storage.BucketSummary{
			Name:      aws.ToString(b.Name),
			CreatedAt: aws.ToTime(b.CreationDate),
		})
	}
	return buckets, nil
}

// List returns a page of objects under the given bucket and prefix.
func (a *Accessor) List(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	maxKeys := clampMaxKeys(opts.MaxKeys, a.maxKeys)

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(opts.Bucket),
		MaxKeys: aws.Int32(int32(maxKeys)),
	}

	if opts.Prefix != "" {
		input.Prefix = aws.String(opts.Prefix)
	}

	if opts.Delimiter != "" {
		input.Delimiter = aws.String(opts.Delimiter)
	}

	if opts.ContinuationToken != "" {
		input.ContinuationToken = aws.String(opts.ContinuationToken)
	}

	output, err := a.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, a.wrapError("List", opts.Bucket, opts.Prefix, err)
	}

	objects := make([]storage.ObjectSummary, 0, len(output.Contents))
	for _, obj := range output.Contents {
		objects = append(objects, storage.ObjectSummary{
			Bucket:       opts.Bucket,
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			ETag:         cleanETag(aws.ToString(obj.ETag)),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}

	prefixes := make([]string, 0, len(output.CommonPrefixes))
	for _, cp := range output.CommonPrefixes {
		prefixes = append(prefixes, aws.ToString(cp.Prefix))
	}

	result := &storage.ListResult{
		Objects:        objects,
		CommonPrefixes: prefixes,
		IsTruncated:    aws.ToBool(output.IsTruncated),
	}

	if output.NextContinuationToken != nil {
		result.ContinuationToken = *output.NextContinuationToken
	}

	return result, nil
}

// Head returns full metadata for a single object.
func (a *Accessor) Head(ctx context.Context, bucket, key string) (*storage.ObjectMeta, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	output, err := a.client.HeadObject(ctx, input)
	if err != nil {
		return nil, a.wrapError("Head", bucket, key, err)
	}

	meta := &storage.ObjectMeta{
		ObjectSummary: storage.ObjectSummary{
			Bucket:       bucket,
			Key:          key,
			Size:         aws.ToInt64(output.ContentLength),
			ETag:         cleanETag(aws.ToString(output.ETag)),
			LastModified: aws.ToTime(output.LastModified),
		},
		ContentType:        aws.ToString(output.ContentType),
		CacheControl:       aws.ToString(output.CacheControl),
		ContentDisposition: aws.ToString(output.ContentDisposition),
		ContentEncoding:    aws.ToString(output.ContentEncoding),
		ContentLanguage:    aws.ToString(output.ContentLanguage),
		Metadata:           output.Metadata,
	}

	return meta, nil
}

// ObjectACL returns the rendered ACL of an object.
func (a *Accessor) ObjectACL(ctx context.Context, bucket, key string) (string, error) {
	output, err := a.client.GetObjectAcl(ctx, &s3.GetObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", a.wrapError("ObjectACL", bucket, key, err)
	}
	return renderACL(output.Owner, output.Grants), nil
}

// BucketACL returns the rendered ACL of a bucket.
func (a *Accessor) BucketACL(ctx context.Context, bucket string) (string, error) {
	output, err := a.client.GetBucketAcl(ctx, &s3.GetBucketAclInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return "", a.wrapError("BucketACL", bucket, "", err)
	}
	return renderACL(output.Owner, output.Grants), nil
}

// BucketDefaultACL returns the rendered default object ACL of a bucket.
//
// S3 has no default-object-ACL subresource; the empty rendering is returned
// so callers print the same placeholder the interop tools do.
func (a *Accessor) BucketDefaultACL(ctx context.Context, bucket string) (string, error) {
	return renderACL(nil, nil), nil
}

// BucketLocation returns the bucket's location constraint.
// Empty string means the store default (us-east-1 on AWS).
func (a *Accessor) BucketLocation(ctx context.Context, bucket string) (string, error) {
	output, err := a.client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return "", a.wrapError("BucketLocation", bucket, "", err)
	}
	return string(output.LocationConstraint), nil
}

// Close releases any resources held by the accessor.
// The S3 client doesn't require explicit cleanup, but this satisfies the interface.
func (a *Accessor) Close() error {
	return nil
}

// wrapError converts S3 errors to storage errors with appropriate sentinel errors.
func (a *Accessor) wrapError(op, bucket, key string, err error) error {
	wrapped := &storage.StorageError{
		Op:     op,
		Scheme: a.scheme,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}

	// Check for specific S3 error types first
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Err = storage.ErrNotFound
		return wrapped
	case errors.As(err, &noSuchBucket):
		wrapped.Err = storage.ErrBucketNotFound
		return wrapped
	}

	// Check smithy API errors for error codes
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch code {
		case "NoSuchKey", "NotFound":
			wrapped.Err = storage.ErrNotFound
		case "NoSuchBucket":
			wrapped.Err = storage.ErrBucketNotFound
		case "AccessDenied", "Forbidden":
			wrapped.Err = storage.ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			wrapped.Err = storage.ErrInvalidCredentials
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			wrapped.Err = storage.ErrThrottled
		case "ServiceUnavailable", "InternalError":
			wrapped.Err = storage.ErrStoreUnavailable
		}
		return wrapped
	}

	// Fallback: check error message for common cases
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "NoSuchKey") || strings.Contains(errMsg, "NotFound") || strings.Contains(errMsg, "404"):
		wrapped.Err = storage.ErrNotFound
	case strings.Contains(errMsg, "NoSuchBucket"):
		wrapped.Err = storage.ErrBucketNotFound
	case strings.Contains(errMsg, "AccessDenied") || strings.Contains(errMsg, "Forbidden") || strings.Contains(errMsg, "403"):
		wrapped.Err = storage.ErrAccessDenied
	case strings.Contains(errMsg, "InvalidAccessKeyId") || strings.Contains(errMsg, "SignatureDoesNotMatch"):
		wrapped.Err = storage.ErrInvalidCredentials
	case strings.Contains(errMsg, "SlowDown") || strings.Contains(errMsg, "Throttling") || strings.Contains(errMsg, "429"):
		wrapped.Err = storage.ErrThrottled
	case strings.Contains(errMsg, "ServiceUnavailable") || strings.Contains(errMsg, "503"):
		wrapped.Err = storage.ErrStoreUnavailable
	}

	return wrapped
}

// cleanETag removes surrounding quotes from an ETag value.
// S3 returns ETags with quotes, e.g., "d41d8cd98f00b204e9800998ecf8427e".
func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}

// clampMaxKeys applies defaults and limits to maxKeys values.
// If requested is <= 0, uses accessorDefault. Result is clamped to MaxAllowedKeys.
func clampMaxKeys(requested, accessorDefault int) int {
	if requested <= 0 {
		requested = accessorDefault
	}
	if requested > MaxAllowedKeys {
		return MaxAllowedKeys
	}
	return requested
}

// resolveRegion determines the final region to use after SDK config loading.
//
// The sdkRegion parameter is the region after SDK loading, which already
// incorporates explicit cfgRegion (if set) or env/profile resolution.
//
// Priority (already applied by SDK before this function):
//  1. Explicit cfgRegion (passed to SDK via config.WithRegion)
//  2. Environment variables (AWS_REGION, AWS_DEFAULT_REGION)
//  3. Shared config/credentials profile
//
// This function only applies the fallback default:
//   - If sdkRegion is still empty AND no custom endpoint, default to us-east-1
//   - For S3-compatible stores (endpoint set), no defaulting occurs
func resolveRegion(cfgRegion, endpoint, sdkRegion string) string {
	// SDK already resolved region (from explicit config, env, or profile)
	if sdkRegion != "" {
		return sdkRegion
	}

	// Only default for AWS S3 (no custom endpoint)
	if endpoint == "" {
		return DefaultAWSRegion
	}

	// S3-compatible: no default, store may not need region
	return ""
}
