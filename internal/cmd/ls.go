package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyfold/skyls/internal/config"
	"github.com/skyfold/skyls/internal/observability"
	"github.com/skyfold/skyls/pkg/listing"
	"github.com/skyfold/skyls/pkg/storage"
	"github.com/skyfold/skyls/pkg/storage/file"
	"github.com/skyfold/skyls/pkg/storage/s3"
	"github.com/skyfold/skyls/pkg/wildcard"
)

// gcsInteropEndpoint is the S3-compatible endpoint serving gs:// URIs.
const gcsInteropEndpoint = "https://storage.googleapis.com"

var lsCmd = &cobra.Command{
	Use:   "ls [uri...]",
	Short: "List buckets, objects, and subdirectories",
	Long: `List the buckets, objects, and subdirectories matching each URI.

URIs may contain wildcards (*, ?, [], **) in the bucket or object part.
With no arguments, all buckets of the default provider are listed.

Example:
  skyls ls
  skyls ls gs://bucket
  skyls ls -l gs://bucket/*.txt
  skyls ls -L gs://bucket/images/0001.jpg
  skyls ls -b gs://bucket
  skyls ls -r gs://bucket/data`,
	RunE: runLs,
}

var (
	lsBucketInfo     bool
	lsLong           bool
	lsLongLong       bool
	lsProjectID      string
	lsRecursive      bool
	lsRecursiveAlias bool
	lsEndpoint       string
	lsRegion         string
	lsProfile        string
	lsRateLimit      float64
	lsFileRoot       string
)

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().BoolVarP(&lsBucketInfo, "buckets", "b", false, "Print info about buckets instead of their contents")
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "Long listing (size, modification time, URI)")
	lsCmd.Flags().BoolVarP(&lsLongLong, "full", "L", false, "Extended listing (full metadata and ACL per object)")
	lsCmd.Flags().StringVarP(&lsProjectID, "project", "p", "", "Project ID for provider-scope operations")
	lsCmd.Flags().BoolVarP(&lsRecursive, "recursive", "r", false, "List recursively")
	lsCmd.Flags().BoolVarP(&lsRecursiveAlias, "Recursive", "R", false, "Alias for --recursive")
	_ = lsCmd.Flags().MarkHidden("Recursive")
	lsCmd.Flags().StringVar(&lsEndpoint, "endpoint", "", "Override the storage service endpoint")
	lsCmd.Flags().StringVar(&lsRegion, "region", "", "Override the storage region")
	lsCmd.Flags().StringVar(&lsProfile, "profile", "", "Shared credentials profile")
	lsCmd.Flags().Float64Var(&lsRateLimit, "rate-limit", 0, "Max listing requests per second (0 = unlimited)")
	lsCmd.Flags().StringVar(&lsFileRoot, "file-root", ".", "Base directory serving file:// URIs")
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg := config.GetConfig()
	if cfg == nil {
		cfg = &config.Config{DefaultProvider: "gs"}
	}
	applyLsOverrides(cfg)

	style := listing.StyleShort
	if lsLong {
		style = listing.StyleLong
	}
	if lsLongLong {
		style = listing.StyleLongLong
	}
	recursive := lsRecursive || lsRecursiveAlias

	uris := args
	if len(uris) == 0 {
		uris = []string{cfg.DefaultProvider + "://"}
	}

	invocationID := uuid.New().String()
	observability.CLILogger.Debug("Starting listing",
		zap.String("invocation_id", invocationID),
		zap.Strings("uris", uris),
		zap.Bool("recursive", recursive))

	accessors := map[string]storage.Accessor{}
	defer func() {
		for _, a := range accessors {
			_ = a.Close()
		}
	}()

	var (
		totalObjs  int64
		totalBytes int64
		noMatches  bool
	)

	for _, raw := range uris {
		u, err := wildcard.Parse(raw)
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
		}

		store, err := accessorFor(ctx, accessors, u.Scheme, cfg)
		if err != nil {
			return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
		}
		it := wildcard.NewIterator(store, wildcard.Config{RateLimit: cfg.RateLimit})
		lister := listing.New(it, store, out)

		switch {
		case u.NamesProvider():
			refs, err := it.Expand(ctx, wildcard.URI{Scheme: u.Scheme, Bucket: "*"})
			if err != nil {
				return listingError(ctx, err)
			}
			for _, r := range refs {
				no, nb, err := lister.SummarizeBucket(ctx, r.URI, style)
				totalObjs += no
				totalBytes += nb
				if err != nil {
					return listingError(ctx, err)
				}
			}

		case u.NamesBucket() && lsBucketInfo:
			refs, err := it.Expand(ctx, u)
			if err != nil {
				return listingError(ctx, err)
			}
			for _, r := range refs {
				no, nb, err := lister.SummarizeBucket(ctx, r.URI, style)
				totalObjs += no
				totalBytes += nb
				if err != nil {
					return listingError(ctx, err)
				}
			}

		default:
			no, nb, err := lister.ListURI(ctx, u, style, recursive)
			totalObjs += no
			totalBytes += nb
			if err != nil {
				return listingError(ctx, err)
			}
			if no == 0 && u.ContainsWildcard() {
				noMatches = true
			}
		}
	}

	if totalObjs > 0 && style != listing.StyleShort {
		fmt.Fprintf(out, "TOTAL: %d objects, %d bytes (%s)\n",
			totalObjs, totalBytes, listing.HumanReadableBytes(totalBytes))
	}

	observability.CLILogger.Debug("Listing completed",
		zap.String("invocation_id", invocationID),
		zap.Int64("objects", totalObjs),
		zap.String("bytes", humanize.Comma(totalBytes)))

	if noMatches {
		return exitError(foundry.ExitFileNotFound, "Listing failed",
			errors.New("One or more URIs matched no objects."))
	}
	return nil
}

// applyLsOverrides merges command-line flags over the loaded configuration.
func applyLsOverrides(cfg *config.Config) {
	if lsProjectID != "" {
		cfg.ProjectID = lsProjectID
	}
	if lsEndpoint != "" {
		cfg.Endpoint = lsEndpoint
	}
	if lsRegion != "" {
		cfg.Region = lsRegion
	}
	if lsProfile != "" {
		cfg.Profile = lsProfile
	}
	if lsRateLimit > 0 {
		cfg.RateLimit = lsRateLimit
	}
}

// accessorFor returns a cached accessor for the scheme, creating it on first
// use. One accessor per scheme serves all URIs of an invocation.
func accessorFor(ctx context.Context, cache map[string]storage.Accessor, scheme string, cfg *config.Config) (storage.Accessor, error) {
	if a, ok := cache[scheme]; ok {
		return a, nil
	}

	var (
		a   storage.Accessor
		err error
	)
	switch scheme {
	case "file":
		a, err = file.New(file.Config{BaseDir: lsFileRoot})

	case "gs":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = gcsInteropEndpoint
		}
		a, err = s3.New(ctx, s3.Config{
			Region:    cfg.Region,
			Endpoint:  endpoint,
			Profile:   cfg.Profile,
			Scheme:    "gs",
			ProjectID: cfg.ProjectID,
		})

	default:
		a, err = s3.New(ctx, s3.Config{
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
			Profile:  cfg.Profile,
			// S3-compatible services require path-style URLs.
			ForcePathStyle: cfg.Endpoint != "",
			Scheme:         scheme,
		})
	}
	if err != nil {
		return nil, err
	}
	cache[scheme] = a
	return a, nil
}

// listingError maps a listing failure to an exit-coded error.
func listingError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		observability.CLILogger.Warn("Listing cancelled", zap.Error(err))
		return exitError(foundry.ExitSignalInt, "Listing cancelled", err)
	}

	var noMatch *listing.NoMatchError
	switch {
	case errors.As(err, &noMatch):
		return exitError(foundry.ExitFileNotFound, "Listing failed", err)
	case errors.Is(err, storage.ErrInvalidCredentials):
		return exitError(foundry.ExitInvalidArgument, "Invalid credentials", err)
	case errors.Is(err, storage.ErrAccessDenied):
		return exitError(foundry.ExitExternalServiceUnavailable, "Access denied", err)
	case errors.Is(err, storage.ErrBucketNotFound):
		return exitError(foundry.ExitFileNotFound, "Bucket not found", err)
	default:
		observability.CLILogger.Error("Listing failed", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Listing failed", err)
	}
}
