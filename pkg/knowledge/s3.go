package knowledge

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NeedsS3 reports whether source is an s3:// URI.
func NeedsS3(source string) bool {
	return strings.HasPrefix(source, "s3://")
}

// NewS3Client builds an S3 client from the shell's AWS setup (AWS_PROFILE,
// shared config, env, IMDS). An empty region defers to that chain.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}
