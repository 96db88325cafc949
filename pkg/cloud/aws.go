// Package cloud loads the shared AWS configuration used by the storage,
// catalog, query and dispatch clients.
package cloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/ajitpratap0/featurestore/pkg/config"
	"github.com/ajitpratap0/featurestore/pkg/errors"
)

// LoadAWSConfig resolves credentials and region the SDK way, honouring the
// configured region and endpoint override.
func LoadAWSConfig(ctx context.Context, cfg config.StorageConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, errors.ErrorTypeConfig, "load aws configuration")
	}
	return awsCfg, nil
}
