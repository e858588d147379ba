package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/eonx-com/ferry/internal/logger"
	"github.com/eonx-com/ferry/pkg/filesystem"
	localFs "github.com/eonx-com/ferry/pkg/filesystem/local"
	s3Fs "github.com/eonx-com/ferry/pkg/filesystem/s3"
	sftpFs "github.com/eonx-com/ferry/pkg/filesystem/sftp"
	"github.com/eonx-com/ferry/pkg/iterator"
)

// CreateFilesystem creates a filesystem backend based on configuration.
//
// This factory uses the Type field to determine which backend to create,
// then decodes the type-specific options from the corresponding map and
// passes them to the backend's constructor.
//
// Supported types:
//   - "s3": Amazon S3 or compatible object storage (pkg/filesystem/s3)
//   - "sftp": SFTP servers (pkg/filesystem/sftp); returned disconnected,
//     callers connect via the filesystem.Connector capability
//   - "local": local directories (pkg/filesystem/local)
func CreateFilesystem(ctx context.Context, cfg *FilesystemConfig) (filesystem.Filesystem, error) {
	switch cfg.Type {
	case "s3":
		return createS3Filesystem(ctx, cfg.S3)
	case "sftp":
		return createSftpFilesystem(cfg.Sftp)
	case "local":
		return createLocalFilesystem(cfg.Local)
	default:
		return nil, fmt.Errorf("unknown filesystem type: %q (supported: s3, sftp, local)", cfg.Type)
	}
}

// createS3Filesystem creates an S3-backed filesystem.
func createS3Filesystem(ctx context.Context, options map[string]any) (filesystem.Filesystem, error) {
	type S3Options struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		BasePath        string `mapstructure:"base_path"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var opts S3Options
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode s3 filesystem options: %w", err)
	}

	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 filesystem: bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("s3 filesystem: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(opts.Region))

	// Custom endpoint support (MinIO, Localstack, etc.)
	if opts.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               opts.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default chain.
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for MinIO/Localstack compatibility.
		if opts.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	fs, err := s3Fs.New(ctx, s3Fs.Config{
		Client:   client,
		Bucket:   opts.Bucket,
		BasePath: opts.BasePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 filesystem: %w", err)
	}

	logger.Info("s3 filesystem initialized: bucket=%s, region=%s, base_path=%s",
		opts.Bucket, opts.Region, opts.BasePath)

	return fs, nil
}

// createSftpFilesystem creates an SFTP-backed filesystem. The connection is
// established later via the Connector capability.
func createSftpFilesystem(options map[string]any) (filesystem.Filesystem, error) {
	type SftpOptions struct {
		Address            string `mapstructure:"address"`
		Port               int    `mapstructure:"port"`
		Username           string `mapstructure:"username"`
		Password           string `mapstructure:"password"`
		PrivateKey         string `mapstructure:"private_key"`
		HostKeyFingerprint string `mapstructure:"host_key_fingerprint"`
		ValidateHostKey    *bool  `mapstructure:"validate_host_key"`
		BasePath           string `mapstructure:"base_path"`
	}

	var opts SftpOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode sftp filesystem options: %w", err)
	}

	// Host key validation is on unless explicitly disabled.
	validateHostKey := true
	if opts.ValidateHostKey != nil {
		validateHostKey = *opts.ValidateHostKey
	}

	fs, err := sftpFs.New(sftpFs.Config{
		Address:            opts.Address,
		Port:               opts.Port,
		Username:           opts.Username,
		Password:           opts.Password,
		PrivateKey:         opts.PrivateKey,
		HostKeyFingerprint: opts.HostKeyFingerprint,
		ValidateHostKey:    validateHostKey,
		BasePath:           opts.BasePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sftp filesystem: %w", err)
	}

	return fs, nil
}

// createLocalFilesystem creates a filesystem rooted at a local directory.
func createLocalFilesystem(options map[string]any) (filesystem.Filesystem, error) {
	type LocalOptions struct {
		Path string `mapstructure:"path"`
	}

	var opts LocalOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode local filesystem options: %w", err)
	}

	if opts.Path == "" {
		return nil, fmt.Errorf("local filesystem: path is required")
	}

	fs, err := localFs.New(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create local filesystem: %w", err)
	}

	return fs, nil
}

// BuildIterator assembles a ready-to-run iterator from configuration.
//
// Every source and destination filesystem is constructed, connectable
// backends are connected, and the sources are handed to iterator.New.
//
// Returns the iterator and a closer that releases every connection the
// build opened. The closer is safe to call even when later stages of the
// build failed.
func BuildIterator(ctx context.Context, cfg *Config) (*iterator.Iterator, func() error, error) {
	var connectors []filesystem.Connector

	closer := func() error {
		var errs []error
		for _, c := range connectors {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	connect := func(fs filesystem.Filesystem) error {
		c, ok := fs.(filesystem.Connector)
		if !ok {
			return nil
		}
		if err := c.Connect(ctx); err != nil {
			return err
		}
		connectors = append(connectors, c)
		return nil
	}

	buildDestinations := func(configs []DestinationConfig) ([]*iterator.Destination, error) {
		destinations := make([]*iterator.Destination, 0, len(configs))
		for i := range configs {
			fs, err := CreateFilesystem(ctx, &configs[i].Filesystem)
			if err != nil {
				return nil, err
			}
			if err := connect(fs); err != nil {
				return nil, err
			}
			destinations = append(destinations, &iterator.Destination{
				FS:              fs,
				TimestampFolder: configs[i].TimestampFolder,
				WriteRunlog:     configs[i].WriteRunlog,
				AllowOverwrite:  configs[i].AllowOverwrite,
			})
		}
		return destinations, nil
	}

	sources := make([]*iterator.Source, 0, len(cfg.Sources))
	for i := range cfg.Sources {
		srcCfg := &cfg.Sources[i]

		fs, err := CreateFilesystem(ctx, &srcCfg.Filesystem)
		if err != nil {
			return nil, nil, errors.Join(fmt.Errorf("sources[%d]: %w", i, err), closer())
		}
		if err := connect(fs); err != nil {
			return nil, nil, errors.Join(fmt.Errorf("sources[%d]: %w", i, err), closer())
		}

		successDests, err := buildDestinations(srcCfg.SuccessDestinations)
		if err != nil {
			return nil, nil, errors.Join(fmt.Errorf("sources[%d]: %w", i, err), closer())
		}
		failureDests, err := buildDestinations(srcCfg.FailureDestinations)
		if err != nil {
			return nil, nil, errors.Join(fmt.Errorf("sources[%d]: %w", i, err), closer())
		}

		sources = append(sources, &iterator.Source{
			FS:                  fs,
			Path:                srcCfg.Path,
			Strategy:            iterator.Strategy(srcCfg.Strategy),
			Recursive:           srcCfg.Recursive,
			DeleteOnSuccess:     srcCfg.DeleteOnSuccess,
			DeleteOnFailure:     srcCfg.DeleteOnFailure,
			SuccessDestinations: successDests,
			FailureDestinations: failureDests,
		})
	}

	it, err := iterator.New(sources...)
	if err != nil {
		return nil, nil, errors.Join(err, closer())
	}

	return it, closer, nil
}
