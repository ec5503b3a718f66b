package surrogate

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/atlasclimate/atlas/internal/config"
)

// Fetcher pulls missing surrogate model files from an S3-compatible bucket
// at startup. Absence of the bucket, of credentials, or of individual keys
// is never fatal: the registry simply loads fewer models.
type Fetcher struct {
	log    zerolog.Logger
	cfg    config.ModelArtifactConfig
	dir    string
	client *s3.Client
}

// NewFetcher builds the S3 client for the configured artifact bucket.
// Returns nil when no bucket is configured.
func NewFetcher(ctx context.Context, cfg config.ModelArtifactConfig, modelDir string, log zerolog.Logger) (*Fetcher, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Fetcher{
		log:    log.With().Str("component", "model_fetcher").Logger(),
		cfg:    cfg,
		dir:    modelDir,
		client: client,
	}, nil
}

// FetchMissing downloads the well-known model files that are absent from the
// model directory. Per-file failures are logged and skipped.
func (f *Fetcher) FetchMissing(ctx context.Context) {
	if f == nil {
		return
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		f.log.Error().Err(err).Msg("cannot create model directory")
		return
	}

	downloader := manager.NewDownloader(f.client)
	for _, name := range []string{CoastalRunupModel, UrbanFloodDepthModel} {
		dest := filepath.Join(f.dir, name)
		if _, err := os.Stat(dest); err == nil {
			continue
		}
		if err := f.download(ctx, downloader, name, dest); err != nil {
			var nsk *types.NoSuchKey
			if errors.As(err, &nsk) {
				f.log.Info().Str("model", name).Msg("artifact not in bucket")
			} else {
				f.log.Warn().Err(err).Str("model", name).Msg("artifact download failed")
			}
			continue
		}
		f.log.Info().Str("model", name).Msg("artifact downloaded")
	}
}

func (f *Fetcher) download(ctx context.Context, dl *manager.Downloader, name, dest string) error {
	tmp, err := os.CreateTemp(f.dir, name+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	key := f.cfg.Prefix + name
	_, err = dl.Download(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(f.cfg.Bucket),
		Key:    aws.String(key),
	})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
