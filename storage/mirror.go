package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gocarina/gocsv"

	appconfig "cotflow/config"
	"cotflow/logger"
	"cotflow/models"
)

// Mirror uploads contract archives to an S3 bucket so downstream analytics
// can read them without touching the ingest host. The local archive stays
// the source of truth; mirroring is best effort.
type Mirror struct {
	cfg      *appconfig.Config
	s3Client *s3.Client
	log      *logger.Log
}

// NewMirror builds the S3 client from the storage configuration. Static
// credentials win over the default provider chain when both are present.
func NewMirror(cfg *appconfig.Config) (*Mirror, error) {
	log := logger.GetLogger()

	ctx := context.Background()

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("mirror").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	log.WithComponent("mirror").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("archive mirror initialized")

	return &Mirror{
		cfg:      cfg,
		s3Client: s3Client,
		log:      log,
	}, nil
}

// MirrorContract uploads the archive CSV for a contract, plus its parquet
// projection when parquet is enabled. Objects are partitioned by contract
// code under the configured prefix.
func (m *Mirror) MirrorContract(ctx context.Context, code string, series models.InstrumentSeries) error {
	log := m.log.WithComponent("mirror").WithFields(logger.Fields{
		"contract_code": code,
		"records":       len(series),
	})

	var buf bytes.Buffer
	if err := gocsv.Marshal(&series, &buf); err != nil {
		return fmt.Errorf("failed to encode archive for %s: %w", code, err)
	}

	csvKey := m.objectKey(code, code+historySuffix)
	if err := m.upload(ctx, csvKey, buf.Bytes(), "text/csv"); err != nil {
		return err
	}
	log.WithFields(logger.Fields{"s3_key": csvKey, "size": buf.Len()}).Info("mirrored archive csv")

	if !m.cfg.Storage.Parquet.Enabled {
		return nil
	}

	data, err := EncodeParquet(series, m.cfg.Storage.Parquet.Compression)
	if err != nil {
		return err
	}

	name := code + "_cot.parquet"
	if latest, ok := series.LatestDate(); ok {
		name = fmt.Sprintf("%s_cot_%s.parquet", code, latest.Format("20060102"))
	}
	parquetKey := m.objectKey(code, name)
	if err := m.upload(ctx, parquetKey, data, "application/octet-stream"); err != nil {
		return err
	}
	log.WithFields(logger.Fields{"s3_key": parquetKey, "size": len(data)}).Info("mirrored archive parquet")

	return nil
}

func (m *Mirror) objectKey(code, filename string) string {
	parts := make([]string, 0, 3)
	if prefix := m.cfg.Storage.S3.Prefix; prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, fmt.Sprintf("contract=%s", code), filename)
	return path.Join(parts...)
}

func (m *Mirror) upload(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(m.cfg.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"cotflow-version": m.cfg.App.Version,
		},
	}

	if _, err := m.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", m.cfg.Storage.S3.Bucket, err)
	}
	logger.IncrementS3Write(int64(len(data)))
	return nil
}
