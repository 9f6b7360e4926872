package checkpoint

import (
	"bytes"
	"context"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/pubenrich/internal/dataset"
	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/resilience"
)

// PutObjectAPI is the subset of the S3 client used for mirroring.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client loads the default AWS credential chain.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: load aws config")
	}
	return s3.NewFromConfig(awsCfg), nil
}

// Mirror writes locally first, then uploads the same file to
// s3://<bucket>/<prefix>/<file>. Upload failures are logged; the local
// file is the checkpoint of record.
type Mirror struct {
	local  *FileStore
	fs     afero.Fs
	client PutObjectAPI
	bucket string
	prefix string
}

// NewMirror wraps local with an S3 upload.
func NewMirror(local *FileStore, ds *dataset.Store, client PutObjectAPI, bucket, prefix string) *Mirror {
	if ds == nil {
		ds = dataset.New(nil)
	}
	return &Mirror{local: local, fs: ds.Fs(), client: client, bucket: bucket, prefix: prefix}
}

// Save implements Store.
func (m *Mirror) Save(ctx context.Context, runID string, processed int, pubs []model.Publication) (string, error) {
	p, err := m.local.Save(ctx, runID, processed, pubs)
	if err != nil {
		return "", err
	}
	m.upload(ctx, p)
	return p, nil
}

// SaveFailures implements Store.
func (m *Mirror) SaveFailures(ctx context.Context, runID string, failures []resilience.Failure) (string, error) {
	p, err := m.local.SaveFailures(ctx, runID, failures)
	if err != nil {
		return "", err
	}
	m.upload(ctx, p)
	return p, nil
}

// Key returns the object key for a local file.
func (m *Mirror) Key(localPath string) string {
	return path.Join(m.prefix, filepath.Base(localPath))
}

func (m *Mirror) upload(ctx context.Context, localPath string) {
	key := m.Key(localPath)
	log := zap.L().With(zap.String("bucket", m.bucket), zap.String("key", key))

	data, err := afero.ReadFile(m.fs, localPath)
	if err != nil {
		log.Warn("checkpoint: read for s3 mirror failed", zap.Error(err))
		return
	}
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		log.Warn("checkpoint: s3 mirror upload failed", zap.Error(err))
		return
	}
	log.Debug("checkpoint: mirrored to s3", zap.Int("bytes", len(data)))
}
