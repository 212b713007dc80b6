// Package minio implements the artifact archive: generated Dragon scripts and
// descriptor output tables are uploaded to object storage keyed by job ID, so
// results survive the working directory of the host that ran the job.
package minio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/chemkit/dragonctl/internal/config"
	"github.com/chemkit/dragonctl/internal/infrastructure/monitoring/logging"
	"github.com/chemkit/dragonctl/pkg/errors"
)

// ObjectAPI is the subset of the minio-go client the archive needs.  The
// narrow interface keeps the store mockable without a live MinIO server.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

const textContentType = "text/plain"

// ArchiveStore uploads and retrieves per-job artifacts.
type ArchiveStore struct {
	client ObjectAPI
	bucket string
	logger logging.Logger
}

// NewArchiveStore dials the object store described by cfg, verifies the
// artifact bucket exists (creating it when absent), and returns the store.
func NewArchiveStore(cfg config.MinIOConfig, log logging.Logger) (*ArchiveStore, error) {
	if log == nil {
		log = logging.Default()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create object-store client")
	}

	store := &ArchiveStore{client: client, bucket: cfg.Bucket, logger: log.Named("archive")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	log.Info("artifact archive connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket))
	return store, nil
}

// NewArchiveStoreWithClient wires an existing client, for tests.
func NewArchiveStoreWithClient(client ObjectAPI, bucket string, log logging.Logger) *ArchiveStore {
	if log == nil {
		log = logging.Default()
	}
	return &ArchiveStore{client: client, bucket: bucket, logger: log.Named("archive")}
}

func (s *ArchiveStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check artifact bucket")
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create artifact bucket")
	}
	return nil
}

// objectKey builds the storage key for one artifact of a job.
func objectKey(jobID, name string) string {
	return path.Join("jobs", jobID, name)
}

// ArchiveFile uploads the file at localPath under the given job ID, keeping
// the file's base name as the artifact name.  It returns the object key.
func (s *ArchiveStore) ArchiveFile(ctx context.Context, jobID, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeJobArchiveFailed,
			fmt.Sprintf("failed to open artifact %s", localPath))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeJobArchiveFailed,
			fmt.Sprintf("failed to stat artifact %s", localPath))
	}

	key := objectKey(jobID, filepath.Base(localPath))
	_, err = s.client.PutObject(ctx, s.bucket, key, f, info.Size(),
		minio.PutObjectOptions{ContentType: textContentType})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeJobArchiveFailed,
			fmt.Sprintf("failed to upload artifact %s", key))
	}

	s.logger.Info("artifact archived",
		logging.String("job_id", jobID),
		logging.String("key", key),
		logging.Int("bytes", int(info.Size())))
	return key, nil
}

// FetchArtifact downloads the named artifact of a job to destPath.
func (s *ArchiveStore) FetchArtifact(ctx context.Context, jobID, name, destPath string) error {
	key := objectKey(jobID, name)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError,
			fmt.Sprintf("failed to fetch artifact %s", key))
	}
	defer obj.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError,
			fmt.Sprintf("failed to create %s", destPath))
	}
	defer dest.Close()

	if _, err := io.Copy(dest, obj); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError,
			fmt.Sprintf("failed to download artifact %s", key))
	}
	return nil
}

// HasArtifact reports whether the named artifact exists for the job.
func (s *ArchiveStore) HasArtifact(ctx context.Context, jobID, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, objectKey(jobID, name), minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeStorageError, "failed to stat artifact")
	}
	return true, nil
}

// ListArtifacts returns the artifact names stored for a job.
func (s *ArchiveStore) ListArtifacts(ctx context.Context, jobID string) ([]string, error) {
	prefix := objectKey(jobID, "") + "/"
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "failed to list artifacts")
		}
		names = append(names, path.Base(obj.Key))
	}
	return names, nil
}
