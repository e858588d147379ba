// Package s3 implements a Filesystem backed by Amazon S3 or any
// S3-compatible object store.
//
// Characteristics relevant to the staking engine:
//   - Rename is emulated with CopyObject + DeleteObject. The copy/delete
//     pair is not atomic; the rename staking verification step (claimed key
//     exists, original gone) covers the gap.
//   - Object tags back the property staking strategy (Tagger capability).
//   - Keys never start with "/": a leading slash would place the object
//     under an unnamed root-level folder.
//
// Thread Safety:
// The S3 client is safe for concurrent use; this adapter adds no state on
// top of it.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/eonx-com/ferry/pkg/filesystem"
)

// Filesystem is an S3-backed filesystem.Filesystem.
type Filesystem struct {
	client   *s3.Client
	bucket   string
	basePath string
}

// Config contains the settings for an S3 filesystem.
type Config struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the S3 bucket name.
	Bucket string

	// BasePath is an optional key prefix; all paths handed to the
	// filesystem are resolved relative to it.
	BasePath string
}

// New creates an S3 filesystem and verifies bucket access. The bucket must
// already exist.
func New(ctx context.Context, cfg Config) (*Filesystem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &Filesystem{
		client:   cfg.Client,
		bucket:   cfg.Bucket,
		basePath: filesystem.SanitizeObjectPath(cfg.BasePath),
	}, nil
}

func (s *Filesystem) Kind() filesystem.Kind {
	return filesystem.KindObjectStore
}

// objectKey resolves a base-relative path to the full bucket key.
func (s *Filesystem) objectKey(p string) string {
	p = s.SanitizePath(p)
	if s.basePath == "" {
		return p
	}
	if p == "" {
		return s.basePath
	}
	return s.basePath + "/" + p
}

// relPath converts a full bucket key back to a base-relative path.
func (s *Filesystem) relPath(key string) string {
	if s.basePath == "" {
		return key
	}
	rel, found := strings.CutPrefix(key, s.basePath+"/")
	if !found {
		return key
	}
	return rel
}

// List pages through the bucket under the configured prefix. Zero-length
// objects and folder placeholder keys are skipped; when recursive is false,
// keys below a subfolder of the listing path are excluded.
func (s *Filesystem) List(ctx context.Context, listPath string, recursive bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	listPath = s.SanitizePath(listPath)
	prefix := s.objectKey(listPath)
	if prefix != "" {
		prefix += "/"
	}

	var files []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil || obj.Size == nil || *obj.Size == 0 {
				continue
			}

			rel := s.relPath(*obj.Key)
			if !recursive && path.Dir(rel) != dirOf(listPath) {
				continue
			}

			files = append(files, rel)
		}
	}

	return files, nil
}

func dirOf(listPath string) string {
	if listPath == "" {
		return "."
	}
	return listPath
}

func (s *Filesystem) Exists(ctx context.Context, filePath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(filePath)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}

	return true, nil
}

// Delete removes the object. S3 DeleteObject succeeds for missing keys, so
// the idempotency contract holds without an existence check.
func (s *Filesystem) Delete(ctx context.Context, filePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(filePath)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

func (s *Filesystem) Download(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(remotePath)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return fmt.Errorf("download %s: %w", remotePath, filesystem.ErrNotFound)
		}
		return fmt.Errorf("failed to get object: %w", err)
	}
	defer result.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create local directory: %w", err)
	}

	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}

	if _, err := io.Copy(out, result.Body); err != nil {
		out.Close()
		return fmt.Errorf("failed to write local file: %w", err)
	}

	return out.Close()
}

func (s *Filesystem) Upload(ctx context.Context, localPath, remotePath string, allowOverwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !allowOverwrite {
		exists, err := s.Exists(ctx, remotePath)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("upload %s: %w", remotePath, filesystem.ErrAlreadyExists)
		}
	}

	in, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer in.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(remotePath)),
		Body:   in,
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}

	return nil
}

// Rename moves an object with CopyObject followed by DeleteObject.
func (s *Filesystem) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sourceKey := s.objectKey(oldPath)

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.objectKey(newPath)),
		CopySource: aws.String(s.bucket + "/" + url.PathEscape(sourceKey)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return fmt.Errorf("rename %s: %w", oldPath, filesystem.ErrNotFound)
		}
		return fmt.Errorf("failed to copy object: %w", err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(sourceKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete original after copy: %w", err)
	}

	return nil
}

func (s *Filesystem) SanitizePath(path string) string {
	return filesystem.SanitizeObjectPath(path)
}

// WriteTag implements filesystem.Tagger using S3 object tagging. Existing
// tags are preserved; only the supplied key is replaced.
func (s *Filesystem) WriteTag(ctx context.Context, filePath, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	objectKey := s.objectKey(filePath)

	current, err := s.client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to read object tags: %w", err)
	}

	tagSet := make([]types.Tag, 0, len(current.TagSet)+1)
	for _, tag := range current.TagSet {
		if tag.Key != nil && *tag.Key == key {
			continue
		}
		tagSet = append(tagSet, tag)
	}
	tagSet = append(tagSet, types.Tag{Key: aws.String(key), Value: aws.String(value)})

	_, err = s.client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
		Bucket:  aws.String(s.bucket),
		Key:     aws.String(objectKey),
		Tagging: &types.Tagging{TagSet: tagSet},
	})
	if err != nil {
		return fmt.Errorf("failed to write object tags: %w", err)
	}

	return nil
}

// ReadTag implements filesystem.Tagger.
func (s *Filesystem) ReadTag(ctx context.Context, filePath, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	result, err := s.client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(filePath)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read object tags: %w", err)
	}

	for _, tag := range result.TagSet {
		if tag.Key != nil && *tag.Key == key && tag.Value != nil {
			return *tag.Value, nil
		}
	}

	return "", nil
}

var (
	_ filesystem.Filesystem = (*Filesystem)(nil)
	_ filesystem.Tagger     = (*Filesystem)(nil)
)
