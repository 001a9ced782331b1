package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"path/filepath"
	"time"

	"vibeboard-server/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var MinioClient *minio.Client

func InitMinIO() {
	cfg := config.AppConfig.MinIO
	var err error
	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatalf("minio init failed: %v", err)
	}
	log.Println("minio connected")
}

// UploadObject uploads from an io.Reader and returns a presigned URL.
// size may be -1 when unknown.
func UploadObject(reader io.Reader, objectName string, size int64) (string, error) {
	ctx := context.Background()
	cfg := config.AppConfig.MinIO
	bucketName := cfg.Bucket

	exists, err := MinioClient.BucketExists(ctx, bucketName)
	if err != nil {
		return "", fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := MinioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return "", fmt.Errorf("create bucket: %w", err)
		}
		log.Printf("bucket %q created", bucketName)
	}

	contentType := "application/octet-stream"
	switch filepath.Ext(objectName) {
	case ".json":
		contentType = "application/json"
	case ".txt", ".fountain":
		contentType = "text/plain"
	case ".pdf":
		contentType = "application/pdf"
	}

	_, err = MinioClient.PutObject(ctx, bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload to minio: %w", err)
	}

	expiry := time.Hour * 72
	reqParams := make(url.Values)
	presignedURL, err := MinioClient.PresignedGetObject(ctx, bucketName, objectName, expiry, reqParams)
	if err != nil {
		return "", fmt.Errorf("presign url: %w", err)
	}

	log.Printf("object uploaded: %s", objectName)
	return presignedURL.String(), nil
}

// UploadStoryExport archives an exported story bundle as JSON under
// stories/{story_id}/export.json and returns a presigned URL.
func UploadStoryExport(storyID string, bundle []byte) (string, error) {
	objectName := fmt.Sprintf("stories/%s/export.json", storyID)
	return UploadObject(bytes.NewReader(bundle), objectName, int64(len(bundle)))
}

// UploadScreenplay stores an uploaded screenplay file for a project and
// returns a presigned URL.
func UploadScreenplay(projectID, filename string, reader io.Reader, size int64) (string, error) {
	objectName := fmt.Sprintf("projects/%s/screenplay/%s", projectID, filepath.Base(filename))
	return UploadObject(reader, objectName, size)
}
