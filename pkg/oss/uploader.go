package oss

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/ilagnev/barnes-tms-extract/pkg/config"
	"github.com/ilagnev/barnes-tms-extract/pkg/logger"
)

// Uploader ships finished export runs to Alibaba Cloud OSS
type Uploader struct {
	client *oss.Client
	bucket *oss.Bucket
	config *config.OSSConfig
	logger *logger.Logger
}

// UploadResult contains the result of a run upload
type UploadResult struct {
	ObjectKeys []string
	SignedURL  string // signed download URL for the exported objects file
	Size       int64
	UploadTime time.Duration
}

// NewUploader creates a new OSS uploader
func NewUploader(cfg *config.OSSConfig, log *logger.Logger) (*Uploader, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get OSS bucket: %w", err)
	}

	return &Uploader{
		client: client,
		bucket: bucket,
		config: cfg,
		logger: log,
	}, nil
}

// UploadRun uploads every regular file in a finished run directory under
// exports/<run-dir-name>/ and returns a signed URL for the objects file
func (u *Uploader) UploadRun(ctx context.Context, runID string, runDir string) (*UploadResult, error) {
	startTime := time.Now()
	contextLogger := u.logger.WithContext(ctx).WithRunID(runID).WithComponent("oss_uploader")

	entries, err := os.ReadDir(runDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read run directory: %w", err)
	}

	prefix := fmt.Sprintf("exports/%s", filepath.Base(runDir))
	contextLogger.LogUploadStarted("Starting run upload", logger.Fields{
		"prefix": prefix,
		"files":  len(entries),
	})

	result := &UploadResult{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		localPath := filepath.Join(runDir, entry.Name())
		objectKey := fmt.Sprintf("%s/%s", prefix, entry.Name())

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", localPath, err)
		}

		if err := u.uploadFile(localPath, objectKey, contextLogger); err != nil {
			contextLogger.LogUploadFailed("Run upload failed", "UPLOAD_ERROR", err.Error(), logger.Fields{
				"object_key": objectKey,
			})
			return nil, err
		}

		result.ObjectKeys = append(result.ObjectKeys, objectKey)
		result.Size += info.Size()

		if strings.HasPrefix(entry.Name(), "objects.") {
			signedURL, err := u.generateSignedURL(objectKey)
			if err != nil {
				return nil, err
			}
			result.SignedURL = signedURL
		}
	}

	result.UploadTime = time.Since(startTime)
	contextLogger.LogUploadCompleted("Run upload completed", result.UploadTime.Milliseconds(), logger.Fields{
		"objects":    len(result.ObjectKeys),
		"total_size": result.Size,
		"signed_url": result.SignedURL,
	})

	return result, nil
}

// uploadFile uploads one file with retry
func (u *Uploader) uploadFile(localPath string, objectKey string, contextLogger *logger.ContextLogger) error {
	var lastErr error
	for attempt := 0; attempt <= u.config.MaxRetries; attempt++ {
		if attempt > 0 {
			waitTime := time.Duration(attempt) * time.Second
			contextLogger.LogWarn(
				"UploadRetry",
				fmt.Sprintf("Retrying upload (attempt %d/%d)", attempt+1, u.config.MaxRetries+1),
				logger.Fields{"object_key": objectKey, "wait_time": waitTime.String()},
			)
			time.Sleep(waitTime)
		}

		lastErr = u.bucket.PutObjectFromFile(objectKey, localPath)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("failed to upload %s after %d attempts: %w", objectKey, u.config.MaxRetries+1, lastErr)
}

// generateSignedURL creates a signed URL for downloading
func (u *Uploader) generateSignedURL(objectKey string) (string, error) {
	expiry := int64(u.config.SignedURLExpiry.Seconds())
	signedURL, err := u.bucket.SignURL(objectKey, oss.HTTPGet, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to sign URL: %w", err)
	}
	return signedURL, nil
}

// DeleteObject deletes an object from OSS
func (u *Uploader) DeleteObject(objectKey string) error {
	return u.bucket.DeleteObject(objectKey)
}
