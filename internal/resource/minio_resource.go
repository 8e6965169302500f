package resource

import (
	"context"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"transcode-orchestrator/pkg/assert"
	"transcode-orchestrator/pkg/config"
	"transcode-orchestrator/pkg/logger"
	"transcode-orchestrator/pkg/manager"
)

var (
	minioResourceOnce sync.Once
	minioSingleton    *MinioResource
)

// MinioResource manages the shared MinIO client used by the mirror gateway.
// Only opened when the minio mirror mode is enabled.
type MinioResource struct {
	client     *minio.Client
	bucketName string
}

// DefaultMinioResource returns the global MinIO resource instance.
func DefaultMinioResource() *MinioResource {
	assert.NotCircular()
	minioResourceOnce.Do(func() {
		minioSingleton = &MinioResource{}
	})
	assert.NotNil(minioSingleton)
	return minioSingleton
}

// MustOpen builds the MinIO client and ensures the mirror bucket exists.
func (r *MinioResource) MustOpen() {
	if r.client != nil {
		return
	}

	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized")
	}
	if !cfg.Mirror.Enabled || cfg.Mirror.Mode != "minio" {
		logger.Debugf("MinIO resource skipped, mirror mode=%s enabled=%v", cfg.Mirror.Mode, cfg.Mirror.Enabled)
		return
	}

	client, err := minio.New(cfg.Minio.GetMinioEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKeyID, cfg.Minio.SecretAccessKey, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		panic("failed to create minio client: " + err.Error())
	}

	bucket := cfg.Minio.BucketName
	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		panic("failed to check minio bucket: " + err.Error())
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			panic("failed to create minio bucket: " + err.Error())
		}
	}

	r.client = client
	r.bucketName = bucket
}

// Close releases the MinIO client (no-op, the SDK keeps no persistent handle).
func (r *MinioResource) Close() {}

// GetClient exposes the raw MinIO client; nil when the resource is unused.
func (r *MinioResource) GetClient() *minio.Client {
	return r.client
}

// GetBucketName returns the configured mirror bucket.
func (r *MinioResource) GetBucketName() string {
	return r.bucketName
}

// MinioResourcePlugin wires the resource into the manager.
type MinioResourcePlugin struct{}

// Name identifies the plugin slot.
func (p *MinioResourcePlugin) Name() string {
	return "minio"
}

// MustCreateResource returns the singleton MinIO resource for registration.
func (p *MinioResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultMinioResource()
}
