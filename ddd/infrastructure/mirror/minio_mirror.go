package mirror

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"transcode-orchestrator/ddd/domain/gateway"
	"transcode-orchestrator/internal/resource"
	"transcode-orchestrator/pkg/logger"
)

// MinioMirror 把成品下载后复制进用户自己的MinIO桶
type MinioMirror struct {
	minioResource *resource.MinioResource
	publicBase    string
	maxBytes      int64
	httpClient    *http.Client
}

// NewMinioMirror 创建MinIO镜像网关
func NewMinioMirror(minioResource *resource.MinioResource, publicBase string, maxBytes int64, timeout time.Duration) *MinioMirror {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &MinioMirror{
		minioResource: minioResource,
		publicBase:    strings.TrimRight(publicBase, "/"),
		maxBytes:      maxBytes,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

var _ gateway.MirrorGateway = (*MinioMirror)(nil)

// Mirror 流式拉取成品并写入桶内，返回对外可访问的镜像URL
func (m *MinioMirror) Mirror(ctx context.Context, artifactURL, _ string, sizeBytes int64) (string, error) {
	client := m.minioResource.GetClient()
	bucketName := m.minioResource.GetBucketName()
	if client == nil {
		return "", fmt.Errorf("minio client not initialized")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifactURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch artifact: unexpected status %d", resp.StatusCode)
	}

	size := sizeBytes
	if size <= 0 {
		size = resp.ContentLength
	}
	if m.maxBytes > 0 && size > m.maxBytes {
		return "", fmt.Errorf("artifact too large: %d bytes", size)
	}

	objectKey := objectKeyFromURL(artifactURL)
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	_, err = client.PutObject(ctx, bucketName, objectKey, resp.Body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload mirror copy: %w", err)
	}

	logger.Info("Artifact mirrored to bucket", map[string]interface{}{
		"object_key": objectKey,
		"bucket":     bucketName,
	})

	if m.publicBase != "" {
		return m.publicBase + "/" + objectKey, nil
	}
	return objectKey, nil
}

// objectKeyFromURL 从源URL推导对象键，保留文件名便于排查
func objectKeyFromURL(artifactURL string) string {
	u, err := url.Parse(artifactURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "mirrors/" + strings.ReplaceAll(artifactURL, "/", "_")
	}
	return "mirrors/" + strings.TrimPrefix(path.Clean(u.Path), "/")
}
