package gateway

import "context"

// MirrorGateway 存储协作方：把成品复制到用户自己的存储。
// 镜像失败不允许影响任务状态，调用方只记录日志。
type MirrorGateway interface {
	// Mirror 镜像一个成品URL，返回镜像后的URL
	Mirror(ctx context.Context, artifactURL string, sha256Hex string, sizeBytes int64) (string, error)
}
