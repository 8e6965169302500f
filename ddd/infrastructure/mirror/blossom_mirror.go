package mirror

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"transcode-orchestrator/ddd/domain/gateway"
	"transcode-orchestrator/pkg/logger"
)

// 镜像授权事件的种类（Blossom协议）
const kindMirrorAuth = 24242

// BlossomMirror 把成品URL交给用户自己的blossom服务器镜像
type BlossomMirror struct {
	servers    []string
	signer     gateway.Signer
	httpClient *http.Client
}

// NewBlossomMirror 创建blossom镜像网关
func NewBlossomMirror(servers []string, signer gateway.Signer, timeout time.Duration) *BlossomMirror {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &BlossomMirror{
		servers:    servers,
		signer:     signer,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ gateway.MirrorGateway = (*BlossomMirror)(nil)

type mirrorRequest struct {
	URL string `json:"url"`
}

type mirrorResponse struct {
	URL string `json:"url"`
}

// Mirror 依次尝试各服务器，返回第一个成功的镜像URL
func (m *BlossomMirror) Mirror(ctx context.Context, artifactURL, sha256Hex string, sizeBytes int64) (string, error) {
	if len(m.servers) == 0 {
		return "", fmt.Errorf("no mirror server configured")
	}

	auth, err := m.buildAuthHeader(sha256Hex, sizeBytes)
	if err != nil {
		return "", err
	}
	body, _ := json.Marshal(mirrorRequest{URL: artifactURL})

	var lastErr error
	for _, server := range m.servers {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, server+"/mirror", bytes.NewReader(body))
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", auth)

		resp, err := m.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("mirror server %s returned %d", server, resp.StatusCode)
			logger.Warnf("Mirror rejected server=%s status=%d", server, resp.StatusCode)
			continue
		}

		var parsed mirrorResponse
		if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.URL != "" {
			return parsed.URL, nil
		}
		// 服务器未返回URL时保留原地址
		return artifactURL, nil
	}
	return "", lastErr
}

// buildAuthHeader 构造签名的镜像授权头
func (m *BlossomMirror) buildAuthHeader(sha256Hex string, sizeBytes int64) (string, error) {
	ev := &nostr.Event{
		Kind:      kindMirrorAuth,
		CreatedAt: nostr.Now(),
		Content:   "mirror artifact",
		Tags: nostr.Tags{
			{"t", "upload"},
			{"expiration", strconv.FormatInt(time.Now().Add(10*time.Minute).Unix(), 10)},
		},
	}
	if sha256Hex != "" {
		ev.Tags = append(ev.Tags, nostr.Tag{"x", sha256Hex})
	}
	if sizeBytes > 0 {
		ev.Tags = append(ev.Tags, nostr.Tag{"size", strconv.FormatInt(sizeBytes, 10)})
	}
	ev.PubKey = m.signer.PublicKey()
	if err := m.signer.Sign(ev); err != nil {
		return "", err
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	return "Nostr " + base64.StdEncoding.EncodeToString(raw), nil
}
