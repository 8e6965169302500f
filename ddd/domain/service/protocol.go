package service

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"transcode-orchestrator/ddd/domain/vo"
)

// 转码作业协议使用的事件种类。
// 请求与结果种类相差1000，反馈统一走7000。
const (
	KindJobRequest  = 5200
	KindJobResult   = 6200
	KindJobFeedback = 7000
	KindHandlerInfo = 31990
)

// ServiceDiscriminator worker能力广播里标识转码服务的固定字符串
const ServiceDiscriminator = "video-transcode"

// 反馈事件的status取值
const (
	FeedbackProcessing = "processing"
	FeedbackPartial    = "partial"
	FeedbackError      = "error"
)

// firstTagValue 返回事件中第一个同名tag的值
func firstTagValue(ev *nostr.Event, name string) string {
	for _, tag := range ev.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1]
		}
	}
	return ""
}

// BuildJobRequest 构造未签名的转码作业请求事件
func BuildJobRequest(inputURL string, workerID string, quality vo.Quality, writeRelays []string) *nostr.Event {
	relayTag := append(nostr.Tag{"relays"}, writeRelays...)
	return &nostr.Event{
		Kind:      KindJobRequest,
		CreatedAt: nostr.Now(),
		Tags: nostr.Tags{
			{"i", inputURL, "url"},
			{"p", workerID},
			{"param", "mode", "mp4"},
			{"param", "resolution", quality.String()},
			relayTag,
		},
	}
}

// workerProfilePayload 能力广播事件content里的结构化描述
type workerProfilePayload struct {
	Name  string `json:"name"`
	About string `json:"about"`
}

// ParseWorkerProfile 解析能力广播：优先取content里的JSON描述，
// content不是合法JSON时回退到扁平的name/about tag。
func ParseWorkerProfile(ev *nostr.Event) vo.WorkerProfile {
	profile := vo.WorkerProfile{WorkerID: ev.PubKey}

	var payload workerProfilePayload
	if err := json.Unmarshal([]byte(ev.Content), &payload); err == nil {
		profile.Name = payload.Name
		profile.About = payload.About
	}
	if profile.Name == "" {
		profile.Name = firstTagValue(ev, "name")
	}
	if profile.About == "" {
		profile.About = firstTagValue(ev, "about")
	}
	return profile
}

// feedbackPayload 反馈事件content里的可选JSON负载
type feedbackPayload struct {
	Msg     string  `json:"msg"`
	Percent float64 `json:"percent"`
}

// ParseFeedback 从反馈事件提取状态和进度
func ParseFeedback(ev *nostr.Event) (status string, progress vo.JobProgress) {
	status = firstTagValue(ev, "status")

	content := strings.TrimSpace(ev.Content)
	var payload feedbackPayload
	if err := json.Unmarshal([]byte(content), &payload); err == nil && (payload.Msg != "" || payload.Percent > 0) {
		progress.Message = payload.Msg
		progress.Percentage = payload.Percent
	} else if content != "" {
		progress.Message = content
	}

	if eta := firstTagValue(ev, "eta"); eta != "" {
		if v, err := strconv.ParseFloat(eta, 64); err == nil {
			progress.EtaSeconds = v
		}
	}
	return status, progress
}

// resultPayload 结果事件content的结构化负载
type resultPayload struct {
	URL        string   `json:"url"`
	URLs       []string `json:"urls"`
	Mimetype   string   `json:"mimetype"`
	Duration   float64  `json:"duration"`
	SizeBytes  int64    `json:"size_bytes"`
	Bitrate    int64    `json:"bitrate"`
	Resolution string   `json:"resolution"`
}

// ParseResult 将结果事件解析为成品。
// content优先按JSON解析；纯URL文本也接受。
// worker未给出时长时回退到fallbackDuration。
func ParseResult(ev *nostr.Event, quality vo.Quality, fallbackDuration float64) (vo.Artifact, bool) {
	content := strings.TrimSpace(ev.Content)

	var payload resultPayload
	if err := json.Unmarshal([]byte(content), &payload); err == nil {
		url := payload.URL
		if url == "" && len(payload.URLs) > 0 {
			url = payload.URLs[0]
		}
		if url != "" {
			duration := payload.Duration
			if duration <= 0 {
				duration = fallbackDuration
			}
			return vo.NewArtifact(url, quality, payload.Mimetype, payload.Resolution,
				payload.SizeBytes, duration, payload.Bitrate), true
		}
		return vo.Artifact{}, false
	}

	if strings.HasPrefix(content, "http://") || strings.HasPrefix(content, "https://") {
		// 部分worker直接把URL当作content返回
		url := content
		if idx := strings.IndexAny(url, " \n\t"); idx > 0 {
			url = url[:idx]
		}
		return vo.NewArtifact(url, quality, "", "", 0, fallbackDuration, 0), true
	}

	return vo.Artifact{}, false
}
