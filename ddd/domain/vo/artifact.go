package vo

import (
	"strings"
)

// Artifact 一个转码成品
type Artifact struct {
	URL             string  `json:"url"`
	Dimension       string  `json:"dimension"`
	SizeBytes       int64   `json:"size_bytes,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	Bitrate         int64   `json:"bitrate,omitempty"`
	VideoCodec      string  `json:"video_codec,omitempty"`
	AudioCodec      string  `json:"audio_codec,omitempty"`
	QualityLabel    string  `json:"quality_label"`
}

// NewArtifact 从worker返回的原始字段推导出规范化成品。
// worker未给出尺寸时回退到清晰度映射表，未给出码率时按大小和时长估算。
func NewArtifact(url string, quality Quality, mimetype, resolution string, sizeBytes int64, duration float64, bitrate int64) Artifact {
	a := Artifact{
		URL:             url,
		SizeBytes:       sizeBytes,
		DurationSeconds: duration,
		Bitrate:         bitrate,
		QualityLabel:    quality.String(),
	}

	a.Dimension = resolution
	if a.Dimension == "" {
		a.Dimension = quality.Dimension()
	}

	a.VideoCodec, a.AudioCodec = SplitCodecs(mimetype)

	if a.Bitrate == 0 && sizeBytes > 0 && duration > 0 {
		a.Bitrate = int64(float64(sizeBytes*8) / duration)
	}

	return a
}

// SplitCodecs 从mimetype的codecs参数拆出视频和音频编码，
// 例如 video/mp4;codecs=avc1.64001f,mp4a.40.2
func SplitCodecs(mimetype string) (video, audio string) {
	idx := strings.Index(strings.ToLower(mimetype), "codecs=")
	if idx < 0 {
		return "", ""
	}
	raw := mimetype[idx+len("codecs="):]
	raw = strings.Trim(raw, `"'`)
	if end := strings.IndexByte(raw, ';'); end >= 0 {
		raw = raw[:end]
	}
	parts := strings.Split(raw, ",")
	if len(parts) > 0 {
		video = strings.Trim(strings.TrimSpace(parts[0]), `"'`)
	}
	if len(parts) > 1 {
		audio = strings.Trim(strings.TrimSpace(parts[1]), `"'`)
	}
	return video, audio
}

// WorkerProfile worker目录查询结果
type WorkerProfile struct {
	WorkerID string `json:"worker_id"`
	Name     string `json:"name,omitempty"`
	About    string `json:"about,omitempty"`
}

// JobProgress worker反馈的进度信息
type JobProgress struct {
	Message    string  `json:"message,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
	EtaSeconds float64 `json:"eta_seconds,omitempty"`
}
