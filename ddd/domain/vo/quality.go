package vo

import (
	"fmt"
	"strings"
)

// Quality 请求的输出清晰度标签
type Quality string

const (
	Quality240p  Quality = "240p"
	Quality480p  Quality = "480p"
	Quality720p  Quality = "720p"
	Quality1080p Quality = "1080p"
	Quality1440p Quality = "1440p"
	Quality2160p Quality = "2160p"
)

// 清晰度到像素尺寸的固定映射，worker未返回尺寸时使用
var qualityDimensions = map[Quality]string{
	Quality240p:  "426x240",
	Quality480p:  "854x480",
	Quality720p:  "1280x720",
	Quality1080p: "1920x1080",
	Quality1440p: "2560x1440",
	Quality2160p: "3840x2160",
}

// ParseQuality 校验清晰度标签
func ParseQuality(s string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	if !q.IsValid() {
		return "", fmt.Errorf("invalid quality: %s, supported: %v", s, SupportedQualities())
	}
	return q, nil
}

// ParseQualities 批量校验，保持输入顺序并去重
func ParseQualities(items []string) ([]Quality, error) {
	out := make([]Quality, 0, len(items))
	seen := make(map[Quality]bool, len(items))
	for _, item := range items {
		q, err := ParseQuality(item)
		if err != nil {
			return nil, err
		}
		if seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out, nil
}

// IsValid 检查清晰度是否受支持
func (q Quality) IsValid() bool {
	_, ok := qualityDimensions[q]
	return ok
}

// Dimension 返回WxH像素尺寸
func (q Quality) Dimension() string {
	return qualityDimensions[q]
}

// String 返回标签字符串
func (q Quality) String() string {
	return string(q)
}

// SupportedQualities 返回全部受支持的清晰度
func SupportedQualities() []Quality {
	return []Quality{Quality240p, Quality480p, Quality720p, Quality1080p, Quality1440p, Quality2160p}
}
