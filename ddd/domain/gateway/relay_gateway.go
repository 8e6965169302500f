package gateway

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
)

// RelayGateway 消息总线协作方：向relay集合发布、查询、订阅事件。
// 连接池的建立与复用由实现负责。
type RelayGateway interface {
	// Publish 将已签名事件发布到所有目标relay；至少一个成功即成功
	Publish(ctx context.Context, relays []string, event *nostr.Event) error

	// Query 一次性查询，收集各relay的存量匹配事件后返回
	Query(ctx context.Context, relays []string, filter nostr.Filter) ([]*nostr.Event, error)

	// Subscribe 建立常驻订阅，返回事件通道和取消函数。
	// 取消函数必须幂等；取消后通道不再投递。
	Subscribe(ctx context.Context, relays []string, filter nostr.Filter) (<-chan *nostr.Event, func(), error)
}

// Signer 身份协作方：事件签名黑盒
type Signer interface {
	// PublicKey 返回本服务身份的公钥（hex）
	PublicKey() string

	// Sign 计算事件ID并签名
	Sign(event *nostr.Event) error
}
