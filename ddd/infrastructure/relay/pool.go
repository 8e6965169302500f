package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"transcode-orchestrator/ddd/domain/gateway"
	"transcode-orchestrator/pkg/logger"
)

// Pool 按URL缓存relay连接，实现消息总线网关。
// 连接惰性建立；发布/查询对多个relay是尽力而为的扇出。
type Pool struct {
	mu             sync.Mutex
	relays         map[string]*nostr.Relay
	connectTimeout time.Duration
}

// NewPool 创建连接池
func NewPool(connectTimeout time.Duration) *Pool {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	return &Pool{
		relays:         make(map[string]*nostr.Relay),
		connectTimeout: connectTimeout,
	}
}

var _ gateway.RelayGateway = (*Pool)(nil)

// ensureRelay 返回缓存连接，必要时新建
func (p *Pool) ensureRelay(ctx context.Context, url string) (*nostr.Relay, error) {
	p.mu.Lock()
	if r, ok := p.relays[url]; ok {
		p.mu.Unlock()
		return r, nil
	}
	p.mu.Unlock()

	connectCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()
	r, err := nostr.RelayConnect(connectCtx, url)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.relays[url]; ok {
		go r.Close()
		return existing, nil
	}
	p.relays[url] = r
	return r, nil
}

// drop 放弃一个出错的连接，下次访问时重连
func (p *Pool) drop(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.relays[url]; ok {
		delete(p.relays, url)
		go r.Close()
	}
}

// Publish 发布到所有目标relay，至少一个成功即成功
func (p *Pool) Publish(ctx context.Context, relays []string, event *nostr.Event) error {
	var lastErr error
	published := 0
	for _, url := range relays {
		r, err := p.ensureRelay(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		if err := r.Publish(ctx, *event); err != nil {
			logger.Warnf("Publish failed relay=%s error=%v", url, err)
			p.drop(url)
			lastErr = err
			continue
		}
		published++
	}
	if published == 0 {
		if lastErr == nil {
			lastErr = errors.New("no relay accepted the event")
		}
		return lastErr
	}
	return nil
}

// Query 一次性查询各relay并按事件ID去重合并
func (p *Pool) Query(ctx context.Context, relays []string, filter nostr.Filter) ([]*nostr.Event, error) {
	seen := make(map[string]bool)
	var out []*nostr.Event
	var lastErr error
	for _, url := range relays {
		r, err := p.ensureRelay(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		events, err := r.QuerySync(ctx, filter)
		if err != nil {
			lastErr = err
			continue
		}
		for _, ev := range events {
			if ev == nil || seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			out = append(out, ev)
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// Subscribe 在每个relay上建立订阅并扇入到一个通道，按事件ID去重。
// 返回的取消函数幂等；取消后通道关闭。
func (p *Pool) Subscribe(ctx context.Context, relays []string, filter nostr.Filter) (<-chan *nostr.Event, func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan *nostr.Event, 64)

	var wg sync.WaitGroup
	var seenMu sync.Mutex
	seen := make(map[string]bool)
	subscribed := 0
	var lastErr error

	for _, url := range relays {
		r, err := p.ensureRelay(subCtx, url)
		if err != nil {
			lastErr = err
			continue
		}
		sub, err := r.Subscribe(subCtx, []nostr.Filter{filter})
		if err != nil {
			lastErr = err
			continue
		}
		subscribed++
		wg.Add(1)
		go func(sub *nostr.Subscription) {
			defer wg.Done()
			defer sub.Unsub()
			for {
				select {
				case <-subCtx.Done():
					return
				case ev, ok := <-sub.Events:
					if !ok {
						return
					}
					if ev == nil {
						continue
					}
					seenMu.Lock()
					dup := seen[ev.ID]
					if !dup {
						seen[ev.ID] = true
					}
					seenMu.Unlock()
					if dup {
						continue
					}
					select {
					case out <- ev:
					case <-subCtx.Done():
						return
					}
				}
			}
		}(sub)
	}

	if subscribed == 0 {
		cancel()
		close(out)
		if lastErr == nil {
			lastErr = errors.New("no relay available for subscription")
		}
		return nil, func() {}, lastErr
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	var once sync.Once
	unsub := func() {
		once.Do(cancel)
	}
	return out, unsub, nil
}

// Close 断开池内所有连接
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for url, r := range p.relays {
		_ = r.Close()
		delete(p.relays, url)
	}
}
