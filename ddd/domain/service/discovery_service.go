package service

import (
	"context"
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"transcode-orchestrator/ddd/domain/gateway"
	"transcode-orchestrator/ddd/domain/vo"
	"transcode-orchestrator/pkg/errno"
	"transcode-orchestrator/pkg/logger"
)

// WorkerDirectory worker目录查询服务
type WorkerDirectory interface {
	// FindWorker 在读relay上查找第一个转码worker的能力广播。
	// 本服务不做重试，重试策略属于编排器。
	FindWorker(ctx context.Context) (vo.WorkerProfile, error)
}

type workerDirectoryImpl struct {
	relayGateway gateway.RelayGateway
	readRelays   []string
	timeout      time.Duration
}

// NewWorkerDirectory 创建worker目录服务
func NewWorkerDirectory(relayGateway gateway.RelayGateway, readRelays []string, timeout time.Duration) WorkerDirectory {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &workerDirectoryImpl{
		relayGateway: relayGateway,
		readRelays:   readRelays,
		timeout:      timeout,
	}
}

// FindWorker 订阅能力广播事件，取第一个匹配结果
func (d *workerDirectoryImpl) FindWorker(ctx context.Context) (vo.WorkerProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	filter := nostr.Filter{
		Kinds: []int{KindHandlerInfo},
		Tags: nostr.TagMap{
			"k": []string{strconv.Itoa(KindJobRequest)},
			"t": []string{ServiceDiscriminator},
		},
	}

	events, unsub, err := d.relayGateway.Subscribe(ctx, d.readRelays, filter)
	if err != nil {
		return vo.WorkerProfile{}, errno.NewBizError(errno.ErrNoWorkerFound, err)
	}
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return vo.WorkerProfile{}, errno.ErrDiscoveryTimeout
		case ev, ok := <-events:
			if !ok {
				return vo.WorkerProfile{}, errno.ErrNoWorkerFound
			}
			if ev == nil || ev.Kind != KindHandlerInfo {
				continue
			}
			profile := ParseWorkerProfile(ev)
			logger.Info("Transcode worker discovered", map[string]interface{}{
				"worker_id": profile.WorkerID,
				"name":      profile.Name,
			})
			return profile, nil
		}
	}
}
