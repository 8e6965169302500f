package service

import (
	"context"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"transcode-orchestrator/ddd/domain/gateway"
	"transcode-orchestrator/ddd/domain/vo"
	"transcode-orchestrator/pkg/errno"
	"transcode-orchestrator/pkg/logger"
)

// JobClient 负责一次(任务,清晰度)的请求/响应周期
type JobClient interface {
	// Submit 构造并签名作业请求，发布后返回事件ID作为关联ID
	Submit(ctx context.Context, workerID, inputURL string, quality vo.Quality) (string, error)

	// AwaitResult 订阅进度和结果事件直到产出成品或失败。
	// 进度通过onProgress回传；ctx取消立即退订并返回取消错误。
	AwaitResult(ctx context.Context, requestID, workerID string, quality vo.Quality,
		fallbackDuration float64, onProgress func(vo.JobProgress)) (vo.Artifact, error)

	// QueryExistingResult 恢复时的一次性查询；无结果返回(nil, nil)而非错误
	QueryExistingResult(ctx context.Context, requestID, workerID string, quality vo.Quality,
		fallbackDuration float64) (*vo.Artifact, error)
}

type jobClientImpl struct {
	relayGateway  gateway.RelayGateway
	signer        gateway.Signer
	readRelays    []string
	writeRelays   []string
	resultTimeout time.Duration
	lookupTimeout time.Duration
}

// NewJobClient 创建作业协议客户端
func NewJobClient(
	relayGateway gateway.RelayGateway,
	signer gateway.Signer,
	readRelays, writeRelays []string,
	resultTimeout, lookupTimeout time.Duration,
) JobClient {
	if resultTimeout <= 0 {
		resultTimeout = 10 * time.Minute
	}
	if lookupTimeout <= 0 {
		lookupTimeout = 5 * time.Second
	}
	return &jobClientImpl{
		relayGateway:  relayGateway,
		signer:        signer,
		readRelays:    readRelays,
		writeRelays:   writeRelays,
		resultTimeout: resultTimeout,
		lookupTimeout: lookupTimeout,
	}
}

func (c *jobClientImpl) Submit(ctx context.Context, workerID, inputURL string, quality vo.Quality) (string, error) {
	ev := BuildJobRequest(inputURL, workerID, quality, c.writeRelays)
	ev.PubKey = c.signer.PublicKey()

	if err := c.signer.Sign(ev); err != nil {
		return "", errno.NewBizError(errno.ErrSigningFailed, err)
	}
	if err := c.relayGateway.Publish(ctx, c.writeRelays, ev); err != nil {
		return "", errno.NewBizError(errno.ErrPublishFailed, err)
	}

	logger.Info("Job request published", map[string]interface{}{
		"request_id": ev.ID,
		"worker_id":  workerID,
		"quality":    quality.String(),
	})
	return ev.ID, nil
}

// resultFilter 过滤指定worker针对requestID的反馈与结果事件
func (c *jobClientImpl) resultFilter(requestID, workerID string) nostr.Filter {
	return nostr.Filter{
		Kinds:   []int{KindJobResult, KindJobFeedback},
		Authors: []string{workerID},
		Tags:    nostr.TagMap{"e": []string{requestID}},
	}
}

func (c *jobClientImpl) AwaitResult(ctx context.Context, requestID, workerID string, quality vo.Quality,
	fallbackDuration float64, onProgress func(vo.JobProgress)) (vo.Artifact, error) {

	events, unsub, err := c.relayGateway.Subscribe(ctx, c.readRelays, c.resultFilter(requestID, workerID))
	if err != nil {
		return vo.Artifact{}, errno.NewBizError(errno.ErrRelayUnavailable, err)
	}
	defer unsub()

	deadline := time.NewTimer(c.resultTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return vo.Artifact{}, errno.ErrCancelled
		case <-deadline.C:
			return vo.Artifact{}, errno.ErrResultTimeout
		case ev, ok := <-events:
			if !ok {
				return vo.Artifact{}, errno.ErrResultTimeout
			}
			if ev == nil || ev.PubKey != workerID {
				continue
			}
			switch ev.Kind {
			case KindJobFeedback:
				status, progress := ParseFeedback(ev)
				switch status {
				case FeedbackError:
					msg := progress.Message
					if msg == "" {
						msg = "worker rejected the job"
					}
					return vo.Artifact{}, errno.ErrWorkerReported.WithMessage(msg)
				case FeedbackProcessing, FeedbackPartial:
					if onProgress != nil {
						onProgress(progress)
					}
				}
			case KindJobResult:
				artifact, ok := ParseResult(ev, quality, fallbackDuration)
				if !ok {
					return vo.Artifact{}, errno.ErrMalformedResult
				}
				return artifact, nil
			}
		}
	}
}

func (c *jobClientImpl) QueryExistingResult(ctx context.Context, requestID, workerID string, quality vo.Quality,
	fallbackDuration float64) (*vo.Artifact, error) {

	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	filter := nostr.Filter{
		Kinds:   []int{KindJobResult},
		Authors: []string{workerID},
		Tags:    nostr.TagMap{"e": []string{requestID}},
		Limit:   1,
	}
	events, err := c.relayGateway.Query(ctx, c.readRelays, filter)
	if err != nil {
		// 查询失败当作"尚无结果"，由调用方重新订阅
		logger.Warnf("Existing result lookup failed request_id=%s error=%v", requestID, err)
		return nil, nil
	}

	for _, ev := range events {
		if ev == nil || ev.Kind != KindJobResult || ev.PubKey != workerID {
			continue
		}
		if artifact, ok := ParseResult(ev, quality, fallbackDuration); ok {
			return &artifact, nil
		}
	}
	return nil, nil
}
