package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/nbd-wtf/go-nostr"

	"transcode-orchestrator/ddd/domain/entity"
	"transcode-orchestrator/ddd/domain/vo"
	"transcode-orchestrator/pkg/errno"
)

// fakeRelayGateway 内存版relay网关，事件通过脚本通道注入
type fakeRelayGateway struct {
	mu          sync.Mutex
	published   []*nostr.Event
	publishErr  error
	queryEvents []*nostr.Event
	queryErr    error
	queryCalls  int

	// subscribeCh 由测试注入；subscribeErr非空时订阅直接失败
	subscribeCh  chan *nostr.Event
	subscribeErr error
}

func (f *fakeRelayGateway) Publish(ctx context.Context, relays []string, event *nostr.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, event)
	return nil
}

func (f *fakeRelayGateway) Query(ctx context.Context, relays []string, filter nostr.Filter) ([]*nostr.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryEvents, nil
}

func (f *fakeRelayGateway) Subscribe(ctx context.Context, relays []string, filter nostr.Filter) (<-chan *nostr.Event, func(), error) {
	if f.subscribeErr != nil {
		return nil, nil, f.subscribeErr
	}
	if f.subscribeCh == nil {
		f.subscribeCh = make(chan *nostr.Event, 16)
	}
	return f.subscribeCh, func() {}, nil
}

func (f *fakeRelayGateway) publishedEvents() []*nostr.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*nostr.Event, len(f.published))
	copy(out, f.published)
	return out
}

// fakeSigner 测试签名器，给事件分配递增ID
type fakeSigner struct {
	mu      sync.Mutex
	counter int
}

func (s *fakeSigner) PublicKey() string { return "client-pubkey" }

func (s *fakeSigner) Sign(event *nostr.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	event.ID = fmt.Sprintf("request-%d", s.counter)
	event.Sig = "fake-sig"
	return nil
}

// fakeDirectory 固定返回的worker目录
type fakeDirectory struct {
	mu      sync.Mutex
	profile vo.WorkerProfile
	err     error
	calls   int
}

func (d *fakeDirectory) FindWorker(ctx context.Context) (vo.WorkerProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return vo.WorkerProfile{}, d.err
	}
	return d.profile, nil
}

func (d *fakeDirectory) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type submitCall struct {
	workerID string
	inputURL string
	quality  vo.Quality
}

// fakeJobClient 脚本化的作业客户端
type fakeJobClient struct {
	mu        sync.Mutex
	submits   []submitCall
	submitSeq int
	submitErr error

	results  map[vo.Quality]vo.Artifact
	awaitErr map[vo.Quality]error
	// awaitPanic非空时AwaitResult直接panic，模拟未预期的崩溃
	awaitPanic string
	// blockAwait非空时AwaitResult挂起，直到通道关闭或ctx取消
	blockAwait chan struct{}

	existing    map[string]*vo.Artifact
	lookupCalls int
}

func newFakeJobClient() *fakeJobClient {
	return &fakeJobClient{
		results:  make(map[vo.Quality]vo.Artifact),
		awaitErr: make(map[vo.Quality]error),
		existing: make(map[string]*vo.Artifact),
	}
}

func (c *fakeJobClient) Submit(ctx context.Context, workerID, inputURL string, quality vo.Quality) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitErr != nil {
		return "", c.submitErr
	}
	c.submitSeq++
	c.submits = append(c.submits, submitCall{workerID: workerID, inputURL: inputURL, quality: quality})
	return fmt.Sprintf("request-%d", c.submitSeq), nil
}

func (c *fakeJobClient) AwaitResult(ctx context.Context, requestID, workerID string, quality vo.Quality,
	fallbackDuration float64, onProgress func(vo.JobProgress)) (vo.Artifact, error) {

	c.mu.Lock()
	block := c.blockAwait
	aerr := c.awaitErr[quality]
	apanic := c.awaitPanic
	artifact, ok := c.results[quality]
	c.mu.Unlock()

	if apanic != "" {
		panic(apanic)
	}
	if block != nil {
		select {
		case <-ctx.Done():
			return vo.Artifact{}, errno.ErrCancelled
		case <-block:
		}
	}
	if ctx.Err() != nil {
		return vo.Artifact{}, errno.ErrCancelled
	}
	if aerr != nil {
		return vo.Artifact{}, aerr
	}
	if !ok {
		artifact = vo.Artifact{URL: "https://cdn.example.com/" + quality.String() + ".mp4", QualityLabel: quality.String()}
	}
	return artifact, nil
}

func (c *fakeJobClient) QueryExistingResult(ctx context.Context, requestID, workerID string, quality vo.Quality,
	fallbackDuration float64) (*vo.Artifact, error) {

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookupCalls++
	return c.existing[requestID], nil
}

func (c *fakeJobClient) submitCalls() []submitCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]submitCall, len(c.submits))
	copy(out, c.submits)
	return out
}

// fakeMirror 可配置失败的镜像网关
type fakeMirror struct {
	mu     sync.Mutex
	err    error
	prefix string
	calls  int
}

func (m *fakeMirror) Mirror(ctx context.Context, artifactURL, sha256Hex string, sizeBytes int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.prefix + artifactURL, nil
}

// fakeReporter 记录上报调用
type fakeReporter struct {
	mu        sync.Mutex
	artifacts []vo.Artifact
	terminals []string
}

func (r *fakeReporter) ReportArtifact(ctx context.Context, task *entity.TaskEntity, artifact vo.Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts = append(r.artifacts, artifact)
	return nil
}

func (r *fakeReporter) ReportTerminal(ctx context.Context, task *entity.TaskEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminals = append(r.terminals, task.Status().String())
	return nil
}
