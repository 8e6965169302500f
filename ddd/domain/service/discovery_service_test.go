package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcode-orchestrator/pkg/errno"
)

func TestWorkerDirectory_FindWorker(t *testing.T) {
	gw := &fakeRelayGateway{subscribeCh: make(chan *nostr.Event, 4)}
	gw.subscribeCh <- &nostr.Event{
		Kind:    KindHandlerInfo,
		PubKey:  "worker-pub",
		Content: `{"name":"ffmpegd"}`,
	}

	dir := NewWorkerDirectory(gw, []string{"wss://relay"}, time.Second)
	profile, err := dir.FindWorker(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "worker-pub", profile.WorkerID)
	assert.Equal(t, "ffmpegd", profile.Name)
}

func TestWorkerDirectory_SkipsForeignKinds(t *testing.T) {
	gw := &fakeRelayGateway{subscribeCh: make(chan *nostr.Event, 4)}
	gw.subscribeCh <- &nostr.Event{Kind: KindJobFeedback, PubKey: "noise"}
	gw.subscribeCh <- &nostr.Event{Kind: KindHandlerInfo, PubKey: "worker-pub"}

	dir := NewWorkerDirectory(gw, []string{"wss://relay"}, time.Second)
	profile, err := dir.FindWorker(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "worker-pub", profile.WorkerID)
}

func TestWorkerDirectory_Timeout(t *testing.T) {
	gw := &fakeRelayGateway{subscribeCh: make(chan *nostr.Event)}

	dir := NewWorkerDirectory(gw, []string{"wss://relay"}, 30*time.Millisecond)
	_, err := dir.FindWorker(context.Background())

	assert.True(t, errors.Is(err, errno.ErrDiscoveryTimeout))
	assert.True(t, errno.IsRetryable(err))
}

func TestWorkerDirectory_SubscribeFailure(t *testing.T) {
	gw := &fakeRelayGateway{subscribeErr: errors.New("no relay reachable")}

	dir := NewWorkerDirectory(gw, []string{"wss://relay"}, time.Second)
	_, err := dir.FindWorker(context.Background())

	assert.True(t, errors.Is(err, errno.ErrNoWorkerFound))
}

func TestWorkerDirectory_ChannelClosed(t *testing.T) {
	ch := make(chan *nostr.Event)
	close(ch)
	gw := &fakeRelayGateway{subscribeCh: ch}

	dir := NewWorkerDirectory(gw, []string{"wss://relay"}, time.Second)
	_, err := dir.FindWorker(context.Background())

	assert.True(t, errors.Is(err, errno.ErrNoWorkerFound))
}
