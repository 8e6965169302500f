package resource

import (
	"sync"

	"transcode-orchestrator/pkg/assert"
	"transcode-orchestrator/pkg/config"
	"transcode-orchestrator/pkg/kafka"
	"transcode-orchestrator/pkg/logger"
	"transcode-orchestrator/pkg/manager"
)

var (
	kafkaResourceOnce sync.Once
	kafkaSingleton    *KafkaResource
)

// KafkaResource manages the shared Kafka producer used for result notifications.
type KafkaResource struct {
	client *kafka.Client
}

// DefaultKafkaResource returns the global Kafka resource instance.
func DefaultKafkaResource() *KafkaResource {
	assert.NotCircular()
	kafkaResourceOnce.Do(func() {
		kafkaSingleton = &KafkaResource{}
	})
	assert.NotNil(kafkaSingleton)
	return kafkaSingleton
}

// MustOpen opens the Kafka producer when notifications are enabled.
func (r *KafkaResource) MustOpen() {
	if r.client != nil {
		return
	}
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized")
	}
	if !cfg.Kafka.Enabled {
		logger.Debugf("Kafka resource skipped, notifications disabled")
		return
	}
	client := kafka.DefaultClient()
	client.MustOpen()
	r.client = client
}

// Close flushes and closes all topic writers.
func (r *KafkaResource) Close() {
	if r.client != nil {
		r.client.Close()
	}
}

// Client exposes the producer; nil when notifications are disabled.
func (r *KafkaResource) Client() *kafka.Client {
	return r.client
}

// KafkaResourcePlugin wires the resource into the manager.
type KafkaResourcePlugin struct{}

// Name identifies the plugin slot.
func (p *KafkaResourcePlugin) Name() string {
	return "kafka"
}

// MustCreateResource returns the singleton Kafka resource for registration.
func (p *KafkaResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultKafkaResource()
}
