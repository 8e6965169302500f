package persistence

import (
	"context"
	"os"
	"path/filepath"

	"transcode-orchestrator/pkg/redisclient"
)

// Backend 任务列表的底层存储：整块读、整块写
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// FileBackend 单文件JSON存储
type FileBackend struct {
	path string
}

// NewFileBackend 创建文件存储，确保父目录存在
func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &FileBackend{path: path}, nil
}

func (b *FileBackend) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// Save 先写临时文件再改名，避免崩溃时留下半截文件
func (b *FileBackend) Save(_ context.Context, data []byte) error {
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}

// RedisBackend 把整个任务列表放在一个Redis key下
type RedisBackend struct {
	client *redisclient.Client
	key    string
}

// NewRedisBackend 创建Redis存储
func NewRedisBackend(client *redisclient.Client, key string) *RedisBackend {
	return &RedisBackend{client: client, key: key}
}

func (b *RedisBackend) Load(ctx context.Context) ([]byte, error) {
	return b.client.GetBytes(ctx, b.key)
}

func (b *RedisBackend) Save(ctx context.Context, data []byte) error {
	return b.client.SetBytes(ctx, b.key, data)
}
