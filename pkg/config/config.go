package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Store        StoreConfig        `mapstructure:"store"`
	Relay        RelayConfig        `mapstructure:"relay"`
	Identity     IdentityConfig     `mapstructure:"identity"`
	Mirror       MirrorConfig       `mapstructure:"mirror"`
	Minio        MinioConfig        `mapstructure:"minio"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
}

// StoreConfig 任务存储配置，backend支持file和redis两种
type StoreConfig struct {
	Backend  string `mapstructure:"backend"`
	FilePath string `mapstructure:"file_path"`
	RedisKey string `mapstructure:"redis_key"`
}

// RelayConfig 消息总线(relay)配置
type RelayConfig struct {
	ReadRelays       []string      `mapstructure:"read_relays"`
	WriteRelays      []string      `mapstructure:"write_relays"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	DiscoveryTimeout time.Duration `mapstructure:"discovery_timeout"`
	ResultTimeout    time.Duration `mapstructure:"result_timeout"`
	LookupTimeout    time.Duration `mapstructure:"lookup_timeout"`
}

// IdentityConfig 签名身份配置
type IdentityConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	SecretKeyFile string `mapstructure:"secret_key_file"`
}

// MirrorConfig 成品镜像配置，mode支持blossom和minio
type MirrorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Mode     string        `mapstructure:"mode"`
	Servers  []string      `mapstructure:"servers"`
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxBytes int64         `mapstructure:"max_bytes"`
}

// MinioConfig MinIO配置
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKey       string `mapstructure:"access_key"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	PublicBase      string `mapstructure:"public_base"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Enabled          bool              `mapstructure:"enabled"`
	BootstrapServers []string          `mapstructure:"bootstrap_servers"`
	ClientID         string            `mapstructure:"client_id"`
	Topics           KafkaTopicsConfig `mapstructure:"topics"`
}

type KafkaTopicsConfig struct {
	ArtifactEvents string `mapstructure:"artifact_events"`
	TaskEvents     string `mapstructure:"task_events"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	ExpireTime time.Duration `mapstructure:"expire_time"`
}

// OrchestratorConfig 编排器配置
type OrchestratorConfig struct {
	ResumeOnStart   bool          `mapstructure:"resume_on_start"`
	ResumeExpiry    time.Duration `mapstructure:"resume_expiry"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	CompletedMaxAge time.Duration `mapstructure:"completed_max_age"`
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("store.backend", "file")
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.client_id", "transcode-orchestrator")
	viper.SetDefault("kafka.bootstrap_servers", []string{"localhost:29092"})
	viper.SetDefault("kafka.topics.artifact_events", "transcode.artifacts")
	viper.SetDefault("kafka.topics.task_events", "transcode.tasks")
	viper.SetDefault("orchestrator.resume_on_start", true)

	// 设置环境变量前缀
	viper.SetEnvPrefix("TRANSCODE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	// 解析配置
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.normalize()

	return &config, nil
}

// normalize 补全配置的默认值
func (c *Config) normalize() {
	if c.Server.Port == 0 {
		c.Server.Port = 8084
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}

	// 兼容不同的密钥字段
	if c.Minio.AccessKeyID == "" {
		c.Minio.AccessKeyID = c.Minio.AccessKey
	}
	if c.Minio.SecretAccessKey == "" {
		c.Minio.SecretAccessKey = c.Minio.SecretKey
	}

	// 存储默认值
	if c.Store.Backend == "" {
		c.Store.Backend = "file"
	}
	if c.Store.FilePath == "" {
		c.Store.FilePath = "data/tasks.json"
	}
	if c.Store.RedisKey == "" {
		c.Store.RedisKey = "transcode:tasks"
	}

	// Relay默认值
	if len(c.Relay.ReadRelays) == 0 {
		c.Relay.ReadRelays = c.Relay.WriteRelays
	}
	if len(c.Relay.WriteRelays) == 0 {
		c.Relay.WriteRelays = c.Relay.ReadRelays
	}
	if c.Relay.ConnectTimeout <= 0 {
		c.Relay.ConnectTimeout = 10 * time.Second
	}
	if c.Relay.DiscoveryTimeout <= 0 {
		c.Relay.DiscoveryTimeout = 10 * time.Second
	}
	if c.Relay.ResultTimeout <= 0 {
		c.Relay.ResultTimeout = 10 * time.Minute
	}
	if c.Relay.LookupTimeout <= 0 {
		c.Relay.LookupTimeout = 5 * time.Second
	}

	// 镜像默认值
	if c.Mirror.Mode == "" {
		c.Mirror.Mode = "blossom"
	}
	if c.Mirror.Timeout <= 0 {
		c.Mirror.Timeout = 2 * time.Minute
	}

	// 编排器默认值
	if c.Orchestrator.ResumeExpiry <= 0 {
		c.Orchestrator.ResumeExpiry = 12 * time.Hour
	}
	if c.Orchestrator.SweepInterval <= 0 {
		c.Orchestrator.SweepInterval = time.Hour
	}
	if c.Orchestrator.CompletedMaxAge <= 0 {
		c.Orchestrator.CompletedMaxAge = 7 * 24 * time.Hour
	}

	if len(c.Kafka.BootstrapServers) == 0 {
		c.Kafka.BootstrapServers = []string{"localhost:29092"}
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "transcode-orchestrator"
	}
}

// GetRedisAddr 获取Redis地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetMinioEndpoint 获取MinIO端点
func (c *MinioConfig) GetMinioEndpoint() string {
	return c.Endpoint
}

var globalConfig *Config

// SetGlobalConfig 设置全局配置
func SetGlobalConfig(cfg *Config) {
	globalConfig = cfg
}

// GetGlobalConfig 获取全局配置
func GetGlobalConfig() *Config {
	return globalConfig
}
