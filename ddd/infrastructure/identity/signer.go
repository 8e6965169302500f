package identity

import (
	"fmt"
	"os"
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"transcode-orchestrator/ddd/domain/gateway"
	"transcode-orchestrator/pkg/config"
	"transcode-orchestrator/pkg/logger"
)

// localSigner 本地私钥签名器
type localSigner struct {
	secretKey string
	publicKey string
}

// NewLocalSigner 从配置加载签名身份。
// 未配置密钥时生成临时身份，重启后身份会变化。
func NewLocalSigner(cfg config.IdentityConfig) (gateway.Signer, error) {
	sk := strings.TrimSpace(cfg.SecretKey)
	if sk == "" && cfg.SecretKeyFile != "" {
		data, err := os.ReadFile(cfg.SecretKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read secret key file: %w", err)
		}
		sk = strings.TrimSpace(string(data))
	}
	if sk == "" {
		sk = nostr.GeneratePrivateKey()
		logger.Warnf("No signing key configured, generated ephemeral identity")
	}

	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	return &localSigner{secretKey: sk, publicKey: pk}, nil
}

func (s *localSigner) PublicKey() string {
	return s.publicKey
}

func (s *localSigner) Sign(event *nostr.Event) error {
	return event.Sign(s.secretKey)
}
