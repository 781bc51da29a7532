package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		HTTP:  HTTPConfig{Host: "localhost", Port: DefaultHTTPPort},
		Node:  NodeConfig{RPCURL: DefaultNodeURL},
		Token: TokenConfig{Fixed: DefaultTokenFixed},
		Log:   LogConfig{Level: "info"},
	}
}

func TestHTTPConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  HTTPConfig
		wantErr bool
	}{
		{"valid config", HTTPConfig{Host: "localhost", Port: 8080}, false},
		{"empty host", HTTPConfig{Port: 8080}, true},
		{"port too low", HTTPConfig{Host: "localhost", Port: 0}, true},
		{"port too high", HTTPConfig{Host: "localhost", Port: MaxPort + 1}, true},
		{"negative rate limit", HTTPConfig{Host: "localhost", Port: 8080, RateLimit: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "error = %v", err)
		})
	}
}

func TestHTTPConfig_Defaults(t *testing.T) {
	c := HTTPConfig{Host: "0.0.0.0", Port: 9100, RateLimit: 5}
	require.NoError(t, c.Validate())
	assert.Equal(t, DefaultMaxRequestSizeMB, c.MaxRequestSizeMB)
	assert.Equal(t, DefaultRateBurst, c.RateBurst)
	assert.Equal(t, "0.0.0.0:9100", c.Addr())
}

func TestNodeConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"http", "http://localhost:8545", false},
		{"https with key", "https://rinkeby.infura.io/v3/abc", false},
		{"websocket", "wss://bsc-ws-node.nariox.org:443", false},
		{"ipc path", "/tmp/geth.ipc", false},
		{"empty", "", true},
		{"bad scheme", "ftp://localhost", true},
		{"missing host", "http://", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NodeConfig{RPCURL: tt.url}
			err := c.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "error = %v", err)
		})
	}

	c := NodeConfig{RPCURL: DefaultNodeURL}
	require.NoError(t, c.Validate())
	assert.Equal(t, DefaultNodeTimeout, c.Timeout)

	c = NodeConfig{RPCURL: DefaultNodeURL, Timeout: 5 * time.Second}
	require.NoError(t, c.Validate())
	assert.Equal(t, 5*time.Second, c.Timeout)
}

func TestWalletConfig(t *testing.T) {
	node := NodeConfig{RPCURL: DefaultNodeURL}

	empty := WalletConfig{}
	assert.NoError(t, empty.Validate())
	assert.Equal(t, DefaultNodeURL, empty.Endpoint(node))

	remote := WalletConfig{RPCURL: "http://signer:9000"}
	assert.NoError(t, remote.Validate())
	assert.Equal(t, "http://signer:9000", remote.Endpoint(node))

	bad := WalletConfig{RPCURL: "signer:9000"}
	assert.Error(t, bad.Validate())
}

func TestTokenConfig_Validate(t *testing.T) {
	assert.NoError(t, (&TokenConfig{Fixed: 0}).Validate())
	assert.NoError(t, (&TokenConfig{Fixed: 4}).Validate())
	assert.Error(t, (&TokenConfig{Fixed: -1}).Validate())
	assert.Error(t, (&TokenConfig{Fixed: MaxTokenFixed + 1}).Validate())
}

func TestAuthConfig_Validate(t *testing.T) {
	assert.NoError(t, (&AuthConfig{}).Validate())
	assert.Error(t, (&AuthConfig{Enabled: true}).Validate())
	assert.NoError(t, (&AuthConfig{Enabled: true, Secret: "s3cret"}).Validate())
}

func TestLogConfig_Validate(t *testing.T) {
	c := LogConfig{}
	require.NoError(t, c.Validate())
	assert.Equal(t, DefaultLogLevel, c.Level)
	assert.Equal(t, DefaultLogFormat, c.Format)

	assert.NoError(t, (&LogConfig{Level: "DEBUG", Format: "JSON"}).Validate())
	assert.Error(t, (&LogConfig{Level: "verbose"}).Validate())
	assert.Error(t, (&LogConfig{Level: "info", Format: "xml"}).Validate())
}

func TestConfig_Validate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Node.RPCURL = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Auth.Enabled = true
	assert.Error(t, cfg.Validate())
}

func TestConfig_StringRedactsSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Node.RPCURL = "https://kovan.infura.io/v3/0123456789abcdef"
	cfg.Auth = AuthConfig{Enabled: true, Secret: "top-secret"}
	require.NoError(t, cfg.Validate())

	s := cfg.String()
	assert.NotContains(t, s, "0123456789abcdef")
	assert.NotContains(t, s, "top-secret")
	assert.Contains(t, s, "kovan.infura.io")
	assert.Contains(t, s, "REDACTED")
}
