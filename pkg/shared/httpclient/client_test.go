package httpclient

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/vulminator-io/vulminator/pkg/shared/config"
)

func TestApplyHTTPClientConfig(t *testing.T) {
	verify := false
	tests := []struct {
		name   string
		input  *config.HTTPClient
		assert func(t *testing.T, got config.RestyHTTPClientConfig)
	}{
		{
			name:  "nil uses defaults",
			input: nil,
			assert: func(t *testing.T, got config.RestyHTTPClientConfig) {
				assert.Equal(t, config.DefaultRestyConfig().RetryCount, got.RetryCount)
				assert.Equal(t, 30*time.Second, got.Timeout)
				assert.Empty(t, got.Proxy)
			},
		},
		{
			name: "explicit values",
			input: &config.HTTPClient{
				RetryCount:      5,
				Timeout:         10 * time.Second,
				TLSClientConfig: config.TLSClientConfig{Verify: &verify},
				Proxy:           config.Proxy{Host: "http://proxy.local", Port: 3128},
			},
			assert: func(t *testing.T, got config.RestyHTTPClientConfig) {
				assert.Equal(t, 5, got.RetryCount)
				assert.Equal(t, 10*time.Second, got.Timeout)
				assert.True(t, got.TLSClientConfig.InsecureSkipVerify)
				assert.Equal(t, "http://proxy.local:3128", got.Proxy)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assert(t, applyHTTPClientConfig(tt.input))
		})
	}
}

func TestStandardClientTimeout(t *testing.T) {
	cfg := &config.Config{HTTPClient: config.HTTPClient{Timeout: 7 * time.Second}}

	client := StandardClient(hclog.NewNullLogger(), cfg)

	assert.Equal(t, 7*time.Second, client.Timeout)
}
