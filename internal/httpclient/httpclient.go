// Package httpclient builds the outbound *http.Client shared by every
// network-backed provider adapter: configurable timeout, optional proxy, and
// transparent response decompression.
package httpclient

import (
	"net/http"
	"net/url"
	"time"

	"github.com/daniel-lxs/bettersubs/internal/config"
)

// DefaultTimeout bounds every provider call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// New creates the shared outbound HTTP client from configuration.
func New(cfg *config.Config) *http.Client {
	timeout := DefaultTimeout
	if cfg.ClientTimeout != "" {
		if parsed, err := time.ParseDuration(cfg.ClientTimeout); err != nil {
			logger := config.GetLogger()
			logger.Warn().Err(err).Str("timeout", cfg.ClientTimeout).Msg("Invalid timeout duration, using default 30s")
		} else {
			timeout = parsed
		}
	}

	// Clone DefaultTransport to keep its connection pooling and HTTP/2
	// settings.
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.ProxyConnectionString != "" {
		proxyURL, err := url.Parse(cfg.ProxyConnectionString)
		if err != nil {
			logger := config.GetLogger()
			logger.Warn().Err(err).Str("proxy", cfg.ProxyConnectionString).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			baseTransport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: NewDecompressionTransport(baseTransport),
	}
}
