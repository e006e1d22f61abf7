package client

import (
	"net"
	"net/http"
	"time"

	"auth-failover/pkg/config"
)

// Settings tune retries and the pooled HTTP transport
type Settings struct {
	DeviceID            string
	MaxAttempts         int
	BaseBackoff         time.Duration
	RequestTimeout      time.Duration
	ConnectTimeout      time.Duration
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	KeepAlive           time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		MaxAttempts:         3,
		BaseBackoff:         100 * time.Millisecond,
		RequestTimeout:      10 * time.Second,
		ConnectTimeout:      5 * time.Second,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		KeepAlive:           60 * time.Second,
	}
}

// SettingsFromConfig overlays the configured client tunables on the defaults
func SettingsFromConfig(cfg config.ClientConfig) Settings {
	s := DefaultSettings()
	s.DeviceID = cfg.DeviceID
	if cfg.MaxAttempts > 0 {
		s.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseBackoff > 0 {
		s.BaseBackoff = cfg.BaseBackoff
	}
	if cfg.RequestTimeout > 0 {
		s.RequestTimeout = cfg.RequestTimeout
	}
	if cfg.ConnectTimeout > 0 {
		s.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.MaxIdleConnsPerHost > 0 {
		s.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout > 0 {
		s.IdleConnTimeout = cfg.IdleConnTimeout
	}
	if cfg.KeepAlive > 0 {
		s.KeepAlive = cfg.KeepAlive
	}
	return s
}

// NewHTTPClient builds the pooled client shared by every request of a Client.
// It is safe for concurrent use.
func NewHTTPClient(s Settings) *http.Client {
	dialer := &net.Dialer{
		Timeout:   s.ConnectTimeout,
		KeepAlive: s.KeepAlive,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   s.MaxIdleConnsPerHost,
		IdleConnTimeout:       s.IdleConnTimeout,
		TLSHandshakeTimeout:   s.ConnectTimeout,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   s.RequestTimeout,
	}
}
