// If you are AI: This file validates configuration values and returns descriptive errors.

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Segmenter kinds
const (
	SegmenterFFmpeg  = "ffmpeg"
	SegmenterRecord  = "record"
	SegmenterDiscard = "discard"
)

// Validate checks that all configuration values are within acceptable ranges.
// Returns an error describing the first validation failure found.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest config: %w", err)
	}
	if err := c.Segmenter.Validate(); err != nil {
		return fmt.Errorf("segmenter config: %w", err)
	}
	for i := range c.Relays {
		if err := c.Relays[i].Validate(); err != nil {
			return fmt.Errorf("relay %d: %w", i, err)
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log config: unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log config: unknown format %q", c.Log.Format)
	}
	return nil
}

// Validate checks server configuration values.
func (s *ServerConfig) Validate() error {
	if s.HealthPort <= 0 || s.HealthPort > 65535 {
		return fmt.Errorf("health_port must be between 1 and 65535, got %d", s.HealthPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535, got %d", s.HTTPPort)
	}
	if s.RTMPPort <= 0 || s.RTMPPort > 65535 {
		return fmt.Errorf("rtmp_port must be between 1 and 65535, got %d", s.RTMPPort)
	}
	if s.HealthPort == s.HTTPPort {
		return fmt.Errorf("health_port and http_port must be different, both are %d", s.HealthPort)
	}
	if s.HealthPort == s.RTMPPort {
		return fmt.Errorf("health_port and rtmp_port must be different, both are %d", s.HealthPort)
	}
	if s.HTTPPort == s.RTMPPort {
		return fmt.Errorf("http_port and rtmp_port must be different, both are %d", s.HTTPPort)
	}
	return nil
}

// Validate checks ingest limits.
func (i *IngestConfig) Validate() error {
	if i.MaxStreams < 0 {
		return fmt.Errorf("max_streams must not be negative, got %d", i.MaxStreams)
	}
	if i.ChunkSize < 128 || i.ChunkSize > 0x7FFFFFFF {
		return fmt.Errorf("chunk_size must be between 128 and 2147483647, got %d", i.ChunkSize)
	}
	if i.MaxMessageSize < 1024 {
		return fmt.Errorf("max_message_size must be at least 1024, got %d", i.MaxMessageSize)
	}
	if i.MaxPendingMessages <= 0 {
		return fmt.Errorf("max_pending_messages must be positive, got %d", i.MaxPendingMessages)
	}
	if i.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout must not be negative, got %s", i.ReadTimeout)
	}
	for _, app := range i.AllowedApps {
		if app == "" {
			return fmt.Errorf("allowed_apps must not contain empty names")
		}
	}
	return nil
}

// Validate checks segmenter settings.
func (s *SegmenterConfig) Validate() error {
	switch s.Kind {
	case SegmenterFFmpeg, SegmenterRecord, SegmenterDiscard:
	default:
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
	if s.SegmentDuration <= 0 {
		return fmt.Errorf("segment_duration must be positive, got %d", s.SegmentDuration)
	}
	if s.PlaylistSize <= 0 {
		return fmt.Errorf("playlist_size must be positive, got %d", s.PlaylistSize)
	}
	return nil
}

// Validate checks a relay entry.
func (r *RelayConfig) Validate() error {
	if r.App == "" || r.Name == "" {
		return fmt.Errorf("app and name are required")
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "rtmp" || u.Host == "" || strings.Count(strings.Trim(u.Path, "/"), "/") < 1 {
		return fmt.Errorf("url must look like rtmp://host/app/name, got %q", r.URL)
	}
	if r.RetryInterval < 0 {
		return fmt.Errorf("retry_interval must not be negative, got %s", r.RetryInterval)
	}
	return nil
}
