// If you are AI: This file defines the configuration structure for streamx.
// It uses strict YAML decoding and explicit defaults.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete server configuration.
// All fields must have explicit defaults or be required.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Notify    NotifyConfig    `yaml:"notify"`
	Log       LogConfig       `yaml:"log"`
	Relays    []RelayConfig   `yaml:"relays,omitempty"`
}

// ServerConfig defines listener ports.
type ServerConfig struct {
	HealthPort int `yaml:"health_port"` // Port for the health endpoint
	HTTPPort   int `yaml:"http_port"`   // Port for the API and HLS output
	RTMPPort   int `yaml:"rtmp_port"`   // Port for RTMP ingest
}

// IngestConfig defines RTMP session limits and negotiated values.
type IngestConfig struct {
	MaxStreams         int           `yaml:"max_streams"`          // Concurrent publishing streams (0 = unlimited)
	ChunkSize          uint32        `yaml:"chunk_size"`           // Outgoing chunk size announced after connect
	WindowAckSize      uint32        `yaml:"window_ack_size"`      // Window acknowledgement size sent to clients
	PeerBandwidth      uint32        `yaml:"peer_bandwidth"`       // Set Peer Bandwidth value
	MaxMessageSize     uint32        `yaml:"max_message_size"`     // Largest accepted message
	MaxPendingMessages int           `yaml:"max_pending_messages"` // Egress queue depth per publisher
	PlayerBuffer       uint32        `yaml:"player_buffer"`        // Ring buffer slots per player
	ReadTimeout        time.Duration `yaml:"read_timeout"`         // Idle read deadline
	AllowedApps        []string      `yaml:"allowed_apps,omitempty"`
}

// SegmenterConfig selects where published media is handed off.
type SegmenterConfig struct {
	Kind            string        `yaml:"kind"` // "ffmpeg", "record" or "discard"
	FFmpegPath      string        `yaml:"ffmpeg_path"`
	StreamsDir      string        `yaml:"streams_dir"`
	SegmentDuration int           `yaml:"segment_duration"` // HLS target duration in seconds
	PlaylistSize    int           `yaml:"playlist_size"`    // Segments kept in the playlist
	CloseTimeout    time.Duration `yaml:"close_timeout"`    // Drain limit when a stream ends
}

// NotifyConfig configures stream lifecycle notifications.
type NotifyConfig struct {
	RedisURL string `yaml:"redis_url,omitempty"` // Empty disables notifications
	Channel  string `yaml:"channel"`
}

// RelayConfig pushes a local stream to a remote RTMP server while it is live.
type RelayConfig struct {
	App           string        `yaml:"app"`
	Name          string        `yaml:"name"`
	URL           string        `yaml:"url"`            // rtmp://host[:port]/app/name
	RetryInterval time.Duration `yaml:"retry_interval"` // Wait between attempts
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// Load reads configuration from a YAML file.
// Returns an error if the file cannot be read or decoded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields

	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

// setDefaults applies explicit default values to unset fields.
func (c *Config) setDefaults() {
	if c.Server.HealthPort == 0 {
		c.Server.HealthPort = 8080
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8081
	}
	if c.Server.RTMPPort == 0 {
		c.Server.RTMPPort = 1935
	}

	in := &c.Ingest
	if in.ChunkSize == 0 {
		in.ChunkSize = 4096
	}
	if in.WindowAckSize == 0 {
		in.WindowAckSize = 5000000
	}
	if in.PeerBandwidth == 0 {
		in.PeerBandwidth = 5000000
	}
	if in.MaxMessageSize == 0 {
		in.MaxMessageSize = 8 * 1024 * 1024
	}
	if in.MaxPendingMessages == 0 {
		in.MaxPendingMessages = 1024
	}
	if in.PlayerBuffer == 0 {
		in.PlayerBuffer = 512
	}
	if in.ReadTimeout == 0 {
		in.ReadTimeout = 30 * time.Second
	}

	seg := &c.Segmenter
	if seg.Kind == "" {
		seg.Kind = SegmenterFFmpeg
	}
	if seg.FFmpegPath == "" {
		seg.FFmpegPath = "ffmpeg"
	}
	if seg.StreamsDir == "" {
		seg.StreamsDir = "./streams"
	}
	if seg.SegmentDuration == 0 {
		seg.SegmentDuration = 2
	}
	if seg.PlaylistSize == 0 {
		seg.PlaylistSize = 5
	}
	if seg.CloseTimeout == 0 {
		seg.CloseTimeout = 5 * time.Second
	}

	if c.Notify.Channel == "" {
		c.Notify.Channel = "streamx:events"
	}
	for i := range c.Relays {
		if c.Relays[i].RetryInterval == 0 {
			c.Relays[i].RetryInterval = 5 * time.Second
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// AppAllowed reports whether app may connect.
// An empty allow list admits every application.
func (c *IngestConfig) AppAllowed(app string) bool {
	if len(c.AllowedApps) == 0 {
		return true
	}
	for _, a := range c.AllowedApps {
		if a == app {
			return true
		}
	}
	return false
}
