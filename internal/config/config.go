// Package config binds the OCTOWATCH_* environment variables to a single
// struct via envconfig, applying the documented defaults and fallbacks.
package config

import (
	"strconv"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Config is the full set of environment-derived settings octowatchd reads
// at startup.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	JPEGQualityRaw string `envconfig:"JPEG_QUALITY" default:"95"`
	JPEGEncoder    string `envconfig:"JPEG_ENCODER" default:""`

	H264Port    int `envconfig:"H264_PORT" default:"8888"`
	MJPEGPort   int `envconfig:"MJPEG_PORT" default:"8887"`
	ControlPort int `envconfig:"CONTROL_PORT" default:"8889"`

	H264Device string `envconfig:"H264_DEVICE" default:"/dev/video11"`
	JPEGDevice string `envconfig:"JPEG_DEVICE" default:"/dev/video31"`
}

// DefaultJPEGQuality is used whenever OCTOWATCH_JPEG_QUALITY is absent,
// unparsable, or out of [0, 100].
const DefaultJPEGQuality = 95

// Load reads the OCTOWATCH_* environment into a Config. Per-field
// validation (e.g. JPEGQuality's range check) happens lazily via the
// accessor methods below, so one malformed value never prevents startup.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("octowatch", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// JPEGQuality parses JPEGQualityRaw, falling back to DefaultJPEGQuality and
// logging a warning if it is missing, unparsable, or outside [0, 100].
func (c Config) JPEGQuality(log zerolog.Logger) int {
	q, err := strconv.Atoi(c.JPEGQualityRaw)
	if err != nil || q < 0 || q > 100 {
		log.Warn().Str("value", c.JPEGQualityRaw).Msg("invalid OCTOWATCH_JPEG_QUALITY, defaulting to 95")
		return DefaultJPEGQuality
	}
	return q
}

// UseCPUJPEGEncoder reports whether OCTOWATCH_JPEG_ENCODER selects the
// software fallback.
func (c Config) UseCPUJPEGEncoder() bool {
	return c.JPEGEncoder == "CPU"
}
