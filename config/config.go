// Package config reads the settings of encoder and decoder sessions from a
// config file and LTC_ prefixed environment variables.
//
// Example config.yaml:
//
//	encoder:
//	  samplerate: 48000
//	  fps: 25
//	  volume: -3
//	  rise-time: 40us
//	decoder:
//	  samplerate: 48000
//	  fps: 29.97df
//	  sync-tolerance: 1
//	log:
//	  level: debug
//
// The environment variable LTC_DECODER_SYNC_TOLERANCE overrides
// decoder.sync-tolerance.
package config

import (
	"fmt"
	"strings"

	"github.com/dh1tw/goltc/decoder"
	"github.com/dh1tw/goltc/encoder"
	"github.com/dh1tw/goltc/timecode"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys.
const EnvPrefix = "LTC"

// Config holds the settings of an application using the codec.
type Config struct {
	v *viper.Viper
}

// New returns a Config with the default values, overridden by environment
// variables.
func New() *Config {
	v := viper.New()

	v.SetDefault("encoder.samplerate", encoder.DefaultSampleRate)
	v.SetDefault("encoder.fps", encoder.DefaultFrameRate.String())
	v.SetDefault("encoder.volume", encoder.DefaultVolume)
	v.SetDefault("encoder.rise-time", encoder.DefaultRiseTime)

	v.SetDefault("decoder.samplerate", decoder.DefaultSampleRate)
	v.SetDefault("decoder.fps", decoder.DefaultFrameRate.String())
	v.SetDefault("decoder.reference-level", decoder.DefaultReferenceLevel)
	v.SetDefault("decoder.tolerance", decoder.DefaultTolerance)
	v.SetDefault("decoder.sync-tolerance", decoder.DefaultSyncTolerance)
	v.SetDefault("decoder.silence-timeout", decoder.DefaultSilenceTimeout)
	v.SetDefault("decoder.seed-pulses", decoder.DefaultSeedPulses)
	v.SetDefault("decoder.event-queue", decoder.DefaultEventQueueSize)

	v.SetDefault("log.level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// Load reads the config file at path. The format is derived from the file
// extension (yaml, toml, json, ...). An empty path only applies defaults
// and environment variables.
func Load(path string) (*Config, error) {
	c := New()
	if path == "" {
		return c, nil
	}
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config file %v: %w", path, err)
	}
	log.Debug().Str("file", c.v.ConfigFileUsed()).Msg("using config file")
	return c, nil
}

// Viper returns the underlying viper instance, e.g. for binding command
// line flags.
func (c *Config) Viper() *viper.Viper {
	return c.v
}

// Set overrides the value of a key.
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// InitLogger sets the global log level. Valid levels are trace, debug,
// info, warn, error and disabled.
func InitLogger(level string) error {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return &parmError{
			parm: "log.level",
			msg:  "allowed values are trace, debug, info, warn, error, disabled",
		}
	}
	zerolog.SetGlobalLevel(l)
	log.Debug().Str("level", l.String()).Msg("logger initialized")
	return nil
}

// InitLogger applies the configured log level.
func (c *Config) InitLogger() error {
	return InitLogger(c.v.GetString("log.level"))
}

// EncoderOptions returns the encoder settings as functional options.
func (c *Config) EncoderOptions() ([]encoder.Option, error) {
	rate, err := timecode.ParseFrameRate(c.v.GetString("encoder.fps"))
	if err != nil {
		return nil, &parmError{parm: "encoder.fps", msg: fpsValues}
	}
	return []encoder.Option{
		encoder.SampleRate(c.v.GetFloat64("encoder.samplerate")),
		encoder.FrameRate(rate),
		encoder.Volume(float32(c.v.GetFloat64("encoder.volume"))),
		encoder.RiseTime(c.v.GetDuration("encoder.rise-time")),
	}, nil
}

// DecoderOptions returns the decoder settings as functional options.
func (c *Config) DecoderOptions() ([]decoder.Option, error) {
	rate, err := timecode.ParseFrameRate(c.v.GetString("decoder.fps"))
	if err != nil {
		return nil, &parmError{parm: "decoder.fps", msg: fpsValues}
	}
	return []decoder.Option{
		decoder.SampleRate(c.v.GetFloat64("decoder.samplerate")),
		decoder.FrameRate(rate),
		decoder.ReferenceLevel(float32(c.v.GetFloat64("decoder.reference-level"))),
		decoder.Tolerance(c.v.GetFloat64("decoder.tolerance")),
		decoder.SyncTolerance(c.v.GetInt("decoder.sync-tolerance")),
		decoder.SilenceTimeout(c.v.GetDuration("decoder.silence-timeout")),
		decoder.SeedPulses(c.v.GetInt("decoder.seed-pulses")),
		decoder.EventQueueSize(c.v.GetInt("decoder.event-queue")),
	}, nil
}
