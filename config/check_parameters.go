package config

import (
	"errors"
	"fmt"

	"github.com/dh1tw/goltc/ltcframe"
	"github.com/dh1tw/goltc/timecode"
	"github.com/rs/zerolog"
)

const fpsValues = "allowed values are 24, 25, 29.97df, 29.97, 30"

// CheckParameters validates the configured values. The returned error names
// the first offending key.
func (c *Config) CheckParameters() error {
	for _, prefix := range []string{"encoder", "decoder"} {
		rate, err := timecode.ParseFrameRate(c.v.GetString(prefix + ".fps"))
		if err != nil {
			return &parmError{parm: prefix + ".fps", msg: fpsValues}
		}
		lowest := rate.FPS() * ltcframe.Bits * ltcframe.MinSamplesPerBit
		if sr := c.v.GetFloat64(prefix + ".samplerate"); sr < lowest {
			return &parmError{
				parm: prefix + ".samplerate",
				msg:  fmt.Sprintf("must be >= %.0f Hz at %v fps", lowest, rate),
			}
		}
	}

	if v := c.v.GetFloat64("encoder.volume"); v > 0 {
		return &parmError{parm: "encoder.volume", msg: "value must be <= 0 dBFS"}
	}

	if c.v.GetDuration("encoder.rise-time") < 0 {
		return &parmError{parm: "encoder.rise-time", msg: "value must be >= 0"}
	}

	if l := c.v.GetFloat64("decoder.reference-level"); l <= 0 || l >= 1 {
		return &parmError{parm: "decoder.reference-level", msg: "allowed values are (0...1)"}
	}

	if tol := c.v.GetFloat64("decoder.tolerance"); tol <= 0 || tol >= 0.5 {
		return &parmError{parm: "decoder.tolerance", msg: "allowed values are (0...0.5)"}
	}

	if st := c.v.GetInt("decoder.sync-tolerance"); st < 0 || st > 2 {
		return &parmError{parm: "decoder.sync-tolerance", msg: "allowed values are [0...2]"}
	}

	if c.v.GetDuration("decoder.silence-timeout") <= 0 {
		return &parmError{parm: "decoder.silence-timeout", msg: "value must be > 0"}
	}

	if c.v.GetInt("decoder.seed-pulses") < 2 {
		return &parmError{parm: "decoder.seed-pulses", msg: "value must be >= 2"}
	}

	if c.v.GetInt("decoder.event-queue") < 1 {
		return &parmError{parm: "decoder.event-queue", msg: "value must be > 0"}
	}

	if l, err := zerolog.ParseLevel(c.v.GetString("log.level")); err != nil || l == zerolog.NoLevel {
		return &parmError{
			parm: "log.level",
			msg:  "allowed values are trace, debug, info, warn, error, disabled",
		}
	}

	return nil
}

type parmError struct {
	parm string
	msg  string
}

func (p *parmError) Error() string {
	return fmt.Sprintf("%v: %v", p.parm, p.msg)
}

// Parameter returns the config key of a validation error, or "" if err
// is not one.
func Parameter(err error) string {
	var p *parmError
	if errors.As(err, &p) {
		return p.parm
	}
	return ""
}
