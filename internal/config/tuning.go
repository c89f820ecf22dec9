// Package config loads the optional JSON tuning file. Fields are pointers
// so a partial file overrides only what it names; everything else keeps
// its default.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nova-explorer/roverd/internal/control"
	"github.com/nova-explorer/roverd/internal/detect"
	"github.com/nova-explorer/roverd/internal/endpoint"
	"github.com/nova-explorer/roverd/internal/nav"
)

// Tuning is the on-disk schema. Durations are strings like "2s" or
// "500ms".
type Tuning struct {
	LoopPeriod       *string `json:"loop_period,omitempty"`
	CommsLostBackoff *string `json:"comms_lost_backoff,omitempty"`
	RecoverySleep    *string `json:"recovery_sleep,omitempty"`

	PathHistoryCap *int    `json:"path_history_cap,omitempty"`
	DetectionCap   *int    `json:"detection_cap,omitempty"`
	LogCooldown    *string `json:"log_cooldown,omitempty"`

	ObstacleThreshold *float64 `json:"obstacle_threshold,omitempty"`
	StopThreshold     *float64 `json:"stop_threshold,omitempty"`

	ReadTimeout    *string `json:"read_timeout,omitempty"`
	CommandTimeout *string `json:"command_timeout,omitempty"`
	StreamTimeout  *string `json:"stream_timeout,omitempty"`
}

// Settings is the resolved, concrete tuning.
type Settings struct {
	LoopPeriod       time.Duration
	CommsLostBackoff time.Duration
	RecoverySleep    time.Duration

	PathHistoryCap int
	DetectionCap   int
	LogCooldown    time.Duration

	ObstacleThreshold float64
	StopThreshold     float64

	ReadTimeout    time.Duration
	CommandTimeout time.Duration
	StreamTimeout  time.Duration
}

// Defaults returns the stock settings for the live-API cadence.
func Defaults() Settings {
	return Settings{
		LoopPeriod:        control.DefaultPeriod,
		CommsLostBackoff:  control.DefaultCommsLostBackoff,
		RecoverySleep:     control.DefaultRecoverySleep,
		PathHistoryCap:    control.PathHistoryCap,
		DetectionCap:      detect.DefaultCap,
		LogCooldown:       detect.DefaultCooldown,
		ObstacleThreshold: nav.DefaultObstacleThreshold,
		StopThreshold:     nav.DefaultStopThreshold,
		ReadTimeout:       endpoint.DefaultReadTimeout,
		CommandTimeout:    endpoint.DefaultCommandTimeout,
		StreamTimeout:     endpoint.DefaultStreamTimeout,
	}
}

// maxFileSize guards against reading an unexpectedly large file.
const maxFileSize = 1 * 1024 * 1024

// Load reads a tuning file. The path must name a .json file under the max
// size; a missing optional file is the caller's check to make.
func Load(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var t Tuning
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &t, nil
}

// Resolve applies t over the defaults. A nil Tuning returns the defaults
// unchanged.
func (t *Tuning) Resolve() (Settings, error) {
	s := Defaults()
	if t == nil {
		return s, nil
	}

	if err := applyDuration(&s.LoopPeriod, t.LoopPeriod, "loop_period"); err != nil {
		return s, err
	}
	if err := applyDuration(&s.CommsLostBackoff, t.CommsLostBackoff, "comms_lost_backoff"); err != nil {
		return s, err
	}
	if err := applyDuration(&s.RecoverySleep, t.RecoverySleep, "recovery_sleep"); err != nil {
		return s, err
	}
	if err := applyDuration(&s.LogCooldown, t.LogCooldown, "log_cooldown"); err != nil {
		return s, err
	}
	if err := applyDuration(&s.ReadTimeout, t.ReadTimeout, "read_timeout"); err != nil {
		return s, err
	}
	if err := applyDuration(&s.CommandTimeout, t.CommandTimeout, "command_timeout"); err != nil {
		return s, err
	}
	if err := applyDuration(&s.StreamTimeout, t.StreamTimeout, "stream_timeout"); err != nil {
		return s, err
	}

	if t.PathHistoryCap != nil {
		if *t.PathHistoryCap <= 0 {
			return s, fmt.Errorf("path_history_cap must be positive")
		}
		s.PathHistoryCap = *t.PathHistoryCap
	}
	if t.DetectionCap != nil {
		if *t.DetectionCap <= 0 {
			return s, fmt.Errorf("detection_cap must be positive")
		}
		s.DetectionCap = *t.DetectionCap
	}
	if t.ObstacleThreshold != nil {
		s.ObstacleThreshold = *t.ObstacleThreshold
	}
	if t.StopThreshold != nil {
		s.StopThreshold = *t.StopThreshold
	}
	return s, nil
}

func applyDuration(dst *time.Duration, src *string, name string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, *src, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	*dst = d
	return nil
}
