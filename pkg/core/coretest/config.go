package coretest

import (
	"time"

	"github.com/devicelab-dev/cartpilot/pkg/config"
)

// FastConfig returns the default configuration with every wait shortened
// to a few milliseconds.
func FastConfig() *config.Config {
	cfg := config.Default()
	ms := config.Duration(time.Millisecond)
	cfg.Timing.FindTimeout = ms
	cfg.Timing.PageLoad = ms
	cfg.Timing.AfterClick = ms
	cfg.Timing.AfterSwipe = ms
	cfg.Timing.AfterBack = ms
	cfg.Timing.LaunchWait = ms
	cfg.Timing.ForegroundPoll = ms
	cfg.API.RetryDelay = ms
	return cfg
}

// FastLive wraps FastConfig.
func FastLive() *config.Live {
	return config.NewLive(FastConfig())
}
