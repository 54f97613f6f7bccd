// Package nav moves the app to a wanted page and (re)launches it.
package nav

import (
	"context"

	"github.com/rs/zerolog"
)

// Strategy is one way of reaching a goal. Run reports success.
type Strategy struct {
	Name string
	Run  func(ctx context.Context) bool
}

// TryInOrder runs strategies until one succeeds and returns its name. It
// stops early when ctx is done.
func TryInOrder(ctx context.Context, log zerolog.Logger, strategies ...Strategy) (string, bool) {
	for _, s := range strategies {
		if ctx.Err() != nil {
			return "", false
		}
		if s.Run(ctx) {
			log.Debug().Str("strategy", s.Name).Msg("strategy succeeded")
			return s.Name, true
		}
		log.Debug().Str("strategy", s.Name).Msg("strategy failed")
	}
	return "", false
}
