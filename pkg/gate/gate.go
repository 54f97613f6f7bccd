// Package gate rejects products whose pages mention a deny-listed keyword.
package gate

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/core"
)

// Gate scans the visible texts against the live forbidden keyword list. It
// only reads the screen, so a caller that gets a match can abort with a
// single back.
type Gate struct {
	screen core.Screen
	live   *config.Live
	log    zerolog.Logger
}

// New returns a gate reading keywords from live on every call, so reloaded
// lists apply to the next product.
func New(screen core.Screen, live *config.Live, log zerolog.Logger) *Gate {
	return &Gate{screen: screen, live: live, log: log}
}

// Match is the first forbidden keyword found and the text carrying it.
type Match struct {
	Keyword string
	Text    string
}

// Find returns the first match among texts.
func Find(texts, keywords []string) (Match, bool) {
	for _, t := range texts {
		lower := strings.ToLower(t)
		for _, kw := range keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				return Match{Keyword: kw, Text: t}, true
			}
		}
	}
	return Match{}, false
}

// ContainsForbiddenKeyword reports whether any visible text or description
// contains a forbidden keyword. where names the page being checked and is
// only used for logging.
func (g *Gate) ContainsForbiddenKeyword(ctx context.Context, where string) bool {
	texts := core.VisibleTexts(ctx, g.screen)
	m, ok := Find(texts, g.live.ForbiddenKeywords())
	if !ok {
		return false
	}
	g.log.Warn().Str("context", where).Str("keyword", m.Keyword).Str("text", m.Text).Msg("forbidden keyword on page")
	return true
}
