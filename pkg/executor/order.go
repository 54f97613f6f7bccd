package executor

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/page"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

var linkPattern = regexp.MustCompile(`https?://[^\s"'<>，。]+`)

var errNoCopyLink = errors.New("copy-link control not found")

// extractLink returns the first web link in text.
func extractLink(text string) (string, bool) {
	link := linkPattern.FindString(text)
	return link, link != ""
}

// orderUser is the user name sent with order checks: the configured name,
// else the display name or id of the cached profile.
func (r *Runner) orderUser(cfg *config.Config, log zerolog.Logger) string {
	if cfg.API.UserName != "" {
		return cfg.API.UserName
	}
	p, ok, err := r.store.Profile()
	if err != nil {
		log.Warn().Err(err).Msg("profile unreadable")
		return ""
	}
	if !ok {
		return ""
	}
	if p.User.DisplayName != "" {
		return p.User.DisplayName
	}
	return p.User.UserID
}

// productLink returns the web link of the product on the detail page: a
// link printed on the page, else one copied from the share sheet. An empty
// string means no link could be read. The detail page is shown again on
// return unless the session stopped.
func (j *job) productLink(ctx context.Context) (string, error) {
	cfg := j.live.Get()
	v, ok := j.view(ctx)
	if !ok {
		return "", j.ctrl.Check(ctx)
	}
	for _, e := range v.Elems {
		if link, ok := extractLink(core.TextOf(e)); ok {
			return link, nil
		}
	}

	if !j.clickLabel(ctx, cfg.Labels.ShareButtons, page.Anywhere) {
		j.log.Debug().Msg("no share control on detail page")
		return "", j.ctrl.Check(ctx)
	}

	diff, err := j.clip.SnapshotDiff(ctx, func(ctx context.Context) error {
		v, ok := j.view(ctx)
		if !ok {
			return errNoCopyLink
		}
		found := v.WithLabel(cfg.Labels.CopyLinkButtons, page.Anywhere, false)
		if len(found) == 0 {
			return errNoCopyLink
		}
		return core.ClickElement(ctx, j.dev, found[0])
	})
	if errors.Is(err, session.ErrStopped) {
		return "", err
	}

	link := ""
	if err != nil {
		j.log.Debug().Err(err).Msg("product link not copied")
	} else if text, changed := diff.Value(); changed {
		link, _ = extractLink(strings.TrimSpace(text))
	}

	if j.cls.ClassifyOnce(ctx) != page.ProductDetail {
		if err := j.dev.Back(ctx); err != nil {
			j.log.Debug().Err(err).Msg("back failed")
		}
		if !j.ctrl.Sleep(ctx, cfg.Timing.AfterBack.D()) {
			return link, session.ErrStopped
		}
	}
	return link, nil
}
