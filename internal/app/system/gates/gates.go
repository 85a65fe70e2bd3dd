// Package gates applies the write-path gate chain to posting requests.
//
// The order is fixed: rate limit, then captcha, then the verified-users
// gate, then the ban check. Each gate returns an apierr kind the HTTP
// boundary maps to its status code.
package gates

import (
	"context"
	"time"

	"github.com/opencampus/discusshub/internal/app/policy/banpolicy"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/captcha"
	"github.com/opencampus/discusshub/internal/app/system/ratelimit"
	"github.com/opencampus/discusshub/internal/app/system/roles"
	"github.com/opencampus/discusshub/internal/domain/models"
)

// WriteGate holds the collaborators the gate chain consults.
type WriteGate struct {
	Limiter             ratelimit.Limiter
	LimiterScope        string // ratelimit.ScopeUser or ScopeUserCourse
	NewAccountThreshold time.Duration

	Captcha captcha.Verifier
	Bans    banpolicy.BanFinder
}

// CheckPost runs the full gate chain for a write to the course's
// discussion. A nil return means the write may proceed.
func (g *WriteGate) CheckPost(ctx context.Context, user *models.User, course *models.Course, roleSet roles.RoleSet, captchaToken string) error {
	// 1. Rate limit: young, non-privileged accounts only.
	if g.Limiter != nil && !roleSet.HasModerationPrivilege &&
		time.Since(user.DateJoined) < g.NewAccountThreshold {
		key := ratelimit.Key(g.LimiterScope, user.ID.Hex(), course.ID)
		allowed, err := g.Limiter.Allow(ctx, key)
		if err != nil {
			return err
		}
		if !allowed {
			return apierr.NewRateLimited("Too many requests. Try again later.")
		}
	}

	// 2. Captcha: required from plain students when the course enables it.
	if course.CaptchaEnabled && roleSet.IsOnlyStudent {
		if captchaToken == "" {
			return apierr.NewCaptcha("A captcha token is required.")
		}
		if g.Captcha == nil {
			return apierr.NewCaptcha("Captcha verification is unavailable.")
		}
		ok, err := g.Captcha.Verify(ctx, captchaToken)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.NewCaptcha("Captcha verification failed.")
		}
	}

	// 3. Verified-users gate. Privileged users are exempt.
	if course.OnlyVerifiedUsersCanPost && !user.IsActive && !roleSet.HasModerationPrivilege {
		return apierr.NewAuthorization("Only verified users may post in this course.")
	}

	// 4. Ban check.
	return g.CheckUpdate(ctx, user, course, roleSet)
}

// CheckUpdate runs the ban check alone. Edits, votes, flags, and
// subscriptions go through it: a banned user may not touch existing
// content either, but rate limiting and captcha cover creation only.
func (g *WriteGate) CheckUpdate(ctx context.Context, user *models.User, course *models.Course, roleSet roles.RoleSet) error {
	decision, err := banpolicy.Check(ctx, user.ID, course.Key(), roleSet, g.Bans)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		// The denial does not expose the ban record to the requester.
		return apierr.NewAuthorization("You are not allowed to post in this course.")
	}
	return nil
}
