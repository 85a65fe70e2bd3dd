// Package banpolicy decides whether a user may write to a course's
// discussion given their resolved roles and ban state.
//
// Privileged users bypass the check entirely: banning a moderator has no
// effect until they are demoted.
package banpolicy

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/opencampus/discusshub/internal/app/system/roles"
	"github.com/opencampus/discusshub/internal/domain/models"
)

// BanFinder is the slice of the ban store this policy reads.
type BanFinder interface {
	FindActive(ctx context.Context, userID primitive.ObjectID, scope, key string) (*models.Ban, error)
	HasException(ctx context.Context, banID primitive.ObjectID, courseID string) (bool, error)
}

// Decision is the outcome of a ban check.
type Decision struct {
	Allowed bool

	// Set when denied.
	ScopeBlocked string
	BanID        primitive.ObjectID
	Reason       string
}

// Allowed is the positive decision.
var Allowed = Decision{Allowed: true}

func denied(ban *models.Ban) Decision {
	return Decision{ScopeBlocked: ban.Scope, BanID: ban.ID, Reason: ban.Reason}
}

// Check resolves the effective ban state for (user, course). Organization
// bans apply unless a per-course exception lifts them; course bans apply
// directly. Call sites: thread/comment creation, edit, vote, flag,
// subscribe.
func Check(ctx context.Context, userID primitive.ObjectID, courseKey models.CourseKey, roleSet roles.RoleSet, store BanFinder) (Decision, error) {
	if roleSet.HasModerationPrivilege {
		return Allowed, nil
	}

	orgBan, err := store.FindActive(ctx, userID, models.ScopeOrganization, courseKey.Org())
	if err != nil {
		return Decision{}, err
	}
	if orgBan != nil {
		excepted, err := store.HasException(ctx, orgBan.ID, courseKey.String())
		if err != nil {
			return Decision{}, err
		}
		if !excepted {
			return denied(orgBan), nil
		}
	}

	courseBan, err := store.FindActive(ctx, userID, models.ScopeCourse, courseKey.String())
	if err != nil {
		return Decision{}, err
	}
	if courseBan != nil {
		return denied(courseBan), nil
	}

	return Allowed, nil
}
