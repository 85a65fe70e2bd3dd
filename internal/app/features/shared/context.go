// internal/app/features/shared/context.go
package shared

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/forum"
	"github.com/opencampus/discusshub/internal/app/store/courses"
	"github.com/opencampus/discusshub/internal/app/store/users"
	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/auth"
	"github.com/opencampus/discusshub/internal/app/system/roles"
	"github.com/opencampus/discusshub/internal/domain/models"
)

// ReqContext is the resolved requester standing for one request.
type ReqContext struct {
	User    *models.User
	Course  *models.Course
	RoleSet roles.RoleSet
}

// Env builds a serialization environment without vote annotations.
func (rc *ReqContext) Env() RequestEnv {
	return RequestEnv{
		Requester: rc.User,
		RoleSet:   rc.RoleSet,
		Course:    rc.Course,
	}
}

// ContextResolver loads the requester, the course, and the requester's
// course standing for feature handlers.
type ContextResolver struct {
	Log     *zap.Logger
	Users   *users.Store
	Courses *courses.Store
	Roles   *roles.Resolver
	Forum   forum.Client
}

// Resolve checks the session user exists and has access to the course.
func (cr *ContextResolver) Resolve(ctx context.Context, r *http.Request, courseID string) (*ReqContext, error) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		return nil, apierr.NewUnauthenticated("authentication required")
	}
	uid, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		return nil, apierr.NewUnauthenticated("authentication required")
	}
	user, err := cr.Users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apierr.NewUnauthenticated("authentication required")
	}

	key, err := models.ParseCourseKey(courseID)
	if err != nil {
		return nil, apierr.NewValidation("course_id", "Not a valid course id.")
	}
	course, err := cr.Courses.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, apierr.NewNotFound("Course not found.")
	}

	set, err := cr.Roles.Resolve(ctx, user, key)
	if err != nil {
		return nil, err
	}
	if !set.IsEnrolled && !set.HasModerationPrivilege {
		return nil, apierr.NewAuthorization("You do not have access to this course.")
	}

	return &ReqContext{User: user, Course: course, RoleSet: set}, nil
}

// EnvWithVotes builds the serialization environment including the
// requester's upvote set. The lookup is best effort; a backend failure
// only drops the voted annotations.
func (cr *ContextResolver) EnvWithVotes(ctx context.Context, rc *ReqContext) RequestEnv {
	env := rc.Env()
	ids, err := cr.Forum.UpvotedIDs(ctx, rc.User.ID.Hex(), rc.Course.ID)
	if err != nil {
		cr.Log.Warn("failed to load upvoted ids", zap.Error(err))
		return env
	}
	if len(ids) > 0 {
		env.Upvoted = make(map[string]bool, len(ids))
		for _, id := range ids {
			env.Upvoted[id] = true
		}
	}
	return env
}
