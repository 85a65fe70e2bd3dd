// internal/app/system/roles/resolver.go

// Package roles resolves a user's role tags for one course. Resolution
// reads the course_roles collection plus the process-wide staff flag on
// the user record, and caches per request so repeated policy checks in
// one request hit the role tables once.
package roles

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/opencampus/discusshub/internal/domain/models"
)

// RoleSet is the resolved view of a user's standing in one course.
type RoleSet struct {
	IsGlobalStaff    bool
	IsCourseStaff    bool
	IsInstructor     bool
	IsModerator      bool
	IsGroupModerator bool
	IsCommunityTA    bool
	IsEnrolled       bool

	// HasModerationPrivilege is any of moderator, TA, course staff, or
	// global staff.
	HasModerationPrivilege bool

	// IsOnlyStudent: enrolled with no privileged role and not global staff.
	IsOnlyStudent bool

	// Roles holds the raw role names from the course_roles collection.
	Roles []string
}

// Source yields the role names a user holds in a course.
type Source interface {
	RolesFor(ctx context.Context, userID primitive.ObjectID, courseID string) ([]string, error)
}

// Resolver derives RoleSets from a Source. Safe for concurrent use.
type Resolver struct {
	src Source
}

// NewResolver creates a Resolver over the given role source.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

type cacheKey struct{}

type requestCache struct {
	mu   sync.Mutex
	sets map[string]RoleSet
}

// WithRequestCache returns a context carrying a per-request role cache.
// Handlers install it once at the top of the request; every Resolve call
// under that context reuses prior lookups.
func WithRequestCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheKey{}, &requestCache{sets: make(map[string]RoleSet)})
}

// Resolve returns the RoleSet for (user, course).
func (r *Resolver) Resolve(ctx context.Context, user *models.User, courseKey models.CourseKey) (RoleSet, error) {
	key := user.ID.Hex() + "|" + courseKey.String()

	cache, _ := ctx.Value(cacheKey{}).(*requestCache)
	if cache != nil {
		cache.mu.Lock()
		set, ok := cache.sets[key]
		cache.mu.Unlock()
		if ok {
			return set, nil
		}
	}

	names, err := r.src.RolesFor(ctx, user.ID, courseKey.String())
	if err != nil {
		return RoleSet{}, err
	}

	set := RoleSet{IsGlobalStaff: user.IsStaff, Roles: names}
	for _, name := range names {
		switch name {
		case models.RoleAdministrator:
			set.IsCourseStaff = true
			set.IsInstructor = true
		case models.RoleModerator:
			set.IsModerator = true
		case models.RoleGroupModerator:
			set.IsGroupModerator = true
		case models.RoleCommunityTA:
			set.IsCommunityTA = true
		case models.RoleStudent:
			set.IsEnrolled = true
		}
	}
	// Holding any course role implies enrollment.
	if len(names) > 0 {
		set.IsEnrolled = true
	}

	set.HasModerationPrivilege = set.IsModerator || set.IsCommunityTA ||
		set.IsGroupModerator || set.IsCourseStaff || set.IsGlobalStaff
	set.IsOnlyStudent = set.IsEnrolled && !set.HasModerationPrivilege && !set.IsGlobalStaff

	if cache != nil {
		cache.mu.Lock()
		cache.sets[key] = set
		cache.mu.Unlock()
	}
	return set, nil
}
