package gates

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/opencampus/discusshub/internal/app/system/apierr"
	"github.com/opencampus/discusshub/internal/app/system/captcha"
	"github.com/opencampus/discusshub/internal/app/system/ratelimit"
	"github.com/opencampus/discusshub/internal/app/system/roles"
	"github.com/opencampus/discusshub/internal/domain/models"
)

// noBans is a BanFinder with no bans on record.
type noBans struct{}

func (noBans) FindActive(context.Context, primitive.ObjectID, string, string) (*models.Ban, error) {
	return nil, nil
}

func (noBans) HasException(context.Context, primitive.ObjectID, string) (bool, error) {
	return false, nil
}

// courseBanned serves an active course-scoped ban for every lookup.
type courseBanned struct{}

func (courseBanned) FindActive(_ context.Context, _ primitive.ObjectID, scope, _ string) (*models.Ban, error) {
	if scope == models.ScopeCourse {
		return &models.Ban{ID: primitive.NewObjectID(), Scope: models.ScopeCourse, IsActive: true}, nil
	}
	return nil, nil
}

func (courseBanned) HasException(context.Context, primitive.ObjectID, string) (bool, error) {
	return false, nil
}

func newUser() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Username: "alice", IsActive: true, DateJoined: time.Now()}
}

func oldUser() *models.User {
	u := newUser()
	u.DateJoined = time.Now().Add(-90 * 24 * time.Hour)
	return u
}

func testCourse() *models.Course {
	return &models.Course{ID: "DemoX/CS101/2026", Org: "DemoX"}
}

func studentRoles() roles.RoleSet {
	return roles.RoleSet{IsEnrolled: true, IsOnlyStudent: true}
}

func TestCheckPost_AllowsByDefault(t *testing.T) {
	g := &WriteGate{Bans: noBans{}}
	if err := g.CheckPost(context.Background(), oldUser(), testCourse(), studentRoles(), ""); err != nil {
		t.Fatalf("CheckPost: %v", err)
	}
}

func TestCheckPost_RateLimitsNewAccounts(t *testing.T) {
	limiter := ratelimit.NewMemory(1, time.Minute)
	defer limiter.Stop()

	g := &WriteGate{
		Limiter:             limiter,
		LimiterScope:        ratelimit.ScopeUser,
		NewAccountThreshold: 14 * 24 * time.Hour,
		Bans:                noBans{},
	}
	user := newUser()
	if err := g.CheckPost(context.Background(), user, testCourse(), studentRoles(), ""); err != nil {
		t.Fatalf("first post: %v", err)
	}
	err := g.CheckPost(context.Background(), user, testCourse(), studentRoles(), "")
	if !apierr.IsKind(err, apierr.KindRateLimited) {
		t.Fatalf("second post: got %v, want rate limited", err)
	}
	if err.Error() != "Too many requests. Try again later." {
		t.Errorf("message: %q", err.Error())
	}
}

func TestCheckPost_OldAccountsNotRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemory(1, time.Minute)
	defer limiter.Stop()

	g := &WriteGate{
		Limiter:             limiter,
		LimiterScope:        ratelimit.ScopeUser,
		NewAccountThreshold: 14 * 24 * time.Hour,
		Bans:                noBans{},
	}
	user := oldUser()
	for i := 0; i < 3; i++ {
		if err := g.CheckPost(context.Background(), user, testCourse(), studentRoles(), ""); err != nil {
			t.Fatalf("post %d: %v", i+1, err)
		}
	}
}

func TestCheckPost_PrivilegedNotRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemory(1, time.Minute)
	defer limiter.Stop()

	g := &WriteGate{
		Limiter:             limiter,
		LimiterScope:        ratelimit.ScopeUser,
		NewAccountThreshold: 14 * 24 * time.Hour,
		Bans:                noBans{},
	}
	mod := roles.RoleSet{IsEnrolled: true, IsModerator: true, HasModerationPrivilege: true}
	user := newUser()
	for i := 0; i < 3; i++ {
		if err := g.CheckPost(context.Background(), user, testCourse(), mod, ""); err != nil {
			t.Fatalf("post %d: %v", i+1, err)
		}
	}
}

func TestCheckPost_CaptchaRequired(t *testing.T) {
	g := &WriteGate{Captcha: captcha.StaticVerifier{"good": true}, Bans: noBans{}}
	course := testCourse()
	course.CaptchaEnabled = true

	err := g.CheckPost(context.Background(), oldUser(), course, studentRoles(), "")
	if !apierr.IsKind(err, apierr.KindCaptcha) {
		t.Fatalf("missing token: got %v, want captcha error", err)
	}
	if err.Error() != "A captcha token is required." {
		t.Errorf("message: %q", err.Error())
	}

	err = g.CheckPost(context.Background(), oldUser(), course, studentRoles(), "bad")
	if !apierr.IsKind(err, apierr.KindCaptcha) {
		t.Fatalf("bad token: got %v, want captcha error", err)
	}

	if err := g.CheckPost(context.Background(), oldUser(), course, studentRoles(), "good"); err != nil {
		t.Fatalf("valid token: %v", err)
	}
}

func TestCheckPost_CaptchaSkippedForNonStudents(t *testing.T) {
	g := &WriteGate{Captcha: captcha.StaticVerifier{}, Bans: noBans{}}
	course := testCourse()
	course.CaptchaEnabled = true

	mod := roles.RoleSet{IsEnrolled: true, IsModerator: true, HasModerationPrivilege: true}
	if err := g.CheckPost(context.Background(), oldUser(), course, mod, ""); err != nil {
		t.Fatalf("moderator should skip captcha: %v", err)
	}
}

func TestCheckPost_CaptchaUnavailable(t *testing.T) {
	g := &WriteGate{Bans: noBans{}}
	course := testCourse()
	course.CaptchaEnabled = true

	err := g.CheckPost(context.Background(), oldUser(), course, studentRoles(), "token")
	if !apierr.IsKind(err, apierr.KindCaptcha) {
		t.Fatalf("got %v, want captcha error with no verifier wired", err)
	}
	if err.Error() != "Captcha verification is unavailable." {
		t.Errorf("message: %q", err.Error())
	}
}

func TestCheckPost_VerifiedGate(t *testing.T) {
	g := &WriteGate{Bans: noBans{}}
	course := testCourse()
	course.OnlyVerifiedUsersCanPost = true

	inactive := oldUser()
	inactive.IsActive = false
	err := g.CheckPost(context.Background(), inactive, course, studentRoles(), "")
	if !apierr.IsKind(err, apierr.KindAuthorization) {
		t.Fatalf("inactive user: got %v, want authorization error", err)
	}
	if err.Error() != "Only verified users may post in this course." {
		t.Errorf("message: %q", err.Error())
	}

	// Active users pass; privileged inactive users are exempt.
	if err := g.CheckPost(context.Background(), oldUser(), course, studentRoles(), ""); err != nil {
		t.Fatalf("active user: %v", err)
	}
	mod := roles.RoleSet{IsEnrolled: true, IsModerator: true, HasModerationPrivilege: true}
	if err := g.CheckPost(context.Background(), inactive, course, mod, ""); err != nil {
		t.Fatalf("privileged inactive user: %v", err)
	}
}

func TestCheckPost_BannedUser(t *testing.T) {
	g := &WriteGate{Bans: courseBanned{}}
	err := g.CheckPost(context.Background(), oldUser(), testCourse(), studentRoles(), "")
	if !apierr.IsKind(err, apierr.KindAuthorization) {
		t.Fatalf("got %v, want authorization error", err)
	}
	if err.Error() != "You are not allowed to post in this course." {
		t.Errorf("denial message leaks detail: %q", err.Error())
	}
}

func TestCheckUpdate_BannedUser(t *testing.T) {
	g := &WriteGate{Bans: courseBanned{}}
	err := g.CheckUpdate(context.Background(), oldUser(), testCourse(), studentRoles())
	if !apierr.IsKind(err, apierr.KindAuthorization) {
		t.Fatalf("got %v, want authorization error", err)
	}

	// No rate limiter or captcha on the update path: a clean user passes
	// even with neither wired.
	g = &WriteGate{Bans: noBans{}}
	if err := g.CheckUpdate(context.Background(), newUser(), testCourse(), studentRoles()); err != nil {
		t.Fatalf("clean user: %v", err)
	}
}

func TestCheckPost_PrivilegedBypassesBan(t *testing.T) {
	g := &WriteGate{Bans: courseBanned{}}
	mod := roles.RoleSet{IsEnrolled: true, IsModerator: true, HasModerationPrivilege: true}
	if err := g.CheckPost(context.Background(), oldUser(), testCourse(), mod, ""); err != nil {
		t.Fatalf("privileged user should bypass the ban: %v", err)
	}
}

func TestCheckPost_RateLimitBeforeCaptcha(t *testing.T) {
	limiter := ratelimit.NewMemory(1, time.Minute)
	defer limiter.Stop()

	g := &WriteGate{
		Limiter:             limiter,
		LimiterScope:        ratelimit.ScopeUser,
		NewAccountThreshold: 14 * 24 * time.Hour,
		Captcha:             captcha.StaticVerifier{},
		Bans:                noBans{},
	}
	course := testCourse()
	course.CaptchaEnabled = true

	user := newUser()
	// First post fails captcha (empty token) after passing the limiter.
	err := g.CheckPost(context.Background(), user, course, studentRoles(), "")
	if !apierr.IsKind(err, apierr.KindCaptcha) {
		t.Fatalf("first post: got %v, want captcha error", err)
	}
	// Second post is rejected by the limiter before captcha runs.
	err = g.CheckPost(context.Background(), user, course, studentRoles(), "")
	if !apierr.IsKind(err, apierr.KindRateLimited) {
		t.Fatalf("second post: got %v, want rate limited first", err)
	}
}
