package banpolicy

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/opencampus/discusshub/internal/app/system/roles"
	"github.com/opencampus/discusshub/internal/domain/models"
)

// fakeFinder serves canned bans keyed by scope.
type fakeFinder struct {
	orgBan     *models.Ban
	courseBan  *models.Ban
	exceptions map[string]bool // courseID -> excepted
	err        error
}

func (f *fakeFinder) FindActive(_ context.Context, _ primitive.ObjectID, scope, _ string) (*models.Ban, error) {
	if f.err != nil {
		return nil, f.err
	}
	switch scope {
	case models.ScopeOrganization:
		return f.orgBan, nil
	case models.ScopeCourse:
		return f.courseBan, nil
	}
	return nil, nil
}

func (f *fakeFinder) HasException(_ context.Context, _ primitive.ObjectID, courseID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.exceptions[courseID], nil
}

func mustKey(t *testing.T, s string) models.CourseKey {
	t.Helper()
	key, err := models.ParseCourseKey(s)
	if err != nil {
		t.Fatalf("ParseCourseKey(%q): %v", s, err)
	}
	return key
}

func TestCheck_NoBans(t *testing.T) {
	d, err := Check(context.Background(), primitive.NewObjectID(),
		mustKey(t, "DemoX/CS101/2026"), roles.RoleSet{IsEnrolled: true}, &fakeFinder{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed {
		t.Error("unbanned user should be allowed")
	}
}

func TestCheck_PrivilegedBypass(t *testing.T) {
	banID := primitive.NewObjectID()
	finder := &fakeFinder{
		orgBan:    &models.Ban{ID: banID, Scope: models.ScopeOrganization, IsActive: true},
		courseBan: &models.Ban{ID: primitive.NewObjectID(), Scope: models.ScopeCourse, IsActive: true},
	}
	d, err := Check(context.Background(), primitive.NewObjectID(),
		mustKey(t, "DemoX/CS101/2026"),
		roles.RoleSet{HasModerationPrivilege: true}, finder)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed {
		t.Error("privileged user should bypass bans")
	}
}

func TestCheck_OrgBanBlocks(t *testing.T) {
	banID := primitive.NewObjectID()
	finder := &fakeFinder{
		orgBan: &models.Ban{ID: banID, Scope: models.ScopeOrganization, Reason: "spam", IsActive: true},
	}
	d, err := Check(context.Background(), primitive.NewObjectID(),
		mustKey(t, "DemoX/CS101/2026"), roles.RoleSet{IsEnrolled: true}, finder)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Fatal("org ban should block")
	}
	if d.ScopeBlocked != models.ScopeOrganization || d.BanID != banID || d.Reason != "spam" {
		t.Errorf("denial details: %+v", d)
	}
}

func TestCheck_OrgBanWithExceptionAllows(t *testing.T) {
	finder := &fakeFinder{
		orgBan:     &models.Ban{ID: primitive.NewObjectID(), Scope: models.ScopeOrganization, IsActive: true},
		exceptions: map[string]bool{"DemoX/CS101/2026": true},
	}
	d, err := Check(context.Background(), primitive.NewObjectID(),
		mustKey(t, "DemoX/CS101/2026"), roles.RoleSet{IsEnrolled: true}, finder)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed {
		t.Error("per-course exception should lift the org ban")
	}
}

func TestCheck_ExceptionDoesNotLiftCourseBan(t *testing.T) {
	courseBanID := primitive.NewObjectID()
	finder := &fakeFinder{
		orgBan:     &models.Ban{ID: primitive.NewObjectID(), Scope: models.ScopeOrganization, IsActive: true},
		courseBan:  &models.Ban{ID: courseBanID, Scope: models.ScopeCourse, IsActive: true},
		exceptions: map[string]bool{"DemoX/CS101/2026": true},
	}
	d, err := Check(context.Background(), primitive.NewObjectID(),
		mustKey(t, "DemoX/CS101/2026"), roles.RoleSet{IsEnrolled: true}, finder)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Fatal("course ban should still block after the org exception")
	}
	if d.ScopeBlocked != models.ScopeCourse || d.BanID != courseBanID {
		t.Errorf("denial details: %+v", d)
	}
}

func TestCheck_CourseBanBlocks(t *testing.T) {
	finder := &fakeFinder{
		courseBan: &models.Ban{ID: primitive.NewObjectID(), Scope: models.ScopeCourse, IsActive: true},
	}
	d, err := Check(context.Background(), primitive.NewObjectID(),
		mustKey(t, "DemoX/CS101/2026"), roles.RoleSet{IsEnrolled: true}, finder)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Error("course ban should block")
	}
}

func TestCheck_StoreErrorPropagates(t *testing.T) {
	finder := &fakeFinder{err: errors.New("mongo down")}
	_, err := Check(context.Background(), primitive.NewObjectID(),
		mustKey(t, "DemoX/CS101/2026"), roles.RoleSet{IsEnrolled: true}, finder)
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
}
