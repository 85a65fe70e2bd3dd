package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/opencampus/discusshub/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user joined well before the new-account
// rate-limit window.
func (f *Fixtures) CreateUser(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.createUser(ctx, username, time.Now().UTC().Add(-90*24*time.Hour), false)
}

// CreateNewUser creates a test user who joined just now, so the
// new-account posting limits apply.
func (f *Fixtures) CreateNewUser(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.createUser(ctx, username, time.Now().UTC(), false)
}

// CreateStaffUser creates a test user with the global staff bit set.
func (f *Fixtures) CreateStaffUser(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.createUser(ctx, username, time.Now().UTC().Add(-90*24*time.Hour), true)
}

func (f *Fixtures) createUser(ctx context.Context, username string, joined time.Time, staff bool) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		Username:   username,
		UsernameCI: text.Fold(username),
		IsActive:   true,
		IsStaff:    staff,
		DateJoined: joined,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateCourse creates a test course with the discussion ban feature
// enabled and default settings.
func (f *Fixtures) CreateCourse(ctx context.Context, courseID string) models.Course {
	f.t.Helper()

	course := models.Course{
		ID:                  courseID,
		Org:                 courseOrg(courseID),
		AllowAnonymous:      true,
		EnableDiscussionBan: true,
	}

	if _, err := f.db.Collection("courses").InsertOne(ctx, course); err != nil {
		f.t.Fatalf("failed to create test course: %v", err)
	}
	return course
}

func courseOrg(courseID string) string {
	for i := 0; i < len(courseID); i++ {
		if courseID[i] == '/' {
			return courseID[:i]
		}
	}
	return courseID
}

// AddRole grants the user a role in the course.
func (f *Fixtures) AddRole(ctx context.Context, userID primitive.ObjectID, courseID, role string) {
	f.t.Helper()

	now := time.Now().UTC()
	doc := models.CourseRole{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		CourseID:  courseID,
		Role:      role,
		CreatedAt: now,
	}
	if _, err := f.db.Collection("course_roles").InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to create test course role: %v", err)
	}
}
