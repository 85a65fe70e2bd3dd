// internal/domain/models/ban.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ban scopes.
const (
	ScopeCourse       = "course"
	ScopeOrganization = "organization"
)

// Ban is a discussion posting ban. Exactly one of CourseID and OrgKey is
// set, matching Scope. Rows are never deleted; an unbanned row stays in
// place with IsActive=false and may be reactivated later.
type Ban struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Scope    string             `bson:"scope" json:"scope"` // course | organization
	CourseID string             `bson:"course_id,omitempty" json:"course_id,omitempty"`
	OrgKey   string             `bson:"org_key,omitempty" json:"org_key,omitempty"`

	Reason   string             `bson:"reason,omitempty" json:"reason,omitempty"`
	BannedBy primitive.ObjectID `bson:"banned_by" json:"banned_by"`
	BannedAt time.Time          `bson:"banned_at" json:"banned_at"`

	UnbannedBy *primitive.ObjectID `bson:"unbanned_by,omitempty" json:"unbanned_by,omitempty"`
	UnbannedAt *time.Time          `bson:"unbanned_at,omitempty" json:"unbanned_at,omitempty"`

	IsActive bool `bson:"is_active" json:"is_active"`
}

// Key returns the scope key the ban is attached to: the course id for
// course-scope bans, the org key for organization-scope bans.
func (b *Ban) Key() string {
	if b.Scope == ScopeCourse {
		return b.CourseID
	}
	return b.OrgKey
}

// BanException lifts an organization-scope ban for a single course.
// Only meaningful while the parent ban is active; a reactivated ban
// picks up any exceptions that were left in place.
type BanException struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BanID      primitive.ObjectID `bson:"ban_id" json:"ban_id"`
	CourseID   string             `bson:"course_id" json:"course_id"`
	UnbannedBy primitive.ObjectID `bson:"unbanned_by" json:"unbanned_by"`
	Reason     string             `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
