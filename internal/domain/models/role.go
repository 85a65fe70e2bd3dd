// internal/domain/models/role.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Named course roles. Administrator, Moderator, Group Moderator, and
// Community TA are privileged.
const (
	RoleAdministrator  = "Administrator"
	RoleModerator      = "Moderator"
	RoleGroupModerator = "Group Moderator"
	RoleCommunityTA    = "Community TA"
	RoleStudent        = "Student"
)

// CourseRole links a user to a named role in one course. A user may hold
// zero or more roles per course.
type CourseRole struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	CourseID  string             `bson:"course_id" json:"course_id"`
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// IsPrivilegedRole reports whether the named role carries moderation
// privileges in its course.
func IsPrivilegedRole(role string) bool {
	switch role {
	case RoleAdministrator, RoleModerator, RoleGroupModerator, RoleCommunityTA:
		return true
	}
	return false
}
