// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the service-side record for a platform account.
//
// NOTE:
//   - Course role membership is not embedded on User.
//     Use the course_roles collection to discover a user's roles.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username   string             `bson:"username" json:"username"`
	UsernameCI string             `bson:"username_ci" json:"username_ci"` // lowercase, diacritics-stripped
	IsActive   bool               `bson:"is_active" json:"is_active"`
	IsStaff    bool               `bson:"is_staff" json:"is_staff"` // process-wide staff, independent of course
	DateJoined time.Time          `bson:"date_joined" json:"date_joined"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
