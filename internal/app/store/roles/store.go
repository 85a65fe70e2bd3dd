// internal/app/store/roles/store.go
package roles

import (
	"context"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opencampus/discusshub/internal/domain/models"
)

// Store manages course role memberships and enrollments. Enrollment is
// recorded as the Student role; holding any role in a course implies
// enrollment for resolution purposes.
type Store struct {
	c *mongo.Collection
}

// New creates a role Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("course_roles")}
}

// EnsureIndexes creates the membership uniqueness index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "course_id", Value: 1},
			{Key: "role", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// RolesFor returns the names of all roles the user holds in the course.
func (s *Store) RolesFor(ctx context.Context, userID primitive.ObjectID, courseID string) ([]string, error) {
	cursor, err := s.c.Find(ctx, bson.M{"user_id": userID, "course_id": courseID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var memberships []models.CourseRole
	if err := cursor.All(ctx, &memberships); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(memberships))
	for _, m := range memberships {
		names = append(names, m.Role)
	}
	return names, nil
}

// Add grants the user a role in the course. Re-adding is a no-op.
func (s *Store) Add(ctx context.Context, userID primitive.ObjectID, courseID, role string) error {
	_, err := s.c.InsertOne(ctx, models.CourseRole{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		CourseID:  courseID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil && wafflemongo.IsDup(err) {
		return nil
	}
	return err
}

// Remove revokes a role from the user in the course.
func (s *Store) Remove(ctx context.Context, userID primitive.ObjectID, courseID, role string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID, "course_id": courseID, "role": role})
	return err
}
