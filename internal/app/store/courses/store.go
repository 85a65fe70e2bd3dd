// internal/app/store/courses/store.go
package courses

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opencampus/discusshub/internal/domain/models"
)

// Store manages per-course discussion settings.
type Store struct {
	c *mongo.Collection
}

// New creates a course settings Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("courses")}
}

// Get loads the settings for a course. Returns nil when the course is
// unknown to the discussion layer.
func (s *Store) Get(ctx context.Context, key models.CourseKey) (*models.Course, error) {
	var c models.Course
	err := s.c.FindOne(ctx, bson.M{"_id": key.String()}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Upsert writes the settings record for a course.
func (s *Store) Upsert(ctx context.Context, c models.Course) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"org":                          models.CourseKey(c.ID).Org(),
			"allow_anonymous":              c.AllowAnonymous,
			"allow_anonymous_to_peers":     c.AllowAnonymousToPeers,
			"division_scheme":              c.DivisionScheme,
			"only_verified_users_can_post": c.OnlyVerifiedUsersCanPost,
			"enable_discussion_ban":        c.EnableDiscussionBan,
			"captcha_enabled":              c.CaptchaEnabled,
			"spam_url_domains":             c.SpamURLDomains,
			"spam_replacement_body":        c.SpamReplacementBody,
			"updated_at":                   now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": c.ID}, update, options.Update().SetUpsert(true))
	return err
}
