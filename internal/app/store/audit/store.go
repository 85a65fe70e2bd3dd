// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Action types recorded by moderation and content operations.
const (
	ActionBan           = "ban"
	ActionUnban         = "unban"
	ActionBanReactivate = "ban_reactivate"
	ActionBanException  = "ban_exception"
	ActionEdit          = "edit"
	ActionClose         = "close"
	ActionDeleteThread  = "delete_thread"
	ActionDeleteComment = "delete_comment"
)

// Event sources.
const (
	SourceHuman     = "human"
	SourceAutomated = "automated"
)

// Event is one append-only audit row. Rows are written in the same
// transaction as the state change they record and are never updated or
// deleted.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`

	ActionType string `bson:"action_type"`
	Source     string `bson:"source"` // human | automated

	TargetUserID    primitive.ObjectID `bson:"target_user_id"`
	ModeratorUserID primitive.ObjectID `bson:"moderator_user_id"`

	CourseID string `bson:"course_id,omitempty"`
	Scope    string `bson:"scope,omitempty"`
	Reason   string `bson:"reason,omitempty"`

	Metadata map[string]string `bson:"metadata,omitempty"`
}

// QueryFilter selects audit events. Zero fields are ignored.
type QueryFilter struct {
	TargetUserID    *primitive.ObjectID
	ModeratorUserID *primitive.ObjectID
	CourseID        string
	ActionType      string
	Source          string
	Limit           int64
	Offset          int64
}

// Store manages the audit_events collection. Append is the only write.
type Store struct {
	c *mongo.Collection
}

// New creates an audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// EnsureIndexes creates the query indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{
			{Key: "target_user_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "moderator_user_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "course_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "action_type", Value: 1},
			{Key: "created_at", Value: -1},
		}},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Append records an audit event. There are no updates and no deletes.
func (s *Store) Append(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func (f QueryFilter) query() bson.M {
	query := bson.M{}
	if f.TargetUserID != nil {
		query["target_user_id"] = *f.TargetUserID
	}
	if f.ModeratorUserID != nil {
		query["moderator_user_id"] = *f.ModeratorUserID
	}
	if f.CourseID != "" {
		query["course_id"] = f.CourseID
	}
	if f.ActionType != "" {
		query["action_type"] = f.ActionType
	}
	if f.Source != "" {
		query["source"] = f.Source
	}
	return query
}

// Query retrieves events matching the filter, most recent first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}
