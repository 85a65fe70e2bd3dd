// internal/app/store/jobs/store.go
package jobs

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
)

// DeletionJob is one queued bulk-delete request. Jobs are idempotent:
// re-running one with the same inputs deletes nothing extra and must not
// error on already-deleted content.
type DeletionJob struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	TaskID string             `bson:"task_id"` // handle returned to the API caller

	TargetUserID   primitive.ObjectID `bson:"target_user_id"`
	TargetUsername string             `bson:"target_username"`
	CourseIDs      []string           `bson:"course_ids"`

	BanUser  bool   `bson:"ban_user"`
	BanScope string `bson:"ban_scope,omitempty"`
	Reason   string `bson:"reason,omitempty"`

	ModeratorUserID primitive.ObjectID `bson:"moderator_user_id"`

	Status          string `bson:"status"`
	CancelRequested bool   `bson:"cancel_requested"`

	ThreadsDeleted  int `bson:"threads_deleted"`
	CommentsDeleted int `bson:"comments_deleted"`
	Failed          int `bson:"failed"`

	CreatedAt  time.Time  `bson:"created_at"`
	StartedAt  *time.Time `bson:"started_at,omitempty"`
	FinishedAt *time.Time `bson:"finished_at,omitempty"`
}

// Store is the durable queue backing the background deleter.
type Store struct {
	c *mongo.Collection
}

// New creates a job Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("deletion_jobs")}
}

// EnsureIndexes creates the claim and lookup indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "task_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: 1},
			},
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Enqueue adds a pending job.
func (s *Store) Enqueue(ctx context.Context, job DeletionJob) (DeletionJob, error) {
	job.ID = primitive.NewObjectID()
	job.Status = StatusPending
	job.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, job); err != nil {
		return DeletionJob{}, err
	}
	return job, nil
}

// ClaimNext atomically moves the oldest pending job to running and
// returns it. Returns nil when the queue is empty.
func (s *Store) ClaimNext(ctx context.Context) (*DeletionJob, error) {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"status": StatusRunning, "started_at": now}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetReturnDocument(options.After)

	var job DeletionJob
	err := s.c.FindOneAndUpdate(ctx, bson.M{"status": StatusPending}, update, opts).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetByTaskID loads a job by its API task handle. Returns nil when absent.
func (s *Store) GetByTaskID(ctx context.Context, taskID string) (*DeletionJob, error) {
	var job DeletionJob
	err := s.c.FindOne(ctx, bson.M{"task_id": taskID}).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateProgress records running totals for a job.
func (s *Store) UpdateProgress(ctx context.Context, id primitive.ObjectID, threads, comments, failed int) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"threads_deleted":  threads,
		"comments_deleted": comments,
		"failed":           failed,
	}})
	return err
}

// Finish marks a job done or cancelled with its final totals.
func (s *Store) Finish(ctx context.Context, id primitive.ObjectID, status string, threads, comments, failed int) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":           status,
		"threads_deleted":  threads,
		"comments_deleted": comments,
		"failed":           failed,
		"finished_at":      now,
	}})
	return err
}

// RequestCancel flags a pending or running job for cancellation. The
// worker honors the flag at item boundaries.
func (s *Store) RequestCancel(ctx context.Context, taskID string) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"task_id": taskID, "status": bson.M{"$in": []string{StatusPending, StatusRunning}}},
		bson.M{"$set": bson.M{"cancel_requested": true}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// IsCancelRequested re-reads the cancel flag for a running job.
func (s *Store) IsCancelRequested(ctx context.Context, id primitive.ObjectID) (bool, error) {
	var job DeletionJob
	err := s.c.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"cancel_requested": 1})).Decode(&job)
	if err != nil {
		return false, err
	}
	return job.CancelRequested, nil
}
