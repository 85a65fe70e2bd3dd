// internal/app/store/bans/store.go
package bans

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opencampus/discusshub/internal/domain/models"
)

// ErrDuplicateActiveBan is returned when a second active ban for the same
// (user, scope, key) tuple loses the race against a concurrent create.
var ErrDuplicateActiveBan = errors.New("an active ban already exists for this user and scope")

// ErrNotOrgScope is returned when an exception is requested for a ban
// that is not organization-scoped.
var ErrNotOrgScope = errors.New("ban exceptions apply only to organization-scope bans")

// ErrBanInactive is returned when an exception is requested for a ban
// that is no longer active.
var ErrBanInactive = errors.New("ban is not active")

// Store manages discussion ban records and their per-course exceptions.
// The at-most-one-active invariant per (user, scope, key) is enforced by
// a partial unique index; writes that hit it are retried once.
type Store struct {
	bans       *mongo.Collection
	exceptions *mongo.Collection
}

// New creates a ban Store over the discussion_bans and ban_exceptions
// collections.
func New(db *mongo.Database) *Store {
	return &Store{
		bans:       db.Collection("discussion_bans"),
		exceptions: db.Collection("ban_exceptions"),
	}
}

// EnsureIndexes creates the uniqueness and lookup indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	banIndexes := []mongo.IndexModel{
		// At most one active ban per (user, scope, course_id/org_key).
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "scope", Value: 1},
				{Key: "course_id", Value: 1},
				{Key: "org_key", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_active": true}),
		},
		// Course listing: course-scope bans by course.
		{
			Keys: bson.D{
				{Key: "course_id", Value: 1},
				{Key: "is_active", Value: 1},
			},
		},
		// Course listing: org-scope bans by org.
		{
			Keys: bson.D{
				{Key: "org_key", Value: 1},
				{Key: "is_active", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_active", Value: 1}},
		},
	}
	if _, err := s.bans.Indexes().CreateMany(ctx, banIndexes); err != nil {
		return err
	}

	excIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "ban_id", Value: 1},
				{Key: "course_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := s.exceptions.Indexes().CreateMany(ctx, excIndexes)
	return err
}

// scopeFilter builds the selector for one (user, scope, key) tuple.
func scopeFilter(userID primitive.ObjectID, scope, key string) bson.M {
	f := bson.M{"user_id": userID, "scope": scope}
	if scope == models.ScopeCourse {
		f["course_id"] = key
	} else {
		f["org_key"] = key
	}
	return f
}

// FindActive returns the active ban for (user, scope, key), or nil.
func (s *Store) FindActive(ctx context.Context, userID primitive.ObjectID, scope, key string) (*models.Ban, error) {
	f := scopeFilter(userID, scope, key)
	f["is_active"] = true
	var b models.Ban
	err := s.bans.FindOne(ctx, f).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindInactive returns the most recently deactivated ban for
// (user, scope, key), or nil.
func (s *Store) FindInactive(ctx context.Context, userID primitive.ObjectID, scope, key string) (*models.Ban, error) {
	f := scopeFilter(userID, scope, key)
	f["is_active"] = false
	opts := options.FindOne().SetSort(bson.D{{Key: "banned_at", Value: -1}})
	var b models.Ban
	err := s.bans.FindOne(ctx, f, opts).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByID loads a ban by id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ban, error) {
	var b models.Ban
	err := s.bans.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateOrReactivate creates an active ban for (user, scope, key), or
// reactivates an inactive one in place: is_active set, banned_at and
// banned_by refreshed, unbanned_* cleared, reason replaced when non-empty.
// History is preserved; rows are never deleted. Returns the ban and
// whether an existing row was reactivated.
//
// A concurrent duplicate create trips the partial unique index; the
// operation is retried once and then fails with ErrDuplicateActiveBan.
func (s *Store) CreateOrReactivate(ctx context.Context, userID primitive.ObjectID, scope, key, reason string, moderatorID primitive.ObjectID) (*models.Ban, bool, error) {
	ban, reactivated, err := s.createOrReactivateOnce(ctx, userID, scope, key, reason, moderatorID)
	if err != nil && wafflemongo.IsDup(err) {
		ban, reactivated, err = s.createOrReactivateOnce(ctx, userID, scope, key, reason, moderatorID)
		if err != nil && wafflemongo.IsDup(err) {
			return nil, false, ErrDuplicateActiveBan
		}
	}
	return ban, reactivated, err
}

func (s *Store) createOrReactivateOnce(ctx context.Context, userID primitive.ObjectID, scope, key, reason string, moderatorID primitive.ObjectID) (*models.Ban, bool, error) {
	now := time.Now().UTC()

	// Reactivate an inactive row in place when one exists.
	f := scopeFilter(userID, scope, key)
	f["is_active"] = false
	set := bson.M{
		"is_active": true,
		"banned_at": now,
		"banned_by": moderatorID,
	}
	if reason != "" {
		set["reason"] = reason
	}
	update := bson.M{
		"$set":   set,
		"$unset": bson.M{"unbanned_by": "", "unbanned_at": ""},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "banned_at", Value: -1}}).
		SetReturnDocument(options.After)

	var reactivated models.Ban
	err := s.bans.FindOneAndUpdate(ctx, f, update, opts).Decode(&reactivated)
	if err == nil {
		return &reactivated, true, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, err
	}

	b := models.Ban{
		ID:       primitive.NewObjectID(),
		UserID:   userID,
		Scope:    scope,
		Reason:   reason,
		BannedBy: moderatorID,
		BannedAt: now,
		IsActive: true,
	}
	if scope == models.ScopeCourse {
		b.CourseID = key
	} else {
		b.OrgKey = key
	}
	if _, err := s.bans.InsertOne(ctx, b); err != nil {
		return nil, false, err
	}
	return &b, false, nil
}

// Deactivate unbans: is_active cleared, unbanned_by/unbanned_at recorded.
// The row stays in place for history and later reactivation.
func (s *Store) Deactivate(ctx context.Context, ban *models.Ban, moderatorID primitive.ObjectID) (*models.Ban, error) {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"is_active":   false,
		"unbanned_by": moderatorID,
		"unbanned_at": now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Ban
	err := s.bans.FindOneAndUpdate(ctx, bson.M{"_id": ban.ID, "is_active": true}, update, opts).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, mongo.ErrNoDocuments
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// CreateException records a per-course override lifting an org-scope ban
// for one course. Idempotent on (ban, course): a second call returns the
// existing exception with wasCreated=false.
func (s *Store) CreateException(ctx context.Context, ban *models.Ban, courseID string, moderatorID primitive.ObjectID, reason string) (*models.BanException, bool, error) {
	if ban.Scope != models.ScopeOrganization {
		return nil, false, ErrNotOrgScope
	}
	if !ban.IsActive {
		return nil, false, ErrBanInactive
	}

	exc := models.BanException{
		ID:         primitive.NewObjectID(),
		BanID:      ban.ID,
		CourseID:   courseID,
		UnbannedBy: moderatorID,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.exceptions.InsertOne(ctx, exc)
	if err == nil {
		return &exc, true, nil
	}
	if !wafflemongo.IsDup(err) {
		return nil, false, err
	}

	var existing models.BanException
	if err := s.exceptions.FindOne(ctx, bson.M{"ban_id": ban.ID, "course_id": courseID}).Decode(&existing); err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// HasException reports whether the ban has an exception for the course.
func (s *Store) HasException(ctx context.Context, banID primitive.ObjectID, courseID string) (bool, error) {
	count, err := s.exceptions.CountDocuments(ctx, bson.M{"ban_id": banID, "course_id": courseID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListExceptions returns the exceptions attached to a ban.
func (s *Store) ListExceptions(ctx context.Context, banID primitive.ObjectID) ([]models.BanException, error) {
	cursor, err := s.exceptions.Find(ctx, bson.M{"ban_id": banID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var excs []models.BanException
	if err := cursor.All(ctx, &excs); err != nil {
		return nil, err
	}
	return excs, nil
}

// IsUserBanned reports whether the user is banned in the course: an
// active course-scope ban for it, or an active org-scope ban for its
// org without a per-course exception.
func (s *Store) IsUserBanned(ctx context.Context, userID primitive.ObjectID, courseKey models.CourseKey) (bool, error) {
	scope, err := s.ActiveBanScope(ctx, userID, courseKey)
	if err != nil {
		return false, err
	}
	return scope != "", nil
}

// ActiveBanScope returns the scope of the ban in effect for the user in
// the course, with organization taking precedence over course, or ""
// when the user is not banned there.
func (s *Store) ActiveBanScope(ctx context.Context, userID primitive.ObjectID, courseKey models.CourseKey) (string, error) {
	orgBan, err := s.FindActive(ctx, userID, models.ScopeOrganization, courseKey.Org())
	if err != nil {
		return "", err
	}
	if orgBan != nil {
		excepted, err := s.HasException(ctx, orgBan.ID, courseKey.String())
		if err != nil {
			return "", err
		}
		if !excepted {
			return models.ScopeOrganization, nil
		}
	}

	courseBan, err := s.FindActive(ctx, userID, models.ScopeCourse, courseKey.String())
	if err != nil {
		return "", err
	}
	if courseBan != nil {
		return models.ScopeCourse, nil
	}
	return "", nil
}

// ListForCourse returns the active bans whose effective target includes
// the course: course-scope bans for it plus org-scope bans for its org
// that carry no exception for it. scopeFilter of "" returns both scopes.
func (s *Store) ListForCourse(ctx context.Context, courseKey models.CourseKey, scope string) ([]models.Ban, error) {
	var out []models.Ban

	if scope == "" || scope == models.ScopeCourse {
		cursor, err := s.bans.Find(ctx,
			bson.M{"scope": models.ScopeCourse, "course_id": courseKey.String(), "is_active": true},
			options.Find().SetSort(bson.D{{Key: "banned_at", Value: -1}}))
		if err != nil {
			return nil, err
		}
		if err := cursor.All(ctx, &out); err != nil {
			return nil, err
		}
	}

	if scope == "" || scope == models.ScopeOrganization {
		cursor, err := s.bans.Find(ctx,
			bson.M{"scope": models.ScopeOrganization, "org_key": courseKey.Org(), "is_active": true},
			options.Find().SetSort(bson.D{{Key: "banned_at", Value: -1}}))
		if err != nil {
			return nil, err
		}
		var orgBans []models.Ban
		if err := cursor.All(ctx, &orgBans); err != nil {
			return nil, err
		}
		for i := range orgBans {
			excepted, err := s.HasException(ctx, orgBans[i].ID, courseKey.String())
			if err != nil {
				return nil, err
			}
			if !excepted {
				out = append(out, orgBans[i])
			}
		}
	}

	return out, nil
}
