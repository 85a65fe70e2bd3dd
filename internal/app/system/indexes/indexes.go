// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/opencampus/discusshub/internal/app/store/audit"
	"github.com/opencampus/discusshub/internal/app/store/bans"
	"github.com/opencampus/discusshub/internal/app/store/jobs"
	"github.com/opencampus/discusshub/internal/app/store/roles"
	"github.com/opencampus/discusshub/internal/app/store/users"
)

/*
EnsureAll is called at startup. Each store's EnsureIndexes is
idempotent. We aggregate errors so any problem is visible and startup
can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := users.New(db).EnsureIndexes(ctx); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := roles.New(db).EnsureIndexes(ctx); err != nil {
		problems = append(problems, "course_roles: "+err.Error())
	}
	if err := bans.New(db).EnsureIndexes(ctx); err != nil {
		problems = append(problems, "discussion_bans: "+err.Error())
	}
	if err := audit.New(db).EnsureIndexes(ctx); err != nil {
		problems = append(problems, "audit_events: "+err.Error())
	}
	if err := jobs.New(db).EnsureIndexes(ctx); err != nil {
		problems = append(problems, "deletion_jobs: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
