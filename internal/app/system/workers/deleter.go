// internal/app/system/workers/deleter.go

// Package workers holds the background workers. The deleter drains the
// durable deletion-job queue: each job removes a user's forum content
// from a set of courses and optionally bans them afterwards.
package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opencampus/discusshub/internal/app/forum"
	"github.com/opencampus/discusshub/internal/app/store/audit"
	"github.com/opencampus/discusshub/internal/app/store/bans"
	"github.com/opencampus/discusshub/internal/app/store/jobs"
	"github.com/opencampus/discusshub/internal/app/system/auditlog"
	"github.com/opencampus/discusshub/internal/domain/models"
)

const deletePageSize = 100

// Deleter is the background worker pool for bulk deletions.
type Deleter struct {
	jobs     *jobs.Store
	forum    forum.Client
	bans     *bans.Store
	audit    *auditlog.Logger
	log      *zap.Logger
	interval time.Duration
	workers  int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewDeleter creates a deleter pool.
//
// Parameters:
//   - interval: how often an idle worker polls the queue
//   - workers: number of concurrent job processors
func NewDeleter(jobStore *jobs.Store, client forum.Client, banStore *bans.Store, auditLog *auditlog.Logger, logger *zap.Logger, interval time.Duration, workers int) *Deleter {
	if workers < 1 {
		workers = 1
	}
	return &Deleter{
		jobs:     jobStore,
		forum:    client,
		bans:     banStore,
		audit:    auditLog,
		log:      logger,
		interval: interval,
		workers:  workers,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (d *Deleter) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	d.log.Info("bulk deleter started",
		zap.Int("workers", d.workers),
		zap.Duration("poll_interval", d.interval))
}

// Stop signals the workers to stop and waits for in-flight jobs.
func (d *Deleter) Stop() {
	close(d.stopCh)
	d.wg.Wait()
	d.log.Info("bulk deleter stopped")
}

func (d *Deleter) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		// Drain the queue before sleeping.
		for {
			select {
			case <-d.stopCh:
				return
			default:
			}
			if !d.runOne() {
				break
			}
		}

		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
		}
	}
}

// runOne claims and processes a single job. Returns false when the
// queue was empty.
func (d *Deleter) runOne() bool {
	ctx := context.Background()

	job, err := d.jobs.ClaimNext(ctx)
	if err != nil {
		d.log.Error("failed to claim deletion job", zap.Error(err))
		return false
	}
	if job == nil {
		return false
	}

	d.log.Info("processing deletion job",
		zap.String("task_id", job.TaskID),
		zap.String("target_username", job.TargetUsername),
		zap.Int("courses", len(job.CourseIDs)))

	d.process(ctx, job)
	return true
}

// progress is the running state of one job.
type progress struct {
	threads   int
	comments  int
	failed    int
	cancelled bool
}

func (d *Deleter) process(ctx context.Context, job *jobs.DeletionJob) {
	var p progress

	for _, courseID := range job.CourseIDs {
		if p.cancelled {
			break
		}
		// Comments first so deleted threads never orphan audit rows for
		// comments removed with them.
		d.deleteComments(ctx, job, courseID, &p)
		if !p.cancelled {
			d.deleteThreads(ctx, job, courseID, &p)
		}
		if err := d.jobs.UpdateProgress(ctx, job.ID, p.threads, p.comments, p.failed); err != nil {
			d.log.Error("failed to record job progress", zap.Error(err))
		}
	}

	if p.cancelled {
		if err := d.jobs.Finish(ctx, job.ID, jobs.StatusCancelled, p.threads, p.comments, p.failed); err != nil {
			d.log.Error("failed to finish job", zap.Error(err))
		}
		d.log.Info("deletion job cancelled",
			zap.String("task_id", job.TaskID),
			zap.Int("threads_deleted", p.threads),
			zap.Int("comments_deleted", p.comments))
		return
	}

	if job.BanUser {
		d.banTarget(ctx, job)
	}

	if err := d.jobs.Finish(ctx, job.ID, jobs.StatusDone, p.threads, p.comments, p.failed); err != nil {
		d.log.Error("failed to finish job", zap.Error(err))
	}
	d.log.Info("deletion job done",
		zap.String("task_id", job.TaskID),
		zap.Int("threads_deleted", p.threads),
		zap.Int("comments_deleted", p.comments),
		zap.Int("failed", p.failed))
}

// checkCancel re-reads the cancel flag; called at item boundaries.
func (d *Deleter) checkCancel(ctx context.Context, job *jobs.DeletionJob, p *progress) bool {
	cancelled, err := d.jobs.IsCancelRequested(ctx, job.ID)
	if err != nil {
		d.log.Error("failed to read cancel flag", zap.Error(err))
		return false
	}
	if cancelled {
		p.cancelled = true
	}
	return cancelled
}

func (d *Deleter) deleteComments(ctx context.Context, job *jobs.DeletionJob, courseID string, p *progress) {
	for {
		page, err := d.forum.UserComments(ctx, job.TargetUsername, courseID, 1, deletePageSize)
		if err != nil {
			d.log.Error("failed to list user comments",
				zap.String("course_id", courseID), zap.Error(err))
			p.failed++
			return
		}
		if len(page.Comments) == 0 {
			return
		}

		deletedAny := false
		for i := range page.Comments {
			if d.checkCancel(ctx, job, p) {
				return
			}
			cm := &page.Comments[i]
			switch err := d.forum.DeleteComment(ctx, cm.ID, courseID); {
			case err == nil:
				p.comments++
				deletedAny = true
				d.auditDelete(ctx, job, courseID, cm.ID, false)
			case errors.Is(err, forum.ErrNotFound):
				// Already gone; children disappear with their parents.
				deletedAny = true
			default:
				d.log.Warn("failed to delete comment",
					zap.String("comment_id", cm.ID), zap.Error(err))
				p.failed++
			}
		}
		if !deletedAny {
			return
		}
	}
}

func (d *Deleter) deleteThreads(ctx context.Context, job *jobs.DeletionJob, courseID string, p *progress) {
	for {
		page, err := d.forum.UserThreads(ctx, job.TargetUsername, courseID, 1, deletePageSize)
		if err != nil {
			d.log.Error("failed to list user threads",
				zap.String("course_id", courseID), zap.Error(err))
			p.failed++
			return
		}
		if len(page.Threads) == 0 {
			return
		}

		deletedAny := false
		for i := range page.Threads {
			if d.checkCancel(ctx, job, p) {
				return
			}
			t := &page.Threads[i]
			switch err := d.forum.DeleteThread(ctx, t.ID, courseID); {
			case err == nil:
				p.threads++
				deletedAny = true
				d.auditDelete(ctx, job, courseID, t.ID, true)
			case errors.Is(err, forum.ErrNotFound):
				deletedAny = true
			default:
				d.log.Warn("failed to delete thread",
					zap.String("thread_id", t.ID), zap.Error(err))
				p.failed++
			}
		}
		if !deletedAny {
			return
		}
	}
}

func (d *Deleter) auditDelete(ctx context.Context, job *jobs.DeletionJob, courseID, contentID string, isThread bool) {
	if err := d.audit.ContentDelete(ctx, job.TargetUserID, job.ModeratorUserID, courseID, contentID, audit.SourceAutomated, isThread); err != nil {
		d.log.Error("failed to audit bulk delete", zap.Error(err))
	}
}

// banTarget applies the requested ban after a completed (uncancelled)
// cleanup. Organization scope produces one ban per distinct org.
func (d *Deleter) banTarget(ctx context.Context, job *jobs.DeletionJob) {
	type target struct{ scope, key, courseID string }
	var targets []target

	if job.BanScope == models.ScopeOrganization {
		seen := make(map[string]bool)
		for _, courseID := range job.CourseIDs {
			key, err := models.ParseCourseKey(courseID)
			if err != nil {
				continue
			}
			if org := key.Org(); !seen[org] {
				seen[org] = true
				targets = append(targets, target{scope: models.ScopeOrganization, key: org})
			}
		}
	} else {
		for _, courseID := range job.CourseIDs {
			targets = append(targets, target{scope: models.ScopeCourse, key: courseID, courseID: courseID})
		}
	}

	for _, t := range targets {
		_, reactivated, err := d.bans.CreateOrReactivate(ctx, job.TargetUserID, t.scope, t.key, job.Reason, job.ModeratorUserID)
		if err != nil {
			if errors.Is(err, bans.ErrDuplicateActiveBan) {
				continue // already banned, nothing to do
			}
			d.log.Error("failed to ban user after cleanup",
				zap.String("scope", t.scope), zap.String("key", t.key), zap.Error(err))
			continue
		}
		if err := d.audit.Ban(ctx, job.TargetUserID, job.ModeratorUserID, t.courseID, t.scope, job.Reason, audit.SourceAutomated, reactivated); err != nil {
			d.log.Error("failed to audit automated ban", zap.Error(err))
		}
	}
}
