package jobs

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/opencampus/discusshub/internal/testutil"
)

func newJob(taskID string) DeletionJob {
	return DeletionJob{
		TaskID:          taskID,
		TargetUserID:    primitive.NewObjectID(),
		TargetUsername:  "spammer",
		CourseIDs:       []string{"DemoX/CS101/2026"},
		ModeratorUserID: primitive.NewObjectID(),
	}
}

func TestEnqueueAndClaim(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := New(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	first, err := store.Enqueue(ctx, newJob("task-1"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if first.Status != StatusPending {
		t.Errorf("enqueued status: %q", first.Status)
	}
	if _, err := store.Enqueue(ctx, newJob("task-2")); err != nil {
		t.Fatalf("Enqueue second: %v", err)
	}

	// Oldest first.
	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed == nil || claimed.TaskID != "task-1" {
		t.Fatalf("claimed: %+v", claimed)
	}
	if claimed.Status != StatusRunning || claimed.StartedAt == nil {
		t.Errorf("claimed state: %+v", claimed)
	}

	second, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("second ClaimNext: %v", err)
	}
	if second == nil || second.TaskID != "task-2" {
		t.Fatalf("second claim: %+v", second)
	}

	// Queue drained.
	third, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("third ClaimNext: %v", err)
	}
	if third != nil {
		t.Errorf("claimed from an empty queue: %+v", third)
	}
}

func TestGetByTaskID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := New(db)

	if _, err := store.Enqueue(ctx, newJob("task-1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job, err := store.GetByTaskID(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if job == nil || job.TargetUsername != "spammer" {
		t.Errorf("job: %+v", job)
	}

	missing, err := store.GetByTaskID(ctx, "no-such-task")
	if err != nil {
		t.Fatalf("GetByTaskID missing: %v", err)
	}
	if missing != nil {
		t.Errorf("missing task returned: %+v", missing)
	}
}

func TestProgressAndFinish(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := New(db)

	job, err := store.Enqueue(ctx, newJob("task-1"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := store.UpdateProgress(ctx, job.ID, 3, 10, 1); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	got, _ := store.GetByTaskID(ctx, "task-1")
	if got.ThreadsDeleted != 3 || got.CommentsDeleted != 10 || got.Failed != 1 {
		t.Errorf("progress: %+v", got)
	}

	if err := store.Finish(ctx, job.ID, StatusDone, 5, 12, 1); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	got, _ = store.GetByTaskID(ctx, "task-1")
	if got.Status != StatusDone || got.FinishedAt == nil {
		t.Errorf("finished job: %+v", got)
	}
	if got.ThreadsDeleted != 5 || got.CommentsDeleted != 12 {
		t.Errorf("final totals: %+v", got)
	}
}

func TestRequestCancel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := New(db)

	job, err := store.Enqueue(ctx, newJob("task-1"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ok, err := store.RequestCancel(ctx, "task-1")
	if err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if !ok {
		t.Fatal("cancel of a pending job should succeed")
	}
	flagged, err := store.IsCancelRequested(ctx, job.ID)
	if err != nil {
		t.Fatalf("IsCancelRequested: %v", err)
	}
	if !flagged {
		t.Error("cancel flag not recorded")
	}

	// Finished jobs cannot be cancelled.
	if err := store.Finish(ctx, job.ID, StatusDone, 0, 0, 0); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	ok, err = store.RequestCancel(ctx, "task-1")
	if err != nil {
		t.Fatalf("RequestCancel after finish: %v", err)
	}
	if ok {
		t.Error("cancel of a finished job should report false")
	}

	// Unknown tasks report false.
	ok, err = store.RequestCancel(ctx, "no-such-task")
	if err != nil {
		t.Fatalf("RequestCancel unknown: %v", err)
	}
	if ok {
		t.Error("cancel of an unknown task should report false")
	}
}
