package shared

import (
	"testing"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/opencampus/discusshub/internal/app/store/bans"
	rolestore "github.com/opencampus/discusshub/internal/app/store/roles"
	"github.com/opencampus/discusshub/internal/app/store/users"
	"github.com/opencampus/discusshub/internal/app/system/render"
	"github.com/opencampus/discusshub/internal/app/system/roles"
	"github.com/opencampus/discusshub/internal/domain/models"
	"github.com/opencampus/discusshub/internal/testutil"
)

const serializerCourseID = "DemoX/CS101/2026"

type serializerEnv struct {
	db     *mongo.Database
	f      *testutil.Fixtures
	s      *Serializer
	bans   *bans.Store
	course models.Course
}

func newSerializerEnv(t *testing.T) *serializerEnv {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	banStore := bans.New(db)
	s := &Serializer{
		Renderer: render.Default(),
		Roles:    roles.NewResolver(rolestore.New(db)),
		Users:    users.New(db),
		Bans:     banStore,
	}
	course := f.CreateCourse(testutil.TestContext(t), serializerCourseID)
	return &serializerEnv{db: db, f: f, s: s, bans: banStore, course: course}
}

// envFor resolves the requester's role set the way the context resolver
// does before serialization.
func (e *serializerEnv) envFor(t *testing.T, user models.User) RequestEnv {
	t.Helper()
	set, err := e.s.Roles.Resolve(testutil.TestContext(t), &user, e.course.Key())
	if err != nil {
		t.Fatalf("resolve roles: %v", err)
	}
	return RequestEnv{Requester: &user, RoleSet: set, Course: &e.course}
}

func TestThread_AbuseFlaggedForPrivilegedViewer(t *testing.T) {
	env := newSerializerEnv(t)
	ctx := testutil.TestContext(t)
	alice := env.f.CreateUser(ctx, "alice")
	env.f.AddRole(ctx, alice.ID, serializerCourseID, models.RoleStudent)
	bob := env.f.CreateUser(ctx, "bob")
	env.f.AddRole(ctx, bob.ID, serializerCourseID, models.RoleStudent)
	mod := env.f.CreateUser(ctx, "mod")
	env.f.AddRole(ctx, mod.ID, serializerCourseID, models.RoleModerator)

	// bob flagged the thread; neither alice nor mod did.
	thread := &models.Thread{
		ID: "t1", CourseID: serializerCourseID, Type: models.ThreadTypeDiscussion,
		AuthorID: alice.ID.Hex(), Username: "alice", Body: "b",
		AbuseFlaggers: []string{bob.ID.Hex()},
	}

	view, err := env.s.Thread(ctx, thread, env.envFor(t, mod))
	if err != nil {
		t.Fatalf("serialize for mod: %v", err)
	}
	if !view.AbuseFlagged {
		t.Error("privileged viewer should see abuse_flagged when any flagger exists")
	}
	if view.AbuseFlaggedCount == nil || *view.AbuseFlaggedCount != 1 {
		t.Errorf("abuse_flagged_count: %v", view.AbuseFlaggedCount)
	}

	view, err = env.s.Thread(ctx, thread, env.envFor(t, alice))
	if err != nil {
		t.Fatalf("serialize for alice: %v", err)
	}
	if view.AbuseFlagged {
		t.Error("non-flagging student should not see abuse_flagged")
	}
	if view.AbuseFlaggedCount != nil {
		t.Error("flag count leaked to a student")
	}

	view, err = env.s.Thread(ctx, thread, env.envFor(t, bob))
	if err != nil {
		t.Fatalf("serialize for bob: %v", err)
	}
	if !view.AbuseFlagged {
		t.Error("flagger should see their own abuse_flagged")
	}
}

func TestComment_AbuseFlaggedAnyUser(t *testing.T) {
	env := newSerializerEnv(t)
	ctx := testutil.TestContext(t)
	alice := env.f.CreateUser(ctx, "alice")
	env.f.AddRole(ctx, alice.ID, serializerCourseID, models.RoleStudent)
	bob := env.f.CreateUser(ctx, "bob")
	env.f.AddRole(ctx, bob.ID, serializerCourseID, models.RoleStudent)
	mod := env.f.CreateUser(ctx, "mod")
	env.f.AddRole(ctx, mod.ID, serializerCourseID, models.RoleModerator)

	thread := &models.Thread{
		ID: "t1", CourseID: serializerCourseID, Type: models.ThreadTypeDiscussion,
		AuthorID: alice.ID.Hex(), Username: "alice", Body: "b",
	}
	cm := &models.Comment{
		ID: "c1", CourseID: serializerCourseID, ThreadID: "t1",
		AuthorID: alice.ID.Hex(), Username: "alice", Body: "c",
		AbuseFlaggers: []string{bob.ID.Hex()},
	}

	view, err := env.s.Comment(ctx, cm, thread, env.envFor(t, mod))
	if err != nil {
		t.Fatalf("serialize for mod: %v", err)
	}
	if !view.AbuseFlagged {
		t.Error("privileged viewer should see abuse_flagged on the comment")
	}
	if view.AbuseFlaggedAnyUser == nil || !*view.AbuseFlaggedAnyUser {
		t.Errorf("abuse_flagged_any_user: %v", view.AbuseFlaggedAnyUser)
	}

	view, err = env.s.Comment(ctx, cm, thread, env.envFor(t, alice))
	if err != nil {
		t.Fatalf("serialize for alice: %v", err)
	}
	if view.AbuseFlaggedAnyUser != nil {
		t.Error("abuse_flagged_any_user leaked to a student")
	}
}

func TestThread_BanScopeVisibleToPeers(t *testing.T) {
	env := newSerializerEnv(t)
	ctx := testutil.TestContext(t)
	alice := env.f.CreateUser(ctx, "alice")
	env.f.AddRole(ctx, alice.ID, serializerCourseID, models.RoleStudent)
	bob := env.f.CreateUser(ctx, "bob")
	env.f.AddRole(ctx, bob.ID, serializerCourseID, models.RoleStudent)
	mod := env.f.CreateUser(ctx, "mod")
	env.f.AddRole(ctx, mod.ID, serializerCourseID, models.RoleModerator)

	if _, _, err := env.bans.CreateOrReactivate(ctx, alice.ID, models.ScopeCourse, serializerCourseID, "spam", mod.ID); err != nil {
		t.Fatalf("ban: %v", err)
	}
	thread := &models.Thread{
		ID: "t1", CourseID: serializerCourseID, Type: models.ThreadTypeDiscussion,
		AuthorID: alice.ID.Hex(), Username: "alice", Body: "b",
	}

	// A peer student sees both the flag and the scope.
	view, err := env.s.Thread(ctx, thread, env.envFor(t, bob))
	if err != nil {
		t.Fatalf("serialize for bob: %v", err)
	}
	if !view.IsAuthorBanned {
		t.Error("peer should see is_author_banned")
	}
	if view.AuthorBanScope == nil || *view.AuthorBanScope != models.ScopeCourse {
		t.Errorf("author_ban_scope for peer: %v", view.AuthorBanScope)
	}
}

func TestThread_BanStateSuppressedForAnonymousAuthor(t *testing.T) {
	env := newSerializerEnv(t)
	ctx := testutil.TestContext(t)
	alice := env.f.CreateUser(ctx, "alice")
	env.f.AddRole(ctx, alice.ID, serializerCourseID, models.RoleStudent)
	bob := env.f.CreateUser(ctx, "bob")
	env.f.AddRole(ctx, bob.ID, serializerCourseID, models.RoleStudent)
	mod := env.f.CreateUser(ctx, "mod")
	env.f.AddRole(ctx, mod.ID, serializerCourseID, models.RoleModerator)

	if _, _, err := env.bans.CreateOrReactivate(ctx, alice.ID, models.ScopeCourse, serializerCourseID, "spam", mod.ID); err != nil {
		t.Fatalf("ban: %v", err)
	}
	thread := &models.Thread{
		ID: "t1", CourseID: serializerCourseID, Type: models.ThreadTypeDiscussion,
		AuthorID: alice.ID.Hex(), Username: "alice", Body: "b",
		Anonymous: true,
	}

	view, err := env.s.Thread(ctx, thread, env.envFor(t, bob))
	if err != nil {
		t.Fatalf("serialize for bob: %v", err)
	}
	if view.Author != nil {
		t.Errorf("anonymous author exposed: %v", view.Author)
	}
	if view.IsAuthorBanned || view.AuthorBanScope != nil {
		t.Error("ban annotation on an anonymous post identifies the author")
	}

	// Fully anonymous hides the author from moderators too, and the ban
	// state goes with it.
	view, err = env.s.Thread(ctx, thread, env.envFor(t, mod))
	if err != nil {
		t.Fatalf("serialize for mod: %v", err)
	}
	if view.Author != nil || view.IsAuthorBanned {
		t.Error("ban annotation survived for a privileged viewer of an anonymous post")
	}
}

func TestThread_ModeratorAuthorLabel(t *testing.T) {
	env := newSerializerEnv(t)
	ctx := testutil.TestContext(t)
	mod := env.f.CreateUser(ctx, "mod")
	env.f.AddRole(ctx, mod.ID, serializerCourseID, models.RoleModerator)
	staff := env.f.CreateStaffUser(ctx, "admin")
	bob := env.f.CreateUser(ctx, "bob")
	env.f.AddRole(ctx, bob.ID, serializerCourseID, models.RoleStudent)

	modThread := &models.Thread{
		ID: "t1", CourseID: serializerCourseID, Type: models.ThreadTypeDiscussion,
		AuthorID: mod.ID.Hex(), Username: "mod", Body: "b",
	}
	view, err := env.s.Thread(ctx, modThread, env.envFor(t, bob))
	if err != nil {
		t.Fatalf("serialize mod thread: %v", err)
	}
	if view.AuthorLabel == nil || *view.AuthorLabel != LabelModerator {
		t.Errorf("moderator label: %v", view.AuthorLabel)
	}

	staffThread := &models.Thread{
		ID: "t2", CourseID: serializerCourseID, Type: models.ThreadTypeDiscussion,
		AuthorID: staff.ID.Hex(), Username: "admin", Body: "b",
	}
	view, err = env.s.Thread(ctx, staffThread, env.envFor(t, bob))
	if err != nil {
		t.Fatalf("serialize staff thread: %v", err)
	}
	if view.AuthorLabel == nil || *view.AuthorLabel != LabelStaff {
		t.Errorf("staff label: %v", view.AuthorLabel)
	}
}

func TestThread_CloseDetailsForAuthor(t *testing.T) {
	env := newSerializerEnv(t)
	ctx := testutil.TestContext(t)
	alice := env.f.CreateUser(ctx, "alice")
	env.f.AddRole(ctx, alice.ID, serializerCourseID, models.RoleStudent)
	bob := env.f.CreateUser(ctx, "bob")
	env.f.AddRole(ctx, bob.ID, serializerCourseID, models.RoleStudent)
	mod := env.f.CreateUser(ctx, "mod")
	env.f.AddRole(ctx, mod.ID, serializerCourseID, models.RoleModerator)

	thread := &models.Thread{
		ID: "t1", CourseID: serializerCourseID, Type: models.ThreadTypeDiscussion,
		AuthorID: alice.ID.Hex(), Username: "alice", Body: "b",
		Closed: true, CloseReasonCode: "off-topic",
		ClosedBy: "mod", ClosingUserID: mod.ID.Hex(),
	}

	// The thread author sees why and by whom it was closed.
	view, err := env.s.Thread(ctx, thread, env.envFor(t, alice))
	if err != nil {
		t.Fatalf("serialize for author: %v", err)
	}
	if view.CloseReason == nil || *view.CloseReason != "Post is off-topic" {
		t.Errorf("close_reason for author: %v", view.CloseReason)
	}
	if view.ClosedBy == nil || *view.ClosedBy != "mod" {
		t.Errorf("closed_by for author: %v", view.ClosedBy)
	}
	if view.ClosedByLabel == nil || *view.ClosedByLabel != LabelModerator {
		t.Errorf("closed_by_label for author: %v", view.ClosedByLabel)
	}

	// A bystander student sees the closed flag only.
	view, err = env.s.Thread(ctx, thread, env.envFor(t, bob))
	if err != nil {
		t.Fatalf("serialize for peer: %v", err)
	}
	if !view.Closed {
		t.Error("closed flag lost")
	}
	if view.CloseReason != nil || view.ClosedBy != nil || view.ClosedByLabel != nil {
		t.Error("close details leaked to a bystander")
	}
}

func TestComment_EndorserMaskedOnAnonymousThread(t *testing.T) {
	env := newSerializerEnv(t)
	ctx := testutil.TestContext(t)
	alice := env.f.CreateUser(ctx, "alice")
	env.f.AddRole(ctx, alice.ID, serializerCourseID, models.RoleStudent)
	bob := env.f.CreateUser(ctx, "bob")
	env.f.AddRole(ctx, bob.ID, serializerCourseID, models.RoleStudent)
	carol := env.f.CreateUser(ctx, "carol")
	env.f.AddRole(ctx, carol.ID, serializerCourseID, models.RoleStudent)
	mod := env.f.CreateUser(ctx, "mod")
	env.f.AddRole(ctx, mod.ID, serializerCourseID, models.RoleModerator)

	answer := func(threadType string, anonymousToPeers bool, endorserID string) (*models.Comment, *models.Thread) {
		thread := &models.Thread{
			ID: "t1", CourseID: serializerCourseID, Type: threadType,
			AuthorID: alice.ID.Hex(), Username: "alice", Body: "b",
			AnonymousToPeers: anonymousToPeers,
		}
		cm := &models.Comment{
			ID: "c1", CourseID: serializerCourseID, ThreadID: "t1",
			AuthorID: bob.ID.Hex(), Username: "bob", Body: "answer",
			Endorsed:    true,
			Endorsement: &models.Endorsement{UserID: endorserID},
		}
		return cm, thread
	}

	// Visible thread: everyone sees who endorsed, even a student endorser.
	cm, thread := answer(models.ThreadTypeQuestion, false, carol.ID.Hex())
	view, err := env.s.Comment(ctx, cm, thread, env.envFor(t, bob))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if view.EndorsedBy == nil || *view.EndorsedBy != "carol" {
		t.Errorf("endorsed_by on a visible thread: %v", view.EndorsedBy)
	}

	// Thread anonymised to peers + unprivileged endorser: identity hidden,
	// timestamp kept.
	cm, thread = answer(models.ThreadTypeQuestion, true, carol.ID.Hex())
	view, err = env.s.Comment(ctx, cm, thread, env.envFor(t, bob))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if view.EndorsedBy != nil {
		t.Errorf("unprivileged endorser exposed on an anonymised thread: %v", view.EndorsedBy)
	}

	// A privileged endorser is shown even there.
	cm, thread = answer(models.ThreadTypeQuestion, true, mod.ID.Hex())
	view, err = env.s.Comment(ctx, cm, thread, env.envFor(t, bob))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if view.EndorsedBy == nil || *view.EndorsedBy != "mod" {
		t.Errorf("privileged endorser hidden: %v", view.EndorsedBy)
	}
	if view.EndorsedByLabel == nil || *view.EndorsedByLabel != LabelModerator {
		t.Errorf("endorser label: %v", view.EndorsedByLabel)
	}

	// The anonymised thread is visible to a moderator requester, so the
	// endorser shows again.
	cm, thread = answer(models.ThreadTypeQuestion, true, carol.ID.Hex())
	view, err = env.s.Comment(ctx, cm, thread, env.envFor(t, mod))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if view.EndorsedBy == nil || *view.EndorsedBy != "carol" {
		t.Errorf("endorser hidden from moderator: %v", view.EndorsedBy)
	}
}
