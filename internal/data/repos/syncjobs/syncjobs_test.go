package syncjobs

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/coursesync-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
)

func txContext(t *testing.T, db *gorm.DB) dbctx.Context {
	t.Helper()
	return dbctx.Context{Ctx: context.Background(), Tx: testutil.Tx(t, db)}
}

type seeded struct {
	user   *types.User
	course *types.Course
	source *types.Source
}

func seed(t *testing.T, dbc dbctx.Context) seeded {
	t.Helper()
	u := &types.User{AuthID: "auth-" + time.Now().Format("150405.000000000"), Email: time.Now().Format("150405.000000000") + "@test.local"}
	if err := dbc.Tx.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	c := &types.Course{Title: "Operating Systems"}
	if err := dbc.Tx.Create(c).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	s := &types.Source{CourseID: c.ID, URL: "https://course.example/os", RequiresAuth: true}
	if err := dbc.Tx.Create(s).Error; err != nil {
		t.Fatalf("seed source: %v", err)
	}
	return seeded{user: u, course: c, source: s}
}

func TestJobSyncGroupMarkCompleteOnce(t *testing.T) {
	db := testutil.DB(t)
	dbc := txContext(t, db)
	groups := NewJobSyncGroupRepo(db, testutil.Logger(t))

	sd := seed(t, dbc)
	g, err := groups.Create(dbc, &types.JobSyncGroup{UserID: sd.user.ID})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if g.CompletedAt != nil {
		t.Fatalf("new group must be open")
	}

	if err := groups.MarkComplete(dbc, g.ID); err != nil {
		t.Fatalf("mark complete: %v", err)
	}
	first, _ := groups.GetByID(dbc, g.ID)
	if first.CompletedAt == nil {
		t.Fatalf("completed_at not stamped")
	}

	time.Sleep(10 * time.Millisecond)
	if err := groups.MarkComplete(dbc, g.ID); err != nil {
		t.Fatalf("re-mark complete: %v", err)
	}
	second, _ := groups.GetByID(dbc, g.ID)
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Fatalf("completed_at must keep its first timestamp")
	}
}

func TestJobSyncGetPreviousWithTree(t *testing.T) {
	db := testutil.DB(t)
	dbc := txContext(t, db)
	groups := NewJobSyncGroupRepo(db, testutil.Logger(t))
	jobs := NewJobSyncRepo(db, testutil.Logger(t))

	sd := seed(t, dbc)
	g, _ := groups.Create(dbc, &types.JobSyncGroup{UserID: sd.user.ID})

	mk := func() *types.JobSync {
		created, err := jobs.Create(dbc, []*types.JobSync{{
			JobSyncGroupID: g.ID,
			CourseID:       sd.course.ID,
			SourceID:       sd.source.ID,
		}})
		if err != nil {
			t.Fatalf("create job sync: %v", err)
		}
		return created[0]
	}

	old := mk()
	if err := jobs.UpdatePageTree(dbc, old.ID, datatypes.JSON(`{"root":{"url":"https://course.example/os"}}`)); err != nil {
		t.Fatalf("update tree: %v", err)
	}
	// Force distinct created_at ordering.
	if err := dbc.Tx.Model(&types.JobSync{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	recent := mk()
	if err := jobs.UpdatePageTree(dbc, recent.ID, datatypes.JSON(`{"root":{"url":"https://course.example/os","title":"OS"}}`)); err != nil {
		t.Fatalf("update tree: %v", err)
	}

	treeless := mk()
	current := mk()

	prev, err := jobs.GetPreviousWithTree(dbc, sd.course.ID, sd.source.ID, current.ID)
	if err != nil {
		t.Fatalf("get previous: %v", err)
	}
	if prev == nil || prev.ID != recent.ID {
		t.Fatalf("expected most recent tree-bearing sync, got %+v", prev)
	}
	if prev.ID == treeless.ID {
		t.Fatalf("sync without page_tree must never be selected")
	}

	// The current sync is excluded even once it has a tree.
	if err := jobs.UpdatePageTree(dbc, current.ID, datatypes.JSON(`{"root":{"url":"x"}}`)); err != nil {
		t.Fatalf("update tree: %v", err)
	}
	prev, err = jobs.GetPreviousWithTree(dbc, sd.course.ID, sd.source.ID, current.ID)
	if err != nil {
		t.Fatalf("get previous again: %v", err)
	}
	if prev == nil || prev.ID == current.ID {
		t.Fatalf("current sync must be excluded, got %+v", prev)
	}
}

func TestJobSyncListByGroupOrdered(t *testing.T) {
	db := testutil.DB(t)
	dbc := txContext(t, db)
	groups := NewJobSyncGroupRepo(db, testutil.Logger(t))
	jobs := NewJobSyncRepo(db, testutil.Logger(t))

	sd := seed(t, dbc)
	g, _ := groups.Create(dbc, &types.JobSyncGroup{UserID: sd.user.ID})

	created, err := jobs.Create(dbc, []*types.JobSync{
		{JobSyncGroupID: g.ID, CourseID: sd.course.ID, SourceID: sd.source.ID},
		{JobSyncGroupID: g.ID, CourseID: sd.course.ID, SourceID: sd.source.ID},
	})
	if err != nil {
		t.Fatalf("batch create: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(created))
	}

	list, err := jobs.ListByGroup(dbc, g.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 rows in group, got %d", len(list))
	}
}
