package extractor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/gcp"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
	"github.com/yungbote/coursesync-backend/internal/sync/oracle"
	"github.com/yungbote/coursesync-backend/internal/sync/pagetree"
)

// memAssignmentRepo is an in-memory AssignmentRepo for extractor tests.
type memAssignmentRepo struct {
	mu   sync.Mutex
	rows []*types.Assignment
}

func (m *memAssignmentRepo) Create(_ dbctx.Context, a *types.Assignment) (*types.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	m.rows = append(m.rows, a)
	return a, nil
}

func (m *memAssignmentRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memAssignmentRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Assignment, error) {
	var out []*types.Assignment
	for _, id := range ids {
		a, _ := m.GetByID(dbc, id)
		if a != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAssignmentRepo) ListByCourse(_ dbctx.Context, courseID uuid.UUID) ([]*types.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Assignment
	for _, a := range m.rows {
		if a.CourseID == courseID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAssignmentRepo) ListByCourses(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Assignment, error) {
	var out []*types.Assignment
	for _, id := range courseIDs {
		rows, _ := m.ListByCourse(dbc, id)
		out = append(out, rows...)
	}
	return out, nil
}

func (m *memAssignmentRepo) FindByCourseAndTitle(_ dbctx.Context, courseID uuid.UUID, title string) (*types.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.CourseID == courseID && a.Title == title {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memAssignmentRepo) AppendSourcePath(dbc dbctx.Context, id uuid.UUID, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ID != id {
			continue
		}
		paths := SourcePaths(a)
		for _, p := range paths {
			if p == path {
				return false, nil
			}
		}
		raw, err := pathsJSON(append(paths, path))
		if err != nil {
			return false, err
		}
		a.SourcePagePaths = raw
		return true, nil
	}
	return false, nil
}

func (m *memAssignmentRepo) SetChosenDueDate(_ dbctx.Context, id, dueDateID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ID == id {
			d := dueDateID
			a.ChosenDueDateID = &d
			return nil
		}
	}
	return nil
}

// fakeExtractionOracle returns configured records per page marker string
// and judges "repeated" by whether the title already appears in the prior
// context, like the real oracle is prompted to.
type fakeExtractionOracle struct {
	byMarker map[string][]oracle.ExtractedAssignment
	err      error
	calls    int
}

func (o *fakeExtractionOracle) Extract(_ context.Context, pageText, priorPretty string) ([]oracle.ExtractedAssignment, error) {
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	for marker, records := range o.byMarker {
		if !strings.Contains(pageText, marker) {
			continue
		}
		out := make([]oracle.ExtractedAssignment, len(records))
		for i, r := range records {
			r.Repeated = strings.Contains(priorPretty, r.Title)
			out[i] = r
		}
		return out, nil
	}
	return nil, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

type fixture struct {
	blobs   *gcp.MemBlobStore
	repo    *memAssignmentRepo
	oracle  *fakeExtractionOracle
	ext     *Extractor
	jobSync *types.JobSync
	tree    *pagetree.Tree
}

// Five-page course: page 2 lists HW1 and HW2, page 5 lists HW1 again.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	blobs := gcp.NewMemBlobStore()
	ctx := context.Background()
	jobSyncID := uuid.New()
	namespace := jobSyncID.String()

	put := func(url, text string) string {
		path, err := blobs.PutHTML(ctx, namespace, url, []byte("<html><body><p>"+text+"</p></body></html>"))
		require.NoError(t, err)
		return path
	}
	p1 := put("https://site/p1", "welcome")
	p2 := put("https://site/p2", "hw-listing-page")
	p5 := put("https://site/p5", "hw-one-detail-page")

	tree := &pagetree.Tree{Root: &pagetree.Node{
		URL: "https://site/p1", HTMLPath: p1, ContentHash: "h1", ContentChanged: true,
		Children: []*pagetree.Node{
			{URL: "https://site/p2", HTMLPath: p2, ContentHash: "h2", ContentChanged: true},
			{URL: "https://site/p5", HTMLPath: p5, ContentHash: "h5", ContentChanged: true},
		},
	}}

	fake := &fakeExtractionOracle{byMarker: map[string][]oracle.ExtractedAssignment{
		"hw-listing-page": {
			{Title: "HW1", Description: "Implement a key-value store"},
			{Title: "HW2", Description: "Add replication"},
		},
		"hw-one-detail-page": {
			{Title: "HW1", Description: "Implement a key-value store"},
		},
	}}

	repo := &memAssignmentRepo{}
	return &fixture{
		blobs:   blobs,
		repo:    repo,
		oracle:  fake,
		ext:     New(testLogger(t), blobs, fake, repo),
		jobSync: &types.JobSync{ID: jobSyncID, CourseID: uuid.New()},
		tree:    tree,
	}
}

func TestExtractFirstSync(t *testing.T) {
	f := newFixture(t)

	res, err := f.ext.Extract(context.Background(), f.jobSync, f.tree)
	require.NoError(t, err)

	assert.Equal(t, 3, res.PagesProcessed)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.PathsAppended, "page 5 re-evidences HW1")
	assert.Len(t, res.Touched, 2)

	hw1, err := f.repo.FindByCourseAndTitle(dbctx.Background(), f.jobSync.CourseID, "HW1")
	require.NoError(t, err)
	require.NotNil(t, hw1)
	assert.Len(t, SourcePaths(hw1), 2)

	hw2, err := f.repo.FindByCourseAndTitle(dbctx.Background(), f.jobSync.CourseID, "HW2")
	require.NoError(t, err)
	require.NotNil(t, hw2)
	assert.Len(t, SourcePaths(hw2), 1)
}

func TestExtractIdempotent(t *testing.T) {
	f := newFixture(t)

	_, err := f.ext.Extract(context.Background(), f.jobSync, f.tree)
	require.NoError(t, err)

	before := len(f.repo.rows)
	hw1, _ := f.repo.FindByCourseAndTitle(dbctx.Background(), f.jobSync.CourseID, "HW1")
	pathsBefore := SourcePaths(hw1)

	res, err := f.ext.Extract(context.Background(), f.jobSync, f.tree)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Created, "second run creates nothing")
	assert.Equal(t, 0, res.PathsAppended, "paths already recorded")
	assert.Len(t, f.repo.rows, before)

	hw1After, _ := f.repo.FindByCourseAndTitle(dbctx.Background(), f.jobSync.CourseID, "HW1")
	assert.Equal(t, pathsBefore, SourcePaths(hw1After))
	// Repeated assignments still count as touched so their due dates
	// get re-resolved.
	assert.Len(t, res.Touched, 2)
}

func TestExtractOnlyChangedPages(t *testing.T) {
	f := newFixture(t)

	_, err := f.ext.Extract(context.Background(), f.jobSync, f.tree)
	require.NoError(t, err)
	firstCalls := f.oracle.calls

	// Re-sync where only page 5 changed.
	f.tree.Root.ContentChanged = false
	f.tree.Root.Children[0].ContentChanged = false
	res, err := f.ext.Extract(context.Background(), f.jobSync, f.tree)
	require.NoError(t, err)

	assert.Equal(t, firstCalls+1, f.oracle.calls, "unchanged pages are skipped")
	assert.Equal(t, 1, res.PagesProcessed)
	assert.Len(t, res.Touched, 1)
	assert.Equal(t, "HW1", res.Touched[0].Title)
}

func TestExtractNewAssignmentAppears(t *testing.T) {
	f := newFixture(t)

	_, err := f.ext.Extract(context.Background(), f.jobSync, f.tree)
	require.NoError(t, err)

	// Page 2 now also lists HW3.
	f.oracle.byMarker["hw-listing-page"] = append(f.oracle.byMarker["hw-listing-page"],
		oracle.ExtractedAssignment{Title: "HW3", Description: "Build a consensus layer"})
	f.tree.Root.ContentChanged = false
	f.tree.Root.Children[1].ContentChanged = false

	res, err := f.ext.Extract(context.Background(), f.jobSync, f.tree)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	hw3, _ := f.repo.FindByCourseAndTitle(dbctx.Background(), f.jobSync.CourseID, "HW3")
	require.NotNil(t, hw3)
	assert.Len(t, SourcePaths(hw3), 1)

	hw1, _ := f.repo.FindByCourseAndTitle(dbctx.Background(), f.jobSync.CourseID, "HW1")
	assert.Len(t, SourcePaths(hw1), 2, "HW1 untouched")
}

func TestExtractSkipsFailedCrawlPages(t *testing.T) {
	f := newFixture(t)
	// Page without stored HTML (crawl timeout).
	f.tree.Root.Children = append(f.tree.Root.Children, &pagetree.Node{
		URL: "https://site/p3", ContentChanged: true, Error: "timeout",
	})

	res, err := f.ext.Extract(context.Background(), f.jobSync, f.tree)
	require.NoError(t, err)
	assert.Equal(t, 3, res.PagesProcessed)
	assert.Equal(t, 0, res.PagesFailed)
}

func TestExtractSystemicOracleOutage(t *testing.T) {
	f := newFixture(t)
	f.oracle.err = errors.New("rate limited")

	_, err := f.ext.Extract(context.Background(), f.jobSync, f.tree)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction failed on all")
}

func TestExtractMissingCourse(t *testing.T) {
	f := newFixture(t)
	f.jobSync.CourseID = uuid.Nil

	_, err := f.ext.Extract(context.Background(), f.jobSync, f.tree)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing course id")
}
