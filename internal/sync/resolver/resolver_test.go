package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/gcp"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
	"github.com/yungbote/coursesync-backend/internal/sync/oracle"
)

type memDueDateRepo struct {
	mu   sync.Mutex
	rows []*types.DueDate
}

func (m *memDueDateRepo) Create(_ dbctx.Context, d *types.DueDate) (*types.DueDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	m.rows = append(m.rows, d)
	return d, nil
}

func (m *memDueDateRepo) ListByAssignments(_ dbctx.Context, ids []uuid.UUID) ([]*types.DueDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.DueDate
	for _, d := range m.rows {
		for _, id := range ids {
			if d.AssignmentID == id {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

// chosenRecorder stubs just the due-date linkage of the assignment repo.
type chosenRecorder struct {
	mu     sync.Mutex
	chosen map[uuid.UUID]uuid.UUID
}

func (c *chosenRecorder) SetChosenDueDate(_ dbctx.Context, id, dueDateID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chosen == nil {
		c.chosen = map[uuid.UUID]uuid.UUID{}
	}
	c.chosen[id] = dueDateID
	return nil
}

func (c *chosenRecorder) Create(_ dbctx.Context, a *types.Assignment) (*types.Assignment, error) {
	return a, nil
}
func (c *chosenRecorder) GetByID(_ dbctx.Context, _ uuid.UUID) (*types.Assignment, error) {
	return nil, nil
}
func (c *chosenRecorder) GetByIDs(_ dbctx.Context, _ []uuid.UUID) ([]*types.Assignment, error) {
	return nil, nil
}
func (c *chosenRecorder) ListByCourse(_ dbctx.Context, _ uuid.UUID) ([]*types.Assignment, error) {
	return nil, nil
}
func (c *chosenRecorder) ListByCourses(_ dbctx.Context, _ []uuid.UUID) ([]*types.Assignment, error) {
	return nil, nil
}
func (c *chosenRecorder) FindByCourseAndTitle(_ dbctx.Context, _ uuid.UUID, _ string) (*types.Assignment, error) {
	return nil, nil
}
func (c *chosenRecorder) AppendSourcePath(_ dbctx.Context, _ uuid.UUID, _ string) (bool, error) {
	return false, nil
}

type fakeResolverOracle struct {
	byTitle    map[string]*oracle.ResolvedDueDate
	errByTitle map[string]error
	err        error
	lastInput  string
}

func (o *fakeResolverOracle) Resolve(_ context.Context, title, _, sourceText string) (*oracle.ResolvedDueDate, error) {
	o.lastInput = sourceText
	if o.err != nil {
		return nil, o.err
	}
	if err := o.errByTitle[title]; err != nil {
		return nil, err
	}
	return o.byTitle[title], nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

func pathsJSON(t *testing.T, paths []string) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(paths)
	require.NoError(t, err)
	return datatypes.JSON(raw)
}

func seedAssignment(t *testing.T, blobs *gcp.MemBlobStore, title string, pages ...string) *types.Assignment {
	t.Helper()
	ctx := context.Background()
	ns := uuid.New().String()
	var paths []string
	for i, body := range pages {
		path, err := blobs.PutHTML(ctx, ns, title+"-page-"+string(rune('a'+i)), []byte("<html><body><p>"+body+"</p></body></html>"))
		require.NoError(t, err)
		paths = append(paths, path)
	}
	return &types.Assignment{
		ID:              uuid.New(),
		CourseID:        uuid.New(),
		Title:           title,
		Description:     "desc of " + title,
		SourceURL:       "https://site/" + title,
		SourcePagePaths: pathsJSON(t, paths),
	}
}

func TestResolveAllPersistsOneDueDatePerAssignment(t *testing.T) {
	blobs := gcp.NewMemBlobStore()
	a := seedAssignment(t, blobs, "HW1", "HW1 is due October 3rd at 11:59pm")

	fake := &fakeResolverOracle{byTitle: map[string]*oracle.ResolvedDueDate{
		"HW1": {
			Date:        "2026-10-03T23:59:00",
			DateCertain: true,
			TimeCertain: true,
			Confidence:  0.95,
			Reasoning:   "stated on the assignment page",
		},
	}}
	dueDates := &memDueDateRepo{}
	assignments := &chosenRecorder{}
	r := New(testLogger(t), blobs, fake, assignments, dueDates)

	res, err := r.ResolveAll(context.Background(), []*types.Assignment{a})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Resolved)
	assert.Equal(t, 0, res.Placeholders)
	assert.Equal(t, 0, res.Failed)

	require.Len(t, dueDates.rows, 1)
	d := dueDates.rows[0]
	assert.Equal(t, a.ID, d.AssignmentID)
	require.NotNil(t, d.Date)
	assert.Equal(t, time.Date(2026, 10, 3, 23, 59, 0, 0, time.UTC), d.Date.UTC())
	assert.True(t, d.DateCertain)
	assert.True(t, d.TimeCertain)
	assert.Equal(t, "Due: HW1", d.Title)
	assert.Equal(t, "https://site/HW1", d.URL)

	assert.Equal(t, d.ID, assignments.chosen[a.ID])
	require.NotNil(t, a.ChosenDueDateID)
	assert.Equal(t, d.ID, *a.ChosenDueDateID)
}

func TestResolveAllNoAnswerWritesPlaceholder(t *testing.T) {
	blobs := gcp.NewMemBlobStore()
	a := seedAssignment(t, blobs, "HW2", "reading list, nothing dated")

	fake := &fakeResolverOracle{byTitle: map[string]*oracle.ResolvedDueDate{}}
	dueDates := &memDueDateRepo{}
	assignments := &chosenRecorder{}
	r := New(testLogger(t), blobs, fake, assignments, dueDates)

	res, err := r.ResolveAll(context.Background(), []*types.Assignment{a})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Resolved)
	assert.Equal(t, 1, res.Placeholders)

	require.Len(t, dueDates.rows, 1)
	d := dueDates.rows[0]
	assert.Nil(t, d.Date)
	assert.Zero(t, d.Confidence)
	assert.Equal(t, noDueDateFound, d.Description)
	assert.Equal(t, d.ID, assignments.chosen[a.ID])
}

func TestResolveAllUnparsableDateWritesPlaceholder(t *testing.T) {
	blobs := gcp.NewMemBlobStore()
	a := seedAssignment(t, blobs, "HW3", "due sometime next week")

	fake := &fakeResolverOracle{byTitle: map[string]*oracle.ResolvedDueDate{
		"HW3": {Date: "sometime next week", Confidence: 0.4, Reasoning: "only a vague mention"},
	}}
	dueDates := &memDueDateRepo{}
	r := New(testLogger(t), blobs, fake, &chosenRecorder{}, dueDates)

	res, err := r.ResolveAll(context.Background(), []*types.Assignment{a})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Placeholders)

	require.Len(t, dueDates.rows, 1)
	assert.Nil(t, dueDates.rows[0].Date)
	assert.Zero(t, dueDates.rows[0].Confidence)
	assert.Equal(t, "only a vague mention", dueDates.rows[0].Description)
}

func TestResolveAllNoSourcesWritesPlaceholder(t *testing.T) {
	blobs := gcp.NewMemBlobStore()
	noPaths := seedAssignment(t, blobs, "HW4", "page")
	noPaths.SourcePagePaths = nil
	unreadable := seedAssignment(t, blobs, "HW4b", "page")
	unreadable.SourcePagePaths = pathsJSON(t, []string{"missing/deadbeef.html"})

	fake := &fakeResolverOracle{byTitle: map[string]*oracle.ResolvedDueDate{}}
	dueDates := &memDueDateRepo{}
	assignments := &chosenRecorder{}
	r := New(testLogger(t), blobs, fake, assignments, dueDates)

	res, err := r.ResolveAll(context.Background(), []*types.Assignment{noPaths, unreadable})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Resolved)
	assert.Equal(t, 0, res.Failed, "absent evidence is a placeholder, not a failure")
	assert.Equal(t, 2, res.Placeholders)

	require.Len(t, dueDates.rows, 2)
	for _, d := range dueDates.rows {
		assert.Nil(t, d.Date)
		assert.Zero(t, d.Confidence)
		assert.Equal(t, noSourcesFound, d.Description)
	}
	assert.Empty(t, fake.lastInput, "the oracle is never consulted without sources")
}

func TestResolveAllOracleFailureDoesNotBlockSiblings(t *testing.T) {
	blobs := gcp.NewMemBlobStore()
	broken := seedAssignment(t, blobs, "HW4", "page")
	ok := seedAssignment(t, blobs, "HW5", "HW5 due 2026-11-01")

	fake := &fakeResolverOracle{
		byTitle: map[string]*oracle.ResolvedDueDate{
			"HW5": {Date: "2026-11-01", DateCertain: true, Confidence: 0.8},
		},
		errByTitle: map[string]error{
			"HW4": errors.New("oracle rejected the prompt"),
		},
	}
	dueDates := &memDueDateRepo{}
	assignments := &chosenRecorder{}
	r := New(testLogger(t), blobs, fake, assignments, dueDates)

	res, err := r.ResolveAll(context.Background(), []*types.Assignment{broken, ok})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Resolved)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Placeholders, "failed assignment still gets a placeholder")

	assert.Len(t, dueDates.rows, 2)
	assert.Contains(t, assignments.chosen, broken.ID)
	assert.Contains(t, assignments.chosen, ok.ID)
}

func TestLoadSourceTextCapsAndSeparates(t *testing.T) {
	blobs := gcp.NewMemBlobStore()
	big := strings.Repeat("lorem ipsum ", 1000)
	a := seedAssignment(t, blobs, "HW6", big, big, big, big, big, big, big, big)

	fake := &fakeResolverOracle{byTitle: map[string]*oracle.ResolvedDueDate{}}
	r := New(testLogger(t), blobs, fake, &chosenRecorder{}, &memDueDateRepo{})

	_, err := r.ResolveAll(context.Background(), []*types.Assignment{a})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(fake.lastInput), oracle.TotalLimit)
	assert.Contains(t, fake.lastInput, "SOURCE PAGE 1:")
	assert.Contains(t, fake.lastInput, "SOURCE PAGE 2:")
}

func TestResolveAllSkipsUnreadablePagesButUsesTheRest(t *testing.T) {
	blobs := gcp.NewMemBlobStore()
	a := seedAssignment(t, blobs, "HW7", "HW7 due 2026-12-05")
	paths := append([]string{"missing/deadbeef.html"}, mustPaths(t, a)...)
	a.SourcePagePaths = pathsJSON(t, paths)

	fake := &fakeResolverOracle{byTitle: map[string]*oracle.ResolvedDueDate{
		"HW7": {Date: "2026-12-05", DateCertain: true, Confidence: 0.9},
	}}
	dueDates := &memDueDateRepo{}
	r := New(testLogger(t), blobs, fake, &chosenRecorder{}, dueDates)

	res, err := r.ResolveAll(context.Background(), []*types.Assignment{a})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Resolved)
	assert.Equal(t, 0, res.Failed)
}

func mustPaths(t *testing.T, a *types.Assignment) []string {
	t.Helper()
	var out []string
	require.NoError(t, json.Unmarshal(a.SourcePagePaths, &out))
	return out
}

func TestBestRanking(t *testing.T) {
	day := func(d int) *time.Time {
		t := time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)
		return &t
	}

	certain := &types.DueDate{DateCertain: true, Confidence: 0.5, Date: day(1)}
	uncertainHigh := &types.DueDate{DateCertain: false, Confidence: 0.99, Date: day(2)}
	assert.Same(t, certain, Best([]*types.DueDate{uncertainHigh, certain}), "certain date beats higher confidence")

	withTime := &types.DueDate{DateCertain: true, TimeCertain: true, Confidence: 0.3, Date: day(3)}
	assert.Same(t, withTime, Best([]*types.DueDate{certain, withTime}), "certain time breaks the tie")

	conf := &types.DueDate{DateCertain: true, TimeCertain: true, Confidence: 0.9, Date: day(4)}
	assert.Same(t, conf, Best([]*types.DueDate{withTime, conf}), "then confidence")

	later := &types.DueDate{DateCertain: true, TimeCertain: true, Confidence: 0.9, Date: day(10)}
	assert.Same(t, later, Best([]*types.DueDate{conf, later}), "then the most recent date")

	assert.Nil(t, Best(nil))
	assert.Nil(t, Best([]*types.DueDate{nil}))
}

func TestParseDateLayouts(t *testing.T) {
	cases := []struct {
		raw string
		ok  bool
	}{
		{"2026-10-03T23:59:00Z", true},
		{"2026-10-03T23:59:00", true},
		{"2026-10-03 23:59:00", true},
		{"2026-10-03", true},
		{"", false},
		{"next friday", false},
	}
	for _, tc := range cases {
		_, ok := parseDate(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
	}
}

func TestResolveAllSystemicOracleError(t *testing.T) {
	blobs := gcp.NewMemBlobStore()
	a := seedAssignment(t, blobs, "HW8", "page")

	fake := &fakeResolverOracle{err: errors.New("rate limited")}
	dueDates := &memDueDateRepo{}
	r := New(testLogger(t), blobs, fake, &chosenRecorder{}, dueDates)

	res, err := r.ResolveAll(context.Background(), []*types.Assignment{a})
	require.NoError(t, err, "stage survives; the assignment gets a placeholder")
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Placeholders)
	require.Len(t, dueDates.rows, 1)
	assert.Nil(t, dueDates.rows[0].Date)
}
