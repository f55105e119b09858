// Package extractor turns a crawl's changed pages into the course-wide
// canonical assignment set. Unchanged pages are never re-processed; each
// assignment accumulates the blob paths of every page that has evidenced
// it.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/coursesync-backend/internal/data/repos"
	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/gcp"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
	"github.com/yungbote/coursesync-backend/internal/sync/oracle"
	"github.com/yungbote/coursesync-backend/internal/sync/pagetree"
)

type Extractor struct {
	log         *logger.Logger
	blobs       gcp.BlobStore
	oracle      oracle.ExtractionOracle
	assignments repos.AssignmentRepo
}

func New(log *logger.Logger, blobs gcp.BlobStore, o oracle.ExtractionOracle, assignments repos.AssignmentRepo) *Extractor {
	return &Extractor{
		log:         log.With("service", "Extractor"),
		blobs:       blobs,
		oracle:      o,
		assignments: assignments,
	}
}

// Result reports the assignments this sync produced or touched; the
// due-date stage resolves exactly these.
type Result struct {
	Touched        []*types.Assignment
	PagesProcessed int
	PagesFailed    int
	Created        int
	PathsAppended  int
}

// Extract processes the changed pages of one sync in tree-traversal order.
// The prior canonical set for the course is loaded once and extended in
// memory as new assignments are created, so later pages of the same sync
// see earlier finds as context.
func (e *Extractor) Extract(ctx context.Context, jobSync *types.JobSync, tree *pagetree.Tree) (Result, error) {
	if jobSync == nil || jobSync.CourseID == uuid.Nil {
		return Result{}, fmt.Errorf("job sync missing course id")
	}
	dbc := dbctx.From(ctx)
	stageLog := e.log.With("job_sync_id", jobSync.ID, "course_id", jobSync.CourseID)

	prior, err := e.assignments.ListByCourse(dbc, jobSync.CourseID)
	if err != nil {
		return Result{}, fmt.Errorf("list prior assignments: %w", err)
	}
	stageLog.Info("extraction starting", "prior_assignments", len(prior))

	changed := tree.Changed()
	var res Result
	touched := map[uuid.UUID]*types.Assignment{}

	for _, node := range changed {
		if node.HTMLPath == "" {
			// The crawl failed on this page; nothing to read.
			continue
		}
		if err := e.processPage(ctx, jobSync, node, &prior, touched, &res); err != nil {
			stageLog.Warn("page extraction failed", "url", node.URL, "error", err)
			res.PagesFailed++
			continue
		}
		res.PagesProcessed++
	}

	if res.PagesFailed > 0 && res.PagesProcessed == 0 {
		return res, fmt.Errorf("extraction failed on all %d pages", res.PagesFailed)
	}

	for _, a := range touched {
		res.Touched = append(res.Touched, a)
	}
	stageLog.Info("extraction complete",
		"pages_processed", res.PagesProcessed,
		"pages_failed", res.PagesFailed,
		"assignments_created", res.Created,
		"paths_appended", res.PathsAppended,
		"assignments_touched", len(res.Touched),
	)
	return res, nil
}

func (e *Extractor) processPage(ctx context.Context, jobSync *types.JobSync, node *pagetree.Node, prior *[]*types.Assignment, touched map[uuid.UUID]*types.Assignment, res *Result) error {
	dbc := dbctx.From(ctx)

	html, err := e.blobs.Get(ctx, node.HTMLPath)
	if err != nil {
		return fmt.Errorf("load page html: %w", err)
	}
	pageText := oracle.Markdown(string(html))

	records, err := e.oracle.Extract(ctx, pageText, FormatPrior(*prior))
	if err != nil {
		return fmt.Errorf("extraction oracle: %w", err)
	}

	for _, rec := range records {
		if strings.TrimSpace(rec.Title) == "" {
			continue
		}
		if rec.Repeated {
			existing, err := e.assignments.FindByCourseAndTitle(dbc, jobSync.CourseID, rec.Title)
			if err != nil {
				return fmt.Errorf("find existing assignment: %w", err)
			}
			if existing != nil {
				appended, err := e.assignments.AppendSourcePath(dbc, existing.ID, node.HTMLPath)
				if err != nil {
					return fmt.Errorf("append source path: %w", err)
				}
				if appended {
					res.PathsAppended++
				}
				touched[existing.ID] = existing
				continue
			}
			// The oracle matched against context we don't have a row
			// for; fall through and create it.
		}
		created, err := e.createAssignment(dbc, jobSync, node, rec)
		if err != nil {
			return fmt.Errorf("create assignment: %w", err)
		}
		touched[created.ID] = created
		*prior = append(*prior, created)
		res.Created++
	}
	return nil
}

func (e *Extractor) createAssignment(dbc dbctx.Context, jobSync *types.JobSync, node *pagetree.Node, rec oracle.ExtractedAssignment) (*types.Assignment, error) {
	paths, err := pathsJSON([]string{node.HTMLPath})
	if err != nil {
		return nil, err
	}
	jobSyncID := jobSync.ID
	return e.assignments.Create(dbc, &types.Assignment{
		CourseID:        jobSync.CourseID,
		Title:           rec.Title,
		Description:     rec.Description,
		ContentHash:     node.ContentHash,
		SourceURL:       node.URL,
		SourcePagePaths: paths,
		JobSyncID:       &jobSyncID,
	})
}

// FormatPrior renders the canonical set the way the extraction oracle
// expects its context: a numbered "title: description" list.
func FormatPrior(assignments []*types.Assignment) string {
	if len(assignments) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, a := range assignments {
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, a.Title, a.Description)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func pathsJSON(paths []string) (datatypes.JSON, error) {
	raw, err := json.Marshal(paths)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// SourcePaths decodes an assignment's source_page_paths column.
func SourcePaths(a *types.Assignment) []string {
	if a == nil || len(a.SourcePagePaths) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(a.SourcePagePaths, &out); err != nil {
		return nil
	}
	return out
}
