package coursesync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/coursesync-backend/internal/data/repos"
	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
	"github.com/yungbote/coursesync-backend/internal/sync/browser"
	"github.com/yungbote/coursesync-backend/internal/sync/crawler"
	"github.com/yungbote/coursesync-backend/internal/sync/extractor"
	"github.com/yungbote/coursesync-backend/internal/sync/pagetree"
	"github.com/yungbote/coursesync-backend/internal/sync/resolver"
)

type Activities struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Repos     repos.All
	Crawler   *crawler.Crawler
	Extractor *extractor.Extractor
	Resolver  *resolver.Resolver
}

func malformed(format string, args ...any) error {
	return temporal.NewNonRetryableApplicationError(fmt.Sprintf(format, args...), ErrTypeMalformedInput, nil)
}

func authFailure(format string, args ...any) error {
	return temporal.NewNonRetryableApplicationError(fmt.Sprintf(format, args...), ErrTypeAuthFailure, nil)
}

// CreateSyncJobs opens the group and its per-(course, source) JobSync rows
// in one transaction, so a crash here leaves no half-created group behind.
func (a *Activities) CreateSyncJobs(ctx context.Context, in PipelineInput) (CreateJobsResult, error) {
	if in.UserID == uuid.Nil {
		return CreateJobsResult{}, malformed("create sync jobs: missing user id")
	}

	var out CreateJobsResult
	err := a.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		group, err := a.Repos.JobSyncGroups.Create(dbc, &types.JobSyncGroup{UserID: in.UserID})
		if err != nil {
			return fmt.Errorf("create job sync group: %w", err)
		}
		out.GroupID = group.ID

		courseIDs := in.CourseIDs
		if len(courseIDs) == 0 {
			enrollments, err := a.Repos.Enrollments.ListByUser(dbc, in.UserID)
			if err != nil {
				return fmt.Errorf("list enrollments: %w", err)
			}
			for _, e := range enrollments {
				courseIDs = append(courseIDs, e.CourseID)
			}
		}

		sources, err := a.Repos.Sources.ListByCourses(dbc, courseIDs)
		if err != nil {
			return fmt.Errorf("list sources: %w", err)
		}

		var jobs []*types.JobSync
		for _, s := range sources {
			jobs = append(jobs, &types.JobSync{
				JobSyncGroupID: group.ID,
				CourseID:       s.CourseID,
				SourceID:       s.ID,
			})
		}
		created, err := a.Repos.JobSyncs.Create(dbc, jobs)
		if err != nil {
			return fmt.Errorf("create job syncs: %w", err)
		}
		for _, j := range created {
			out.Jobs = append(out.Jobs, JobRef{JobSyncID: j.ID, CourseID: j.CourseID, SourceID: j.SourceID})
		}
		return nil
	})
	if err != nil {
		return CreateJobsResult{}, err
	}

	a.Log.Info("sync jobs created", "group_id", out.GroupID, "jobs", len(out.Jobs), "user_id", in.UserID)
	return out, nil
}

// ScrapeCourse crawls one source behind the user's saved browser session
// and persists the resulting page tree on the JobSync row.
func (a *Activities) ScrapeCourse(ctx context.Context, in ScrapeInput) (ScrapeResult, error) {
	dbc := dbctx.Context{Ctx: ctx}

	jobSync, err := a.Repos.JobSyncs.GetByID(dbc, in.JobSyncID)
	if err != nil {
		return ScrapeResult{}, fmt.Errorf("load job sync: %w", err)
	}
	if jobSync == nil {
		return ScrapeResult{}, malformed("scrape: job sync %s not found", in.JobSyncID)
	}

	source, err := a.Repos.Sources.GetByID(dbc, jobSync.SourceID)
	if err != nil {
		return ScrapeResult{}, fmt.Errorf("load source: %w", err)
	}
	if source == nil {
		return ScrapeResult{}, malformed("scrape: source %s not found", jobSync.SourceID)
	}

	cookies, err := a.loadCookies(dbc, in.UserID, source)
	if err != nil {
		return ScrapeResult{}, err
	}

	var previous *pagetree.Tree
	if !in.ForceRefresh {
		prev, err := a.Repos.JobSyncs.GetPreviousWithTree(dbc, jobSync.CourseID, jobSync.SourceID, jobSync.ID)
		if err != nil {
			return ScrapeResult{}, fmt.Errorf("load previous sync: %w", err)
		}
		if prev != nil && len(prev.PageTree) > 0 {
			previous, err = pagetree.Parse(prev.PageTree)
			if err != nil {
				a.Log.Warn("previous page tree unreadable; full re-scrape", "job_sync_id", prev.ID, "error", err)
				previous = nil
			}
		}
	}

	stopHB := startHeartbeat(ctx)
	defer stopHB()

	tree, stats, err := a.Crawler.Crawl(ctx, source.URL, jobSync.ID.String(), cookies, previous)
	if err != nil {
		return ScrapeResult{}, fmt.Errorf("crawl %s: %w", source.URL, err)
	}

	raw, err := tree.Marshal()
	if err != nil {
		return ScrapeResult{}, fmt.Errorf("marshal page tree: %w", err)
	}
	if err := a.Repos.JobSyncs.UpdatePageTree(dbc, jobSync.ID, datatypes.JSON(raw)); err != nil {
		return ScrapeResult{}, fmt.Errorf("persist page tree: %w", err)
	}

	return ScrapeResult{
		JobSyncID:            jobSync.ID,
		PagesTotal:           stats.PagesTotal,
		PagesNew:             stats.PagesNew,
		PagesChanged:         stats.PagesChanged,
		PagesUnchanged:       stats.PagesUnchanged,
		PagesFailed:          stats.PagesFailed,
		PagesWithAssignments: stats.PagesWithAssignments,
	}, nil
}

// loadCookies returns the session cookies for an authenticated source. A
// missing or unreadable bundle is an auth failure: retrying cannot help
// until the user re-exports their session, so the bundle is flagged out of
// sync and the error is non-retryable.
func (a *Activities) loadCookies(dbc dbctx.Context, userID uuid.UUID, source *types.Source) ([]browser.Cookie, error) {
	if !source.RequiresAuth {
		return nil, nil
	}
	bundle, err := a.Repos.AuthBundles.GetLatestByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load auth bundle: %w", err)
	}
	if bundle == nil {
		return nil, authFailure("no auth bundle for user %s", userID)
	}
	cookies, err := browser.ParseCookies(bundle.Cookies)
	if err != nil {
		if serr := a.Repos.AuthBundles.SetInSync(dbc, bundle.ID, false); serr != nil {
			a.Log.Error("flag auth bundle failed", "auth_bundle_id", bundle.ID, "error", serr)
		}
		return nil, authFailure("auth bundle %s unreadable: %v", bundle.ID, err)
	}
	if len(cookies) == 0 {
		if serr := a.Repos.AuthBundles.SetInSync(dbc, bundle.ID, false); serr != nil {
			a.Log.Error("flag auth bundle failed", "auth_bundle_id", bundle.ID, "error", serr)
		}
		return nil, authFailure("auth bundle %s has no cookies", bundle.ID)
	}
	return cookies, nil
}

// FindAssignments runs extraction over the changed pages of one sync.
func (a *Activities) FindAssignments(ctx context.Context, in FindAssignmentsInput) (FindAssignmentsResult, error) {
	dbc := dbctx.Context{Ctx: ctx}

	jobSync, err := a.Repos.JobSyncs.GetByID(dbc, in.JobSyncID)
	if err != nil {
		return FindAssignmentsResult{}, fmt.Errorf("load job sync: %w", err)
	}
	if jobSync == nil {
		return FindAssignmentsResult{}, malformed("find assignments: job sync %s not found", in.JobSyncID)
	}
	if len(jobSync.PageTree) == 0 {
		return FindAssignmentsResult{}, malformed("find assignments: job sync %s has no page tree", in.JobSyncID)
	}
	tree, err := pagetree.Parse(jobSync.PageTree)
	if err != nil {
		return FindAssignmentsResult{}, malformed("find assignments: page tree unreadable: %v", err)
	}

	stopHB := startHeartbeat(ctx)
	defer stopHB()

	res, err := a.Extractor.Extract(ctx, jobSync, tree)
	if err != nil {
		return FindAssignmentsResult{}, err
	}

	out := FindAssignmentsResult{
		JobSyncID:      jobSync.ID,
		PagesProcessed: res.PagesProcessed,
		PagesFailed:    res.PagesFailed,
		Created:        res.Created,
		PathsAppended:  res.PathsAppended,
	}
	for _, touched := range res.Touched {
		out.AssignmentIDs = append(out.AssignmentIDs, touched.ID)
	}
	return out, nil
}

// FindDueDates resolves a due date for every assignment the extraction
// stage touched.
func (a *Activities) FindDueDates(ctx context.Context, in FindDueDatesInput) (FindDueDatesResult, error) {
	dbc := dbctx.Context{Ctx: ctx}

	list, err := a.Repos.Assignments.GetByIDs(dbc, in.AssignmentIDs)
	if err != nil {
		return FindDueDatesResult{}, fmt.Errorf("load assignments: %w", err)
	}

	stopHB := startHeartbeat(ctx)
	defer stopHB()

	res, err := a.Resolver.ResolveAll(ctx, list)
	if err != nil {
		return FindDueDatesResult{}, err
	}
	return FindDueDatesResult{
		JobSyncID:    in.JobSyncID,
		Resolved:     res.Resolved,
		Placeholders: res.Placeholders,
		Failed:       res.Failed,
	}, nil
}

func (a *Activities) MarkGroupComplete(ctx context.Context, groupID uuid.UUID) error {
	if groupID == uuid.Nil {
		return malformed("mark complete: missing group id")
	}
	if err := a.Repos.JobSyncGroups.MarkComplete(dbctx.Context{Ctx: ctx}, groupID); err != nil {
		return fmt.Errorf("mark group complete: %w", err)
	}
	a.Log.Info("sync group complete", "group_id", groupID)
	return nil
}

func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		tick := time.NewTicker(10 * time.Second)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-tick.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
