package coursesync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// WorkflowRunTimeout bounds one pipeline invocation end to end.
const WorkflowRunTimeout = 2 * time.Hour

// Stage timeouts. The scrape dominates: a full course crawl renders every
// page in a real browser.
const (
	createJobsTimeout      = 30 * time.Second
	scrapeTimeout          = 5 * time.Minute
	findAssignmentsTimeout = 3 * time.Minute
	findDueDatesTimeout    = 3 * time.Minute
	markCompleteTimeout    = 30 * time.Second

	heartbeatTimeout = 30 * time.Second
)

func retryPolicy() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    time.Minute,
		MaximumAttempts:    3,
		NonRetryableErrorTypes: []string{
			ErrTypeMalformedInput,
			ErrTypeAuthFailure,
		},
	}
}

// Workflow runs one user's sync: create the group, fan out per course with
// a strict scrape -> find assignments -> find due dates order inside each
// course, then mark the group complete. A course failing any stage stops
// only that course; its remaining stages are recorded as skipped so the
// aggregate counts one error per stage per course, and the group completes
// regardless.
func Workflow(ctx workflow.Context, in PipelineInput) (PipelineResult, error) {
	start := workflow.Now(ctx)
	log := workflow.GetLogger(ctx)

	if in.UserID == uuid.Nil {
		return PipelineResult{}, temporal.NewNonRetryableApplicationError("missing user id", ErrTypeMalformedInput, nil)
	}

	createCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: createJobsTimeout,
		RetryPolicy:         retryPolicy(),
	})
	var created CreateJobsResult
	if err := workflow.ExecuteActivity(createCtx, ActivityCreateSyncJobs, in).Get(ctx, &created); err != nil {
		return PipelineResult{}, err
	}

	result := PipelineResult{GroupID: created.GroupID}

	if len(created.Jobs) > 0 {
		outcomes := make([]CourseOutcome, len(created.Jobs))
		wg := workflow.NewWaitGroup(ctx)
		for i, job := range created.Jobs {
			i, job := i, job
			wg.Add(1)
			workflow.Go(ctx, func(gctx workflow.Context) {
				defer wg.Done()
				outcomes[i] = runCourse(gctx, in, job)
			})
		}
		wg.Wait(ctx)

		result.Courses = outcomes
		for _, o := range outcomes {
			for _, stageErr := range []string{o.ScrapeError, o.AssignmentsError, o.DueDatesError} {
				if stageErr != "" {
					result.TotalErrors++
				}
			}
			if o.ScrapeError == "" {
				result.ScrapeOK++
			}
			if o.AssignmentsError == "" {
				result.AssignmentsOK++
			}
			if o.DueDatesError == "" {
				result.DueDatesOK++
			}
		}
	} else {
		log.Info("no sources to sync", "group_id", created.GroupID)
	}

	markCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: markCompleteTimeout,
		RetryPolicy:         retryPolicy(),
	})
	if err := workflow.ExecuteActivity(markCtx, ActivityMarkGroupComplete, created.GroupID).Get(ctx, nil); err != nil {
		return result, err
	}

	result.Duration = workflow.Now(ctx).Sub(start)
	log.Info("sync pipeline finished",
		"group_id", created.GroupID,
		"courses", len(result.Courses),
		"errors", result.TotalErrors,
		"duration", result.Duration,
	)
	return result, nil
}

func runCourse(ctx workflow.Context, in PipelineInput, job JobRef) CourseOutcome {
	out := CourseOutcome{JobSyncID: job.JobSyncID, CourseID: job.CourseID}

	scrapeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: scrapeTimeout,
		HeartbeatTimeout:    heartbeatTimeout,
		RetryPolicy:         retryPolicy(),
	})
	var scrape ScrapeResult
	err := workflow.ExecuteActivity(scrapeCtx, ActivityScrapeCourse, ScrapeInput{
		JobSyncID:    job.JobSyncID,
		UserID:       in.UserID,
		ForceRefresh: in.ForceRefresh,
	}).Get(ctx, &scrape)
	if err != nil {
		out.FailedStage = "scrape"
		out.ScrapeError = err.Error()
		out.AssignmentsError = "skipped: scrape failed"
		out.DueDatesError = "skipped: scrape failed"
		return out
	}
	out.Scrape = &scrape

	extractCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: findAssignmentsTimeout,
		HeartbeatTimeout:    heartbeatTimeout,
		RetryPolicy:         retryPolicy(),
	})
	var found FindAssignmentsResult
	err = workflow.ExecuteActivity(extractCtx, ActivityFindAssignments, FindAssignmentsInput{
		JobSyncID: job.JobSyncID,
	}).Get(ctx, &found)
	if err != nil {
		out.FailedStage = "find_assignments"
		out.AssignmentsError = err.Error()
		out.DueDatesError = "skipped: find_assignments failed"
		return out
	}
	out.Assignments = &found

	dueCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: findDueDatesTimeout,
		HeartbeatTimeout:    heartbeatTimeout,
		RetryPolicy:         retryPolicy(),
	})
	var dues FindDueDatesResult
	err = workflow.ExecuteActivity(dueCtx, ActivityFindDueDates, FindDueDatesInput{
		JobSyncID:     job.JobSyncID,
		AssignmentIDs: found.AssignmentIDs,
	}).Get(ctx, &dues)
	if err != nil {
		out.FailedStage = "find_due_dates"
		out.DueDatesError = err.Error()
		return out
	}
	out.DueDates = &dues

	return out
}

// Start launches the pipeline for one user. The workflow id embeds the user
// and a timestamp so concurrent syncs of different users never collide and
// re-triggering is always possible.
func Start(ctx context.Context, tc temporalsdkclient.Client, taskQueue string, in PipelineInput) (temporalsdkclient.WorkflowRun, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                 fmt.Sprintf("course-sync-%s-%d", in.UserID, time.Now().UnixNano()),
		TaskQueue:          taskQueue,
		WorkflowRunTimeout: WorkflowRunTimeout,
	}
	return tc.ExecuteWorkflow(ctx, opts, WorkflowName, in)
}
