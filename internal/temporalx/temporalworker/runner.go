// Package temporalworker hosts the worker process side of the sync
// pipeline: it registers the workflow and activities and keeps retrying
// startup until Temporal is reachable.
package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/coursesync-backend/internal/data/repos"
	"github.com/yungbote/coursesync-backend/internal/platform/envutil"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
	"github.com/yungbote/coursesync-backend/internal/sync/crawler"
	"github.com/yungbote/coursesync-backend/internal/sync/extractor"
	"github.com/yungbote/coursesync-backend/internal/sync/resolver"
	"github.com/yungbote/coursesync-backend/internal/temporalx"
	"github.com/yungbote/coursesync-backend/internal/temporalx/coursesync"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

type Runner struct {
	log *logger.Logger

	tc        temporalsdkclient.Client
	db        *gorm.DB
	repos     repos.All
	crawler   *crawler.Crawler
	extractor *extractor.Extractor
	resolver  *resolver.Resolver
}

func NewRunner(
	log *logger.Logger,
	tc temporalsdkclient.Client,
	db *gorm.DB,
	all repos.All,
	crawl *crawler.Crawler,
	extract *extractor.Extractor,
	resolve *resolver.Resolver,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if db == nil || crawl == nil || extract == nil || resolve == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:       log,
		tc:        tc,
		db:        db,
		repos:     all,
		crawler:   crawl,
		extractor: extract,
		resolver:  resolve,
	}, nil
}

func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}

	cfg := temporalx.LoadConfig()
	if r.log != nil {
		r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)
	}

	if envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false) {
		baseCtx := ctx
		if baseCtx == nil {
			baseCtx = context.Background()
		}
		if err := temporalx.EnsureNamespace(baseCtx, r.tc, cfg.Namespace, r.log); err != nil && r.log != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", cfg.Namespace, "error", err)
		}
	}

	maxWait := envutil.Seconds("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60)
	backoff := envutil.Millis("TEMPORAL_WORKER_START_BACKOFF_MS", 250)
	backoffMax := envutil.Millis("TEMPORAL_WORKER_START_BACKOFF_MAX_MS", 5000)

	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		w := r.newWorker(cfg)
		startErr := w.Start()
		if startErr == nil {
			if ctx != nil {
				go func() {
					<-ctx.Done()
					w.Stop()
				}()
			}
			if r.log != nil {
				r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			}
			return nil
		}

		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false) {
			baseCtx := ctx
			if baseCtx == nil {
				baseCtx = context.Background()
			}
			_ = temporalx.EnsureNamespace(baseCtx, r.tc, cfg.Namespace, r.log)
		}

		if maxWait <= 0 || time.Now().After(deadline) {
			var nfe2 *serviceerror.NamespaceNotFound
			if errors.As(startErr, &nfe2) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
			}
			return startErr
		}

		if r.log != nil {
			r.log.Warn("Temporal worker failed to start; retrying", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)
		}

		sleep := backoff
		for i := 1; i < attempt; i++ {
			sleep *= 2
			if sleep >= backoffMax {
				sleep = backoffMax
				break
			}
		}
		if sleep > 0 {
			time.Sleep(sleep)
		}
	}
}

func (r *Runner) newWorker(cfg temporalx.Config) worker.Worker {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}

	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	acts := &coursesync.Activities{
		Log:       r.log,
		DB:        r.db,
		Repos:     r.repos,
		Crawler:   r.crawler,
		Extractor: r.extractor,
		Resolver:  r.resolver,
	}

	w.RegisterWorkflowWithOptions(coursesync.Workflow, workflow.RegisterOptions{Name: coursesync.WorkflowName})
	w.RegisterActivityWithOptions(acts.CreateSyncJobs, activity.RegisterOptions{Name: coursesync.ActivityCreateSyncJobs})
	w.RegisterActivityWithOptions(acts.ScrapeCourse, activity.RegisterOptions{Name: coursesync.ActivityScrapeCourse})
	w.RegisterActivityWithOptions(acts.FindAssignments, activity.RegisterOptions{Name: coursesync.ActivityFindAssignments})
	w.RegisterActivityWithOptions(acts.FindDueDates, activity.RegisterOptions{Name: coursesync.ActivityFindDueDates})
	w.RegisterActivityWithOptions(acts.MarkGroupComplete, activity.RegisterOptions{Name: coursesync.ActivityMarkGroupComplete})
	return w
}
