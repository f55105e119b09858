// Package resolver assigns each touched assignment exactly one due date.
// Every source page that ever evidenced the assignment is pulled back out of
// blob storage and fed to the resolver oracle in a single pass; when nothing
// can be determined the assignment still gets a zero-confidence placeholder
// so downstream reads never have to special-case a missing row.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/coursesync-backend/internal/data/repos"
	types "github.com/yungbote/coursesync-backend/internal/domain"
	"github.com/yungbote/coursesync-backend/internal/platform/dbctx"
	"github.com/yungbote/coursesync-backend/internal/platform/gcp"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
	"github.com/yungbote/coursesync-backend/internal/sync/extractor"
	"github.com/yungbote/coursesync-backend/internal/sync/oracle"
)

const (
	noDueDateFound = "No due date found in any course materials"
	noSourcesFound = "no sources"
)

type Resolver struct {
	log         *logger.Logger
	blobs       gcp.BlobStore
	oracle      oracle.ResolverOracle
	assignments repos.AssignmentRepo
	dueDates    repos.DueDateRepo
}

func New(log *logger.Logger, blobs gcp.BlobStore, o oracle.ResolverOracle, assignments repos.AssignmentRepo, dueDates repos.DueDateRepo) *Resolver {
	return &Resolver{
		log:         log.With("service", "Resolver"),
		blobs:       blobs,
		oracle:      o,
		assignments: assignments,
		dueDates:    dueDates,
	}
}

type Result struct {
	Resolved     int
	Placeholders int
	Failed       int
}

// ResolveAll resolves a due date for each assignment independently. A
// failure on one assignment records a placeholder and moves on; the stage
// never fails outright, it only logs when every assignment failed.
func (r *Resolver) ResolveAll(ctx context.Context, list []*types.Assignment) (Result, error) {
	var res Result
	for _, a := range list {
		if a == nil {
			continue
		}
		if err := r.resolveOne(ctx, a, &res); err != nil {
			r.log.Warn("due date resolution failed", "assignment_id", a.ID, "title", a.Title, "error", err)
			res.Failed++
			if perr := r.persistPlaceholder(ctx, a, noDueDateFound); perr != nil {
				r.log.Error("placeholder write failed", "assignment_id", a.ID, "error", perr)
			} else {
				res.Placeholders++
			}
		}
	}
	if len(list) > 0 && res.Failed == len(list) {
		r.log.Warn("due date resolution failed for every assignment", "assignments", len(list))
	}
	return res, nil
}

func (r *Resolver) resolveOne(ctx context.Context, a *types.Assignment, res *Result) error {
	sourceText := r.loadSourceText(ctx, a)
	if sourceText == "" {
		if err := r.persistPlaceholder(ctx, a, noSourcesFound); err != nil {
			return err
		}
		res.Placeholders++
		return nil
	}

	answer, err := r.oracle.Resolve(ctx, a.Title, a.Description, sourceText)
	if err != nil {
		return fmt.Errorf("resolver oracle: %w", err)
	}

	if answer == nil {
		if err := r.persistPlaceholder(ctx, a, noDueDateFound); err != nil {
			return err
		}
		res.Placeholders++
		return nil
	}

	date, ok := parseDate(answer.Date)
	if !ok {
		reason := answer.Reasoning
		if strings.TrimSpace(reason) == "" {
			reason = noDueDateFound
		}
		if err := r.persistPlaceholder(ctx, a, reason); err != nil {
			return err
		}
		res.Placeholders++
		return nil
	}

	d := &types.DueDate{
		AssignmentID: a.ID,
		Date:         &date,
		DateCertain:  answer.DateCertain,
		TimeCertain:  answer.TimeCertain,
		Confidence:   answer.Confidence,
		Title:        "Due: " + a.Title,
		Description:  answer.Reasoning,
		URL:          a.SourceURL,
	}
	if err := r.persist(ctx, a, d); err != nil {
		return err
	}
	res.Resolved++
	return nil
}

// loadSourceText concatenates every evidencing page, each capped per page
// and the whole capped overall, oldest evidence first. Empty means no
// source pages were recorded or none could be read back; the caller writes
// the no-sources placeholder for that.
func (r *Resolver) loadSourceText(ctx context.Context, a *types.Assignment) string {
	paths := extractor.SourcePaths(a)
	if len(paths) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, path := range paths {
		html, err := r.blobs.Get(ctx, path)
		if err != nil {
			r.log.Warn("source page unavailable", "assignment_id", a.ID, "path", path, "error", err)
			continue
		}
		pageText := oracle.Truncate(oracle.Markdown(string(html)), oracle.PerPageLimit)
		fmt.Fprintf(&sb, "SOURCE PAGE %d:\n%s\n\n", i+1, pageText)
		if sb.Len() >= oracle.TotalLimit {
			break
		}
	}
	return oracle.Truncate(sb.String(), oracle.TotalLimit)
}

func (r *Resolver) persistPlaceholder(ctx context.Context, a *types.Assignment, description string) error {
	return r.persist(ctx, a, &types.DueDate{
		AssignmentID: a.ID,
		Date:         nil,
		Confidence:   0,
		Title:        "Due: " + a.Title,
		Description:  description,
		URL:          a.SourceURL,
	})
}

func (r *Resolver) persist(ctx context.Context, a *types.Assignment, d *types.DueDate) error {
	dbc := dbctx.From(ctx)
	created, err := r.dueDates.Create(dbc, d)
	if err != nil {
		return fmt.Errorf("create due date: %w", err)
	}
	if err := r.assignments.SetChosenDueDate(dbc, a.ID, created.ID); err != nil {
		return fmt.Errorf("set chosen due date: %w", err)
	}
	chosen := created.ID
	a.ChosenDueDateID = &chosen
	return nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Best picks the preferred candidate among several due dates for the same
// assignment: certain dates beat uncertain ones, then certain times, then
// higher confidence, then the most recent date.
func Best(candidates []*types.DueDate) *types.DueDate {
	var best *types.DueDate
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if best == nil || better(c, best) {
			best = c
		}
	}
	return best
}

func better(a, b *types.DueDate) bool {
	if a.DateCertain != b.DateCertain {
		return a.DateCertain
	}
	if a.TimeCertain != b.TimeCertain {
		return a.TimeCertain
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	switch {
	case a.Date == nil:
		return false
	case b.Date == nil:
		return true
	default:
		return a.Date.After(*b.Date)
	}
}
