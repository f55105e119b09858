package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yungbote/coursesync-backend/internal/platform/logger"
	"github.com/yungbote/coursesync-backend/internal/platform/openai"
)

// Set bundles the three OpenAI-backed oracles behind their interfaces.
type Set struct {
	Link       LinkOracle
	Extraction ExtractionOracle
	Resolver   ResolverOracle
}

func NewOpenAISet(log *logger.Logger, client openai.Client) Set {
	return Set{
		Link:       &openAILinkOracle{log: log.With("oracle", "link"), client: client},
		Extraction: &openAIExtractionOracle{log: log.With("oracle", "extraction"), client: client},
		Resolver:   &openAIResolverOracle{log: log.With("oracle", "resolver"), client: client},
	}
}

func decodeInto(obj map[string]any, out any) error {
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

type openAILinkOracle struct {
	log    *logger.Logger
	client openai.Client
}

var linkAnalysisSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"relevant_links": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"assignment_found": map[string]any{"type": "boolean"},
		"reason":           map[string]any{"type": "string"},
	},
	"required":             []string{"relevant_links", "assignment_found", "reason"},
	"additionalProperties": false,
}

func (o *openAILinkOracle) Analyze(ctx context.Context, pageText, currentURL string) (LinkAnalysis, error) {
	prompt := fmt.Sprintf(`Given this course webpage, I need to:
1. Find links that might lead to homework/assignments
2. Check if this page contains assignment data with due dates

Current URL: %s

Webpage content:
%s`, currentURL, Truncate(pageText, LinkContextLimit))

	obj, err := o.client.GenerateJSON(ctx,
		"You are analyzing a webpage to find homework/assignment related links and check for assignment data.",
		prompt, "link_analysis", linkAnalysisSchema)
	if err != nil {
		return LinkAnalysis{}, fmt.Errorf("link oracle: %w", err)
	}
	var out LinkAnalysis
	if err := decodeInto(obj, &out); err != nil {
		return LinkAnalysis{}, fmt.Errorf("link oracle decode: %w", err)
	}
	return out, nil
}

type openAIExtractionOracle struct {
	log    *logger.Logger
	client openai.Client
}

var pageAssignmentsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"assignments": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"repeated":    map[string]any{"type": "boolean"},
				},
				"required":             []string{"title", "description", "repeated"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"assignments"},
	"additionalProperties": false,
}

func (o *openAIExtractionOracle) Extract(ctx context.Context, pageText, priorPretty string) ([]ExtractedAssignment, error) {
	priorContext := ""
	if priorPretty != "" {
		priorContext = fmt.Sprintf(`
Previously found assignments in this ENTIRE COURSE:
%s
Note: These are ALL assignments that were previously found anywhere in this course.
`, priorPretty)
	}

	prompt := fmt.Sprintf(`Your job is to find homework assignments on this course webpage.
A student needs to know about deadlines for these assignments.
%s

For each assignment you find on this page, you must determine:
- If it matches any assignment in the "Previously found assignments" list above, mark it as repeated: true
- If it's a completely new assignment not in that list, mark it as repeated: false

IMPORTANT:
- An assignment is "repeated" if it appears to be the same assignment as one in the previous list
- Use your judgment to match assignments even if wording differs slightly
- Do not include due date details in the description
- Focus on the core assignment content, not formatting differences

Find ALL assignments mentioned on this page.

Page content:
%s`, priorContext, Truncate(pageText, ExtractContextLimit))

	obj, err := o.client.GenerateJSON(ctx,
		"You are analyzing a course webpage to extract homework assignments.",
		prompt, "page_assignments", pageAssignmentsSchema)
	if err != nil {
		return nil, fmt.Errorf("extraction oracle: %w", err)
	}
	var out struct {
		Assignments []ExtractedAssignment `json:"assignments"`
	}
	if err := decodeInto(obj, &out); err != nil {
		return nil, fmt.Errorf("extraction oracle decode: %w", err)
	}
	return out.Assignments, nil
}

type openAIResolverOracle struct {
	log    *logger.Logger
	client openai.Client
}

var dueDateSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"found": map[string]any{"type": "boolean"},
		"date":  map[string]any{"type": "string"},
		"date_certain": map[string]any{
			"type": "boolean",
		},
		"time_certain": map[string]any{
			"type": "boolean",
		},
		"confidence": map[string]any{"type": "number"},
		"source_urls": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"reasoning": map[string]any{"type": "string"},
	},
	"required":             []string{"found", "date", "date_certain", "time_certain", "confidence", "source_urls", "reasoning"},
	"additionalProperties": false,
}

func (o *openAIResolverOracle) Resolve(ctx context.Context, title, description, sourceText string) (*ResolvedDueDate, error) {
	prompt := fmt.Sprintf(`You are analyzing course content to find the due date for ONE specific assignment.

ASSIGNMENT TO FIND DUE DATE FOR:
Title: %s
Description: %s

INSTRUCTIONS:
1. Find the most accurate due date for THIS SPECIFIC assignment
2. Look for explicit mentions of deadlines, due dates, or submission times
3. Consider calendar pages, syllabus sections, and assignment descriptions
4. If multiple dates are mentioned for this assignment, use the most authoritative one
5. Provide:
   - found: whether a due date exists for this assignment
   - The due date in ISO-8601 format (empty string if none)
   - Whether the date is certain or inferred
   - Whether a specific time is mentioned
   - Confidence level (0-1)
   - Which source pages mentioned this date
   - Reasoning for your conclusion

If you cannot find a due date for this assignment, set found to false and explain why.

CONTENT FROM ASSIGNMENT'S SOURCE PAGES:
%s

Return exactly ONE due date result for this assignment.`, title, description, Truncate(sourceText, TotalLimit))

	obj, err := o.client.GenerateJSON(ctx,
		"You are an expert at extracting assignment due dates from course materials.",
		prompt, "assignment_due_date", dueDateSchema)
	if err != nil {
		return nil, fmt.Errorf("resolver oracle: %w", err)
	}
	var out struct {
		Found bool `json:"found"`
		ResolvedDueDate
	}
	if err := decodeInto(obj, &out); err != nil {
		return nil, fmt.Errorf("resolver oracle decode: %w", err)
	}
	if !out.Found {
		return nil, nil
	}
	return &out.ResolvedDueDate, nil
}
