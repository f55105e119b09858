// Package crawler walks a course site breadth-first behind an authenticated
// browser session and produces the page tree with content hashes and change
// flags.
package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/coursesync-backend/internal/platform/gcp"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
	"github.com/yungbote/coursesync-backend/internal/sync/browser"
	"github.com/yungbote/coursesync-backend/internal/sync/hasher"
	"github.com/yungbote/coursesync-backend/internal/sync/oracle"
	"github.com/yungbote/coursesync-backend/internal/sync/pagetree"
)

// MaxDepth bounds the crawl; the root is depth 0.
const MaxDepth = 3

type Crawler struct {
	log          *logger.Logger
	fetcher      browser.Fetcher
	blobs        gcp.BlobStore
	links        oracle.LinkOracle
	fetchTimeout time.Duration
}

func New(log *logger.Logger, fetcher browser.Fetcher, blobs gcp.BlobStore, links oracle.LinkOracle) *Crawler {
	return &Crawler{
		log:          log.With("service", "Crawler"),
		fetcher:      fetcher,
		blobs:        blobs,
		links:        links,
		fetchTimeout: browser.DefaultFetchTimeout,
	}
}

type frontierEntry struct {
	node  *pagetree.Node
	depth int
}

// Crawl walks rootURL level by level through one browser session. HTML for
// every visited page is upserted into the blob store under namespace.
// Per-page failures mark the node and continue; only a browser launch
// failure aborts the stage.
func (c *Crawler) Crawl(ctx context.Context, rootURL, namespace string, cookies []browser.Cookie, previous *pagetree.Tree) (*pagetree.Tree, pagetree.Stats, error) {
	previousHashes := previous.HashIndex()
	if len(previousHashes) > 0 {
		c.log.Info("previous sync found", "pages", len(previousHashes))
	}

	session, err := c.fetcher.OpenSession(ctx, cookies)
	if err != nil {
		return nil, pagetree.Stats{}, fmt.Errorf("open browser session: %w", err)
	}
	defer session.Close()

	rootURL = ResolveURL(rootURL, rootURL)
	root := &pagetree.Node{URL: rootURL, Depth: 0}
	visited := map[string]bool{rootURL: true}
	queue := []frontierEntry{{node: root, depth: 0}}

	for len(queue) > 0 {
		// Level-synchronous: drain every node at the current depth
		// before descending.
		depth := queue[0].depth
		var level []frontierEntry
		for len(queue) > 0 && queue[0].depth == depth {
			level = append(level, queue[0])
			queue = queue[1:]
		}

		for _, entry := range level {
			if ctx.Err() != nil {
				return nil, pagetree.Stats{}, ctx.Err()
			}
			children := c.processNode(ctx, session, entry.node, namespace, previousHashes)
			if depth >= MaxDepth {
				continue
			}
			for _, link := range children {
				if visited[link] {
					continue
				}
				visited[link] = true
				child := &pagetree.Node{URL: link, Depth: depth + 1}
				entry.node.Children = append(entry.node.Children, child)
				queue = append(queue, frontierEntry{node: child, depth: depth + 1})
			}
		}
	}

	tree := &pagetree.Tree{Root: root}
	stats := tree.ComputeStats()
	c.log.Info("crawl complete",
		"root_url", rootURL,
		"pages_total", stats.PagesTotal,
		"pages_new", stats.PagesNew,
		"pages_changed", stats.PagesChanged,
		"pages_unchanged", stats.PagesUnchanged,
		"pages_failed", stats.PagesFailed,
		"pages_with_assignments", stats.PagesWithAssignments,
	)
	return tree, stats, nil
}

// processNode fetches one page, fills in the node, stores its HTML and
// returns the resolved candidate child links. On failure the node keeps its
// error marker with content_changed=true so the next sync retries it.
func (c *Crawler) processNode(ctx context.Context, session browser.Session, node *pagetree.Node, namespace string, previousHashes map[string]string) []string {
	pageLog := c.log.With("url", node.URL, "depth", node.Depth)

	html, title, err := session.Fetch(ctx, node.URL, c.fetchTimeout)
	if err != nil {
		pageLog.Warn("page fetch failed", "error", err)
		node.Error = err.Error()
		node.ContentChanged = true
		return nil
	}
	node.Title = title
	node.ContentHash = hasher.Hash(html, node.URL)
	now := time.Now().UTC()
	node.LastScraped = &now

	node.PreviousHash = previousHashes[node.URL]
	node.ContentChanged = hasher.Changed(node.ContentHash, node.PreviousHash)

	path, err := c.blobs.PutHTML(ctx, namespace, node.URL, []byte(html))
	if err != nil {
		pageLog.Warn("html upload failed", "error", err)
		node.Error = err.Error()
		node.ContentChanged = true
		return nil
	}
	node.HTMLPath = path

	analysis, err := c.links.Analyze(ctx, oracle.Markdown(html), node.URL)
	if err != nil {
		// The page itself is stored and hashed; only link discovery
		// is lost, so the subtree ends here.
		pageLog.Warn("link analysis failed", "error", err)
		return nil
	}
	node.AssignmentDataFound = analysis.AssignmentDataFound

	var resolved []string
	for _, raw := range analysis.RelevantLinks {
		if link := ResolveURL(node.URL, raw); link != "" {
			resolved = append(resolved, link)
		}
	}
	pageLog.Debug("page processed",
		"changed", node.ContentChanged,
		"assignment_data", node.AssignmentDataFound,
		"candidate_links", len(resolved),
	)
	return resolved
}
