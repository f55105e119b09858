package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursesync-backend/internal/platform/gcp"
	"github.com/yungbote/coursesync-backend/internal/platform/logger"
	"github.com/yungbote/coursesync-backend/internal/sync/browser"
	"github.com/yungbote/coursesync-backend/internal/sync/oracle"
	"github.com/yungbote/coursesync-backend/internal/sync/pagetree"
)

type fakePage struct {
	html  string
	title string
	links []string
	err   error
}

type fakeFetcher struct {
	pages     map[string]fakePage
	openErr   error
	openCalls int
}

func (f *fakeFetcher) OpenSession(_ context.Context, _ []browser.Cookie) (browser.Session, error) {
	f.openCalls++
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakeSession{pages: f.pages}, nil
}

func (f *fakeFetcher) Close() {}

type fakeSession struct {
	pages map[string]fakePage
}

func (s *fakeSession) Fetch(_ context.Context, url string, _ time.Duration) (string, string, error) {
	p, ok := s.pages[url]
	if !ok {
		return "", "", fmt.Errorf("fetch %s: unknown url", url)
	}
	if p.err != nil {
		return "", "", p.err
	}
	return p.html, p.title, nil
}

func (s *fakeSession) Close() {}

type fakeLinkOracle struct {
	links map[string][]string
	flags map[string]bool
}

func (o *fakeLinkOracle) Analyze(_ context.Context, _ string, currentURL string) (oracle.LinkAnalysis, error) {
	return oracle.LinkAnalysis{
		RelevantLinks:       o.links[currentURL],
		AssignmentDataFound: o.flags[currentURL],
	}, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	require.NoError(t, err)
	return log
}

func page(text string) fakePage {
	return fakePage{html: "<html><body><p>" + text + "</p></body></html>", title: text}
}

// Five-page site: root links to p2 and p3, p2 links to p4, p4 links to p5.
func fiveSiteFetcher() (*fakeFetcher, *fakeLinkOracle) {
	f := &fakeFetcher{pages: map[string]fakePage{
		"https://site":    page("home"),
		"https://site/p2": page("homework one and two"),
		"https://site/p3": page("syllabus"),
		"https://site/p4": page("calendar"),
		"https://site/p5": page("homework one again"),
	}}
	o := &fakeLinkOracle{
		links: map[string][]string{
			"https://site": {"/p2", "/p3"},
			// Self and duplicate links should be filtered by the visited set.
			"https://site/p2": {"/p4", "/p2", "https://site/"},
			"https://site/p4": {"/p5", "mailto:x@y.z"},
		},
		flags: map[string]bool{"https://site/p2": true, "https://site/p5": true},
	}
	return f, o
}

func TestCrawlFreshSite(t *testing.T) {
	fetcher, links := fiveSiteFetcher()
	blobs := gcp.NewMemBlobStore()
	c := New(testLogger(t), fetcher, blobs, links)

	tree, stats, err := c.Crawl(context.Background(), "https://site/", "job-1", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, tree.Root)

	assert.Equal(t, 5, stats.PagesTotal)
	assert.Equal(t, 5, stats.PagesNew)
	assert.Equal(t, 0, stats.PagesChanged)
	assert.Equal(t, 2, stats.PagesWithAssignments)
	assert.Equal(t, 5, blobs.Len(), "every visited page is stored")

	seen := map[string]int{}
	tree.Walk(func(n *pagetree.Node) bool {
		seen[n.URL]++
		assert.LessOrEqual(t, n.Depth, MaxDepth)
		assert.True(t, n.ContentChanged, "fresh pages are all changed")
		assert.NotEmpty(t, n.ContentHash)
		assert.NotEmpty(t, n.HTMLPath)
		assert.NotNil(t, n.LastScraped)
		return true
	})
	for url, count := range seen {
		assert.Equal(t, 1, count, "url %s appears once", url)
	}
	assert.Len(t, seen, 5)
}

func TestCrawlUnchangedResync(t *testing.T) {
	fetcher, links := fiveSiteFetcher()
	blobs := gcp.NewMemBlobStore()
	c := New(testLogger(t), fetcher, blobs, links)

	first, _, err := c.Crawl(context.Background(), "https://site/", "job-1", nil, nil)
	require.NoError(t, err)

	second, stats, err := c.Crawl(context.Background(), "https://site/", "job-2", nil, first)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.PagesNew)
	assert.Equal(t, 0, stats.PagesChanged)
	assert.Equal(t, 5, stats.PagesUnchanged)
	second.Walk(func(n *pagetree.Node) bool {
		assert.False(t, n.ContentChanged, "unchanged page %s", n.URL)
		assert.Equal(t, n.ContentHash, n.PreviousHash)
		return true
	})
}

func TestCrawlSinglePageChange(t *testing.T) {
	fetcher, links := fiveSiteFetcher()
	blobs := gcp.NewMemBlobStore()
	c := New(testLogger(t), fetcher, blobs, links)

	first, _, err := c.Crawl(context.Background(), "https://site/", "job-1", nil, nil)
	require.NoError(t, err)

	fetcher.pages["https://site/p5"] = page("homework one moved to monday")
	second, stats, err := c.Crawl(context.Background(), "https://site/", "job-2", nil, first)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.PagesChanged)
	assert.Equal(t, 4, stats.PagesUnchanged)
	changed := second.Changed()
	require.Len(t, changed, 1)
	assert.Equal(t, "https://site/p5", changed[0].URL)
}

func TestCrawlPartialPageFailure(t *testing.T) {
	fetcher, links := fiveSiteFetcher()
	fetcher.pages["https://site/p3"] = fakePage{err: errors.New("net::ERR_TIMED_OUT")}
	blobs := gcp.NewMemBlobStore()
	c := New(testLogger(t), fetcher, blobs, links)

	tree, stats, err := c.Crawl(context.Background(), "https://site/", "job-1", nil, nil)
	require.NoError(t, err, "one bad page must not fail the crawl")

	assert.Equal(t, 1, stats.PagesFailed)
	assert.Equal(t, 5, stats.PagesTotal)
	assert.Equal(t, 4, blobs.Len())

	var failed *pagetree.Node
	tree.Walk(func(n *pagetree.Node) bool {
		if n.URL == "https://site/p3" {
			failed = n
		}
		return true
	})
	require.NotNil(t, failed)
	assert.Empty(t, failed.HTMLPath)
	assert.True(t, failed.ContentChanged, "failed page is retried next sync")
	assert.NotEmpty(t, failed.Error)
}

func TestCrawlDepthBound(t *testing.T) {
	// A chain longer than MaxDepth: root -> d1 -> d2 -> d3 -> d4.
	pages := map[string]fakePage{}
	links := map[string][]string{"https://deep": {"/d1"}}
	pages["https://deep"] = page("root")
	for i := 1; i <= 4; i++ {
		url := fmt.Sprintf("https://deep/d%d", i)
		pages[url] = page(fmt.Sprintf("level %d", i))
		links[url] = []string{fmt.Sprintf("/d%d", i+1)}
	}
	fetcher := &fakeFetcher{pages: pages}
	c := New(testLogger(t), fetcher, gcp.NewMemBlobStore(), &fakeLinkOracle{links: links})

	tree, stats, err := c.Crawl(context.Background(), "https://deep/", "job-1", nil, nil)
	require.NoError(t, err)

	maxDepth := 0
	tree.Walk(func(n *pagetree.Node) bool {
		if n.Depth > maxDepth {
			maxDepth = n.Depth
		}
		return true
	})
	assert.Equal(t, MaxDepth, maxDepth)
	assert.Equal(t, MaxDepth+1, stats.PagesTotal)
}

func TestCrawlBrowserLaunchFailureIsFatal(t *testing.T) {
	fetcher := &fakeFetcher{openErr: errors.New("chrome not found")}
	c := New(testLogger(t), fetcher, gcp.NewMemBlobStore(), &fakeLinkOracle{})

	_, _, err := c.Crawl(context.Background(), "https://site/", "job-1", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open browser session")
}

func TestCrawlSingleSessionReused(t *testing.T) {
	fetcher, links := fiveSiteFetcher()
	c := New(testLogger(t), fetcher, gcp.NewMemBlobStore(), links)

	_, _, err := c.Crawl(context.Background(), "https://site/", "job-1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.openCalls, "all pages share one browser session")
}
