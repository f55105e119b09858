// Package pagetree defines the crawler's output: a tree of visited pages
// with content hashes and change flags, serialized to JSON on the JobSync
// row.
package pagetree

import (
	"encoding/json"
	"time"
)

// Node is one visited page. HTMLPath is the blob-store path of the raw
// HTML; it is empty when the fetch failed, in which case ContentChanged is
// forced true so the next sync re-attempts the page.
type Node struct {
	URL                 string     `json:"url"`
	Title               string     `json:"title,omitempty"`
	Depth               int        `json:"depth"`
	HTMLPath            string     `json:"html_path,omitempty"`
	ContentHash         string     `json:"content_hash,omitempty"`
	PreviousHash        string     `json:"previous_hash,omitempty"`
	ContentChanged      bool       `json:"content_changed"`
	AssignmentDataFound bool       `json:"assignment_data_found"`
	LastScraped         *time.Time `json:"last_scraped,omitempty"`
	Error               string     `json:"error,omitempty"`
	Children            []*Node    `json:"children,omitempty"`
}

// Tree is the root of one crawl.
type Tree struct {
	Root *Node `json:"root"`
}

// Stats summarises one crawl for the pipeline result.
type Stats struct {
	PagesTotal           int `json:"pages_total"`
	PagesNew             int `json:"pages_new"`
	PagesChanged         int `json:"pages_changed"`
	PagesUnchanged       int `json:"pages_unchanged"`
	PagesWithAssignments int `json:"pages_with_assignments"`
	PagesFailed          int `json:"pages_failed"`
}

func Parse(raw []byte) (*Tree, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var t Tree
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tree) Marshal() ([]byte, error) {
	return json.Marshal(t)
}

// Walk visits every node in tree-traversal order (parent before children,
// siblings left to right). It stops early when fn returns false.
func (t *Tree) Walk(fn func(*Node) bool) {
	if t == nil || t.Root == nil {
		return
	}
	walk(t.Root, fn)
}

func walk(n *Node, fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

// HashIndex maps each URL in the tree to its content hash. The crawler
// feeds the previous sync's index into change detection.
func (t *Tree) HashIndex() map[string]string {
	idx := map[string]string{}
	t.Walk(func(n *Node) bool {
		if n.ContentHash != "" {
			idx[n.URL] = n.ContentHash
		}
		return true
	})
	return idx
}

// Changed returns the nodes with content_changed set, in traversal order.
// These are the extractor's target pages.
func (t *Tree) Changed() []*Node {
	var out []*Node
	t.Walk(func(n *Node) bool {
		if n.ContentChanged {
			out = append(out, n)
		}
		return true
	})
	return out
}

// ComputeStats derives the crawl summary from the finished tree.
func (t *Tree) ComputeStats() Stats {
	var s Stats
	t.Walk(func(n *Node) bool {
		s.PagesTotal++
		switch {
		case n.Error != "":
			s.PagesFailed++
			s.PagesChanged++
		case n.PreviousHash == "":
			s.PagesNew++
		case n.ContentChanged:
			s.PagesChanged++
		default:
			s.PagesUnchanged++
		}
		if n.AssignmentDataFound {
			s.PagesWithAssignments++
		}
		return true
	})
	return s
}
