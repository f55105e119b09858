package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveURL(t *testing.T) {
	base := "https://cs101.example.edu/schedule/week3"

	cases := []struct {
		name string
		href string
		want string
	}{
		{"absolute", "https://other.edu/hw1", "https://other.edu/hw1"},
		{"absolute keeps query", "https://other.edu/hw?id=2", "https://other.edu/hw?id=2"},
		{"scheme relative", "//cdn.example.edu/syllabus", "https://cdn.example.edu/syllabus"},
		{"relative sibling", "hw3.html", "https://cs101.example.edu/schedule/hw3.html"},
		{"relative root", "/syllabus", "https://cs101.example.edu/syllabus"},
		{"fragment stripped", "/syllabus#due-dates", "https://cs101.example.edu/syllabus"},
		{"fragment only", "#top", ""},
		{"trailing slash trimmed", "https://cs101.example.edu/schedule/", "https://cs101.example.edu/schedule"},
		{"mailto dropped", "mailto:prof@example.edu", ""},
		{"javascript dropped", "javascript:void(0)", ""},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveURL(base, tc.href))
		})
	}
}
