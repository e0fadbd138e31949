package parser

import (
	"strings"
	"testing"
)

func TestParseMarkers(t *testing.T) {
	p := New()

	tests := []struct {
		name        string
		content     string
		wantTitle   string
		wantSummary string
		wantTags    []string
	}{
		{
			name:        "well-formed response",
			content:     "Title: Example Domain\n\nSummary: A reserved domain used in documentation.\n\nTags: example, documentation, reference",
			wantTitle:   "Example Domain",
			wantSummary: "A reserved domain used in documentation.",
			wantTags:    []string{"example", "documentation", "reference"},
		},
		{
			name:        "case-insensitive markers",
			content:     "TITLE: Upper\nSUMMARY: Shouty response.\nTAGS: a, b",
			wantTitle:   "Upper",
			wantSummary: "Shouty response.",
			wantTags:    []string{"a", "b"},
		},
		{
			name:        "multiline summary",
			content:     "Title: T\nSummary: First line.\nSecond line.\nTags: one",
			wantTitle:   "T",
			wantSummary: "First line.\nSecond line.",
			wantTags:    []string{"one"},
		},
		{
			name:        "no markers at all",
			content:     "The model just chatted instead of following the format.",
			wantTitle:   "",
			wantSummary: "",
			wantTags:    []string{},
		},
		{
			name:        "empty tag segments dropped",
			content:     "Title: T\nSummary: S\nTags: a, , b,,",
			wantTitle:   "T",
			wantSummary: "S",
			wantTags:    []string{"a", "b"},
		},
		{
			name:        "duplicate tags preserved in emitted order",
			content:     "Title: T\nSummary: S\nTags: go, web, go",
			wantTitle:   "T",
			wantSummary: "S",
			wantTags:    []string{"go", "web", "go"},
		},
		{
			name:        "preamble before markers",
			content:     "Sure, here you go!\nTitle: T\nSummary: S\nTags: x",
			wantTitle:   "T",
			wantSummary: "S",
			wantTags:    []string{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := p.ParseMarkers(tt.content)

			if result.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", result.Title, tt.wantTitle)
			}
			if result.Summary != tt.wantSummary {
				t.Errorf("Summary = %q, want %q", result.Summary, tt.wantSummary)
			}
			if len(result.Tags) != len(tt.wantTags) {
				t.Fatalf("Tags = %v, want %v", result.Tags, tt.wantTags)
			}
			for i, tag := range tt.wantTags {
				if result.Tags[i] != tag {
					t.Errorf("Tags[%d] = %q, want %q", i, result.Tags[i], tag)
				}
			}
		})
	}
}

func TestParseMarkers_NeverNilTags(t *testing.T) {
	p := New()
	result := p.ParseMarkers("no structure here")
	if result.Tags == nil {
		t.Error("Tags should be an empty slice, not nil")
	}
}

func TestParseStructured(t *testing.T) {
	p := New()

	t.Run("valid JSON object", func(t *testing.T) {
		content := `{"title":"Example","summary":"A page.","tags":["a","b"],"key_points":["first","second"]}`
		result := p.ParseStructured(content, "fallback")

		if result.Title != "Example" {
			t.Errorf("Title = %q, want %q", result.Title, "Example")
		}
		if result.Summary != "A page." {
			t.Errorf("Summary = %q, want %q", result.Summary, "A page.")
		}
		if len(result.Tags) != 2 || len(result.KeyPoints) != 2 {
			t.Errorf("Tags = %v, KeyPoints = %v", result.Tags, result.KeyPoints)
		}
	})

	t.Run("JSON wrapped in code fence", func(t *testing.T) {
		content := "```json\n{\"title\":\"Fenced\",\"summary\":\"S\",\"tags\":[]}\n```"
		result := p.ParseStructured(content, "fallback")

		if result.Title != "Fenced" {
			t.Errorf("Title = %q, want %q", result.Title, "Fenced")
		}
	})

	t.Run("empty title uses fallback", func(t *testing.T) {
		content := `{"summary":"S","tags":[]}`
		result := p.ParseStructured(content, "My Bookmark")

		if result.Title != "My Bookmark" {
			t.Errorf("Title = %q, want %q", result.Title, "My Bookmark")
		}
	})

	t.Run("unparseable text degrades to truncation", func(t *testing.T) {
		raw := strings.Repeat("x", 700)
		result := p.ParseStructured(raw, "My Bookmark")

		if result.Title != "My Bookmark" {
			t.Errorf("Title = %q, want fallback title", result.Title)
		}
		if len(result.Summary) != degradedSummaryChars {
			t.Errorf("Summary length = %d, want %d", len(result.Summary), degradedSummaryChars)
		}
		if len(result.Tags) != 1 || result.Tags[0] != DegradedTag {
			t.Errorf("Tags = %v, want [%s]", result.Tags, DegradedTag)
		}
		if len(result.KeyPoints) != 1 || len(result.KeyPoints[0]) != degradedKeyPointChars {
			t.Errorf("KeyPoints = %v", result.KeyPoints)
		}
	})

	t.Run("short raw text not truncated", func(t *testing.T) {
		result := p.ParseStructured("just a sentence", "T")
		if result.Summary != "just a sentence" {
			t.Errorf("Summary = %q", result.Summary)
		}
	})
}
