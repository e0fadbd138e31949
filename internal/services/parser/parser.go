// Package parser extracts structured bookmark fields from free-form
// completion text returned by a provider.
package parser

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	// degradedSummaryChars caps the summary built by the truncation fallback
	degradedSummaryChars = 500
	// degradedKeyPointChars caps the key point built by the truncation fallback
	degradedKeyPointChars = 200
	// DegradedTag marks records whose fields came from the truncation
	// fallback rather than a parsed response
	DegradedTag = "parsed_from_text"
)

// Result holds the fields extracted from one completion. Absent markers
// leave fields empty; extraction never fails.
type Result struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	KeyPoints []string `json:"key_points,omitempty"`
}

// Parser extracts bookmark fields from completion text
type Parser struct {
	titleRegex   *regexp.Regexp
	summaryRegex *regexp.Regexp
	tagsRegex    *regexp.Regexp
	fenceRegex   *regexp.Regexp
}

// New creates a parser with the marker-format contract compiled in
func New() *Parser {
	return &Parser{
		// Markers are case-insensitive; title/summary capture up to the next
		// marker, tags capture to end of text
		titleRegex:   regexp.MustCompile(`(?is)title:\s*(.*?)\s*summary:`),
		summaryRegex: regexp.MustCompile(`(?is)summary:\s*(.*?)\s*tags:`),
		tagsRegex:    regexp.MustCompile(`(?is)tags:\s*(.*)\s*$`),
		fenceRegex:   regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```\\s*$"),
	}
}

// ParseMarkers extracts title, summary and tags from the fixed
// "Title: ... Summary: ... Tags: ..." format the prompt requests. Missing
// markers produce empty fields - a parse miss is not a processing failure.
//
// Tags keep the order the model emitted them in, without sorting or
// deduplication, so the model's salience ordering survives into the record.
func (p *Parser) ParseMarkers(content string) Result {
	result := Result{
		Tags: []string{},
	}

	if m := p.titleRegex.FindStringSubmatch(content); m != nil {
		result.Title = strings.TrimSpace(m[1])
	}
	if m := p.summaryRegex.FindStringSubmatch(content); m != nil {
		result.Summary = strings.TrimSpace(m[1])
	}
	if m := p.tagsRegex.FindStringSubmatch(content); m != nil {
		for _, tag := range strings.Split(m[1], ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				result.Tags = append(result.Tags, trimmed)
			}
		}
	}

	return result
}

// ParseStructured attempts a strict JSON parse of the completion, stripping
// one fenced code block first if present. On parse failure it falls back to
// a degraded record built by truncating the raw text - the terminal recovery
// path before giving up. It never fails.
func (p *Parser) ParseStructured(content, fallbackTitle string) Result {
	cleaned := p.stripCodeFence(content)

	var result Result
	if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
		if result.Tags == nil {
			result.Tags = []string{}
		}
		if result.Title == "" {
			result.Title = fallbackTitle
		}
		return result
	}

	raw := strings.TrimSpace(content)
	return Result{
		Title:     fallbackTitle,
		Summary:   truncate(raw, degradedSummaryChars),
		Tags:      []string{DegradedTag},
		KeyPoints: []string{truncate(raw, degradedKeyPointChars)},
	}
}

// stripCodeFence removes a surrounding markdown code fence if the whole
// content is wrapped in one
func (p *Parser) stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if m := p.fenceRegex.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
