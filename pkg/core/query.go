package core

import (
	"context"
	"strings"
	"time"
)

// MatchMode selects how Query.Text and Query.Desc are compared.
type MatchMode int

const (
	// Contains matches when the attribute contains the query string.
	Contains MatchMode = iota
	// Exact matches only identical (trimmed) strings.
	Exact
)

// Query describes an element search. Zero-valued fields are ignored.
type Query struct {
	Text  string
	Desc  string
	ID    string
	Class string
	Mode  MatchMode

	ClickableOnly bool
	// Within restricts matches to elements whose center lies inside it.
	Within *Bounds
	// Timeout bounds the polling of Screen.Find. Zero means a single attempt.
	Timeout time.Duration
}

// ByText is shorthand for a text query.
func ByText(text string, mode MatchMode) Query {
	return Query{Text: text, Mode: mode}
}

// ByDesc is shorthand for a content-description query.
func ByDesc(desc string, mode MatchMode) Query {
	return Query{Desc: desc, Mode: mode}
}

// ByID is shorthand for a resource-id query (suffix/contains match).
func ByID(id string) Query {
	return Query{ID: id}
}

// ByClass is shorthand for a class-name query.
func ByClass(class string) Query {
	return Query{Class: class}
}

// WithTimeout returns a copy of q that polls for up to d.
func (q Query) WithTimeout(d time.Duration) Query {
	q.Timeout = d
	return q
}

// Matches reports whether e satisfies q.
func Matches(e Element, q Query) bool {
	if q.Text != "" && !matchString(e.Text(), q.Text, q.Mode) {
		return false
	}
	if q.Desc != "" && !matchString(e.Desc(), q.Desc, q.Mode) {
		return false
	}
	if q.ID != "" && !strings.Contains(e.ID(), q.ID) {
		return false
	}
	if q.Class != "" && e.ClassName() != q.Class && !strings.HasSuffix(e.ClassName(), "."+q.Class) {
		return false
	}
	if q.ClickableOnly && !e.Clickable() {
		return false
	}
	if q.Within != nil {
		cx, cy := e.Bounds().Center()
		if !q.Within.Contains(cx, cy) {
			return false
		}
	}
	return true
}

func matchString(actual, want string, mode MatchMode) bool {
	if mode == Exact {
		return strings.TrimSpace(actual) == strings.TrimSpace(want)
	}
	return actual != "" && strings.Contains(actual, want)
}

// Filter returns the elements matching q, preserving order.
func Filter(elems []Element, q Query) []Element {
	var out []Element
	for _, e := range elems {
		if Matches(e, q) {
			out = append(out, e)
		}
	}
	return out
}

// FindAny runs each query in order and returns the first non-empty result.
func FindAny(ctx context.Context, s Screen, queries ...Query) []Element {
	for _, q := range queries {
		if found := s.Find(ctx, q); len(found) > 0 {
			return found
		}
	}
	return nil
}

// Exists reports whether any element matches q.
func Exists(ctx context.Context, s Screen, q Query) bool {
	return len(s.Find(ctx, q)) > 0
}

// VisibleTexts returns every non-empty text and description on screen.
func VisibleTexts(ctx context.Context, s Screen) []string {
	elems, err := s.Snapshot(ctx)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range elems {
		if t := strings.TrimSpace(e.Text()); t != "" {
			out = append(out, t)
		}
		if d := strings.TrimSpace(e.Desc()); d != "" {
			out = append(out, d)
		}
	}
	return out
}
