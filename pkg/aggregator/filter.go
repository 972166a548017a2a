package aggregator

import (
	"fmt"
	"strings"

	"github.com/moby/patternmatcher"
)

// DefaultIgnoreTags are elements whose changes carry no page content.
var DefaultIgnoreTags = []string{"script", "style", "meta", "link", "noscript", "template"}

// Filter drops events of unknown kind, events that target non-content
// elements or ignored subtrees, and child-list notifications that changed
// nothing.
type Filter struct {
	tags  map[string]struct{}
	paths *patternmatcher.PatternMatcher
}

// NewFilter builds a Filter. Path patterns use the .dockerignore syntax
// against element paths; a match also ignores every descendant.
func NewFilter(ignoreTags, ignorePaths []string) (*Filter, error) {
	f := &Filter{tags: make(map[string]struct{}, len(ignoreTags))}
	for _, tag := range ignoreTags {
		f.tags[strings.ToLower(tag)] = struct{}{}
	}
	if len(ignorePaths) > 0 {
		cleaned := make([]string, 0, len(ignorePaths))
		for _, p := range ignorePaths {
			cleaned = append(cleaned, strings.TrimPrefix(p, "/"))
		}
		pm, err := patternmatcher.New(cleaned)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore path pattern: %w", err)
		}
		f.paths = pm
	}
	return f, nil
}

func (f *Filter) Accept(ev Event) bool {
	if !ev.Kind.Known() {
		return false
	}
	if _, ok := f.tags[strings.ToLower(ev.Target.Tag)]; ok {
		return false
	}
	if ev.Kind == ChildList && len(ev.Added) == 0 && len(ev.Removed) == 0 {
		return false
	}
	if f.paths != nil && ev.Target.Path != "" {
		ignored, err := f.paths.MatchesOrParentMatches(strings.TrimPrefix(ev.Target.Path, "/"))
		if err == nil && ignored {
			return false
		}
	}
	return true
}
