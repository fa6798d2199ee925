package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// Mask replaces redacted content values.
const Mask = "***"

type redactionMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks node and edge content
// whose keys match any of the patterns before the snapshot is stored.
// Nested maps are masked too. The caller's snapshot is never modified.
func NewRedactionMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: redaction pattern %q: %v", domain.ErrInvalidArgument, p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactionMiddleware) Save(ctx context.Context, snap *domain.Snapshot) error {
	cloned := snap.Clone()
	for i := range cloned.Nodes {
		cloned.Nodes[i].Content = m.mask(cloned.Nodes[i].Content)
	}
	for i := range cloned.Edges {
		cloned.Edges[i].Content = m.mask(cloned.Edges[i].Content)
	}
	return m.next.Save(ctx, cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, diagramID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, diagramID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, diagramID string) error {
	return m.next.Delete(ctx, diagramID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// mask returns a masked deep copy; Clone only copies the top level.
func (m *redactionMiddleware) mask(content map[string]any) map[string]any {
	if content == nil {
		return nil
	}
	out := make(map[string]any, len(content))
	for k, v := range content {
		if m.matches(k) {
			out[k] = Mask
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			v = m.mask(sub)
		}
		out[k] = v
	}
	return out
}

func (m *redactionMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
