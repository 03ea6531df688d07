package observability

import (
	"context"
	"fmt"
	"maps"
	"regexp"

	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/ports"
)

// MaskedValue replaces the value of a masked property.
const MaskedValue = "***"

// MaskingReporter hides property values whose key matches one of its patterns.
type MaskingReporter struct {
	next     ports.Reporter
	patterns []*regexp.Regexp
}

// NewMaskingReporter compiles patterns and wraps next.
func NewMaskingReporter(next ports.Reporter, patterns []string) (*MaskingReporter, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid mask pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	if next == nil {
		next = Nop{}
	}
	return &MaskingReporter{next: next, patterns: compiled}, nil
}

// Track masks a copy of the event and forwards it. The caller's map is never touched.
func (m *MaskingReporter) Track(ctx context.Context, event domain.Event) error {
	if len(event.Properties) > 0 && len(m.patterns) > 0 {
		props := maps.Clone(event.Properties)
		for k := range props {
			if m.matches(k) {
				props[k] = MaskedValue
			}
		}
		event.Properties = props
	}
	return m.next.Track(ctx, event)
}

func (m *MaskingReporter) matches(key string) bool {
	for _, re := range m.patterns {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}
