package dto

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// legacyKeys maps field names used by older extraction passes to the current ones.
var legacyKeys = map[string]string{
	"or_city":  domain.PropOrigin,
	"dst_city": domain.PropDestination,
	"str_date": domain.PropStartDate,
	"origin":   domain.PropOrigin,
	"dest":     domain.PropDestination,
}

// DecodePrefill maps the output of an extraction pass onto a booking.
// Values are weakly typed: a numeric budget becomes its string form.
// Nil values and unknown keys are ignored.
func DecodePrefill(raw map[string]any) (domain.BookingSession, error) {
	var b domain.BookingSession
	if len(raw) == 0 {
		return b, nil
	}

	// Canonical keys always win over legacy aliases; clashing aliases
	// resolve in key order.
	normalized := make(map[string]any, len(raw))
	var aliased []string
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		v := raw[k]
		if v == nil {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(k))
		if _, ok := legacyKeys[key]; ok {
			aliased = append(aliased, k)
			continue
		}
		if _, seen := normalized[key]; !seen {
			normalized[key] = v
		}
	}
	for _, k := range aliased {
		key := legacyKeys[strings.ToLower(strings.TrimSpace(k))]
		if _, seen := normalized[key]; !seen {
			normalized[key] = raw[k]
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &b,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return b, fmt.Errorf("failed to build prefill decoder: %w", err)
	}
	if err := decoder.Decode(normalized); err != nil {
		return b, fmt.Errorf("invalid prefill: %w", err)
	}
	return b, nil
}

// ParsePairs converts "key=value" pairs (e.g. CLI flags) into a prefill map.
func ParsePairs(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid prefill %q: expected key=value", p)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}
