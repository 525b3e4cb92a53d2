package urlhandler

import (
	"slices"

	"github.com/aleister1102/pendoc/internal/models"
)

// Deduplicator builds the ordered work set. Targets keep the position at which their identity key
// was first seen; later duplicates only add provenance. Not safe for concurrent use.
type Deduplicator struct {
	index   map[string]int
	targets []models.CanonicalTarget
}

// NewDeduplicator creates an empty Deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{index: make(map[string]int)}
}

// Add records t and reports whether its identity key was new.
func (d *Deduplicator) Add(t models.CanonicalTarget) bool {
	key := t.Key()
	if i, seen := d.index[key]; seen {
		d.targets[i].Provenance = MergeProvenance(d.targets[i].Provenance, t.Provenance)
		return false
	}

	t.Provenance = MergeProvenance(nil, t.Provenance)
	d.index[key] = len(d.targets)
	d.targets = append(d.targets, t)
	return true
}

// Len returns the number of distinct targets seen so far.
func (d *Deduplicator) Len() int {
	return len(d.targets)
}

// WorkSet returns a copy of the deduplicated targets in first-seen order.
func (d *Deduplicator) WorkSet() []models.CanonicalTarget {
	out := make([]models.CanonicalTarget, len(d.targets))
	for i, t := range d.targets {
		t.Provenance = slices.Clone(t.Provenance)
		out[i] = t
	}
	return out
}

// Dedupe collapses targets sharing an identity key, preserving first-seen order.
func Dedupe(targets []models.CanonicalTarget) []models.CanonicalTarget {
	d := NewDeduplicator()
	for _, t := range targets {
		d.Add(t)
	}
	return d.WorkSet()
}

// MergeProvenance unions two provenance lists, ordered by source priority.
func MergeProvenance(a, b []models.SourceKind) []models.SourceKind {
	merged := make([]models.SourceKind, 0, len(a)+len(b))
	for _, k := range append(slices.Clone(a), b...) {
		if !slices.Contains(merged, k) {
			merged = append(merged, k)
		}
	}
	slices.SortStableFunc(merged, func(x, y models.SourceKind) int {
		return x.Priority() - y.Priority()
	})
	return merged
}
