package mapping

import (
	"sync"

	"emcal/domain/core"
)

// VariableMapping records the outcome of resolving one raw measured-variable
// label against the canonical dictionary. Created once per distinct raw
// label encountered in a run and never mutated after creation.
type VariableMapping struct {
	RawLabel   string          `json:"raw_label"`
	VariableID core.VariableID `json:"variable_id,omitempty"` // empty when unresolved
	Confidence float64         `json:"confidence"`            // in [0,1]
	Rule       string          `json:"normalization_rule"`    // which step produced the result

	// Diagnostics retained for sub-threshold candidates: the best alias
	// candidate and its score even though the mapping was rejected.
	BestCandidate      string  `json:"best_candidate,omitempty"`
	BestCandidateScore float64 `json:"best_candidate_score,omitempty"`
}

// Resolved reports whether the label mapped above the acceptance threshold.
func (m VariableMapping) Resolved() bool {
	return m.VariableID != ""
}

// Normalization rule names, recorded on each mapping for diagnostics.
const (
	RuleExactMatch   = "exact_match"
	RuleAliasOverlap = "alias_token_overlap"
	RuleNoMatch      = "no_match"
)

// ReducerKind determines how a variable is aggregated across time buckets.
// The mapping from canonical variable to reducer kind is an explicit
// lookup, never inferred from value magnitudes.
type ReducerKind string

const (
	// ReducerSum is for additive quantities (energy, volume).
	ReducerSum ReducerKind = "sum"
	// ReducerMean is for intensive quantities (temperature, power draw).
	ReducerMean ReducerKind = "mean"
)

// VariableSpec declares a canonical variable: its id, unit and how it
// aggregates. The dictionary is the set of all declared variables.
type VariableSpec struct {
	ID      core.VariableID `json:"id"`
	Unit    string          `json:"unit"`
	Reducer ReducerKind     `json:"reducer"`
	Aliases []string        `json:"aliases,omitempty"` // raw-label aliases, normalized at table build
}

// Cache is the run-scoped mapping cache. It is populated during the
// mapping phase and shared read-only across all worker goroutines.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]VariableMapping // keyed by raw label
}

// NewCache creates an empty mapping cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]VariableMapping)}
}

// Get returns the cached mapping for a raw label, if present.
func (c *Cache) Get(rawLabel string) (VariableMapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.entries[rawLabel]
	return m, ok
}

// Put stores a mapping. The first record for a label wins; mappings are
// never mutated after creation.
func (c *Cache) Put(m VariableMapping) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[m.RawLabel]; !exists {
		c.entries[m.RawLabel] = m
	}
}

// Len returns the number of cached mappings
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// All returns a copy of every cached mapping, for end-of-run reporting.
func (c *Cache) All() []VariableMapping {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]VariableMapping, 0, len(c.entries))
	for _, m := range c.entries {
		out = append(out, m)
	}
	return out
}
