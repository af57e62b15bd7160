package mapper

import (
	"regexp"
	"strings"

	"emcal/domain/core"
	"emcal/domain/mapping"
)

// SemanticMapper resolves free-form measured-variable labels to canonical
// simulation-variable identifiers. Labels arrive with embedded unit and
// frequency annotations ("Electricity:Facility [J](Hourly)") that must
// normalize away before matching.
type SemanticMapper struct {
	threshold float64

	// normalized canonical name -> id
	dictionary map[string]core.VariableID
	// candidate token sets for overlap scoring: one per canonical id and
	// one per declared alias
	candidates []candidate
	specs      map[core.VariableID]mapping.VariableSpec
}

type candidate struct {
	id         core.VariableID
	normalized string
	tokens     map[string]struct{}
}

var (
	// trailing bracketed unit/frequency annotations: "[J](Hourly)", "(Monthly)"
	annotationPattern = regexp.MustCompile(`(\[[^\]]*\]|\([^)]*\))`)
	// runs of anything that is not a letter or digit collapse to one underscore
	separatorPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// New builds a mapper over the given canonical dictionary.
func New(specs []mapping.VariableSpec, confidenceThreshold float64) *SemanticMapper {
	m := &SemanticMapper{
		threshold:  confidenceThreshold,
		dictionary: make(map[string]core.VariableID, len(specs)),
		specs:      make(map[core.VariableID]mapping.VariableSpec, len(specs)),
	}
	for _, spec := range specs {
		norm := Normalize(string(spec.ID))
		m.dictionary[norm] = spec.ID
		m.specs[spec.ID] = spec
		m.candidates = append(m.candidates, candidate{
			id:         spec.ID,
			normalized: norm,
			tokens:     tokenSet(norm),
		})
		for _, alias := range spec.Aliases {
			aliasNorm := Normalize(alias)
			if aliasNorm == "" {
				continue
			}
			m.candidates = append(m.candidates, candidate{
				id:         spec.ID,
				normalized: aliasNorm,
				tokens:     tokenSet(aliasNorm),
			})
		}
	}
	return m
}

// Normalize lower-cases a raw label, strips bracketed unit/frequency
// suffixes and collapses separator runs to single underscores.
// "Electricity:Facility [J](Hourly)" -> "electricity_facility".
func Normalize(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = annotationPattern.ReplaceAllString(s, " ")
	s = separatorPattern.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// Map resolves a raw label. It never fails on malformed input: an
// unresolvable label yields a mapping with an empty variable id, the
// no-match rule, and the best rejected candidate kept for diagnostics.
func (m *SemanticMapper) Map(rawLabel string) mapping.VariableMapping {
	norm := Normalize(rawLabel)
	if norm == "" {
		return mapping.VariableMapping{
			RawLabel: rawLabel,
			Rule:     mapping.RuleNoMatch,
		}
	}

	// Step 1: exact dictionary match on the normalized form.
	if id, ok := m.dictionary[norm]; ok {
		return mapping.VariableMapping{
			RawLabel:   rawLabel,
			VariableID: id,
			Confidence: 1.0,
			Rule:       mapping.RuleExactMatch,
		}
	}

	// Step 2: alias/token-overlap matching. Confidence is the matched
	// token ratio (Jaccard) against the best candidate.
	labelTokens := tokenSet(norm)
	bestScore := 0.0
	var best candidate
	for _, cand := range m.candidates {
		// An exact alias hit short-circuits at full confidence.
		if cand.normalized == norm {
			bestScore = 1.0
			best = cand
			break
		}
		if score := tokenOverlap(labelTokens, cand.tokens); score > bestScore {
			bestScore = score
			best = cand
		}
	}

	if bestScore >= m.threshold && best.id != "" {
		return mapping.VariableMapping{
			RawLabel:   rawLabel,
			VariableID: best.id,
			Confidence: bestScore,
			Rule:       mapping.RuleAliasOverlap,
		}
	}

	// Below threshold: the candidate existed but is rejected. Keep it on
	// the record so the rejection is diagnosable.
	return mapping.VariableMapping{
		RawLabel:           rawLabel,
		Rule:               mapping.RuleNoMatch,
		BestCandidate:      best.normalized,
		BestCandidateScore: bestScore,
	}
}

// MapCached resolves through the run-scoped cache, creating the entry on
// first encounter of the label.
func (m *SemanticMapper) MapCached(cache *mapping.Cache, rawLabel string) mapping.VariableMapping {
	if cached, ok := cache.Get(rawLabel); ok {
		return cached
	}
	result := m.Map(rawLabel)
	cache.Put(result)
	return result
}

// Spec returns the dictionary entry for a canonical id.
func (m *SemanticMapper) Spec(id core.VariableID) (mapping.VariableSpec, bool) {
	spec, ok := m.specs[id]
	return spec, ok
}

// Reducer returns the configured reducer kind for a canonical variable,
// defaulting to sum for undeclared variables.
func (m *SemanticMapper) Reducer(id core.VariableID) mapping.ReducerKind {
	if spec, ok := m.specs[id]; ok && spec.Reducer != "" {
		return spec.Reducer
	}
	return mapping.ReducerSum
}

func tokenSet(normalized string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Split(normalized, "_") {
		if tok != "" {
			out[tok] = struct{}{}
		}
	}
	return out
}

// tokenOverlap computes the matched-token ratio between two token sets.
func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	matched := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			matched++
		}
	}
	union := len(a) + len(b) - matched
	if union == 0 {
		return 0
	}
	return float64(matched) / float64(union)
}
