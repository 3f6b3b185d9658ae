// Package dedup consolidates candidate entities against the growing shared
// knowledge base: it scores multi-signal name similarity and decides per
// candidate whether to create a new entity, merge into an existing one or
// reject it.
package dedup

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dfattal/kgraph/model"
	"github.com/dfattal/kgraph/vocab"
)

// Signal weights. Every signal adds its weight to the denominator
// unconditionally and to the numerator only when triggered, so the score is
// always normalized to [0,1]. The kind signal only exists for products and
// organizations, other kinds omit it from both sides of the ratio.
const (
	weightExact       = 100.0
	weightContainment = 80.0
	weightKind        = 70.0
	weightOverlap     = 60.0
	weightEdit        = 40.0

	// numerator-only bonuses on top of the kind signal
	bonusModelToken   = 40.0
	bonusWordOverlap  = 20.0
	bonusAbbreviation = 25.0

	// minimum character similarity before edit distance counts
	editSimilarityFloor = 0.8
)

// Decision thresholds on the normalized similarity score.
const (
	MergeThreshold  = 0.6
	CreateThreshold = 0.4
)

// Scorer computes name similarity between a candidate and a comparison
// entity of the same kind. It is pure and safe for concurrent use.
type Scorer struct {
	vocabulary *vocab.Config
}

// NewScorer creates a similarity scorer. A nil vocabulary uses the embedded
// defaults.
func NewScorer(vocabulary *vocab.Config) *Scorer {
	if vocabulary == nil {
		vocabulary = vocab.Default()
	}
	return &Scorer{vocabulary: vocabulary}
}

// Score returns the weighted similarity between two same-kind names in
// [0,1] together with a trace of the triggered signals.
func (s *Scorer) Score(candidate string, existing string, kind model.EntityKind) (float64, string) {
	a := model.NormalizeEntityName(candidate)
	b := model.NormalizeEntityName(existing)
	if a == "" || b == "" {
		return 0, "empty name"
	}

	var numerator, denominator float64
	var signals []string

	denominator += weightExact
	if a == b {
		numerator += weightExact
		signals = append(signals, "exact match")
	}

	denominator += weightContainment
	if strings.Contains(a, b) || strings.Contains(b, a) {
		numerator += weightContainment
		signals = append(signals, "containment")
	}

	// the token and edit signals compare the kind specific cores, so that
	// artifact prefixes and legal suffixes do not dilute the overlap
	compareA, compareB := a, b
	switch kind {
	case model.EntityKindProduct:
		denominator += weightKind
		compareA, compareB = s.productCore(a), s.productCore(b)
		if score, trace := s.productScore(compareA, compareB); score > 0 {
			numerator += score
			signals = append(signals, trace)
		}
	case model.EntityKindOrganization:
		denominator += weightKind
		compareA, _ = s.vocabulary.StripLegalSuffixes(a)
		compareB, _ = s.vocabulary.StripLegalSuffixes(b)
		if score, trace := s.organizationScore(compareA, compareB, a, b); score > 0 {
			numerator += score
			signals = append(signals, trace)
		}
	}

	denominator += weightOverlap
	if overlap := tokenJaccard(compareA, compareB); overlap > 0 {
		numerator += weightOverlap * overlap
		signals = append(signals, fmt.Sprintf("token overlap %.2f", overlap))
	}

	denominator += weightEdit
	if charSim := editSimilarity(compareA, compareB); charSim > editSimilarityFloor {
		numerator += weightEdit
		signals = append(signals, fmt.Sprintf("edit similarity %.2f", charSim))
	}

	score := numerator / denominator
	if score > 1 {
		score = 1
	}
	if len(signals) == 0 {
		return score, "no signal"
	}
	return score, strings.Join(signals, ", ")
}

// productScore compares product name cores after stripping extraction
// artifact prefixes and trailing generic nouns. Containment on word
// boundaries outranks containment across one, e.g. "Free 3D" inside
// "Glasses-Free 3D". Shared alphanumeric model tokens add a numerator-only
// bonus on top of the core score.
func (s *Scorer) productScore(coreA, coreB string) (float64, string) {
	var score float64
	var trace string
	switch {
	case coreA == coreB:
		score, trace = weightKind, "product cores equal"
	case wordContains(coreA, coreB):
		score, trace = 50, "product core containment"
	case strings.Contains(coreA, coreB) || strings.Contains(coreB, coreA):
		score, trace = 45, "fragment containment"
	}

	if sharedModelToken(coreA, coreB) {
		score += bonusModelToken
		if trace == "" {
			trace = "shared model token"
		} else {
			trace += ", shared model token"
		}
	}

	return score, trace
}

func (s *Scorer) productCore(normalized string) string {
	core, _ := s.vocabulary.StripArtifactPrefixes(normalized)
	return s.vocabulary.StripGenericSuffixes(core)
}

// organizationScore compares organization name cores after stripping legal
// suffixes. Containment is scaled by the length ratio of the cores; word
// overlap and known abbreviation pairs add numerator-only bonuses. The raw
// names are needed for acronyms built from a legal suffix ("QTI").
func (s *Scorer) organizationScore(coreA, coreB, rawA, rawB string) (float64, string) {
	var score float64
	var trace string
	switch {
	case coreA == coreB:
		score, trace = weightKind, "organization cores equal"
	case strings.Contains(coreA, coreB) || strings.Contains(coreB, coreA):
		shorter, longer := len([]rune(coreA)), len([]rune(coreB))
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		score = weightKind * float64(shorter) / float64(longer)
		trace = fmt.Sprintf("organization core containment %.0f%%", 100*float64(shorter)/float64(longer))
	}

	if score > 0 && score < weightKind && tokenJaccard(coreA, coreB) > 0 {
		score += bonusWordOverlap
		trace += ", word overlap"
	}
	if s.vocabulary.IsAbbreviationPair(coreA, coreB) || s.vocabulary.IsAbbreviationPair(rawA, rawB) {
		score += bonusAbbreviation
		if trace == "" {
			trace = "abbreviation pair"
		} else {
			trace += ", abbreviation pair"
		}
	}

	return score, trace
}

// wordContains reports whether one name's tokens appear as a contiguous run
// inside the other's.
func wordContains(a, b string) bool {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	return containsRun(tokensA, tokensB) || containsRun(tokensB, tokensA)
}

func containsRun(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// sharedModelToken reports whether both names carry a common token that
// looks like a model designation: contains a digit, or is a roman numeral
// suffix token.
func sharedModelToken(a, b string) bool {
	tokensA := map[string]bool{}
	for _, token := range strings.Fields(a) {
		if isModelToken(token) {
			tokensA[token] = true
		}
	}
	for _, token := range strings.Fields(b) {
		if isModelToken(token) && tokensA[token] {
			return true
		}
	}
	return false
}

var romanNumerals = map[string]bool{"ii": true, "iii": true, "iv": true, "v": true}

func isModelToken(token string) bool {
	if romanNumerals[token] {
		return true
	}
	hasDigit := false
	for _, r := range token {
		if unicode.IsDigit(r) {
			hasDigit = true
		} else if !unicode.IsLetter(r) {
			return false
		}
	}
	return hasDigit
}

// tokenJaccard is the Jaccard index over tokens longer than two characters.
func tokenJaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, token := range strings.Fields(s) {
		if len([]rune(token)) > 2 {
			set[token] = true
		}
	}
	return set
}

// editSimilarity is 1 - levenshtein/maxLen, the share of characters the two
// names agree on.
func editSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes the edit distance with a two-row matrix.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	previous := make([]int, len(b)+1)
	current := make([]int, len(b)+1)
	for j := range previous {
		previous[j] = j
	}

	for i := 1; i <= len(a); i++ {
		current[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[j] = min3(
				previous[j]+1,
				current[j-1]+1,
				previous[j-1]+cost,
			)
		}
		previous, current = current, previous
	}

	return previous[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
