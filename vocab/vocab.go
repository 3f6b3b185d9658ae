package vocab

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dfattal/kgraph/model"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Pattern set names shipped with the embedded configuration.
const (
	PatternSetGeneric = "generic"
	PatternSetDomain  = "domain"
)

// file mirrors the YAML layout.
type file struct {
	Version          string   `yaml:"version"`
	StopTerms        []string `yaml:"stop_terms"`
	GenericTerms     []string `yaml:"generic_terms"`
	ArtifactPrefixes []string `yaml:"artifact_prefixes"`
	GenericSuffixes  []string `yaml:"generic_suffixes"`
	LegalSuffixes    []string `yaml:"legal_suffixes"`
	Abbreviations    []struct {
		Short string `yaml:"short"`
		Long  string `yaml:"long"`
	} `yaml:"abbreviations"`
	DomainTerms    []string `yaml:"domain_terms"`
	TechnicalTerms []string `yaml:"technical_terms"`
	PressTerms     []string `yaml:"press_terms"`
	PatternSets    []struct {
		Name     string              `yaml:"name"`
		Patterns map[string][]string `yaml:"patterns"`
	} `yaml:"pattern_sets"`
}

// PatternSet is a compiled regex library for one extraction context. The
// first capture group of a pattern is the candidate name; patterns without a
// group use the whole match.
type PatternSet struct {
	Name     string
	patterns map[model.EntityKind][]*regexp.Regexp
}

// PatternsFor returns the compiled patterns for a kind.
func (p *PatternSet) PatternsFor(kind model.EntityKind) []*regexp.Regexp {
	return p.patterns[kind]
}

// Kinds returns the kinds this set has patterns for, in stable order.
func (p *PatternSet) Kinds() []model.EntityKind {
	var kinds []model.EntityKind
	for _, kind := range model.AllEntityKinds() {
		if len(p.patterns[kind]) > 0 {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Config is the process wide vocabulary configuration. It is loaded once at
// startup and never mutated afterwards.
type Config struct {
	Version string

	stopTerms        map[string]struct{}
	genericTerms     map[string]struct{}
	artifactPrefixes []string
	genericSuffixes  map[string]struct{}
	legalSuffixes    map[string]struct{}
	abbreviations    map[string]string
	domainTerms      []string
	technicalTerms   []string
	pressTerms       []string
	patternSets      map[string]*PatternSet
}

var (
	defaultConfig *Config
	defaultOnce   sync.Once
)

// Default returns the embedded configuration. It panics on an invalid
// embedded file because nothing can run without a vocabulary.
func Default() *Config {
	defaultOnce.Do(func() {
		config, err := parse(defaultsYAML)
		if err != nil {
			panic(fmt.Sprintf("invalid embedded vocabulary: %v", err))
		}
		defaultConfig = config
	})
	return defaultConfig
}

// Load reads a vocabulary configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing vocabulary yaml: %w", err)
	}

	config := &Config{
		Version:          f.Version,
		stopTerms:        toSet(f.StopTerms),
		genericTerms:     toSet(f.GenericTerms),
		artifactPrefixes: lowerAll(f.ArtifactPrefixes),
		genericSuffixes:  toSet(f.GenericSuffixes),
		legalSuffixes:    toSet(f.LegalSuffixes),
		abbreviations:    map[string]string{},
		domainTerms:      lowerAll(f.DomainTerms),
		technicalTerms:   lowerAll(f.TechnicalTerms),
		pressTerms:       lowerAll(f.PressTerms),
		patternSets:      map[string]*PatternSet{},
	}

	// longest prefix first so greedy stripping works
	sort.Slice(config.artifactPrefixes, func(i, j int) bool {
		return len(config.artifactPrefixes[i]) > len(config.artifactPrefixes[j])
	})

	for _, pair := range f.Abbreviations {
		config.abbreviations[strings.ToLower(pair.Short)] = strings.ToLower(pair.Long)
	}

	for _, rawSet := range f.PatternSets {
		set := &PatternSet{Name: rawSet.Name, patterns: map[model.EntityKind][]*regexp.Regexp{}}
		for rawKind, patterns := range rawSet.Patterns {
			kind, err := model.ParseEntityKind(rawKind)
			if err != nil {
				return nil, fmt.Errorf("pattern set %s: %w", rawSet.Name, err)
			}
			for _, pattern := range patterns {
				compiled, err := regexp.Compile(pattern)
				if err != nil {
					return nil, fmt.Errorf("pattern set %s, kind %s: %w", rawSet.Name, kind, err)
				}
				set.patterns[kind] = append(set.patterns[kind], compiled)
			}
		}
		config.patternSets[rawSet.Name] = set
	}

	return config, nil
}

// PatternSet returns the named regex library, or nil when absent.
func (c *Config) PatternSet(name string) *PatternSet {
	return c.patternSets[name]
}

// IsStopTerm reports whether the normalized name is a bare generic noun.
func (c *Config) IsStopTerm(normalized string) bool {
	_, ok := c.stopTerms[normalized]
	return ok
}

// IsGenericTerm reports whether the normalized name is an overly generic
// product/technical term.
func (c *Config) IsGenericTerm(normalized string) bool {
	_, ok := c.genericTerms[normalized]
	return ok
}

// StripArtifactPrefixes removes extraction artifact prefixes from an already
// normalized name until none match. The second return reports whether
// anything was stripped.
func (c *Config) StripArtifactPrefixes(normalized string) (string, bool) {
	stripped := false
	for {
		rest, ok := c.stripOnePrefix(normalized)
		if !ok {
			return normalized, stripped
		}
		normalized = rest
		stripped = true
	}
}

func (c *Config) stripOnePrefix(normalized string) (string, bool) {
	for _, prefix := range c.artifactPrefixes {
		if strings.HasPrefix(normalized, prefix+" ") {
			rest := strings.TrimSpace(strings.TrimPrefix(normalized, prefix+" "))
			if rest != "" {
				return rest, true
			}
		}
	}
	return normalized, false
}

// HasArtifactPrefix reports whether the normalized name starts with an
// extraction artifact prefix.
func (c *Config) HasArtifactPrefix(normalized string) bool {
	_, stripped := c.stripOnePrefix(normalized)
	return stripped
}

// StripGenericSuffixes removes trailing generic nouns from a product name
// core, keeping at least one word.
func (c *Config) StripGenericSuffixes(normalized string) string {
	words := strings.Fields(normalized)
	for len(words) > 1 {
		if _, ok := c.genericSuffixes[words[len(words)-1]]; !ok {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// StripLegalSuffixes removes trailing legal suffixes from an organization
// name, keeping at least one word. The second return reports whether anything
// was stripped.
func (c *Config) StripLegalSuffixes(normalized string) (string, bool) {
	words := strings.Fields(strings.ReplaceAll(normalized, ",", " "))
	stripped := false
	for len(words) > 1 {
		last := strings.Trim(words[len(words)-1], ".")
		if _, ok := c.legalSuffixes[last]; !ok {
			break
		}
		words = words[:len(words)-1]
		stripped = true
	}
	return strings.Join(words, " "), stripped
}

// IsAbbreviationPair reports whether one normalized name is a known or
// derivable acronym of the other.
func (c *Config) IsAbbreviationPair(a, b string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if known, ok := c.abbreviations[short]; ok && known == long {
		return true
	}
	return acronymOf(short, long)
}

func acronymOf(short, long string) bool {
	words := strings.Fields(long)
	if len(words) < 2 || len(short) != len(words) {
		return false
	}
	for i, word := range words {
		if short[i] != word[0] {
			return false
		}
	}
	return true
}

// CountDomainTerms counts distinct domain vocabulary hits in the lowercased
// content.
func (c *Config) CountDomainTerms(lowered string) int {
	count := 0
	for _, term := range c.domainTerms {
		if strings.Contains(lowered, term) {
			count++
		}
	}
	return count
}

// CountTechnicalTerms counts technical vocabulary occurrences in the
// lowercased content.
func (c *Config) CountTechnicalTerms(lowered string) int {
	return countOccurrences(lowered, c.technicalTerms)
}

// CountPressTerms counts commercial/announcement vocabulary occurrences in
// the lowercased content.
func (c *Config) CountPressTerms(lowered string) int {
	return countOccurrences(lowered, c.pressTerms)
}

func countOccurrences(lowered string, terms []string) int {
	count := 0
	for _, term := range terms {
		count += strings.Count(lowered, term)
	}
	return count
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}
