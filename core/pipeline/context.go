package pipeline

import (
	"regexp"
	"strings"

	"github.com/dfattal/kgraph/model"
	"github.com/dfattal/kgraph/vocab"
)

// identifierHeadChars is how much of the content head is scanned for
// document identifiers.
const identifierHeadChars = 2000

// Identifier shapes recognized in content: patent publication numbers, DOIs
// and arXiv ids.
var (
	patentNumberRegex = regexp.MustCompile(`(?i)\b(?:US|EP|WO)[\s-]?\d{1,2},\d{3},\d{3}\s?[AB]\d?\b`)
	patentAppRegex    = regexp.MustCompile(`(?i)\b(?:US|EP|WO)[\s-]?\d{4}/\d{6,7}\s?A\d\b`)
	doiRegex          = regexp.MustCompile(`\b10\.\d{4,9}/[-._;()/:a-zA-Z0-9]+`)
	arxivRegex        = regexp.MustCompile(`(?i)\barXiv:\s?\d{4}\.\d{4,5}(v\d+)?\b`)
)

// identifierDocTypes are document types whose structured metadata identifier
// counts as an identifier signal.
var identifierDocTypes = map[string]bool{
	model.DocTypePatent: true,
	model.DocTypePaper:  true,
	model.DocTypeArxiv:  true,
}

// AnalyzeContent classifies one document from its metadata and content. Pure
// and deterministic; empty input yields the zero classification, which the
// strategy selector maps to the comprehensive default. A nil vocabulary uses
// the embedded defaults.
func AnalyzeContent(vocabulary *vocab.Config, doc *model.Document, content string) *model.ContentClassification {
	if vocabulary == nil {
		vocabulary = vocab.Default()
	}

	classification := &model.ContentClassification{
		Length: len(content),
	}
	if doc != nil {
		classification.DocType = doc.DocType
	}

	lower := strings.ToLower(content)
	words := len(strings.Fields(content))

	classification.HasIdentifiers = hasStructuredIdentifier(doc) || hasIdentifierPattern(head(content))
	classification.DomainSpecific = vocabulary.CountDomainTerms(lower) >= 3
	classification.TechnicalDocumentation = countFAQHeadings(content) >= 3 ||
		technicalDensity(vocabulary, lower, words) >= 2.5
	classification.PressContent = vocabulary.CountPressTerms(lower) >= 4

	return classification
}

func hasStructuredIdentifier(doc *model.Document) bool {
	if doc == nil {
		return false
	}
	return identifierDocTypes[doc.DocType] && doc.Identifier() != ""
}

func hasIdentifierPattern(head string) bool {
	return patentNumberRegex.MatchString(head) ||
		patentAppRegex.MatchString(head) ||
		doiRegex.MatchString(head) ||
		arxivRegex.MatchString(head)
}

func head(content string) string {
	if len(content) <= identifierHeadChars {
		return content
	}
	return content[:identifierHeadChars]
}

// countFAQHeadings counts lines that look like FAQ questions: short lines
// ending in a question mark or prefixed with "Q:".
func countFAQHeadings(content string) int {
	count := 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > 200 {
			continue
		}
		if strings.HasSuffix(line, "?") || strings.HasPrefix(line, "Q:") {
			count++
		}
	}
	return count
}

// technicalDensity is technical term occurrences per 100 words.
func technicalDensity(vocabulary *vocab.Config, lower string, words int) float64 {
	if words == 0 {
		return 0
	}
	return float64(vocabulary.CountTechnicalTerms(lower)) / float64(words) * 100
}
