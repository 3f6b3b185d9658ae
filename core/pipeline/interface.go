package pipeline

import (
	"context"
	"log/slog"

	"github.com/dfattal/kgraph/llm"
	"github.com/dfattal/kgraph/model"
	"github.com/dfattal/kgraph/vocab"
)

// Input carries everything an extractor may consult for one document.
type Input struct {
	Document *model.Document
	Content  string
	Strategy *model.Strategy
	// Existing holds already persisted entities by kind, passed to the LLM
	// extractor as de-duplication guidance.
	Existing map[model.EntityKind][]*model.Entity
}

// Extractor produces candidate entities and candidate edges from one
// document. Temp ids are namespaced per extractor (m for metadata, p for
// pattern, n for NER, e for LLM) so combined extractions cannot collide, and
// candidate edges only ever reference temp ids from the same extractor pass.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, in *Input) (*model.Extraction, error)
}

// Result is the pipeline output for one document: the classification, the
// selected strategy and the filtered extraction. Candidates is the raw
// candidate count before filtering.
type Result struct {
	Classification *model.ContentClassification
	Strategy       *model.Strategy
	Extraction     *model.Extraction
	Candidates     int
	Rejections     []Rejection
}

// Pipeline runs the extraction stages for one document: context analysis,
// strategy selection, extraction and quality filtering. Consolidation and
// relationship resolution happen in the caller.
type Pipeline struct {
	Vocabulary *vocab.Config
	Client     llm.Client // Optional - enables LLM extraction with pattern fallback
	Recognizer Extractor  // Optional - local NER extractor
	log        *slog.Logger
}

// NewPipeline creates a new extraction pipeline. A nil vocabulary uses the
// embedded defaults.
func NewPipeline(vocabulary *vocab.Config, logger *slog.Logger) *Pipeline {
	if vocabulary == nil {
		vocabulary = vocab.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Vocabulary: vocabulary,
		log:        logger,
	}
}

// SetLLMClient enables LLM extraction. The pattern extractor stays wired as
// the fallback for failed or unparseable LLM calls.
func (p *Pipeline) SetLLMClient(client llm.Client) {
	p.Client = client
}

// SetRecognizer adds an optional NER extractor to every run.
func (p *Pipeline) SetRecognizer(recognizer Extractor) {
	p.Recognizer = recognizer
}

// Run classifies the document, selects a strategy, runs the extractor set
// and filters the combined candidates. A failed extractor is logged and
// skipped; Run only fails on context cancellation.
func (p *Pipeline) Run(ctx context.Context, doc *model.Document, content string, existing map[model.EntityKind][]*model.Entity) (*Result, error) {
	classification := AnalyzeContent(p.Vocabulary, doc, content)
	strategy := SelectStrategy(classification)

	in := &Input{
		Document: doc,
		Content:  content,
		Strategy: strategy,
		Existing: existing,
	}

	extraction := &model.Extraction{}
	for _, extractor := range p.extractors(doc, classification) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		part, err := extractor.Extract(ctx, in)
		if err != nil {
			p.log.Warn("Extractor failed",
				slog.String("extractor", extractor.Name()),
				slog.String("error", err.Error()))
			continue
		}
		if part == nil {
			continue
		}

		extraction.Entities = append(extraction.Entities, part.Entities...)
		extraction.Edges = append(extraction.Edges, part.Edges...)
	}

	candidates := len(extraction.Entities)
	filter := NewFilter(p.Vocabulary, p.log)
	accepted, rejections := filter.Apply(extraction.Entities, strategy)

	return &Result{
		Classification: classification,
		Strategy:       strategy,
		Extraction:     &model.Extraction{Entities: accepted, Edges: extraction.Edges},
		Candidates:     candidates,
		Rejections:     rejections,
	}, nil
}

// extractors assembles the extractor set for one document: metadata when
// structured fields exist, LLM with pattern fallback (or pattern alone), and
// the optional recognizer.
func (p *Pipeline) extractors(doc *model.Document, classification *model.ContentClassification) []Extractor {
	var extractors []Extractor

	if doc != nil && doc.HasStructuredMetadata() {
		extractors = append(extractors, NewMetadataExtractor())
	}

	patternSet := p.Vocabulary.PatternSet(vocab.PatternSetGeneric)
	if classification.DomainSpecific {
		patternSet = p.Vocabulary.PatternSet(vocab.PatternSetDomain)
	}
	pattern := NewPatternExtractor(patternSet, p.log)

	if p.Client != nil {
		extractors = append(extractors, NewLLMExtractor(p.Client, pattern, p.log))
	} else {
		extractors = append(extractors, pattern)
	}

	if p.Recognizer != nil {
		extractors = append(extractors, p.Recognizer)
	}

	return extractors
}
