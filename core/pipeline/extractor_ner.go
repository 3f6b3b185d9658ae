package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/dfattal/kgraph/helper"
	"github.com/dfattal/kgraph/model"
)

// nerModelName is the token classification model used for local recognition.
const nerModelName = "KnightsAnalytics/distilbert-NER"

// nerAuthority is the fixed authority score for recognizer candidates, below
// pattern matches with repeated mentions and well below metadata fields.
const nerAuthority = 0.6

// nerKinds maps NER labels to entity kinds. Labels without a mapping (LOC)
// are dropped.
var nerKinds = map[string]model.EntityKind{
	"PER":  model.EntityKindPerson,
	"ORG":  model.EntityKindOrganization,
	"MISC": model.EntityKindTechnology,
}

// NERExtractor runs a local ONNX token classification model over the content
// and emits person, organization and technology candidates. It produces no
// edges. Wire it into a pipeline with SetRecognizer, it is optional and needs
// a model download on first use.
type NERExtractor struct {
	session *hugot.Session
	ner     *pipelines.TokenClassificationPipeline
	log     *slog.Logger
}

// NewNERExtractor downloads the NER model if needed and initializes a hugot
// session with the Go backend. Call Close when done to release the session.
func NewNERExtractor(logger *slog.Logger) (*NERExtractor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	modelPath, err := helper.PrepareModel(nerModelName, "model.onnx")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare NER model: %w", err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return &NERExtractor{
		session: session,
		ner:     nerPipeline,
		log:     logger,
	}, nil
}

// Name implements Extractor.
func (e *NERExtractor) Name() string {
	return "ner"
}

// Extract runs the recognizer over the content, one candidate per distinct
// (name, kind). Mention count is the literal occurrence count.
func (e *NERExtractor) Extract(ctx context.Context, in *Input) (*model.Extraction, error) {
	extraction := &model.Extraction{}
	if in.Content == "" {
		return extraction, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := e.ner.RunPipeline([]string{in.Content})
	if err != nil {
		return nil, fmt.Errorf("failed to run NER: %w", err)
	}
	if len(result.Entities) == 0 {
		return extraction, nil
	}

	seen := map[string]bool{}
	counter := 0

	for _, entity := range result.Entities[0] {
		kind, ok := nerKinds[stripBIOPrefix(entity.Entity)]
		if !ok {
			continue
		}

		name := strings.TrimSpace(entity.Word)
		normalized := model.NormalizeEntityName(name)
		if normalized == "" {
			continue
		}

		key := normalized + "|" + string(kind)
		if seen[key] {
			continue
		}
		seen[key] = true

		mentions := strings.Count(in.Content, name)
		if mentions < 1 {
			mentions = 1
		}

		counter++
		extraction.Entities = append(extraction.Entities, &model.CandidateEntity{
			TempID:         fmt.Sprintf("n%d", counter),
			Name:           name,
			Kind:           kind,
			Evidence:       evidenceAround(in.Content, int(entity.Start)),
			AuthorityScore: nerAuthority,
			MentionCount:   mentions,
			Source:         e.Name(),
		})
	}

	e.log.Debug("NER extraction finished", slog.Int("candidates", len(extraction.Entities)))

	return extraction, nil
}

// Close releases the hugot session.
func (e *NERExtractor) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}

// stripBIOPrefix removes B- and I- tagging prefixes from NER labels.
func stripBIOPrefix(label string) string {
	if strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}
