// Package llm defines the extraction contract between the pipeline and a
// language model: a structured request, a strict JSON response and clients
// for OpenAI-compatible and Anthropic APIs.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dfattal/kgraph/model"
)

// MaxContentChars caps the document text sent to a model. Longer content is
// truncated before the prompt is built.
const MaxContentChars = 12000

// Client is an LLM that extracts entities and relationships from text.
type Client interface {
	Extract(ctx context.Context, req *Request) (*Response, error)
}

// Request describes one extraction call.
type Request struct {
	// Content is the document text, already truncated to MaxContentChars.
	Content string
	// Kinds are the entity types the model may emit.
	Kinds []model.EntityKind
	// Constraints are the allowed relations with their source and
	// destination kinds. Empty disables relationship extraction.
	Constraints []model.RelationConstraint
	// Existing entities guide the model towards reusing known names.
	Existing []ExistingEntity
}

// ExistingEntity is a known graph entity passed as extraction guidance.
type ExistingEntity struct {
	Name    string           `json:"name"`
	Kind    model.EntityKind `json:"kind"`
	Aliases []string         `json:"aliases,omitempty"`
}

// ResponseEntity is one extracted entity as returned by the model. Type and
// confidence are validated by the caller, not here.
type ResponseEntity struct {
	TempID      string   `json:"tempId"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Evidence    string   `json:"evidence,omitempty"`
	Confidence  float64  `json:"confidence"`
}

// ResponseEdge is one extracted relationship as returned by the model.
type ResponseEdge struct {
	SrcTempID  string  `json:"srcTempId"`
	DstTempID  string  `json:"dstTempId"`
	Relation   string  `json:"relation"`
	Evidence   string  `json:"evidence,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Response is the parsed extraction result.
type Response struct {
	Entities []ResponseEntity `json:"entities"`
	Edges    []ResponseEdge   `json:"edges"`
}

const promptHeader = `You are an entity and relationship extractor for a technology knowledge graph. Extract entities and relationships from the given text.

Rules:
- Extract only entities explicitly named in the text.
- name is the exact name as written, without articles or marketing phrases ("the new Lume Pad 2" -> "Lume Pad 2").
- type must be one of the allowed entity types.
- aliases list alternative names used in the text (abbreviations, short forms).
- evidence is a short quote from the text (at most 40 words) supporting the extraction.
- confidence is between 0.0 and 1.0.
- Every edge connects two extracted entities by their tempId and uses an allowed relation whose source and destination types match the entity types.

Return ONLY a valid JSON object of this exact shape, no other text:
{"entities": [{"tempId": "e1", "name": "...", "type": "...", "description": "...", "aliases": ["..."], "evidence": "...", "confidence": 0.8}], "edges": [{"srcTempId": "e1", "dstTempId": "e2", "relation": "...", "evidence": "...", "confidence": 0.7}]}`

// BuildPrompt renders the full prompt for a request: instructions, allowed
// types and relations, known entities and the document text.
func BuildPrompt(req *Request) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nAllowed entity types: ")

	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = model.AllEntityKinds()
	}
	for i, kind := range kinds {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(kind))
	}

	if len(req.Constraints) > 0 {
		b.WriteString("\n\nAllowed relations (source type -> destination type):\n")
		for _, c := range req.Constraints {
			fmt.Fprintf(&b, "- %s: %s -> %s\n", c.Relation, c.SourceKind, c.DestinationKind)
		}
		fmt.Fprintf(&b, "- %s: any -> any\n", model.RelationRelatedTo)
	} else {
		b.WriteString("\n\nDo not extract relationships. Return an empty edges array.")
	}

	if len(req.Existing) > 0 {
		b.WriteString("\nKnown entities (reuse their exact names when the text refers to them):\n")
		for _, e := range req.Existing {
			fmt.Fprintf(&b, "- %s (%s)", e.Name, e.Kind)
			if len(e.Aliases) > 0 {
				fmt.Fprintf(&b, ", also known as: %s", strings.Join(e.Aliases, ", "))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nText:\n")
	b.WriteString(req.Content)

	return b.String()
}

// ParseResponse decodes a model reply into a Response. Markdown code fences
// and prose around the outermost JSON object are tolerated; anything that
// does not decode afterwards is an error.
func ParseResponse(raw string) (*Response, error) {
	content := stripFences(raw)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in response: %q", snippet(raw))
	}
	content = content[start : end+1]

	response := &Response{}
	if err := json.Unmarshal([]byte(content), response); err != nil {
		return nil, fmt.Errorf("parsing extraction JSON: %w (response: %s)", err, snippet(content))
	}

	return response, nil
}

// TruncateContent cuts content to MaxContentChars without splitting a UTF-8
// sequence.
func TruncateContent(content string) string {
	if len(content) <= MaxContentChars {
		return content
	}
	cut := MaxContentChars
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

// stripFences removes markdown code blocks if present.
func stripFences(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}

	return strings.TrimSpace(content)
}

// snippet shortens a response for error messages.
func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

var errNoResponse = errors.New("no response from model")
