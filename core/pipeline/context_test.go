package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dfattal/kgraph/model"
	"github.com/dfattal/kgraph/vocab"
)

func TestAnalyzeContent(t *testing.T) {
	vocabulary := vocab.Default()

	t.Run("Press release content is classified as press", func(t *testing.T) {
		content := `Vexar Labs Inc today announced its flagship tablet.
Pricing starts at 899 dollars, with retail availability planned for March.`

		classification := AnalyzeContent(vocabulary, nil, content)
		assert.True(t, classification.PressContent, "Expected press vocabulary to flag the content")
		assert.False(t, classification.TechnicalDocumentation, "Expected no technical classification")
		assert.False(t, classification.DomainSpecific, "Expected no domain classification")
		assert.Equal(t, len(content), classification.Length, "Expected the content length to be recorded")
	})

	t.Run("Three distinct domain terms flag domain specific content", func(t *testing.T) {
		content := `The lightfield panel uses a diffractive backlight to deliver an
autostereoscopic viewing experience.`

		classification := AnalyzeContent(vocabulary, nil, content)
		assert.True(t, classification.DomainSpecific, "Expected three distinct domain terms to flag the content")
		assert.False(t, classification.PressContent, "Expected no press classification")
	})

	t.Run("FAQ headings flag technical documentation", func(t *testing.T) {
		content := `What resolution does the panel support?
It renders at 4K.

How do I enable 3D mode?
Use the settings menu.

Does it support HDR?
Yes.`

		classification := AnalyzeContent(vocabulary, nil, content)
		assert.True(t, classification.TechnicalDocumentation, "Expected three question headings to flag the content")
	})

	t.Run("Technical term density flags technical documentation", func(t *testing.T) {
		content := `The api exposes calibration parameters for the render pipeline.
Tune the buffer size before the runtime starts.`

		classification := AnalyzeContent(vocabulary, nil, content)
		assert.True(t, classification.TechnicalDocumentation, "Expected high technical density to flag the content")
	})

	t.Run("Patent number in the content head flags identifiers", func(t *testing.T) {
		content := `Patent US 11,281,020 B2 describes a backlighting arrangement.`

		classification := AnalyzeContent(vocabulary, nil, content)
		assert.True(t, classification.HasIdentifiers, "Expected the patent number to be detected")
	})

	t.Run("DOI in the content head flags identifiers", func(t *testing.T) {
		content := `See 10.1038/s41586-021-03476-5 for the full study.`

		classification := AnalyzeContent(vocabulary, nil, content)
		assert.True(t, classification.HasIdentifiers, "Expected the DOI to be detected")
	})

	t.Run("Identifier beyond the content head is ignored", func(t *testing.T) {
		content := strings.Repeat("filler ", 400) + "US 11,281,020 B2"

		classification := AnalyzeContent(vocabulary, nil, content)
		assert.False(t, classification.HasIdentifiers, "Expected identifiers outside the first 2000 chars to be ignored")
	})

	t.Run("Structured metadata identifier flags identifiers without content hits", func(t *testing.T) {
		doc := &model.Document{
			DocType:  model.DocTypePatent,
			Metadata: model.Metadata{model.MetadataPatentNumber: "US 9,459,461 B2"},
		}

		classification := AnalyzeContent(vocabulary, doc, "A short neutral body.")
		assert.True(t, classification.HasIdentifiers, "Expected the structured identifier to count")
		assert.Equal(t, model.DocTypePatent, classification.DocType, "Expected the doc type to be carried over")
	})

	t.Run("Structured identifier requires an identifier doc type", func(t *testing.T) {
		doc := &model.Document{
			DocType:  model.DocTypePress,
			Metadata: model.Metadata{model.MetadataPatentNumber: "US 9,459,461 B2"},
		}

		classification := AnalyzeContent(vocabulary, doc, "A short neutral body.")
		assert.False(t, classification.HasIdentifiers, "Expected press documents to not count structured identifiers")
	})

	t.Run("Empty content yields the zero classification", func(t *testing.T) {
		classification := AnalyzeContent(vocabulary, nil, "")
		assert.Zero(t, classification.Length, "Expected zero length")
		assert.False(t, classification.HasIdentifiers, "Expected no identifier flag")
		assert.False(t, classification.DomainSpecific, "Expected no domain flag")
		assert.False(t, classification.TechnicalDocumentation, "Expected no technical flag")
		assert.False(t, classification.PressContent, "Expected no press flag")
	})

	t.Run("Nil vocabulary falls back to the embedded defaults", func(t *testing.T) {
		classification := AnalyzeContent(nil, nil, "announced launch pricing retail availability")
		assert.True(t, classification.PressContent, "Expected the default vocabulary to be used")
	})
}
