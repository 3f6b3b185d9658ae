package pipeline

import "github.com/dfattal/kgraph/model"

// LongDocumentChars is the content length above which a document counts as
// long-form.
const LongDocumentChars = 10000

// SelectStrategy maps a classification to an extraction strategy through a
// fixed priority chain, first match wins. Ties resolve by priority, not
// signal magnitude, so selection is reproducible.
func SelectStrategy(c *model.ContentClassification) *model.Strategy {
	switch {
	case c == nil:
		return model.StrategyByName(model.StrategyComprehensive)
	case c.TechnicalDocumentation:
		return model.StrategyByName(model.StrategyTechnical)
	case c.PressContent:
		return model.StrategyByName(model.StrategyPress)
	case c.DomainSpecific:
		return model.StrategyByName(model.StrategyDomain)
	case c.HasIdentifiers:
		return model.StrategyByName(model.StrategyScholarly)
	case c.Length > LongDocumentChars:
		return model.StrategyByName(model.StrategyLongform)
	default:
		return model.StrategyByName(model.StrategyComprehensive)
	}
}
