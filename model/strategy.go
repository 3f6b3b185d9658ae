package model

// ContentClassification is the context analyzer's summary of one document,
// consumed by the strategy selector.
type ContentClassification struct {
	Length                 int    `json:"length"`
	DocType                string `json:"doc_type,omitempty"`
	HasIdentifiers         bool   `json:"has_identifiers"`
	DomainSpecific         bool   `json:"domain_specific"`
	TechnicalDocumentation bool   `json:"technical_documentation"`
	PressContent           bool   `json:"press_content"`
}

// Strategy names in selection priority order.
const (
	StrategyTechnical     = "technical"
	StrategyPress         = "press"
	StrategyDomain        = "domain"
	StrategyScholarly     = "scholarly"
	StrategyLongform      = "longform"
	StrategyComprehensive = "comprehensive"
)

// Strategy is an immutable extraction configuration selected once per
// document and never mutated afterwards.
type Strategy struct {
	Name                   string                 `json:"name"`
	MinScores              map[EntityKind]float64 `json:"min_scores"`
	DefaultMinScore        float64                `json:"default_min_score"`
	SectionAware           bool                   `json:"section_aware"`
	RelationshipExtraction bool                   `json:"relationship_extraction"`
}

// MinScoreFor returns the minimum authority score required for a kind.
func (s *Strategy) MinScoreFor(kind EntityKind) float64 {
	if score, ok := s.MinScores[kind]; ok {
		return score
	}
	return s.DefaultMinScore
}

var strategies = map[string]*Strategy{
	StrategyTechnical: {
		Name: StrategyTechnical,
		MinScores: map[EntityKind]float64{
			EntityKindPerson:       0.6,
			EntityKindOrganization: 0.55,
			EntityKindTechnology:   0.45,
			EntityKindProduct:      0.5,
			EntityKindComponent:    0.35,
			EntityKindDocument:     0.6,
			EntityKindDataset:      0.5,
		},
		DefaultMinScore:        0.5,
		SectionAware:           true,
		RelationshipExtraction: true,
	},
	StrategyPress: {
		Name: StrategyPress,
		MinScores: map[EntityKind]float64{
			EntityKindPerson:       0.55,
			EntityKindOrganization: 0.45,
			EntityKindTechnology:   0.55,
			EntityKindProduct:      0.45,
			EntityKindComponent:    0.6,
			EntityKindDocument:     0.65,
			EntityKindDataset:      0.65,
		},
		DefaultMinScore:        0.5,
		SectionAware:           false,
		RelationshipExtraction: true,
	},
	StrategyDomain: {
		Name: StrategyDomain,
		MinScores: map[EntityKind]float64{
			EntityKindPerson:       0.7,
			EntityKindOrganization: 0.7,
			EntityKindTechnology:   0.65,
			EntityKindProduct:      0.65,
			EntityKindComponent:    0.7,
			EntityKindDocument:     0.75,
			EntityKindDataset:      0.7,
		},
		DefaultMinScore:        0.7,
		SectionAware:           true,
		RelationshipExtraction: true,
	},
	StrategyScholarly: {
		Name: StrategyScholarly,
		MinScores: map[EntityKind]float64{
			EntityKindPerson:       0.5,
			EntityKindOrganization: 0.55,
			EntityKindTechnology:   0.55,
			EntityKindProduct:      0.65,
			EntityKindComponent:    0.65,
			EntityKindDocument:     0.4,
			EntityKindDataset:      0.45,
		},
		DefaultMinScore:        0.55,
		SectionAware:           true,
		RelationshipExtraction: true,
	},
	StrategyLongform: {
		Name: StrategyLongform,
		MinScores: map[EntityKind]float64{
			EntityKindPerson:       0.6,
			EntityKindOrganization: 0.6,
			EntityKindTechnology:   0.6,
			EntityKindProduct:      0.6,
			EntityKindComponent:    0.65,
			EntityKindDocument:     0.6,
			EntityKindDataset:      0.6,
		},
		DefaultMinScore:        0.6,
		SectionAware:           false,
		RelationshipExtraction: false,
	},
	StrategyComprehensive: {
		Name: StrategyComprehensive,
		MinScores: map[EntityKind]float64{
			EntityKindPerson:       0.5,
			EntityKindOrganization: 0.5,
			EntityKindTechnology:   0.5,
			EntityKindProduct:      0.5,
			EntityKindComponent:    0.55,
			EntityKindDocument:     0.6,
			EntityKindDataset:      0.55,
		},
		DefaultMinScore:        0.5,
		SectionAware:           false,
		RelationshipExtraction: true,
	},
}

// StrategyByName returns the named strategy, falling back to comprehensive
// for unknown names.
func StrategyByName(name string) *Strategy {
	if s, ok := strategies[name]; ok {
		return s
	}
	return strategies[StrategyComprehensive]
}

// StrategyNames returns all registered strategy names in priority order.
func StrategyNames() []string {
	return []string{
		StrategyTechnical,
		StrategyPress,
		StrategyDomain,
		StrategyScholarly,
		StrategyLongform,
		StrategyComprehensive,
	}
}
