package models

import "fmt"

// RelationType labels an inferred relation between two arguments.
type RelationType string

const (
	RelationAttack  RelationType = "ATTACK"
	RelationSupport RelationType = "SUPPORT"
	RelationNone    RelationType = "NONE"
)

// Criterion classifies why a relation holds.
type Criterion string

const (
	CriterionLogicalContradiction    Criterion = "LOGICAL_CONTRADICTION"
	CriterionPremiseUndermining      Criterion = "PREMISE_UNDERMINING"
	CriterionRebuttal                Criterion = "REBUTTAL"
	CriterionUndercutting            Criterion = "UNDERCUTTING"
	CriterionPremiseReinforcement    Criterion = "PREMISE_REINFORCEMENT"
	CriterionConclusionStrengthening Criterion = "CONCLUSION_STRENGTHENING"
	CriterionInferentialBacking      Criterion = "INFERENTIAL_BACKING"
	CriterionEvidentialSupport       Criterion = "EVIDENTIAL_SUPPORT"
	CriterionNoRelation              Criterion = "NO_RELATION"
)

var attackCriteria = map[Criterion]bool{
	CriterionLogicalContradiction: true,
	CriterionPremiseUndermining:   true,
	CriterionRebuttal:             true,
	CriterionUndercutting:         true,
}

var supportCriteria = map[Criterion]bool{
	CriterionPremiseReinforcement:    true,
	CriterionConclusionStrengthening: true,
	CriterionInferentialBacking:      true,
	CriterionEvidentialSupport:       true,
}

// Matches reports whether the criterion belongs to the rubric of the given
// relation type.
func (c Criterion) Matches(t RelationType) bool {
	switch t {
	case RelationAttack:
		return attackCriteria[c]
	case RelationSupport:
		return supportCriteria[c]
	case RelationNone:
		return c == CriterionNoRelation
	default:
		return false
	}
}

// InferredRelation is a relation verdict addressed by temporary ids.
type InferredRelation struct {
	Source      int          `json:"source" validate:"gte=1"`
	Target      int          `json:"target" validate:"gte=1,nefield=Source"`
	Type        RelationType `json:"type" validate:"oneof=ATTACK SUPPORT NONE" enum:"ATTACK,SUPPORT,NONE"`
	Criterion   Criterion    `json:"criterion" validate:"oneof=LOGICAL_CONTRADICTION PREMISE_UNDERMINING REBUTTAL UNDERCUTTING PREMISE_REINFORCEMENT CONCLUSION_STRENGTHENING INFERENTIAL_BACKING EVIDENTIAL_SUPPORT NO_RELATION" enum:"LOGICAL_CONTRADICTION,PREMISE_UNDERMINING,REBUTTAL,UNDERCUTTING,PREMISE_REINFORCEMENT,CONCLUSION_STRENGTHENING,INFERENTIAL_BACKING,EVIDENTIAL_SUPPORT,NO_RELATION"`
	Confidence  float64      `json:"confidence" validate:"gte=0,lte=1"`
	Description string       `json:"description"`
}

// String renders the relation for logs.
func (r InferredRelation) String() string {
	return fmt.Sprintf("%d -%s/%s-> %d (%.2f)", r.Source, r.Type, r.Criterion, r.Target, r.Confidence)
}

// Graphable drops NONE verdicts, which carry no graph meaning.
func Graphable(rels []InferredRelation) []InferredRelation {
	out := make([]InferredRelation, 0, len(rels))
	for _, r := range rels {
		if r.Type == RelationNone {
			continue
		}
		out = append(out, r)
	}
	return out
}
