package models

import "time"

// PerformanceLevel is the discrete qualitative tier assigned to a score.
type PerformanceLevel string

const (
	LevelExcellent    PerformanceLevel = "excellent"
	LevelGood         PerformanceLevel = "good"
	LevelSatisfactory PerformanceLevel = "satisfactory"
	LevelInsufficient PerformanceLevel = "insufficient"
)

// LevelForFinalScore maps an aggregated submission score to its
// performance level. The boundaries apply to roll-up scores, not to the
// per-criterion rubric bands.
func LevelForFinalScore(score int) PerformanceLevel {
	switch {
	case score >= 80:
		return LevelExcellent
	case score >= 60:
		return LevelGood
	case score >= 40:
		return LevelSatisfactory
	default:
		return LevelInsufficient
	}
}

// CriterionKind distinguishes numerically-validated criteria from
// qualitative ones.
type CriterionKind string

const (
	// CriterionCalculation carries an expected numeric answer with a
	// tolerance band, formula and unit checks.
	CriterionCalculation CriterionKind = "calculation"
	// CriterionConceptual is graded on qualitative descriptors only.
	CriterionConceptual CriterionKind = "conceptual"
)

// RubricCriterion is one weighted dimension of an activity's rubric.
// Authored by the instructor; read-only configuration for the engine.
type RubricCriterion struct {
	ID         string        `gorm:"primaryKey;size:64" json:"id"`
	ActivityID uint          `gorm:"index;not null" json:"activity_id"`
	Kind       CriterionKind `gorm:"size:16;not null" json:"kind"`
	Title      string        `gorm:"size:255" json:"title"`
	Weight     float64       `gorm:"not null" json:"weight"`
	Position   int           `gorm:"not null;default:0" json:"position"`

	// Level descriptors handed to the external evaluator.
	DescExcellent    string `gorm:"type:text" json:"desc_excellent"`
	DescGood         string `gorm:"type:text" json:"desc_good"`
	DescSatisfactory string `gorm:"type:text" json:"desc_satisfactory"`
	DescInsufficient string `gorm:"type:text" json:"desc_insufficient"`

	// Calculation spec, only meaningful when Kind is calculation.
	ExpectedValue    *float64 `json:"expected_value,omitempty"`
	TolerancePercent float64  `json:"tolerance_percent,omitempty"`
	ExpectedFormula  string   `gorm:"size:512" json:"expected_formula,omitempty"`
	ExpectedUnit     string   `gorm:"size:64" json:"expected_unit,omitempty"`
}

// HasCalculationSpec reports whether the criterion carries a usable
// numeric expectation.
func (c RubricCriterion) HasCalculationSpec() bool {
	return c.Kind == CriterionCalculation && c.ExpectedValue != nil
}

// Activity is an exam or practical assignment with a weighted rubric.
type Activity struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Subject   string            `gorm:"size:128" json:"subject"`
	Course    string            `gorm:"size:128;index" json:"course"`
	Status    string            `gorm:"size:32;not null;default:active" json:"status"`
	Criteria  []RubricCriterion `gorm:"foreignKey:ActivityID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"criteria"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// WeightSum returns the total rubric weight. A well-formed activity
// sums to 1.0 within floating tolerance.
func (a Activity) WeightSum() float64 {
	total := 0.0
	for _, criterion := range a.Criteria {
		total += criterion.Weight
	}
	return total
}
