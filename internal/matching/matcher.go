package matching

import (
	"math"
	"strings"

	"github.com/sara-edu/sara-grading-api/internal/models"
)

// Status classifies a file-to-student proposal into a confidence tier.
type Status string

const (
	StatusMatched       Status = "matched"
	StatusLowConfidence Status = "low_confidence"
	StatusNotFound      Status = "not_found"
)

// Proposal is the matcher's belief about which student a file belongs
// to. Confidence always reflects the algorithm's score; reviewer
// overrides are tracked separately and never rewrite it.
type Proposal struct {
	FileName       string `json:"file_name"`
	StudentID      uint   `json:"student_id,omitempty"`
	StudentName    string `json:"student_name,omitempty"`
	Confidence     int    `json:"confidence"`
	Status         Status `json:"status"`
	ManualOverride bool   `json:"manual_override"`
}

// Thresholds are the calibration knobs of the matcher. The defaults
// come from the production color-coding tiers and are tunable per
// deployment.
type Thresholds struct {
	Matched          int
	LowConfidence    int
	SpecificityBonus int
}

// DefaultThresholds returns the standard 70/40 tier split with a
// +15 specificity bonus.
func DefaultThresholds() Thresholds {
	return Thresholds{Matched: 70, LowConfidence: 40, SpecificityBonus: 15}
}

// minCoverageTokens floors the coverage denominator at two tokens. A
// bare surname covering a two-token roster name then scores 50 instead
// of 100, which keeps surname-only collisions in the low-confidence
// tier for human review instead of silently picking a sibling.
const minCoverageTokens = 2.0

// Match scores a candidate against a roster and returns the single best
// proposal. It is pure, deterministic and order-independent: ties are
// broken by full-string edit distance, then by roster order. It never
// fails; an empty candidate or roster yields a not_found proposal.
func Match(candidate Candidate, roster []models.Student, th Thresholds) Proposal {
	proposal := Proposal{
		FileName: candidate.RawFileName,
		Status:   StatusNotFound,
	}

	if len(candidate.Tokens) == 0 || len(roster) == 0 {
		return proposal
	}

	candidateFull := strings.Join(candidate.Tokens, " ")

	bestConfidence := 0
	bestDistance := 0
	var bestStudent *models.Student

	for i := range roster {
		student := roster[i]
		studentTokens := tokenizeName(student.DisplayName)
		confidence := confidenceScore(candidate, studentTokens, th)
		if confidence <= 0 {
			continue
		}

		distance := levenshtein(candidateFull, strings.Join(studentTokens, " "))
		if confidence > bestConfidence || (confidence == bestConfidence && distance < bestDistance) {
			bestConfidence = confidence
			bestDistance = distance
			bestStudent = &roster[i]
		}
	}

	if bestStudent == nil {
		return proposal
	}

	proposal.Confidence = bestConfidence
	switch {
	case bestConfidence >= th.Matched:
		proposal.Status = StatusMatched
	case bestConfidence >= th.LowConfidence:
		proposal.Status = StatusLowConfidence
	default:
		proposal.Status = StatusNotFound
		return proposal
	}

	proposal.StudentID = bestStudent.ID
	proposal.StudentName = bestStudent.DisplayName
	return proposal
}

// confidenceScore computes coverage of the smaller token bag plus the
// specificity bonus, clamped to [0,100].
func confidenceScore(candidate Candidate, studentTokens []string, th Thresholds) int {
	if len(studentTokens) == 0 {
		return 0
	}

	small, large := candidate.Tokens, studentTokens
	if len(studentTokens) < len(candidate.Tokens) {
		small, large = studentTokens, candidate.Tokens
	}

	used := make([]bool, len(large))
	matchedWeight := 0.0
	totalWeight := 0.0
	for _, token := range small {
		weight := tokenWeight(token)
		totalWeight += weight
		if idx := findMatch(token, large, used); idx >= 0 {
			used[idx] = true
			matchedWeight += weight
		}
	}

	coverage := matchedWeight / math.Max(totalWeight, minCoverageTokens)
	confidence := int(math.Round(coverage * 100))

	if hasSpecificity(candidate, studentTokens) {
		confidence += th.SpecificityBonus
	}

	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}

// hasSpecificity reports whether both a surname-guess token and a
// given-name-guess token matched distinct roster tokens. Surname-only
// hits get no bonus, which keeps sibling collisions below the matched
// tier.
func hasSpecificity(candidate Candidate, studentTokens []string) bool {
	if len(candidate.SurnameTokens) == 0 || len(candidate.GivenTokens) == 0 {
		return false
	}

	used := make([]bool, len(studentTokens))
	surnameMatched := false
	for _, token := range candidate.SurnameTokens {
		if idx := findMatch(token, studentTokens, used); idx >= 0 {
			used[idx] = true
			surnameMatched = true
		}
	}
	if !surnameMatched {
		return false
	}

	for _, token := range candidate.GivenTokens {
		if idx := findMatch(token, studentTokens, used); idx >= 0 {
			return true
		}
	}
	return false
}

// findMatch returns the index of the first unused token in pool that
// matches the given token, or -1.
func findMatch(token string, pool []string, used []bool) int {
	for i, other := range pool {
		if used[i] {
			continue
		}
		if tokensMatch(token, other) {
			return i
		}
	}
	return -1
}

// tokensMatch allows one edit of slack for tokens of length four or
// more; shorter tokens must match exactly to avoid spurious hits on
// initials and particles.
func tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) >= 4 && len(b) >= 4 {
		return levenshtein(a, b) <= 1
	}
	return false
}

// tokenWeight down-weights single-character tokens (initials) so they
// cannot carry a match on their own.
func tokenWeight(token string) float64 {
	if len(token) < 2 {
		return 0.5
	}
	return 1.0
}

// levenshtein is the classic two-row edit distance.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
