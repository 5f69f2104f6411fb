package matching

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sara-edu/sara-grading-api/internal/models"
)

func roster(names ...string) []models.Student {
	students := make([]models.Student, 0, len(names))
	for i, name := range names {
		students = append(students, models.Student{ID: uint(i + 1), DisplayName: name, Status: models.StudentStatusActive})
	}
	return students
}

func TestMatchExactFullName(t *testing.T) {
	students := roster("Ana Rosiello", "Marco Rosiello", "Juan Di Bernardo")

	proposal := Match(Resolve("Rosiello_Ana.md"), students, DefaultThresholds())

	require.Equal(t, StatusMatched, proposal.Status)
	require.Equal(t, uint(1), proposal.StudentID)
	require.Equal(t, "Ana Rosiello", proposal.StudentName)
	require.GreaterOrEqual(t, proposal.Confidence, 70)
	require.False(t, proposal.ManualOverride)
}

func TestMatchBareSurnameStaysLowConfidence(t *testing.T) {
	// Two siblings share the surname; a bare surname must never be
	// silently attributed to either of them.
	students := roster("Ana Rosiello", "Marco Rosiello")

	proposal := Match(Resolve("Rosiello.md"), students, DefaultThresholds())

	require.Equal(t, StatusLowConfidence, proposal.Status)
	require.Equal(t, 50, proposal.Confidence)
	require.NotZero(t, proposal.StudentID)
}

func TestMatchToleratesOneEditPerToken(t *testing.T) {
	students := roster("Ana Rosiello")

	proposal := Match(Resolve("Rosielo_Ana.md"), students, DefaultThresholds())

	require.Equal(t, StatusMatched, proposal.Status)
	require.Equal(t, uint(1), proposal.StudentID)
}

func TestMatchShortTokensRequireExactMatch(t *testing.T) {
	// "ana" vs "anna" is one edit but below the fuzzy length cutoff.
	students := roster("Anna Rosiello")

	proposal := Match(Resolve("Rosiello_Ana.md"), students, DefaultThresholds())

	require.Equal(t, StatusLowConfidence, proposal.Status)
	require.Equal(t, 50, proposal.Confidence)
}

func TestMatchCompoundSurname(t *testing.T) {
	students := roster("Juan Di Bernardo", "Ana Rosiello")

	proposal := Match(Resolve("Di_Bernardo_Juan.md"), students, DefaultThresholds())

	require.Equal(t, StatusMatched, proposal.Status)
	require.Equal(t, uint(1), proposal.StudentID)
}

func TestMatchDiacriticInsensitive(t *testing.T) {
	students := roster("José García")

	proposal := Match(Resolve("Garcia_Jose.md"), students, DefaultThresholds())

	require.Equal(t, StatusMatched, proposal.Status)
}

func TestMatchNotFound(t *testing.T) {
	students := roster("Ana Rosiello")

	proposal := Match(Resolve("Zimmermann_Klaus.md"), students, DefaultThresholds())

	require.Equal(t, StatusNotFound, proposal.Status)
	require.Zero(t, proposal.StudentID)
	require.Empty(t, proposal.StudentName)
}

func TestMatchEmptyInputs(t *testing.T) {
	require.Equal(t, StatusNotFound, Match(Resolve(".md"), roster("Ana Rosiello"), DefaultThresholds()).Status)
	require.Equal(t, StatusNotFound, Match(Resolve("Rosiello_Ana.md"), nil, DefaultThresholds()).Status)
}

func TestMatchDeterministicTieBreak(t *testing.T) {
	// Equal confidence and equal distance: roster order decides, every
	// time.
	students := roster("Ana Rosiello", "Ana Rosiello")

	first := Match(Resolve("Rosiello_Ana.md"), students, DefaultThresholds())
	for i := 0; i < 20; i++ {
		require.Equal(t, first, Match(Resolve("Rosiello_Ana.md"), students, DefaultThresholds()))
	}
	require.Equal(t, uint(1), first.StudentID)
}

func TestMatchMoreTokensNeverScoreLower(t *testing.T) {
	students := roster("Ana Maria Rosiello")

	bare := Match(Resolve("Rosiello.md"), students, DefaultThresholds())
	full := Match(Resolve("Rosiello_Ana.md"), students, DefaultThresholds())

	require.GreaterOrEqual(t, full.Confidence, bare.Confidence)
}

func TestConfidenceClampedToHundred(t *testing.T) {
	students := roster("Ana Rosiello")

	proposal := Match(Resolve("Rosiello_Ana.md"), students, DefaultThresholds())

	require.LessOrEqual(t, proposal.Confidence, 100)
}

func TestTokenWeightDownWeightsInitials(t *testing.T) {
	require.Equal(t, 0.5, tokenWeight("a"))
	require.Equal(t, 1.0, tokenWeight("di"))
	require.Equal(t, 1.0, tokenWeight("rosiello"))
}

func TestLevenshtein(t *testing.T) {
	require.Equal(t, 0, levenshtein("rosiello", "rosiello"))
	require.Equal(t, 1, levenshtein("rosielo", "rosiello"))
	require.Equal(t, 3, levenshtein("", "ana"))
	require.Equal(t, 2, levenshtein("garcia", "gracia"))
}
