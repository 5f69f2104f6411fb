package ai

import (
	"fmt"
	"strings"
)

func evaluatorSystemPrompt() string {
	return "You are an expert exam grader. Score the student's answer against the rubric criterion provided and respond " +
		"with a single JSON object containing: score (0-100), level (excellent|good|satisfactory|insufficient), feedback " +
		"(2-3 sentences), and for calculation criteria also numeric_value (the final numeric result the student arrived " +
		"at, or null), has_formula, has_correct_units and has_explanation booleans. Return only the JSON object."
}

func buildUserPrompt(input CriterionInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Criterion\n")
	builder.WriteString(input.Title)
	if input.Subject != "" {
		builder.WriteString("\n\n## Subject\n")
		builder.WriteString(input.Subject)
	}
	builder.WriteString("\n\n## Performance levels\n")
	builder.WriteString("- Excellent (85-100): ")
	builder.WriteString(input.Descriptors.Excellent)
	builder.WriteString("\n- Good (70-84): ")
	builder.WriteString(input.Descriptors.Good)
	builder.WriteString("\n- Satisfactory (50-69): ")
	builder.WriteString(input.Descriptors.Satisfactory)
	builder.WriteString("\n- Insufficient (0-49): ")
	builder.WriteString(input.Descriptors.Insufficient)

	if input.Kind == "calculation" {
		builder.WriteString("\n\n## Expected calculation\n")
		if input.ExpectedFormula != "" {
			builder.WriteString("Formula: ")
			builder.WriteString(input.ExpectedFormula)
			builder.WriteString("\n")
		}
		if input.ExpectedValue != nil {
			builder.WriteString(fmt.Sprintf("Expected value: %g %s (tolerance ±%g%%)\n", *input.ExpectedValue, input.ExpectedUnit, input.TolerancePercent))
		}
	}

	builder.WriteString("\n## Student answer\n")
	builder.WriteString(input.AnswerText)
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}
