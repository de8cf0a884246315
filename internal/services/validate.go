package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/moleculahq/molecula/internal/models"
)

// validateAnswer checks one raw answer against its question and returns
// the values to persist. An empty slice with a nil error means the
// question was legitimately left unanswered.
func validateAnswer(q *models.Question, options map[string]*models.Option, raw RawAnswer) ([]models.AnswerValue, error) {
	spec, ok := kindSpecs[q.Kind]
	if !ok {
		return nil, newValidationError(q.ID, q.Position, "unknown question kind "+string(q.Kind))
	}
	return spec.validate(q, options, raw)
}

func validateText(q *models.Question, _ map[string]*models.Option, raw RawAnswer) ([]models.AnswerValue, error) {
	text := strings.TrimSpace(raw.Text)
	if text == "" {
		if q.Required {
			return nil, newValidationError(q.ID, q.Position, "answer required")
		}
		return nil, nil
	}
	return []models.AnswerValue{models.TextValue(text)}, nil
}

func validateScale(q *models.Question, _ map[string]*models.Option, raw RawAnswer) ([]models.AnswerValue, error) {
	if raw.Scale == nil {
		if q.Required {
			return nil, newValidationError(q.ID, q.Position, "answer required")
		}
		return nil, nil
	}
	v := *raw.Scale
	if v != math.Trunc(v) {
		return nil, newValidationError(q.ID, q.Position, "scale value must be an integer")
	}
	n := int(v)
	if n < models.ScaleMin || n > models.ScaleMax {
		return nil, newValidationError(q.ID, q.Position, fmt.Sprintf("scale value must be between %d and %d", models.ScaleMin, models.ScaleMax))
	}
	return []models.AnswerValue{models.ScaleValue(n)}, nil
}

func validateSingle(q *models.Question, options map[string]*models.Option, raw RawAnswer) ([]models.AnswerValue, error) {
	ids := compactOptionIDs(raw.OptionIDs)
	if len(ids) == 0 {
		if q.Required {
			return nil, newValidationError(q.ID, q.Position, "answer required")
		}
		return nil, nil
	}
	if len(ids) > 1 {
		return nil, newValidationError(q.ID, q.Position, "exactly one option expected")
	}
	if _, ok := options[ids[0]]; !ok {
		return nil, newValidationError(q.ID, q.Position, "option does not belong to this question")
	}
	return []models.AnswerValue{models.OptionValue(ids[0])}, nil
}

func validateMulti(q *models.Question, options map[string]*models.Option, raw RawAnswer) ([]models.AnswerValue, error) {
	ids := compactOptionIDs(raw.OptionIDs)
	if len(ids) == 0 {
		if q.Required {
			return nil, newValidationError(q.ID, q.Position, "answer required")
		}
		return nil, nil
	}
	values := make([]models.AnswerValue, 0, len(ids))
	for _, id := range ids {
		if _, ok := options[id]; !ok {
			return nil, newValidationError(q.ID, q.Position, "option does not belong to this question")
		}
		values = append(values, models.OptionValue(id))
	}
	return values, nil
}

// compactOptionIDs trims whitespace, drops empties and deduplicates while
// preserving submission order.
func compactOptionIDs(ids []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
