package services

import (
	"testing"

	"github.com/moleculahq/molecula/internal/models"
)

func scalePtr(v float64) *float64 { return &v }

func TestValidateTextTrimsAndRequires(t *testing.T) {
	q := &models.Question{ID: "Q1", Kind: models.KindText, Required: true}
	if _, err := validateAnswer(q, nil, RawAnswer{Text: "   "}); err == nil {
		t.Fatalf("expected required text to reject blank answer")
	}
	values, err := validateAnswer(q, nil, RawAnswer{Text: "  hello  "})
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if len(values) != 1 || values[0] != models.TextValue("hello") {
		t.Fatalf("expected trimmed text value, got %v", values)
	}
}

func TestValidateTextOptionalBlank(t *testing.T) {
	q := &models.Question{ID: "Q1", Kind: models.KindText}
	values, err := validateAnswer(q, nil, RawAnswer{})
	if err != nil {
		t.Fatalf("optional blank must pass: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected no values, got %v", values)
	}
}

func TestValidateScale(t *testing.T) {
	q := &models.Question{ID: "Q1", Kind: models.KindScale}
	if _, err := validateAnswer(q, nil, RawAnswer{Scale: scalePtr(3.5)}); err == nil {
		t.Fatalf("fractional scale must be rejected")
	}
	if _, err := validateAnswer(q, nil, RawAnswer{Scale: scalePtr(0)}); err == nil {
		t.Fatalf("scale below minimum must be rejected")
	}
	if _, err := validateAnswer(q, nil, RawAnswer{Scale: scalePtr(6)}); err == nil {
		t.Fatalf("scale above maximum must be rejected")
	}
	values, err := validateAnswer(q, nil, RawAnswer{Scale: scalePtr(4)})
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if len(values) != 1 || values[0] != models.ScaleValue(4) {
		t.Fatalf("expected scale value 4, got %v", values)
	}
}

func TestValidateSingle(t *testing.T) {
	q := &models.Question{ID: "Q1", Kind: models.KindSingle, Required: true}
	options := map[string]*models.Option{
		"O1": {ID: "O1", QuestionID: "Q1"},
		"O2": {ID: "O2", QuestionID: "Q1"},
	}
	if _, err := validateAnswer(q, options, RawAnswer{OptionIDs: []string{"O1", "O2"}}); err == nil {
		t.Fatalf("single choice must reject multiple options")
	}
	if _, err := validateAnswer(q, options, RawAnswer{OptionIDs: []string{"OX"}}); err == nil {
		t.Fatalf("foreign option must be rejected")
	}
	if _, err := validateAnswer(q, options, RawAnswer{}); err == nil {
		t.Fatalf("required single must reject empty selection")
	}
	values, err := validateAnswer(q, options, RawAnswer{OptionIDs: []string{"O2"}})
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if len(values) != 1 || values[0] != models.OptionValue("O2") {
		t.Fatalf("expected option O2, got %v", values)
	}
}

func TestValidateMultiDeduplicates(t *testing.T) {
	q := &models.Question{ID: "Q1", Kind: models.KindMulti}
	options := map[string]*models.Option{
		"O1": {ID: "O1", QuestionID: "Q1"},
		"O2": {ID: "O2", QuestionID: "Q1"},
	}
	values, err := validateAnswer(q, options, RawAnswer{OptionIDs: []string{"O1", "O1", "O2"}})
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("expected deduplicated selections, got %v", values)
	}
	if _, err := validateAnswer(q, options, RawAnswer{OptionIDs: []string{"O1", "OX"}}); err == nil {
		t.Fatalf("foreign option in multi must be rejected")
	}
}

func TestValidationErrorReportsOrdinal(t *testing.T) {
	q := &models.Question{ID: "Q3", Position: 2, Kind: models.KindText, Required: true}
	_, err := validateAnswer(q, nil, RawAnswer{})
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if ve.Error() != "question 3: answer required" {
		t.Fatalf("unexpected message %q", ve.Error())
	}
}
