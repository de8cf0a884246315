package services

import "github.com/moleculahq/molecula/internal/models"

// RawAnswer is the wire shape of one submitted answer before validation.
// Exactly one field is meaningful for a given question kind.
type RawAnswer struct {
	Text      string   `json:"text,omitempty"`
	Scale     *float64 `json:"scale,omitempty"`
	OptionIDs []string `json:"option_ids,omitempty"`
}

// kindSpec bundles the per-kind behavior: whether the kind carries
// options, how a raw answer is validated, and how persisted answers are
// summarized. Adding a question kind means adding one entry here.
type kindSpec struct {
	needsOptions bool
	validate     func(q *models.Question, options map[string]*models.Option, raw RawAnswer) ([]models.AnswerValue, error)
	summarize    func(s *AggregateService, sv *models.Survey, q *models.Question) (*QuestionSummary, error)
}

var kindSpecs = map[models.QuestionKind]kindSpec{
	models.KindText: {
		validate:  validateText,
		summarize: summarizeText,
	},
	models.KindScale: {
		validate:  validateScale,
		summarize: summarizeScale,
	},
	models.KindSingle: {
		needsOptions: true,
		validate:     validateSingle,
		summarize:    summarizeChoice,
	},
	models.KindMulti: {
		needsOptions: true,
		validate:     validateMulti,
		summarize:    summarizeChoice,
	},
}

// KnownKind reports whether k is a supported question kind.
func KnownKind(k models.QuestionKind) bool {
	_, ok := kindSpecs[k]
	return ok
}

// KindNeedsOptions reports whether questions of kind k carry options.
func KindNeedsOptions(k models.QuestionKind) bool {
	return kindSpecs[k].needsOptions
}
