package models

import "time"

// QuestionKind identifies the answer shape a question accepts.
type QuestionKind string

const (
	KindText   QuestionKind = "text"
	KindSingle QuestionKind = "single"
	KindMulti  QuestionKind = "multi"
	KindScale  QuestionKind = "scale"
)

// ScaleMin and ScaleMax bound scale answers.
const (
	ScaleMin = 1
	ScaleMax = 5
)

// User is a registered account. The first registered user becomes admin.
type User struct {
	ID        string
	Username  string
	Email     string
	PassHash  []byte
	Admin     bool
	CreatedAt time.Time
}

// Survey is a published questionnaire. Surveys are immutable after
// creation; deleting one cascades to its questions and responses.
type Survey struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"` // nil means no deadline
	Anonymous   bool       `json:"anonymous"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Question belongs to exactly one survey. Position is the 0-based ordinal
// that defines both display order and branching targets. NextOrder is a
// 1-based jump target evaluated when the question receives an answer;
// 0 means continue sequentially.
type Question struct {
	ID        string       `json:"id"`
	SurveyID  string       `json:"survey_id"`
	Position  int          `json:"position"`
	Text      string       `json:"text"`
	Kind      QuestionKind `json:"kind"`
	Required  bool         `json:"required"`
	NextOrder int          `json:"next_question_order,omitempty"`
}

// Option is one selectable choice of a single/multi question.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	Position   int    `json:"position"`
}

// Response is one respondent's single submission against a survey.
// At most one exists per (survey, respondent) pair.
type Response struct {
	ID           string    `json:"id"`
	SurveyID     string    `json:"survey_id"`
	RespondentID string    `json:"respondent_id"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Answer is one persisted value for one (response, question) pair.
// A multi question yields one Answer per selected option.
type Answer struct {
	ResponseID string
	QuestionID string
	Value      AnswerValue
}

// AnswerValue is the tagged payload variant of an Answer: free text,
// a scale rating, or a reference to a selected option.
type AnswerValue interface {
	answerValue()
}

// TextValue is a free-text answer.
type TextValue string

// ScaleValue is an integer rating in [ScaleMin, ScaleMax].
type ScaleValue int

// OptionValue references a selected option by id.
type OptionValue string

func (TextValue) answerValue()   {}
func (ScaleValue) answerValue()  {}
func (OptionValue) answerValue() {}
