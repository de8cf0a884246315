package services

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moleculahq/molecula/internal/models"
)

// SubmissionStore abstracts persistence operations required by ResponseService.
type SubmissionStore interface {
	GetSurvey(id string) (*models.Survey, error)
	ListQuestions(surveyID string) ([]*models.Question, error)
	ListOptions(questionID string) ([]*models.Option, error)
	// SaveResponse persists the response row and all answer rows in one
	// atomic transaction. It returns ErrDuplicateResponse when a response
	// for the same (survey, respondent) pair already exists.
	SaveResponse(resp *models.Response, answers []*models.Answer) error
}

// SubmitRequest transports one respondent's complete submission. Answers
// are keyed by question id; questions without an entry are unanswered.
type SubmitRequest struct {
	SurveyID     string
	RespondentID string
	Answers      map[string]RawAnswer
}

// SubmitResult reports a recorded submission.
type SubmitResult struct {
	ResponseID  string
	AnswerCount int
	Skipped     []string // question ids bypassed by branching
}

// ResponseService hosts the one-shot submission workflow: walk questions
// in order, apply branching, validate, persist atomically.
type ResponseService struct {
	store       SubmissionStore
	now         func() time.Time
	idGenerator func() string
}

// NewResponseService constructs a service bound to the provided persistence interface.
func NewResponseService(store SubmissionStore) *ResponseService {
	return &ResponseService{
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: shortID12,
	}
}

func shortID12() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Submit records one response. Every non-skipped question is validated
// before anything is written, so a rejected submission leaves no rows and
// the respondent may retry. Duplicate submissions surface as
// ErrDuplicateResponse from the store's uniqueness constraint.
func (s *ResponseService) Submit(req SubmitRequest) (*SubmitResult, error) {
	survey, err := s.store.GetSurvey(req.SurveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, ErrSurveyNotFound
	}
	now := s.now()
	if survey.EndAt != nil && !survey.EndAt.After(now) {
		return nil, ErrSurveyClosed
	}
	if strings.TrimSpace(req.RespondentID) == "" {
		return nil, NewInvalidError("respondent required")
	}

	questions, err := s.store.ListQuestions(req.SurveyID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })

	resp := &models.Response{
		ID:           s.idGenerator(),
		SurveyID:     req.SurveyID,
		RespondentID: req.RespondentID,
		SubmittedAt:  now,
	}

	skips := skipSet{}
	answers := make([]*models.Answer, 0, len(questions))
	var skipped []string
	total := len(questions)

	for _, q := range questions {
		if skips.Has(q.Position) {
			// Not validated (even if required), no answer rows, and its
			// own branch is never evaluated.
			skipped = append(skipped, q.ID)
			continue
		}
		options, err := s.optionSet(q)
		if err != nil {
			return nil, err
		}
		values, err := validateAnswer(q, options, req.Answers[q.ID])
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			continue
		}
		if q.NextOrder > 0 {
			skips.applyBranch(q.Position, q.NextOrder, total)
		}
		for _, v := range values {
			answers = append(answers, &models.Answer{ResponseID: resp.ID, QuestionID: q.ID, Value: v})
		}
	}

	if err := s.store.SaveResponse(resp, answers); err != nil {
		return nil, err
	}
	return &SubmitResult{ResponseID: resp.ID, AnswerCount: len(answers), Skipped: skipped}, nil
}

func (s *ResponseService) optionSet(q *models.Question) (map[string]*models.Option, error) {
	if !KindNeedsOptions(q.Kind) {
		return nil, nil
	}
	opts, err := s.store.ListOptions(q.ID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]*models.Option, len(opts))
	for _, o := range opts {
		set[o.ID] = o
	}
	return set, nil
}
