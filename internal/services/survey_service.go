package services

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moleculahq/molecula/internal/models"
)

// SurveyStore abstracts persistence for survey construction and lookup.
type SurveyStore interface {
	// SaveSurvey persists the survey with all questions and options in one
	// atomic transaction; surveys are immutable after this point.
	SaveSurvey(sv *models.Survey, questions []*models.Question, options map[string][]*models.Option) error
	GetSurvey(id string) (*models.Survey, error)
	ListSurveys() ([]*models.Survey, error)
	ListQuestions(surveyID string) ([]*models.Question, error)
	ListOptions(questionID string) ([]*models.Option, error)
	DeleteSurvey(id string) error
	GetUser(id string) (*models.User, error)
}

// QuestionDraft is one question of a survey being published.
type QuestionDraft struct {
	Text      string              `json:"text"`
	Kind      models.QuestionKind `json:"kind"`
	Required  bool                `json:"required"`
	NextOrder int                 `json:"next_question_order,omitempty"`
	Options   []string            `json:"options,omitempty"`
}

// SurveyDraft is the inbound payload for survey creation.
type SurveyDraft struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	EndAt       *time.Time      `json:"end_at,omitempty"`
	Anonymous   bool            `json:"anonymous"`
	Questions   []QuestionDraft `json:"questions"`
}

// SurveyDetail is a survey with its ordered questions and options.
type SurveyDetail struct {
	Survey    *models.Survey              `json:"survey"`
	Questions []*models.Question          `json:"questions"`
	Options   map[string][]*models.Option `json:"options"`
}

// SurveyService creates, lists and deletes surveys. All structural
// invariants (option counts, branch targets) are enforced here, at
// construction time; the response path assumes well-formed surveys.
type SurveyService struct {
	store SurveyStore
	now   func() time.Time
	idGen func() string
}

// NewSurveyService constructs a service bound to the provided store.
func NewSurveyService(store SurveyStore) *SurveyService {
	return &SurveyService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return shortID(8) },
	}
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// Create validates and publishes a survey together with its questions and
// options. Published surveys are immutable.
func (s *SurveyService) Create(ownerID string, draft SurveyDraft) (*models.Survey, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, NewInvalidError("title required")
	}
	if len(draft.Questions) == 0 {
		return nil, NewInvalidError("at least one question required")
	}
	now := s.now()
	if draft.EndAt != nil && !draft.EndAt.After(now) {
		return nil, NewInvalidError("deadline must be in the future")
	}

	total := len(draft.Questions)
	sv := &models.Survey{
		ID:          s.idGen(),
		OwnerID:     ownerID,
		Title:       title,
		Description: strings.TrimSpace(draft.Description),
		EndAt:       draft.EndAt,
		Anonymous:   draft.Anonymous,
		CreatedAt:   now,
	}

	questions := make([]*models.Question, 0, total)
	options := map[string][]*models.Option{}
	for i, qd := range draft.Questions {
		q, opts, err := s.buildQuestion(sv.ID, i, total, qd)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
		if len(opts) > 0 {
			options[q.ID] = opts
		}
	}

	if err := s.store.SaveSurvey(sv, questions, options); err != nil {
		return nil, err
	}
	return sv, nil
}

func (s *SurveyService) buildQuestion(surveyID string, index, total int, qd QuestionDraft) (*models.Question, []*models.Option, error) {
	text := strings.TrimSpace(qd.Text)
	if text == "" {
		return nil, nil, NewInvalidError("question text required")
	}
	if !KnownKind(qd.Kind) {
		return nil, nil, NewInvalidError("unknown question kind " + string(qd.Kind))
	}
	// Forward-progress invariant: a branch target must jump past the next
	// question and stay within the survey.
	if qd.NextOrder != 0 && (qd.NextOrder <= index+1 || qd.NextOrder > total) {
		return nil, nil, NewMalformedBranchError(index, qd.NextOrder, total)
	}

	q := &models.Question{
		ID:        s.idGen(),
		SurveyID:  surveyID,
		Position:  index,
		Text:      text,
		Kind:      qd.Kind,
		Required:  qd.Required,
		NextOrder: qd.NextOrder,
	}

	if !KindNeedsOptions(qd.Kind) {
		if len(qd.Options) > 0 {
			return nil, nil, NewInvalidError("question kind " + string(qd.Kind) + " does not accept options")
		}
		return q, nil, nil
	}

	seen := map[string]bool{}
	opts := make([]*models.Option, 0, len(qd.Options))
	for _, raw := range qd.Options {
		txt := strings.TrimSpace(raw)
		if txt == "" || seen[txt] {
			continue
		}
		seen[txt] = true
		opts = append(opts, &models.Option{ID: s.idGen(), QuestionID: q.ID, Text: txt, Position: len(opts)})
	}
	if len(opts) < 2 {
		return nil, nil, NewInvalidError("choice questions need at least 2 distinct options")
	}
	return q, opts, nil
}

// Get returns one survey with its ordered questions and options.
func (s *SurveyService) Get(id string) (*SurveyDetail, error) {
	sv, err := s.store.GetSurvey(id)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, ErrSurveyNotFound
	}
	questions, err := s.store.ListQuestions(id)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
	options := map[string][]*models.Option{}
	for _, q := range questions {
		if !KindNeedsOptions(q.Kind) {
			continue
		}
		opts, err := s.store.ListOptions(q.ID)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(opts, func(i, j int) bool { return opts[i].Position < opts[j].Position })
		options[q.ID] = opts
	}
	return &SurveyDetail{Survey: sv, Questions: questions, Options: options}, nil
}

// List returns all surveys, newest first.
func (s *SurveyService) List() ([]*models.Survey, error) {
	surveys, err := s.store.ListSurveys()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(surveys, func(i, j int) bool { return surveys[i].CreatedAt.After(surveys[j].CreatedAt) })
	return surveys, nil
}

// Delete removes a survey; questions, options, responses and answers
// cascade. Only the owner or an admin may delete.
func (s *SurveyService) Delete(id, actorID string) error {
	sv, err := s.store.GetSurvey(id)
	if err != nil {
		return err
	}
	if sv == nil {
		return ErrSurveyNotFound
	}
	if sv.OwnerID != actorID {
		actor, err := s.store.GetUser(actorID)
		if err != nil {
			return err
		}
		if actor == nil || !actor.Admin {
			return NewForbiddenError("forbidden")
		}
	}
	return s.store.DeleteSurvey(id)
}
