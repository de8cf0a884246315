package services

import (
	"sort"
	"time"

	"github.com/moleculahq/molecula/internal/models"
)

// ExportStore abstracts the reads behind CSV export.
type ExportStore interface {
	GetSurvey(id string) (*models.Survey, error)
	ListQuestions(surveyID string) ([]*models.Question, error)
	ListOptions(questionID string) ([]*models.Option, error)
	ListResponses(surveyID string) ([]*models.Response, error)
	ListAnswers(responseID string) ([]*models.Answer, error)
	GetUser(id string) (*models.User, error)
}

// ExportResult carries a rendered export document.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders raw survey responses as a downloadable CSV.
type ExportService struct {
	store ExportStore
}

// NewExportService constructs an exporter bound to the provided store.
func NewExportService(store ExportStore) *ExportService {
	return &ExportService{store: store}
}

// ExportCSV produces one row per response with a column per question in
// ordinal order. Respondent identity is replaced by a fixed redaction
// token when the survey is anonymous.
func (s *ExportService) ExportCSV(surveyID string) (*ExportResult, error) {
	survey, err := s.store.GetSurvey(surveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, ErrSurveyNotFound
	}
	questions, err := s.store.ListQuestions(surveyID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })

	optionText := map[string]string{}
	for _, q := range questions {
		if !KindNeedsOptions(q.Kind) {
			continue
		}
		opts, err := s.store.ListOptions(q.ID)
		if err != nil {
			return nil, err
		}
		for _, o := range opts {
			optionText[o.ID] = o.Text
		}
	}

	responses, err := s.store.ListResponses(surveyID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(responses, func(i, j int) bool {
		if responses[i].SubmittedAt.Equal(responses[j].SubmittedAt) {
			return responses[i].ID < responses[j].ID
		}
		return responses[i].SubmittedAt.Before(responses[j].SubmittedAt)
	})

	names := map[string]string{}
	rows := make([]ResponseRow, 0, len(responses))
	for _, resp := range responses {
		answers, err := s.store.ListAnswers(resp.ID)
		if err != nil {
			return nil, err
		}
		byQuestion := map[string][]string{}
		for _, a := range answers {
			byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], renderAnswerValue(a.Value, optionText))
		}
		cells := make([]string, 0, len(questions))
		for _, q := range questions {
			cells = append(cells, joinCell(byQuestion[q.ID]))
		}
		respondent := AnonymousRespondent
		if !survey.Anonymous {
			respondent, err = s.respondentName(names, resp.RespondentID)
			if err != nil {
				return nil, err
			}
		}
		rows = append(rows, ResponseRow{
			ResponseID:  resp.ID,
			Respondent:  respondent,
			SubmittedAt: resp.SubmittedAt.UTC().Format(time.RFC3339),
			Cells:       cells,
		})
	}

	headers := make([]string, 0, len(questions))
	for _, q := range questions {
		headers = append(headers, q.Text)
	}
	data, err := ExportResponsesCSV(headers, rows)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    "survey-" + surveyID + ".csv",
		ContentType: "text/csv; charset=utf-8",
		Data:        data,
	}, nil
}

func (s *ExportService) respondentName(cache map[string]string, id string) (string, error) {
	if name, ok := cache[id]; ok {
		return name, nil
	}
	u, err := s.store.GetUser(id)
	if err != nil {
		return "", err
	}
	name := id
	if u != nil && u.Username != "" {
		name = u.Username
	}
	cache[id] = name
	return name, nil
}
