package services

import (
	"sort"
	"strings"
	"time"

	"github.com/moleculahq/molecula/internal/models"
)

// stubStore is a slice-backed store shared by the service tests. It
// implements every per-service store interface.
type stubStore struct {
	users     []*models.User
	surveys   []*models.Survey
	questions []*models.Question
	options   []*models.Option
	responses []*models.Response
	answers   []*models.Answer
}

func (s *stubStore) GetSurvey(id string) (*models.Survey, error) {
	for _, sv := range s.surveys {
		if sv.ID == id {
			return sv, nil
		}
	}
	return nil, nil
}

func (s *stubStore) ListSurveys() ([]*models.Survey, error) {
	return append([]*models.Survey(nil), s.surveys...), nil
}

func (s *stubStore) ListQuestions(surveyID string) ([]*models.Question, error) {
	out := []*models.Question{}
	for _, q := range s.questions {
		if q.SurveyID == surveyID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *stubStore) ListOptions(questionID string) ([]*models.Option, error) {
	out := []*models.Option{}
	for _, o := range s.options {
		if o.QuestionID == questionID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubStore) SaveSurvey(sv *models.Survey, questions []*models.Question, options map[string][]*models.Option) error {
	s.surveys = append(s.surveys, sv)
	s.questions = append(s.questions, questions...)
	for _, q := range questions {
		s.options = append(s.options, options[q.ID]...)
	}
	return nil
}

func (s *stubStore) DeleteSurvey(id string) error {
	kept := s.surveys[:0]
	for _, sv := range s.surveys {
		if sv.ID != id {
			kept = append(kept, sv)
		}
	}
	s.surveys = kept
	return nil
}

func (s *stubStore) SaveResponse(resp *models.Response, answers []*models.Answer) error {
	for _, r := range s.responses {
		if r.SurveyID == resp.SurveyID && r.RespondentID == resp.RespondentID {
			return ErrDuplicateResponse
		}
	}
	s.responses = append(s.responses, resp)
	s.answers = append(s.answers, answers...)
	return nil
}

func (s *stubStore) ListResponses(surveyID string) ([]*models.Response, error) {
	out := []*models.Response{}
	for _, r := range s.responses {
		if r.SurveyID == surveyID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubStore) ListAnswers(responseID string) ([]*models.Answer, error) {
	out := []*models.Answer{}
	for _, a := range s.answers {
		if a.ResponseID == responseID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubStore) CountResponses(surveyID string) (int, error) {
	n := 0
	for _, r := range s.responses {
		if r.SurveyID == surveyID {
			n++
		}
	}
	return n, nil
}

func (s *stubStore) CountAnswersByOption(questionID string) (map[string]int, error) {
	counts := map[string]int{}
	for _, a := range s.answers {
		if a.QuestionID != questionID {
			continue
		}
		if ov, ok := a.Value.(models.OptionValue); ok {
			counts[string(ov)]++
		}
	}
	return counts, nil
}

func (s *stubStore) ScaleCounts(questionID string) (map[int]int, error) {
	counts := map[int]int{}
	for _, a := range s.answers {
		if a.QuestionID != questionID {
			continue
		}
		if sv, ok := a.Value.(models.ScaleValue); ok {
			counts[int(sv)]++
		}
	}
	return counts, nil
}

func (s *stubStore) RecentTextAnswers(questionID string, limit int) ([]*TextAnswer, error) {
	type pair struct {
		at   time.Time
		text *TextAnswer
	}
	pairs := []pair{}
	for _, a := range s.answers {
		if a.QuestionID != questionID {
			continue
		}
		tv, ok := a.Value.(models.TextValue)
		if !ok {
			continue
		}
		resp := s.response(a.ResponseID)
		name := resp.RespondentID
		if u := s.user(resp.RespondentID); u != nil && u.Username != "" {
			name = u.Username
		}
		pairs = append(pairs, pair{at: resp.SubmittedAt, text: &TextAnswer{
			Respondent:  name,
			Text:        string(tv),
			SubmittedAt: resp.SubmittedAt.UTC().Format(time.RFC3339),
		}})
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].at.After(pairs[j].at) })
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	out := make([]*TextAnswer, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.text)
	}
	return out, nil
}

func (s *stubStore) GetUser(id string) (*models.User, error) {
	return s.user(id), nil
}

func (s *stubStore) FindUserByEmail(email string) (*models.User, error) {
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *stubStore) CountUsers() (int, error) {
	return len(s.users), nil
}

func (s *stubStore) AddUser(u *models.User) error {
	s.users = append(s.users, u)
	return nil
}

func (s *stubStore) user(id string) *models.User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *stubStore) response(id string) *models.Response {
	for _, r := range s.responses {
		if r.ID == id {
			return r
		}
	}
	return nil
}
