package api

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/moleculahq/molecula/internal/models"
	"github.com/moleculahq/molecula/internal/services"
)

// memoryStore is an in-memory Store used by tests and local runs without
// a database. It enforces the same one-response-per-respondent rule the
// SQLite schema enforces with a unique index.
type memoryStore struct {
	mu             sync.RWMutex
	users          map[string]*models.User
	surveys        map[string]*models.Survey
	questions      map[string][]*models.Question // by survey id
	options        map[string][]*models.Option   // by question id
	questionSurvey map[string]string             // question id -> survey id
	responses      map[string]*models.Response   // by response id
	answers        map[string][]*models.Answer   // by response id
	responded      map[string]bool               // survey id + "/" + respondent id
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store { return newMemoryStore() }

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:          map[string]*models.User{},
		surveys:        map[string]*models.Survey{},
		questions:      map[string][]*models.Question{},
		options:        map[string][]*models.Option{},
		questionSurvey: map[string]string{},
		responses:      map[string]*models.Response{},
		answers:        map[string][]*models.Answer{},
		responded:      map[string]bool{},
	}
}

func (m *memoryStore) AddUser(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memoryStore) GetUser(id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[id], nil
}

func (m *memoryStore) FindUserByEmail(email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) CountUsers() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

func (m *memoryStore) SaveSurvey(sv *models.Survey, questions []*models.Question, options map[string][]*models.Option) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.surveys[sv.ID] = sv
	m.questions[sv.ID] = questions
	for _, q := range questions {
		m.questionSurvey[q.ID] = sv.ID
		if opts := options[q.ID]; len(opts) > 0 {
			m.options[q.ID] = opts
		}
	}
	return nil
}

func (m *memoryStore) GetSurvey(id string) (*models.Survey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.surveys[id], nil
}

func (m *memoryStore) ListSurveys() ([]*models.Survey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Survey, 0, len(m.surveys))
	for _, sv := range m.surveys {
		out = append(out, sv)
	}
	return out, nil
}

func (m *memoryStore) ListQuestions(surveyID string) ([]*models.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*models.Question(nil), m.questions[surveyID]...), nil
}

func (m *memoryStore) ListOptions(questionID string) ([]*models.Option, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*models.Option(nil), m.options[questionID]...), nil
}

func (m *memoryStore) DeleteSurvey(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.questions[id] {
		delete(m.options, q.ID)
		delete(m.questionSurvey, q.ID)
	}
	delete(m.questions, id)
	delete(m.surveys, id)
	for rid, resp := range m.responses {
		if resp.SurveyID != id {
			continue
		}
		delete(m.answers, rid)
		delete(m.responses, rid)
		delete(m.responded, id+"/"+resp.RespondentID)
	}
	return nil
}

func (m *memoryStore) SaveResponse(resp *models.Response, answers []*models.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := resp.SurveyID + "/" + resp.RespondentID
	if m.responded[key] {
		return services.ErrDuplicateResponse
	}
	m.responded[key] = true
	m.responses[resp.ID] = resp
	m.answers[resp.ID] = answers
	return nil
}

func (m *memoryStore) ListResponses(surveyID string) ([]*models.Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.Response{}
	for _, resp := range m.responses {
		if resp.SurveyID == surveyID {
			out = append(out, resp)
		}
	}
	return out, nil
}

func (m *memoryStore) ListAnswers(responseID string) ([]*models.Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*models.Answer(nil), m.answers[responseID]...), nil
}

func (m *memoryStore) CountResponses(surveyID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, resp := range m.responses {
		if resp.SurveyID == surveyID {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) CountAnswersByOption(questionID string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[string]int{}
	m.eachAnswer(questionID, func(_ *models.Response, a *models.Answer) {
		if ov, ok := a.Value.(models.OptionValue); ok {
			counts[string(ov)]++
		}
	})
	return counts, nil
}

func (m *memoryStore) ScaleCounts(questionID string) (map[int]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[int]int{}
	m.eachAnswer(questionID, func(_ *models.Response, a *models.Answer) {
		if sv, ok := a.Value.(models.ScaleValue); ok {
			counts[int(sv)]++
		}
	})
	return counts, nil
}

func (m *memoryStore) RecentTextAnswers(questionID string, limit int) ([]*services.TextAnswer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type entry struct {
		at   time.Time
		text *services.TextAnswer
	}
	entries := []entry{}
	m.eachAnswer(questionID, func(resp *models.Response, a *models.Answer) {
		tv, ok := a.Value.(models.TextValue)
		if !ok {
			return
		}
		name := resp.RespondentID
		if u := m.users[resp.RespondentID]; u != nil && u.Username != "" {
			name = u.Username
		}
		entries = append(entries, entry{at: resp.SubmittedAt, text: &services.TextAnswer{
			Respondent:  name,
			Text:        string(tv),
			SubmittedAt: resp.SubmittedAt.UTC().Format(time.RFC3339),
		}})
	})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].at.After(entries[j].at) })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]*services.TextAnswer, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.text)
	}
	return out, nil
}

// eachAnswer visits every persisted answer of one question. Callers hold m.mu.
func (m *memoryStore) eachAnswer(questionID string, fn func(*models.Response, *models.Answer)) {
	surveyID := m.questionSurvey[questionID]
	for rid, resp := range m.responses {
		if resp.SurveyID != surveyID {
			continue
		}
		for _, a := range m.answers[rid] {
			if a.QuestionID == questionID {
				fn(resp, a)
			}
		}
	}
}
