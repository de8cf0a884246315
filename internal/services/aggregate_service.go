package services

import (
	"fmt"
	"sort"

	"github.com/moleculahq/molecula/internal/models"
)

// AggregateStore abstracts the read-only queries behind survey statistics.
type AggregateStore interface {
	GetSurvey(id string) (*models.Survey, error)
	ListQuestions(surveyID string) ([]*models.Question, error)
	ListOptions(questionID string) ([]*models.Option, error)
	CountResponses(surveyID string) (int, error)
	// CountAnswersByOption returns answer counts keyed by option id;
	// options with no answers may be absent from the map.
	CountAnswersByOption(questionID string) (map[string]int, error)
	// ScaleCounts returns answer counts keyed by scale value.
	ScaleCounts(questionID string) (map[int]int, error)
	// RecentTextAnswers returns the newest free-text answers first.
	RecentTextAnswers(questionID string, limit int) ([]*TextAnswer, error)
}

// TextAnswer is one free-text answer with respondent attribution.
type TextAnswer struct {
	Respondent  string `json:"respondent,omitempty"`
	Text        string `json:"text"`
	SubmittedAt string `json:"submitted_at"`
}

// OptionCount is the tally for one option of a choice question.
type OptionCount struct {
	OptionID string `json:"option_id"`
	Text     string `json:"text"`
	Count    int    `json:"count"`
}

// ScaleSummary is the aggregate over one scale question: mean formatted to
// two decimals ("0.00" when no answers) and a fixed five-bucket histogram.
type ScaleSummary struct {
	Average   string `json:"average"`
	Count     int    `json:"count"`
	Histogram []int  `json:"histogram"`
}

// QuestionSummary carries the statistics of one question; exactly one of
// Options, Scale or Texts is populated depending on the kind.
type QuestionSummary struct {
	QuestionID string              `json:"question_id"`
	Position   int                 `json:"position"`
	Text       string              `json:"text"`
	Kind       models.QuestionKind `json:"kind"`
	Options    []OptionCount       `json:"options,omitempty"`
	Scale      *ScaleSummary       `json:"scale,omitempty"`
	Texts      []*TextAnswer       `json:"texts,omitempty"`
}

// SurveySummary aggregates all questions of one survey.
type SurveySummary struct {
	SurveyID       string             `json:"survey_id"`
	Title          string             `json:"title"`
	TotalResponses int                `json:"total_responses"`
	Questions      []*QuestionSummary `json:"questions"`
}

// AggregateService computes statistics over persisted answers. It never
// mutates state; every call recomputes from the store.
type AggregateService struct {
	store           AggregateStore
	textSampleLimit int
}

// NewAggregateService constructs an aggregator bound to the provided store.
func NewAggregateService(store AggregateStore) *AggregateService {
	return &AggregateService{store: store, textSampleLimit: 20}
}

// SetTextSampleLimit overrides the number of free-text answers sampled per question.
func (s *AggregateService) SetTextSampleLimit(n int) {
	if n > 0 {
		s.textSampleLimit = n
	}
}

// Summary computes per-question statistics for the whole survey.
func (s *AggregateService) Summary(surveyID string) (*SurveySummary, error) {
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
	total, err := s.store.CountResponses(surveyID)
	if err != nil {
		return nil, err
	}

	out := &SurveySummary{SurveyID: surveyID, Title: survey.Title, TotalResponses: total}
	for _, q := range questions {
		spec, ok := kindSpecs[q.Kind]
		if !ok {
			continue
		}
		qs, err := spec.summarize(s, survey, q)
		if err != nil {
			return nil, err
		}
		out.Questions = append(out.Questions, qs)
	}
	return out, nil
}

func baseSummary(q *models.Question) *QuestionSummary {
	return &QuestionSummary{QuestionID: q.ID, Position: q.Position, Text: q.Text, Kind: q.Kind}
}

func summarizeChoice(s *AggregateService, _ *models.Survey, q *models.Question) (*QuestionSummary, error) {
	opts, err := s.store.ListOptions(q.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].Position < opts[j].Position })
	counts, err := s.store.CountAnswersByOption(q.ID)
	if err != nil {
		return nil, err
	}
	qs := baseSummary(q)
	qs.Options = make([]OptionCount, 0, len(opts))
	for _, o := range opts {
		// zero-count options are included, in option order
		qs.Options = append(qs.Options, OptionCount{OptionID: o.ID, Text: o.Text, Count: counts[o.ID]})
	}
	return qs, nil
}

func summarizeScale(s *AggregateService, _ *models.Survey, q *models.Question) (*QuestionSummary, error) {
	counts, err := s.store.ScaleCounts(q.ID)
	if err != nil {
		return nil, err
	}
	hist := make([]int, models.ScaleMax)
	count, sum := 0, 0
	for v, n := range counts {
		if v < models.ScaleMin || v > models.ScaleMax {
			continue
		}
		hist[v-1] += n
		count += n
		sum += v * n
	}
	avg := "0.00"
	if count > 0 {
		avg = fmt.Sprintf("%.2f", float64(sum)/float64(count))
	}
	qs := baseSummary(q)
	qs.Scale = &ScaleSummary{Average: avg, Count: count, Histogram: hist}
	return qs, nil
}

func summarizeText(s *AggregateService, sv *models.Survey, q *models.Question) (*QuestionSummary, error) {
	texts, err := s.store.RecentTextAnswers(q.ID, s.textSampleLimit)
	if err != nil {
		return nil, err
	}
	if sv.Anonymous {
		for _, t := range texts {
			t.Respondent = ""
		}
	}
	qs := baseSummary(q)
	qs.Texts = texts
	if qs.Texts == nil {
		qs.Texts = []*TextAnswer{}
	}
	return qs, nil
}
