package api

import (
	"github.com/moleculahq/molecula/internal/models"
	"github.com/moleculahq/molecula/internal/services"
)

// Store is the full persistence surface the router wires into the
// services. Each service depends only on the narrow slice it declares;
// any Store implementation satisfies all of them.
type Store interface {
	// users
	AddUser(u *models.User) error
	GetUser(id string) (*models.User, error)
	FindUserByEmail(email string) (*models.User, error)
	CountUsers() (int, error)

	// surveys
	SaveSurvey(sv *models.Survey, questions []*models.Question, options map[string][]*models.Option) error
	GetSurvey(id string) (*models.Survey, error)
	ListSurveys() ([]*models.Survey, error)
	ListQuestions(surveyID string) ([]*models.Question, error)
	ListOptions(questionID string) ([]*models.Option, error)
	DeleteSurvey(id string) error

	// responses
	SaveResponse(resp *models.Response, answers []*models.Answer) error
	ListResponses(surveyID string) ([]*models.Response, error)
	ListAnswers(responseID string) ([]*models.Answer, error)

	// aggregation
	CountResponses(surveyID string) (int, error)
	CountAnswersByOption(questionID string) (map[string]int, error)
	ScaleCounts(questionID string) (map[int]int, error)
	RecentTextAnswers(questionID string, limit int) ([]*services.TextAnswer, error)
}
