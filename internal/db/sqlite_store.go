package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/moleculahq/molecula/internal/api"
	"github.com/moleculahq/molecula/internal/models"
	"github.com/moleculahq/molecula/internal/services"
)

// SQLiteStore persists the survey engine in SQLite. Timestamps are stored
// as RFC3339Nano text in UTC.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open connection and applies the pragmas the
// schema relies on (foreign keys for cascade deletes in particular).
func NewSQLiteStore(conn *sql.DB) (*SQLiteStore, error) {
	if conn == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := conn.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: conn}, nil
}

// NewStore returns the SQLite store behind the api.Store interface.
func NewStore(conn *sql.DB) (api.Store, error) {
	return NewSQLiteStore(conn)
}

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// users

func (s *SQLiteStore) AddUser(u *models.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (id, username, email, pass_hash, admin, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PassHash, boolToInt(u.Admin), fmtTime(u.CreatedAt),
	)
	if err != nil && isUniqueViolation(err) {
		return services.NewConflictError("email already registered")
	}
	return err
}

func (s *SQLiteStore) GetUser(id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, username, email, pass_hash, admin, created_at FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) FindUserByEmail(email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, username, email, pass_hash, admin, created_at FROM users WHERE email = ?`,
		strings.ToLower(email)))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var admin int
	var created string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PassHash, &admin, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Admin = admin != 0
	u.CreatedAt = parseTime(created)
	return &u, nil
}

func (s *SQLiteStore) CountUsers() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// surveys

func (s *SQLiteStore) SaveSurvey(sv *models.Survey, questions []*models.Question, options map[string][]*models.Option) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var endAt sql.NullString
	if sv.EndAt != nil {
		endAt = sql.NullString{String: fmtTime(*sv.EndAt), Valid: true}
	}
	if _, err := tx.Exec(
		`INSERT INTO surveys (id, owner_id, title, description, end_at, anonymous, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sv.ID, sv.OwnerID, sv.Title, sv.Description, endAt, boolToInt(sv.Anonymous), fmtTime(sv.CreatedAt),
	); err != nil {
		return err
	}
	for _, q := range questions {
		if _, err := tx.Exec(
			`INSERT INTO questions (id, survey_id, position, text, kind, required, next_order) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			q.ID, q.SurveyID, q.Position, q.Text, string(q.Kind), boolToInt(q.Required), q.NextOrder,
		); err != nil {
			return err
		}
		for _, o := range options[q.ID] {
			if _, err := tx.Exec(
				`INSERT INTO options (id, question_id, text, position) VALUES (?, ?, ?, ?)`,
				o.ID, o.QuestionID, o.Text, o.Position,
			); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetSurvey(id string) (*models.Survey, error) {
	row := s.db.QueryRow(
		`SELECT id, owner_id, title, description, end_at, anonymous, created_at FROM surveys WHERE id = ?`, id)
	sv, err := scanSurvey(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sv, err
}

func (s *SQLiteStore) ListSurveys() ([]*models.Survey, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, title, description, end_at, anonymous, created_at FROM surveys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Survey
	for rows.Next() {
		sv, err := scanSurvey(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

func scanSurvey(scan func(...any) error) (*models.Survey, error) {
	var sv models.Survey
	var endAt sql.NullString
	var anonymous int
	var created string
	if err := scan(&sv.ID, &sv.OwnerID, &sv.Title, &sv.Description, &endAt, &anonymous, &created); err != nil {
		return nil, err
	}
	if endAt.Valid {
		t := parseTime(endAt.String)
		sv.EndAt = &t
	}
	sv.Anonymous = anonymous != 0
	sv.CreatedAt = parseTime(created)
	return &sv, nil
}

func (s *SQLiteStore) ListQuestions(surveyID string) ([]*models.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, survey_id, position, text, kind, required, next_order FROM questions WHERE survey_id = ? ORDER BY position`,
		surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Question
	for rows.Next() {
		var q models.Question
		var kind string
		var required int
		if err := rows.Scan(&q.ID, &q.SurveyID, &q.Position, &q.Text, &kind, &required, &q.NextOrder); err != nil {
			return nil, err
		}
		q.Kind = models.QuestionKind(kind)
		q.Required = required != 0
		out = append(out, &q)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListOptions(questionID string) ([]*models.Option, error) {
	rows, err := s.db.Query(
		`SELECT id, question_id, text, position FROM options WHERE question_id = ? ORDER BY position`,
		questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Option
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.Position); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteSurvey(id string) error {
	// questions, options, responses and answers cascade
	_, err := s.db.Exec(`DELETE FROM surveys WHERE id = ?`, id)
	return err
}

// responses

func (s *SQLiteStore) SaveResponse(resp *models.Response, answers []*models.Answer) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO responses (id, survey_id, respondent_id, submitted_at) VALUES (?, ?, ?, ?)`,
		resp.ID, resp.SurveyID, resp.RespondentID, fmtTime(resp.SubmittedAt),
	); err != nil {
		if isUniqueViolation(err) {
			return services.ErrDuplicateResponse
		}
		return err
	}
	for _, a := range answers {
		var text sql.NullString
		var number sql.NullInt64
		var optionID sql.NullString
		switch v := a.Value.(type) {
		case models.TextValue:
			text = sql.NullString{String: string(v), Valid: true}
		case models.ScaleValue:
			number = sql.NullInt64{Int64: int64(v), Valid: true}
		case models.OptionValue:
			optionID = sql.NullString{String: string(v), Valid: true}
		}
		if _, err := tx.Exec(
			`INSERT INTO answers (response_id, question_id, answer_text, answer_number, option_id) VALUES (?, ?, ?, ?, ?)`,
			a.ResponseID, a.QuestionID, text, number, optionID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListResponses(surveyID string) ([]*models.Response, error) {
	rows, err := s.db.Query(
		`SELECT id, survey_id, respondent_id, submitted_at FROM responses WHERE survey_id = ? ORDER BY submitted_at, id`,
		surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Response
	for rows.Next() {
		var r models.Response
		var submitted string
		if err := rows.Scan(&r.ID, &r.SurveyID, &r.RespondentID, &submitted); err != nil {
			return nil, err
		}
		r.SubmittedAt = parseTime(submitted)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListAnswers(responseID string) ([]*models.Answer, error) {
	rows, err := s.db.Query(
		`SELECT response_id, question_id, answer_text, answer_number, option_id FROM answers WHERE response_id = ? ORDER BY rowid`,
		responseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Answer
	for rows.Next() {
		var a models.Answer
		var text sql.NullString
		var number sql.NullInt64
		var optionID sql.NullString
		if err := rows.Scan(&a.ResponseID, &a.QuestionID, &text, &number, &optionID); err != nil {
			return nil, err
		}
		switch {
		case text.Valid:
			a.Value = models.TextValue(text.String)
		case number.Valid:
			a.Value = models.ScaleValue(number.Int64)
		case optionID.Valid:
			a.Value = models.OptionValue(optionID.String)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// aggregation

func (s *SQLiteStore) CountResponses(surveyID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM responses WHERE survey_id = ?`, surveyID).Scan(&n)
	return n, err
}

func (s *SQLiteStore) CountAnswersByOption(questionID string) (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT option_id, COUNT(*) FROM answers WHERE question_id = ? AND option_id IS NOT NULL GROUP BY option_id`,
		questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) ScaleCounts(questionID string) (map[int]int, error) {
	rows, err := s.db.Query(
		`SELECT answer_number, COUNT(*) FROM answers WHERE question_id = ? AND answer_number IS NOT NULL GROUP BY answer_number`,
		questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[int]int{}
	for rows.Next() {
		var v, n int
		if err := rows.Scan(&v, &n); err != nil {
			return nil, err
		}
		counts[v] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) RecentTextAnswers(questionID string, limit int) ([]*services.TextAnswer, error) {
	rows, err := s.db.Query(
		`SELECT COALESCE(u.username, r.respondent_id), a.answer_text, r.submitted_at
		 FROM answers a
		 JOIN responses r ON r.id = a.response_id
		 LEFT JOIN users u ON u.id = r.respondent_id
		 WHERE a.question_id = ? AND a.answer_text IS NOT NULL
		 ORDER BY r.submitted_at DESC, r.id DESC
		 LIMIT ?`,
		questionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*services.TextAnswer
	for rows.Next() {
		var respondent, text, submitted string
		if err := rows.Scan(&respondent, &text, &submitted); err != nil {
			return nil, err
		}
		out = append(out, &services.TextAnswer{
			Respondent:  respondent,
			Text:        text,
			SubmittedAt: parseTime(submitted).UTC().Format(time.RFC3339),
		})
	}
	return out, rows.Err()
}
