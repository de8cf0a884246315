package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/moleculahq/molecula/internal/middleware"
	"github.com/moleculahq/molecula/internal/services"
)

// Router wires the HTTP surface onto the service layer.
type Router struct {
	store     Store
	auth      *services.AuthService
	surveys   *services.SurveyService
	responses *services.ResponseService
	stats     *services.AggregateService
	export    *services.ExportService
}

// NewRouter builds a router and its services on top of the given store.
func NewRouter(store Store) *Router {
	return &Router{
		store:     store,
		auth:      services.NewAuthService(store, middleware.SignToken),
		surveys:   services.NewSurveyService(store),
		responses: services.NewResponseService(store),
		stats:     services.NewAggregateService(store),
		export:    services.NewExportService(store),
	}
}

// SetTextSampleLimit adjusts how many free-text answers stats endpoints sample.
func (rt *Router) SetTextSampleLimit(n int) {
	rt.stats.SetTextSampleLimit(n)
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister) // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)       // POST
	mux.HandleFunc("/api/surveys", rt.handleSurveys)        // POST, GET
	mux.HandleFunc("/api/surveys/", rt.handleSurveyScoped)  // GET/DELETE {id}, POST {id}/responses, GET {id}/stats, GET {id}/export
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps service failures onto HTTP statuses. Unclassified errors
// become an opaque 500.
func writeErr(w http.ResponseWriter, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": ve.Error(), "question_id": ve.QuestionID})
		return
	case errors.Is(err, services.ErrSurveyNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
		return
	case errors.Is(err, services.ErrSurveyClosed), errors.Is(err, services.ErrDuplicateResponse):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
		return
	}
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusBadRequest
		switch se.Code {
		case services.CodeForbidden:
			status = http.StatusForbidden
		case services.CodeNotFound:
			status = http.StatusNotFound
		case services.CodeConflict:
			status = http.StatusConflict
		case services.CodeUnauthorized:
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, map[string]any{"error": se.Message, "code": se.Code})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Register(req.Username, req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authPayload(res))
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authPayload(res))
}

func authPayload(res *services.AuthResult) map[string]any {
	return map[string]any{
		"token": res.Token,
		"user": map[string]any{
			"id":       res.User.ID,
			"username": res.User.Username,
			"email":    res.User.Email,
			"admin":    res.User.Admin,
		},
	}
}

// POST /api/surveys | GET /api/surveys
func (rt *Router) handleSurveys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		uid, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var draft services.SurveyDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sv, err := rt.surveys.Create(uid, draft)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sv)
	case http.MethodGet:
		list, err := rt.surveys.List()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"surveys": list})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSurveyScoped dispatches /api/surveys/{id}[/responses|/stats|/export].
func (rt *Router) handleSurveyScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/surveys/")
	parts := strings.Split(rest, "/")
	if parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			rt.getSurvey(w, id)
		case http.MethodDelete:
			rt.deleteSurvey(w, r, id)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	switch parts[1] {
	case "responses":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rt.submitResponse(w, r, id)
	case "stats":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rt.surveyStats(w, id)
	case "export":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rt.exportSurvey(w, id)
	default:
		http.NotFound(w, r)
	}
}

// GET /api/surveys/{id}
func (rt *Router) getSurvey(w http.ResponseWriter, id string) {
	detail, err := rt.surveys.Get(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// DELETE /api/surveys/{id}
func (rt *Router) deleteSurvey(w http.ResponseWriter, r *http.Request, id string) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := rt.surveys.Delete(id, uid); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// POST /api/surveys/{id}/responses
// { answers: {question_id: {text | scale | option_ids}} }
func (rt *Router) submitResponse(w http.ResponseWriter, r *http.Request, id string) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		Answers map[string]services.RawAnswer `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.responses.Submit(services.SubmitRequest{SurveyID: id, RespondentID: uid, Answers: req.Answers})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"response_id":  res.ResponseID,
		"answer_count": res.AnswerCount,
		"skipped":      res.Skipped,
	})
}

// GET /api/surveys/{id}/stats
func (rt *Router) surveyStats(w http.ResponseWriter, id string) {
	summary, err := rt.stats.Summary(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GET /api/surveys/{id}/export
func (rt *Router) exportSurvey(w http.ResponseWriter, id string) {
	res, err := rt.export.ExportCSV(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+res.Filename)
	_, _ = w.Write(res.Data)
}
