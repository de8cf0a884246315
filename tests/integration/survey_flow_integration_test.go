//go:build integration

package integration_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/moleculahq/molecula/internal/api"
	"github.com/moleculahq/molecula/internal/db"
	"github.com/moleculahq/molecula/internal/middleware"
)

func newSQLiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "molecula_test.db")
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.RunMigrations(conn, ""); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	store, err := db.NewStore(conn)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	mux := http.NewServeMux()
	api.NewRouter(store).Register(mux)
	srv := httptest.NewServer(middleware.WithAuth(mux))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, client *http.Client, url, token string, payload any, out any) int {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, client *http.Client, url string, out any) int {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestSurveyLifecycleIntegration(t *testing.T) {
	srv := newSQLiteServer(t)
	client := &http.Client{Timeout: 5 * time.Second}

	var reg struct {
		Token string `json:"token"`
	}
	if code := postJSON(t, client, srv.URL+"/api/auth/register", "", map[string]any{
		"username": "owner", "email": "owner@example.com", "password": "Secret123!",
	}, &reg); code != http.StatusCreated {
		t.Fatalf("register: status %d", code)
	}
	if reg.Token == "" {
		t.Fatalf("register did not return token")
	}

	var created struct {
		ID string `json:"id"`
	}
	if code := postJSON(t, client, srv.URL+"/api/surveys", reg.Token, map[string]any{
		"title": "Integration pulse",
		"questions": []map[string]any{
			{"text": "Interested?", "kind": "single", "required": true, "next_question_order": 3, "options": []string{"Yes", "No"}},
			{"text": "Why not?", "kind": "text", "required": true},
			{"text": "Rate us", "kind": "scale"},
		},
	}, &created); code != http.StatusCreated {
		t.Fatalf("create survey: status %d", code)
	}

	var detail struct {
		Questions []struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
		} `json:"questions"`
		Options map[string][]struct {
			ID string `json:"id"`
		} `json:"options"`
	}
	if code := getJSON(t, client, srv.URL+"/api/surveys/"+created.ID, &detail); code != http.StatusOK {
		t.Fatalf("get survey: status %d", code)
	}
	if len(detail.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(detail.Questions))
	}
	q1 := detail.Questions[0].ID
	q3 := detail.Questions[2].ID
	yes := detail.Options[q1][0].ID

	var submitted struct {
		AnswerCount int      `json:"answer_count"`
		Skipped     []string `json:"skipped"`
	}
	if code := postJSON(t, client, srv.URL+"/api/surveys/"+created.ID+"/responses", reg.Token, map[string]any{
		"answers": map[string]any{
			q1: map[string]any{"option_ids": []string{yes}},
			q3: map[string]any{"scale": 4},
		},
	}, &submitted); code != http.StatusCreated {
		t.Fatalf("submit: status %d", code)
	}
	if submitted.AnswerCount != 2 || len(submitted.Skipped) != 1 {
		t.Fatalf("unexpected submit result: %+v", submitted)
	}

	// duplicate submission conflicts against the unique index
	if code := postJSON(t, client, srv.URL+"/api/surveys/"+created.ID+"/responses", reg.Token, map[string]any{
		"answers": map[string]any{q1: map[string]any{"option_ids": []string{yes}}},
	}, nil); code != http.StatusConflict {
		t.Fatalf("duplicate submit: expected 409, got %d", code)
	}

	var stats struct {
		TotalResponses int `json:"total_responses"`
		Questions      []struct {
			Scale *struct {
				Average   string `json:"average"`
				Histogram []int  `json:"histogram"`
			} `json:"scale"`
		} `json:"questions"`
	}
	if code := getJSON(t, client, srv.URL+"/api/surveys/"+created.ID+"/stats", &stats); code != http.StatusOK {
		t.Fatalf("stats: status %d", code)
	}
	if stats.TotalResponses != 1 {
		t.Fatalf("expected 1 response, got %d", stats.TotalResponses)
	}
	if stats.Questions[2].Scale == nil || stats.Questions[2].Scale.Average != "4.00" {
		t.Fatalf("unexpected scale stats: %+v", stats.Questions[2].Scale)
	}

	resp, err := client.Get(srv.URL + "/api/surveys/" + created.ID + "/export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	if !strings.HasPrefix(buf.String(), "response_id,respondent,submitted_at,Interested?") {
		t.Fatalf("unexpected export header: %q", buf.String())
	}
}
