package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/moleculahq/molecula/internal/api"
	"github.com/moleculahq/molecula/internal/db"
	"github.com/moleculahq/molecula/internal/middleware"
	"github.com/moleculahq/molecula/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	addr := utils.SafeEnv("MOLECULA_ADDR", ":8080")
	dbPath := utils.SafeEnv("MOLECULA_DB_PATH", "molecula.db")
	migrationsDir := utils.SafeEnv("MOLECULA_MIGRATIONS_DIR", "")

	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(conn, migrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}
	store, err := db.NewStore(conn)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}

	mux := http.NewServeMux()
	router := api.NewRouter(store)
	router.SetTextSampleLimit(utils.IntEnv("MOLECULA_TEXT_SAMPLE_LIMIT", 20))
	router.Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"name": "Molecula API",
		})
	})

	handler := middleware.CORS(middleware.SecureHeaders(middleware.WithAuth(mux)))

	log.Printf("Molecula server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
