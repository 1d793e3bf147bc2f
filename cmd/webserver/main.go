package main

import (
	"flag"
	"html/template"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"skillquiz"

	"github.com/gorilla/sessions"
)

// Server holds the webserver's collaborators: the attempt store, the
// generator client, the cookie store carrying browser identity, and the
// in-memory registry of in-progress quiz sessions.
type Server struct {
	store     skillquiz.AttemptStore
	generator skillquiz.QuestionSource
	cookies   *sessions.CookieStore
	templates map[string]*template.Template

	mu     sync.Mutex
	active map[string]activeEntry
}

// activeEntry carries the registration time so abandoned sessions can be
// swept out of the registry.
type activeEntry struct {
	quiz    *skillquiz.QuizSession
	started time.Time
}

// Quizzes abandoned mid-run (browser closed, tab forgotten) hold a full
// question set in memory; after this long they are evicted. The score-0
// attempt row stays in history either way.
const sessionTTL = 2 * time.Hour

func main() {
	var (
		configFile = flag.String("config", "", "Path to yaml config file (optional)")
		verbose    = flag.Bool("verbose", false, "Enable verbose debugging output")
	)
	flag.Parse()

	skillquiz.SetVerbose(*verbose || os.Getenv("VERBOSE") != "")

	cfg, err := skillquiz.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Generator.APIKey == "" {
		log.Fatal("Generator API key is required. Set GENERATOR_API_KEY or generator.api_key in the config file.")
	}

	db, err := skillquiz.OpenDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	secret := cfg.Session.Secret
	if secret == "" {
		secret = "skillquiz-dev-secret"
	}

	server := &Server{
		store:     db,
		generator: skillquiz.NewGeneratorClient(cfg.Generator.BaseURL, cfg.Generator.APIKey),
		cookies:   sessions.NewCookieStore([]byte(secret)),
		templates: loadTemplates(),
		active:    make(map[string]activeEntry),
	}
	go server.sweepSessions(10 * time.Minute)

	log.Printf("Starting server on %s", cfg.Server.Addr)
	log.Fatal(http.ListenAndServe(cfg.Server.Addr, server.routes()))
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSelection)
	mux.HandleFunc("/quiz/start", s.handleStart)
	mux.HandleFunc("/quiz/question", s.handleQuestion)
	mux.HandleFunc("/quiz/results", s.handleResults)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/history/clear", s.handleClearHistory)
	return mux
}

func loadTemplates() map[string]*template.Template {
	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"percent": skillquiz.Percentage,
		"join":    skillquiz.JoinSubjects,
	}

	templates := make(map[string]*template.Template)

	templateFiles := []struct {
		name string
		file string
	}{
		{"selection", "templates/selection.html"},
		{"question", "templates/question.html"},
		{"results", "templates/results.html"},
		{"history", "templates/history.html"},
		{"error", "templates/error.html"},
	}

	for _, tmpl := range templateFiles {
		templates[tmpl.name] = template.Must(
			template.New(tmpl.name).Funcs(funcMap).ParseFiles("templates/base.html", tmpl.file))
	}

	return templates
}

const cookieName = "skillquiz-session"

// owner returns the browser's stable identity, minting one on first visit.
// It stands in for the authentication collaborator: every store call is
// scoped to this value.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) string {
	session, _ := s.cookies.Get(r, cookieName)
	if owner, ok := session.Values["owner"].(string); ok && owner != "" {
		return owner
	}

	owner := randomID(16)
	session.Values["owner"] = owner
	if err := session.Save(r, w); err != nil {
		log.Printf("Session save error: %v", err)
	}
	return owner
}

func (s *Server) currentSession(r *http.Request) *skillquiz.QuizSession {
	session, _ := s.cookies.Get(r, cookieName)
	key, ok := session.Values["quiz"].(string)
	if !ok || key == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[key].quiz
}

// registerSession replaces the browser's registered quiz. Starting a new quiz
// abandons the previous one, so its registry entry is removed rather than
// left to the sweeper.
func (s *Server) registerSession(w http.ResponseWriter, r *http.Request, quiz *skillquiz.QuizSession) {
	key := randomID(12)
	session, _ := s.cookies.Get(r, cookieName)

	s.mu.Lock()
	if prev, ok := session.Values["quiz"].(string); ok && prev != "" {
		delete(s.active, prev)
	}
	s.active[key] = activeEntry{quiz: quiz, started: time.Now()}
	s.mu.Unlock()

	session.Values["quiz"] = key
	if err := session.Save(r, w); err != nil {
		log.Printf("Session save error: %v", err)
	}
}

func (s *Server) dropSession(r *http.Request) {
	session, _ := s.cookies.Get(r, cookieName)
	key, ok := session.Values["quiz"].(string)
	if !ok {
		return
	}

	s.mu.Lock()
	delete(s.active, key)
	s.mu.Unlock()
}

// sweepSessions evicts registry entries older than sessionTTL.
func (s *Server) sweepSessions(interval time.Duration) {
	for range time.Tick(interval) {
		cutoff := time.Now().Add(-sessionTTL)

		s.mu.Lock()
		for key, entry := range s.active {
			if entry.started.Before(cutoff) {
				delete(s.active, key)
			}
		}
		s.mu.Unlock()
	}
}

func randomID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
