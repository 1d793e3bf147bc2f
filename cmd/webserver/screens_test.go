package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"skillquiz"

	"github.com/gorilla/sessions"
)

// memStore is an in-memory AttemptStore for handler tests.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	order     []int64
	attempts  map[int64]skillquiz.QuizAttempt
	questions map[int64][]skillquiz.QuizQuestion
}

func newMemStore() *memStore {
	return &memStore{
		attempts:  make(map[int64]skillquiz.QuizAttempt),
		questions: make(map[int64][]skillquiz.QuizQuestion),
	}
}

func (m *memStore) CreateAttempt(ctx context.Context, owner string, level skillquiz.SkillLevel, subjects []string, questionCount, totalQuestions int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.attempts[m.nextID] = skillquiz.QuizAttempt{
		ID:             m.nextID,
		Owner:          owner,
		SkillLevel:     level,
		Subjects:       subjects,
		QuestionCount:  questionCount,
		TotalQuestions: totalQuestions,
	}
	m.order = append(m.order, m.nextID)
	return m.nextID, nil
}

func (m *memStore) FinalizeAttempt(ctx context.Context, owner string, attemptID int64, questions []skillquiz.QuizQuestion, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempt, ok := m.attempts[attemptID]
	if !ok || attempt.Owner != owner {
		return skillquiz.ErrAttemptNotFound
	}
	attempt.Score = score
	m.attempts[attemptID] = attempt
	m.questions[attemptID] = questions
	return nil
}

func (m *memStore) ListAttempts(ctx context.Context, owner string) ([]skillquiz.QuizAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var attempts []skillquiz.QuizAttempt
	for i := len(m.order) - 1; i >= 0; i-- {
		if attempt := m.attempts[m.order[i]]; attempt.Owner == owner {
			attempts = append(attempts, attempt)
		}
	}
	return attempts, nil
}

func (m *memStore) ListQuestions(ctx context.Context, owner string, attemptID int64) ([]skillquiz.QuizQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempt, ok := m.attempts[attemptID]
	if !ok || attempt.Owner != owner {
		return nil, skillquiz.ErrAttemptNotFound
	}
	return m.questions[attemptID], nil
}

func (m *memStore) DeleteAttempts(ctx context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, attempt := range m.attempts {
		if attempt.Owner == owner {
			delete(m.attempts, id)
			delete(m.questions, id)
		}
	}
	return nil
}

// fixedSource generates the requested number of questions, correct answer B
// throughout.
type fixedSource struct{}

func (f *fixedSource) Generate(ctx context.Context, subjects []string, level skillquiz.SkillLevel, count int) ([]skillquiz.GeneratedQuestion, error) {
	questions := make([]skillquiz.GeneratedQuestion, count)
	for i := range questions {
		questions[i] = skillquiz.GeneratedQuestion{
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       map[string]string{"A": "first", "B": "second", "C": "third", "D": "fourth"},
			CorrectAnswer: "B",
			Explanation:   "second is right",
		}
	}
	return questions, nil
}

// newTestServer wires a Server over in-memory fakes. The returned client
// carries the browser cookie but does not follow redirects, so tests can
// assert on Location headers.
func newTestServer(t *testing.T) (*Server, *memStore, *httptest.Server, *http.Client) {
	t.Helper()

	store := newMemStore()
	server := &Server{
		store:     store,
		generator: &fixedSource{},
		cookies:   sessions.NewCookieStore([]byte("test-secret")),
		templates: loadTemplates(),
		active:    make(map[string]activeEntry),
	}

	ts := httptest.NewServer(server.routes())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return server, store, ts, client
}

func (s *Server) registeredSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func postForm(t *testing.T, client *http.Client, target string, form url.Values) *http.Response {
	t.Helper()

	resp, err := client.PostForm(target, form)
	if err != nil {
		t.Fatalf("POST %s failed: %v", target, err)
	}
	resp.Body.Close()
	return resp
}

func get(t *testing.T, client *http.Client, target string) *http.Response {
	t.Helper()

	resp, err := client.Get(target)
	if err != nil {
		t.Fatalf("GET %s failed: %v", target, err)
	}
	resp.Body.Close()
	return resp
}

func startQuiz(t *testing.T, client *http.Client, baseURL string, count int) {
	t.Helper()

	resp := postForm(t, client, baseURL+"/quiz/start", url.Values{
		"skill_level":    {"Intermediate"},
		"subject":        {"Mathematics"},
		"question_count": {strconv.Itoa(count)},
	})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/quiz/question" {
		t.Fatalf("start = %d -> %q, want 303 -> /quiz/question", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestQuizFlowOverHTTP(t *testing.T) {
	server, store, ts, client := newTestServer(t)

	startQuiz(t, client, ts.URL, 2)

	if resp := get(t, client, ts.URL+"/quiz/question"); resp.StatusCode != http.StatusOK {
		t.Fatalf("question screen = %d, want 200", resp.StatusCode)
	}

	resp := postForm(t, client, ts.URL+"/quiz/question", url.Values{
		"answer": {"B"},
		"action": {"next"},
	})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/quiz/question" {
		t.Fatalf("next = %d -> %q, want 303 -> /quiz/question", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = postForm(t, client, ts.URL+"/quiz/question", url.Values{
		"answer": {"B"},
		"action": {"submit"},
	})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/quiz/results?attempt=1" {
		t.Fatalf("submit = %d -> %q, want 303 -> /quiz/results?attempt=1", resp.StatusCode, resp.Header.Get("Location"))
	}

	// Submission retires the in-memory session; the results screen serves
	// from the store.
	if n := server.registeredSessions(); n != 0 {
		t.Fatalf("registry holds %d sessions after submit, want 0", n)
	}
	if resp := get(t, client, ts.URL+"/quiz/results?attempt=1"); resp.StatusCode != http.StatusOK {
		t.Fatalf("results screen = %d, want 200", resp.StatusCode)
	}

	store.mu.Lock()
	attempt := store.attempts[1]
	store.mu.Unlock()
	if attempt.Score != 2 || attempt.TotalQuestions != 2 {
		t.Fatalf("persisted attempt = %+v, want score 2 of 2", attempt)
	}
}

// Reviewing an old attempt from the history screen must not touch the quiz
// currently in progress.
func TestResultsViewKeepsQuizInProgress(t *testing.T) {
	server, _, ts, client := newTestServer(t)

	// Finish a first quiz so history has an attempt to review.
	startQuiz(t, client, ts.URL, 1)
	postForm(t, client, ts.URL+"/quiz/question", url.Values{
		"answer": {"B"},
		"action": {"submit"},
	})

	// Start a second quiz and view the old attempt's results mid-run.
	startQuiz(t, client, ts.URL, 2)
	if resp := get(t, client, ts.URL+"/quiz/results?attempt=1"); resp.StatusCode != http.StatusOK {
		t.Fatalf("old results screen = %d, want 200", resp.StatusCode)
	}

	if n := server.registeredSessions(); n != 1 {
		t.Fatalf("registry holds %d sessions after reviewing old attempt, want 1", n)
	}
	if resp := get(t, client, ts.URL+"/quiz/question"); resp.StatusCode != http.StatusOK {
		t.Fatalf("question screen after reviewing old attempt = %d, want 200 (quiz lost)", resp.StatusCode)
	}
}

// Starting a new quiz abandons the previous one; its registry entry must be
// replaced, not leaked.
func TestStartReplacesRegisteredSession(t *testing.T) {
	server, _, ts, client := newTestServer(t)

	startQuiz(t, client, ts.URL, 2)
	startQuiz(t, client, ts.URL, 3)

	if n := server.registeredSessions(); n != 1 {
		t.Fatalf("registry holds %d sessions after restart, want 1", n)
	}
}

func TestClearHistoryOverHTTP(t *testing.T) {
	_, store, ts, client := newTestServer(t)

	startQuiz(t, client, ts.URL, 1)
	postForm(t, client, ts.URL+"/quiz/question", url.Values{
		"answer": {"A"},
		"action": {"submit"},
	})

	if resp := get(t, client, ts.URL+"/history"); resp.StatusCode != http.StatusOK {
		t.Fatalf("history screen = %d, want 200", resp.StatusCode)
	}

	resp := postForm(t, client, ts.URL+"/history/clear", nil)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/history" {
		t.Fatalf("clear = %d -> %q, want 303 -> /history", resp.StatusCode, resp.Header.Get("Location"))
	}

	store.mu.Lock()
	remaining := len(store.attempts)
	store.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("%d attempts survived the clear", remaining)
	}

	if resp := get(t, client, ts.URL+"/history/clear"); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET clear = %d, want 405", resp.StatusCode)
	}
}
