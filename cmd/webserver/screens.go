package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"skillquiz"
)

// optionView pairs a label with its text for template iteration in label
// order.
type optionView struct {
	Label string
	Text  string
}

func optionViews(options map[string]string) []optionView {
	views := make([]optionView, 0, len(skillquiz.OptionLabels))
	for _, label := range skillquiz.OptionLabels {
		views = append(views, optionView{Label: label, Text: options[label]})
	}
	return views
}

// handleSelection renders the selection screen: skill level, subjects and
// question count.
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.render(w, "selection", map[string]interface{}{
		"Levels": skillquiz.SkillLevels,
		"Subjects": []string{
			"Mathematics", "Science", "History", "Geography", "Literature", "Computer Science",
		},
	})
}

// handleStart validates the carried-over selection and runs the loading
// stage. An incomplete selection sends the user back to the selection screen
// without creating anything; a generation or persistence failure is shown as
// a short message.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	owner := s.owner(w, r)

	level, err := skillquiz.ParseSkillLevel(r.FormValue("skill_level"))
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	subjects := make([]string, 0, len(r.Form["subject"]))
	for _, subject := range r.Form["subject"] {
		if subject = strings.TrimSpace(subject); subject != "" {
			subjects = append(subjects, subject)
		}
	}
	if custom := strings.TrimSpace(r.FormValue("custom_subject")); custom != "" {
		subjects = append(subjects, custom)
	}

	count, err := strconv.Atoi(r.FormValue("question_count"))
	if err != nil {
		count = 0
	}

	quiz, err := skillquiz.NewQuizSession(owner, level, subjects, count)
	if err != nil {
		// Incomplete selection is a caller error, not a failure: back to the
		// selection screen, no attempt record created.
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := quiz.Start(r.Context(), s.generator, s.store); err != nil {
		log.Printf("Quiz start failed for %s: %v", owner, err)
		s.renderError(w, userMessage(err))
		return
	}

	s.registerSession(w, r, quiz)
	http.Redirect(w, r, "/quiz/question", http.StatusSeeOther)
}

// handleQuestion shows the current question and processes answer and
// navigation input. Answers live only in session memory until submission.
func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	quiz := s.currentSession(r)
	if quiz == nil || quiz.State() != skillquiz.StateInProgress {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}

		if answer := r.FormValue("answer"); answer != "" {
			if err := quiz.Answer(answer); err != nil {
				http.Error(w, "Invalid answer", http.StatusBadRequest)
				return
			}
		}

		switch r.FormValue("action") {
		case "prev":
			quiz.Prev()
		case "next":
			quiz.Next()
		case "submit":
			if !quiz.OnLastQuestion() {
				http.Redirect(w, r, "/quiz/question", http.StatusSeeOther)
				return
			}
			if err := quiz.Submit(r.Context(), s.store); err != nil {
				log.Printf("Submission failed for attempt %d: %v", quiz.AttemptID(), err)
				s.renderError(w, userMessage(err))
				return
			}
			// The quiz is persisted; the results screen reads it back from
			// the store, so the in-memory session is done.
			s.dropSession(r)
			http.Redirect(w, r, "/quiz/results?attempt="+strconv.FormatInt(quiz.AttemptID(), 10), http.StatusSeeOther)
			return
		}

		http.Redirect(w, r, "/quiz/question", http.StatusSeeOther)
		return
	}

	question, err := quiz.Current()
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.render(w, "question", map[string]interface{}{
		"Number":   quiz.Cursor() + 1,
		"Total":    quiz.TotalQuestions(),
		"Question": question.Text,
		"Options":  optionViews(question.Options),
		"Selected": quiz.CurrentAnswer(),
		"IsFirst":  quiz.Cursor() == 0,
		"IsLast":   quiz.OnLastQuestion(),
	})
}

// handleResults renders the review screen from the persisted records, so the
// page also works after the in-memory session is gone. It never touches the
// session registry: the history screen links here for past attempts, and
// reviewing one must not disturb a quiz in progress.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)

	attemptID, err := strconv.ParseInt(r.URL.Query().Get("attempt"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/history", http.StatusSeeOther)
		return
	}

	questions, err := s.store.ListQuestions(r.Context(), owner, attemptID)
	if err != nil {
		if errors.Is(err, skillquiz.ErrAttemptNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Printf("Failed to load questions for attempt %d: %v", attemptID, err)
		s.renderError(w, userMessage(err))
		return
	}

	var attempt skillquiz.QuizAttempt
	attempts, err := s.store.ListAttempts(r.Context(), owner)
	if err != nil {
		log.Printf("Failed to load attempts for %s: %v", owner, err)
		s.renderError(w, userMessage(err))
		return
	}
	for _, candidate := range attempts {
		if candidate.ID == attemptID {
			attempt = candidate
			break
		}
	}

	percent := 0
	if attempt.TotalQuestions > 0 {
		percent = skillquiz.Percentage(attempt.Score, attempt.TotalQuestions)
	}

	s.render(w, "results", map[string]interface{}{
		"Attempt":   attempt,
		"Percent":   percent,
		"Questions": questionResultViews(questions),
	})
}

type questionResultView struct {
	Number        int
	Text          string
	Options       []optionView
	CorrectAnswer string
	UserAnswer    string
	Correct       bool
	Answered      bool
	Explanation   string
}

func questionResultViews(questions []skillquiz.QuizQuestion) []questionResultView {
	views := make([]questionResultView, 0, len(questions))
	for i, question := range questions {
		views = append(views, questionResultView{
			Number:        i + 1,
			Text:          question.Text,
			Options:       optionViews(question.Options),
			CorrectAnswer: question.CorrectAnswer,
			UserAnswer:    question.UserAnswer,
			Correct:       question.UserAnswer != "" && question.UserAnswer == question.CorrectAnswer,
			Answered:      question.UserAnswer != "",
			Explanation:   question.Explanation,
		})
	}
	return views
}

// handleHistory shows the aggregate summary and the reverse-chronological
// attempt list.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)

	attempts, err := s.store.ListAttempts(r.Context(), owner)
	if err != nil {
		log.Printf("Failed to load history for %s: %v", owner, err)
		s.renderError(w, userMessage(err))
		return
	}

	s.render(w, "history", map[string]interface{}{
		"Summary":  skillquiz.Summarize(attempts),
		"Attempts": attempts,
	})
}

// handleClearHistory irreversibly deletes the owner's attempts. The
// confirmation dialog lives on the history screen.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	owner := s.owner(w, r)
	if err := skillquiz.ClearHistory(r.Context(), s.store, owner); err != nil {
		log.Printf("Failed to clear history for %s: %v", owner, err)
		s.renderError(w, userMessage(err))
		return
	}

	http.Redirect(w, r, "/history", http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	if err := s.templates[name].ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Template error in %s: %v", name, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (s *Server) renderError(w http.ResponseWriter, message string) {
	s.render(w, "error", map[string]interface{}{
		"Message": message,
	})
}

// userMessage maps the error taxonomy onto the short messages shown at the
// stage boundary. Nothing here crashes the application; the user returns to
// the selection screen and may retry.
func userMessage(err error) string {
	var persistErr *skillquiz.PersistenceError
	var upstreamErr *skillquiz.UpstreamError

	switch {
	case errors.Is(err, skillquiz.ErrMissingAPIKey):
		return "The question service is not configured. Please contact the administrator."
	case errors.Is(err, skillquiz.ErrRateLimited):
		return "The question service is busy right now. Please try again in a minute."
	case errors.Is(err, skillquiz.ErrPaymentRequired):
		return "The question service reported a billing problem. Please contact the administrator."
	case errors.As(err, &persistErr):
		return "Your quiz could not be saved. Please try again."
	case errors.As(err, &upstreamErr):
		return "The question service returned an unexpected response. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
