package skillquiz

import (
	"context"
	"fmt"
	"sync"
)

// SessionState names the stages of one quiz run.
type SessionState string

const (
	StateInitializing SessionState = "initializing"
	StateLoading      SessionState = "loading"
	StateInProgress   SessionState = "in_progress"
	StateSubmitting   SessionState = "submitting"
	StateComplete     SessionState = "complete"
	StateFailed       SessionState = "failed"
)

// QuestionSource produces the question set for one attempt. GeneratorClient
// is the production implementation.
type QuestionSource interface {
	Generate(ctx context.Context, subjects []string, level SkillLevel, count int) ([]GeneratedQuestion, error)
}

// QuizSession drives one quiz run for one user: it loads questions, tracks
// the cursor and collected answers in memory, and persists the finished
// attempt in a single batch at submission. Nothing is written per answer.
//
// A browser can issue overlapping requests against the same session (double
// clicks, two tabs), so every operation takes the session mutex.
type QuizSession struct {
	mu sync.Mutex

	owner         string
	level         SkillLevel
	subjects      []string
	questionCount int

	state     SessionState
	failure   error
	attemptID int64
	score     int

	questions []GeneratedQuestion
	cursor    int
	answers   map[int]string
}

// NewQuizSession validates the selection parameters carried over from the
// selection screen. Missing parameters are a caller error: the session is
// never created and no attempt row is written.
func NewQuizSession(owner string, level SkillLevel, subjects []string, questionCount int) (*QuizSession, error) {
	if owner == "" || len(subjects) == 0 || questionCount <= 0 {
		return nil, ErrInvalidParams
	}
	if _, err := ParseSkillLevel(string(level)); err != nil {
		return nil, ErrInvalidParams
	}

	return &QuizSession{
		owner:         owner,
		level:         level,
		subjects:      subjects,
		questionCount: questionCount,
		state:         StateInitializing,
		answers:       make(map[int]string),
	}, nil
}

// Start fetches the question set and creates the attempt record (score 0).
// A generation failure leaves no attempt row behind; a persistence failure
// cannot either, because creating the row is the only write.
func (s *QuizSession) Start(ctx context.Context, source QuestionSource, store AttemptStore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInitializing {
		return fmt.Errorf("cannot start session in state %s", s.state)
	}

	s.state = StateLoading
	questions, err := source.Generate(ctx, s.subjects, s.level, s.questionCount)
	if err != nil {
		return s.fail(err)
	}
	if len(questions) == 0 {
		return s.fail(&UpstreamError{StatusCode: 200, Message: "oracle returned no questions"})
	}

	attemptID, err := store.CreateAttempt(ctx, s.owner, s.level, s.subjects, s.questionCount, len(questions))
	if err != nil {
		return s.fail(&PersistenceError{Op: "create attempt", Err: err})
	}

	s.questions = questions
	s.attemptID = attemptID
	s.cursor = 0
	s.state = StateInProgress
	VerboseLog("Session for %s started: attempt %d with %d questions", s.owner, attemptID, len(questions))
	return nil
}

// State reports the current lifecycle stage.
func (s *QuizSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that moved the session to StateFailed, if any.
func (s *QuizSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// AttemptID returns the persisted attempt id, valid from StateInProgress on.
func (s *QuizSession) AttemptID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attemptID
}

// Score returns the final score, valid once the session is complete.
func (s *QuizSession) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// TotalQuestions returns the number of questions actually generated.
func (s *QuizSession) TotalQuestions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions)
}

// Cursor returns the zero-based index of the current question.
func (s *QuizSession) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Current returns the question under the cursor.
func (s *QuizSession) Current() (GeneratedQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return GeneratedQuestion{}, fmt.Errorf("no current question in state %s", s.state)
	}
	return s.questions[s.cursor], nil
}

// CurrentAnswer returns the recorded answer for the current question, or ""
// if it is unanswered.
func (s *QuizSession) CurrentAnswer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers[s.cursor]
}

// Next moves the cursor forward by one. Moving past the last question is a
// no-op; there is no wraparound.
func (s *QuizSession) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInProgress && s.cursor < len(s.questions)-1 {
		s.cursor++
	}
}

// Prev moves the cursor back by one. Moving before the first question is a
// no-op.
func (s *QuizSession) Prev() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInProgress && s.cursor > 0 {
		s.cursor--
	}
}

// OnLastQuestion reports whether the cursor sits on the final question.
func (s *QuizSession) OnLastQuestion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onLast()
}

func (s *QuizSession) onLast() bool {
	return s.state == StateInProgress && s.cursor == len(s.questions)-1
}

// Answer records (or overwrites) the user's choice for the current question.
// Labels match case-sensitively against the fixed option set.
func (s *QuizSession) Answer(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return fmt.Errorf("cannot answer in state %s", s.state)
	}
	if _, ok := s.questions[s.cursor].Options[label]; !ok {
		return fmt.Errorf("invalid answer label %q", label)
	}
	s.answers[s.cursor] = label
	return nil
}

// Submit tallies the score and persists the full submission. It is only
// valid from the last question. Unanswered questions are written with an
// empty user answer and never count as correct.
func (s *QuizSession) Submit(ctx context.Context, store AttemptStore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.onLast() {
		return fmt.Errorf("cannot submit from question %d of %d", s.cursor+1, len(s.questions))
	}

	s.state = StateSubmitting

	score := 0
	records := make([]QuizQuestion, 0, len(s.questions))
	for i, question := range s.questions {
		answer := s.answers[i]
		if answer != "" && answer == question.CorrectAnswer {
			score++
		}
		records = append(records, QuizQuestion{
			AttemptID:     s.attemptID,
			Text:          question.Text,
			Options:       question.Options,
			CorrectAnswer: question.CorrectAnswer,
			UserAnswer:    answer,
			Explanation:   question.Explanation,
		})
	}

	if err := store.FinalizeAttempt(ctx, s.owner, s.attemptID, records, score); err != nil {
		return s.fail(&PersistenceError{Op: "finalize attempt", Err: err})
	}

	s.score = score
	s.state = StateComplete
	VerboseLog("Session for %s complete: attempt %d scored %d/%d", s.owner, s.attemptID, score, len(s.questions))
	return nil
}

func (s *QuizSession) fail(err error) error {
	s.state = StateFailed
	s.failure = err
	return err
}
