package skillquiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the sqlite-backed AttemptStore.
type SQLiteStore struct {
	db *sql.DB
}

// OpenDB opens (and if necessary creates) the quiz database at dbPath.
func OpenDB(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = "skillquiz.db"
	}

	// The pragmas ride in the DSN so they apply to every connection the pool
	// opens, not just the first one. foreign_keys in particular is
	// per-connection state and the cascade depends on it.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection sidesteps sqlite writer contention between the
	// webserver's request goroutines.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS quiz_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			skill_level TEXT NOT NULL,
			subjects TEXT NOT NULL,
			question_count INTEGER NOT NULL,
			total_questions INTEGER NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS quiz_questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			attempt_id INTEGER NOT NULL,
			question_text TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_answer TEXT NOT NULL,
			user_answer TEXT,
			explanation TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (attempt_id) REFERENCES quiz_attempts(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_owner_created ON quiz_attempts(owner, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_attempt ON quiz_questions(attempt_id);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute %s: %w", stmt, err)
		}
	}
	return nil
}

// CreateAttempt inserts a fresh attempt row with score 0.
func (s *SQLiteStore) CreateAttempt(ctx context.Context, owner string, level SkillLevel, subjects []string, questionCount, totalQuestions int) (int64, error) {
	subjectsJSON, err := subjectsToJSON(subjects)
	if err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(
		ctx,
		`INSERT INTO quiz_attempts (owner, skill_level, subjects, question_count, total_questions, score, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		owner, string(level), subjectsJSON, questionCount, totalQuestions, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read attempt id: %w", err)
	}
	return id, nil
}

// FinalizeAttempt writes all question records for an attempt and sets its
// score in one transaction. Question inserts happen in slice order and the
// score update runs strictly after them; a failure anywhere rolls the whole
// submission back, so an attempt never ends up with questions but a stale
// score.
func (s *SQLiteStore) FinalizeAttempt(ctx context.Context, owner string, attemptID int64, questions []QuizQuestion, score int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var total int
	err = tx.QueryRowContext(
		ctx,
		`SELECT total_questions FROM quiz_attempts WHERE id = ? AND owner = ?`,
		attemptID, owner,
	).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to load attempt: %w", err)
	}

	if score < 0 || score > total {
		return fmt.Errorf("score %d out of range for %d questions", score, total)
	}

	now := time.Now().UTC()
	for i, question := range questions {
		optionsJSON, err := optionsToJSON(question.Options)
		if err != nil {
			return err
		}

		var userAnswer sql.NullString
		if question.UserAnswer != "" {
			userAnswer = sql.NullString{String: question.UserAnswer, Valid: true}
		}

		// Millisecond offsets keep created_at ordering aligned with question
		// order even within one submission.
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO quiz_questions (attempt_id, question_text, options, correct_answer, user_answer, explanation, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			attemptID, question.Text, optionsJSON, question.CorrectAnswer, userAnswer, question.Explanation,
			now.Add(time.Duration(i)*time.Millisecond),
		)
		if err != nil {
			return fmt.Errorf("failed to insert question %d: %w", i+1, err)
		}
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE quiz_attempts SET score = ? WHERE id = ? AND owner = ?`,
		score, attemptID, owner,
	); err != nil {
		return fmt.Errorf("failed to update score: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit submission: %w", err)
	}
	return nil
}

// ListAttempts returns the owner's attempts newest first.
func (s *SQLiteStore) ListAttempts(ctx context.Context, owner string) ([]QuizAttempt, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, owner, skill_level, subjects, question_count, total_questions, score, created_at
		 FROM quiz_attempts
		 WHERE owner = ?
		 ORDER BY created_at DESC, id DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []QuizAttempt
	for rows.Next() {
		var (
			attempt      QuizAttempt
			subjectsJSON string
			level        string
		)
		if err := rows.Scan(&attempt.ID, &attempt.Owner, &level, &subjectsJSON,
			&attempt.QuestionCount, &attempt.TotalQuestions, &attempt.Score, &attempt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempt.SkillLevel = SkillLevel(level)
		if attempt.Subjects, err = jsonToSubjects(subjectsJSON); err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}
	return attempts, nil
}

// ListQuestions returns one attempt's question records in insertion order.
func (s *SQLiteStore) ListQuestions(ctx context.Context, owner string, attemptID int64) ([]QuizQuestion, error) {
	var exists bool
	err := s.db.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM quiz_attempts WHERE id = ? AND owner = ?)`,
		attemptID, owner,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check attempt: %w", err)
	}
	if !exists {
		return nil, ErrAttemptNotFound
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, attempt_id, question_text, options, correct_answer, user_answer, explanation, created_at
		 FROM quiz_questions
		 WHERE attempt_id = ?
		 ORDER BY created_at ASC, id ASC`,
		attemptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []QuizQuestion
	for rows.Next() {
		var (
			question    QuizQuestion
			optionsJSON string
			userAnswer  sql.NullString
			explanation sql.NullString
		)
		if err := rows.Scan(&question.ID, &question.AttemptID, &question.Text, &optionsJSON,
			&question.CorrectAnswer, &userAnswer, &explanation, &question.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if question.Options, err = jsonToOptions(optionsJSON); err != nil {
			return nil, err
		}
		question.UserAnswer = userAnswer.String
		question.Explanation = explanation.String
		questions = append(questions, question)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return questions, nil
}

// DeleteAttempts removes all of the owner's attempts; the foreign key cascade
// removes their question records.
func (s *SQLiteStore) DeleteAttempts(ctx context.Context, owner string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM quiz_attempts WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("failed to delete attempts: %w", err)
	}
	return nil
}

func optionsToJSON(options map[string]string) (string, error) {
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("failed to marshal options: %w", err)
	}
	return string(data), nil
}

func jsonToOptions(optionsJSON string) (map[string]string, error) {
	var options map[string]string
	if err := json.Unmarshal([]byte(optionsJSON), &options); err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	return options, nil
}

func subjectsToJSON(subjects []string) (string, error) {
	data, err := json.Marshal(subjects)
	if err != nil {
		return "", fmt.Errorf("failed to marshal subjects: %w", err)
	}
	return string(data), nil
}

func jsonToSubjects(subjectsJSON string) ([]string, error) {
	var subjects []string
	if err := json.Unmarshal([]byte(subjectsJSON), &subjects); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subjects: %w", err)
	}
	return subjects, nil
}
