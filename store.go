package skillquiz

import "context"

// AttemptStore persists quiz attempts and their question records. Every
// operation takes the owner explicitly and touches only that owner's rows.
type AttemptStore interface {
	// CreateAttempt inserts a new attempt with score 0 and returns its id.
	CreateAttempt(ctx context.Context, owner string, level SkillLevel, subjects []string, questionCount, totalQuestions int) (int64, error)

	// FinalizeAttempt writes the attempt's question records in question order
	// and sets the final score. Inserts and the score update run as a single
	// transaction: either the whole submission lands or none of it does.
	FinalizeAttempt(ctx context.Context, owner string, attemptID int64, questions []QuizQuestion, score int) error

	// ListAttempts returns the owner's attempts newest first.
	ListAttempts(ctx context.Context, owner string) ([]QuizAttempt, error)

	// ListQuestions returns the question records of one attempt in insertion
	// order, or ErrAttemptNotFound if the attempt is not owned by owner.
	ListQuestions(ctx context.Context, owner string, attemptID int64) ([]QuizQuestion, error)

	// DeleteAttempts removes all of the owner's attempts and, by cascade,
	// their question records. Irreversible.
	DeleteAttempts(ctx context.Context, owner string) error
}
