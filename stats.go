package skillquiz

import (
	"context"
	"math"
)

// Summarize computes the aggregate performance figures for a user's attempt
// history. The average is weighted by question count across all attempts,
// not a mean of per-attempt percentages. An empty history yields all zeros.
func Summarize(attempts []QuizAttempt) Summary {
	if len(attempts) == 0 {
		return Summary{}
	}

	var scoreSum, totalSum, best int
	for _, attempt := range attempts {
		scoreSum += attempt.Score
		totalSum += attempt.TotalQuestions
		if attempt.TotalQuestions > 0 {
			if p := Percentage(attempt.Score, attempt.TotalQuestions); p > best {
				best = p
			}
		}
	}

	average := 0
	if totalSum > 0 {
		average = Percentage(scoreSum, totalSum)
	}

	return Summary{
		Count:             len(attempts),
		AveragePercentage: average,
		BestPercentage:    best,
	}
}

// Percentage rounds 100*score/total to the nearest integer.
func Percentage(score, total int) int {
	return int(math.Round(100 * float64(score) / float64(total)))
}

// ClearHistory deletes all of the owner's attempts and their question
// records. The confirmation step belongs to the presentation layer; by the
// time this runs the deletion is final.
func ClearHistory(ctx context.Context, store AttemptStore, owner string) error {
	if err := store.DeleteAttempts(ctx, owner); err != nil {
		return &PersistenceError{Op: "clear history", Err: err}
	}
	return nil
}
