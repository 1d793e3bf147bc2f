package skillquiz

import "testing"

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil)
	if got.Count != 0 || got.AveragePercentage != 0 || got.BestPercentage != 0 {
		t.Fatalf("Summarize(nil) = %+v, want all zeros", got)
	}
}

func TestSummarizeWeightedAverage(t *testing.T) {
	attempts := []QuizAttempt{
		{Score: 8, TotalQuestions: 10},
		{Score: 5, TotalQuestions: 10},
	}

	got := Summarize(attempts)
	if got.Count != 2 {
		t.Fatalf("Count = %d, want 2", got.Count)
	}
	// Weighted: 13/20 = 65, not the mean of 80 and 50.
	if got.AveragePercentage != 65 {
		t.Fatalf("AveragePercentage = %d, want 65", got.AveragePercentage)
	}
	if got.BestPercentage != 80 {
		t.Fatalf("BestPercentage = %d, want 80", got.BestPercentage)
	}
}

func TestSummarizeUnevenTotals(t *testing.T) {
	attempts := []QuizAttempt{
		{Score: 3, TotalQuestions: 5},
		{Score: 1, TotalQuestions: 3},
	}

	got := Summarize(attempts)
	if got.AveragePercentage != 50 {
		t.Fatalf("AveragePercentage = %d, want 50", got.AveragePercentage)
	}
	if got.BestPercentage != 60 {
		t.Fatalf("BestPercentage = %d, want 60", got.BestPercentage)
	}
}

func TestPercentageRounding(t *testing.T) {
	cases := []struct {
		score, total, want int
	}{
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{5, 5, 100},
		{0, 5, 0},
	}
	for _, tc := range cases {
		if got := Percentage(tc.score, tc.total); got != tc.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", tc.score, tc.total, got, tc.want)
		}
	}
}
