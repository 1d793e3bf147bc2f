package skillquiz

import (
	"fmt"
	"strings"
	"time"
)

// SkillLevel is the coarse difficulty selector passed to the oracle.
type SkillLevel string

const (
	LevelBeginner     SkillLevel = "Beginner"
	LevelIntermediate SkillLevel = "Intermediate"
	LevelAdvanced     SkillLevel = "Advanced"
)

// SkillLevels lists the valid levels in display order.
var SkillLevels = []SkillLevel{LevelBeginner, LevelIntermediate, LevelAdvanced}

// ParseSkillLevel maps user input onto one of the fixed levels.
func ParseSkillLevel(s string) (SkillLevel, error) {
	for _, level := range SkillLevels {
		if strings.EqualFold(strings.TrimSpace(s), string(level)) {
			return level, nil
		}
	}
	return "", fmt.Errorf("unknown skill level %q", s)
}

// OptionLabels is the fixed label set every question must carry.
var OptionLabels = []string{"A", "B", "C", "D"}

// GeneratedQuestion is one multiple choice question as returned by the oracle.
type GeneratedQuestion struct {
	Text          string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation"`
}

// Validate checks the structural contract: non-empty text, exactly the four
// labels A-D, and a correct answer that is one of them.
func (q GeneratedQuestion) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(q.Options) != len(OptionLabels) {
		return fmt.Errorf("expected %d options, got %d", len(OptionLabels), len(q.Options))
	}
	for _, label := range OptionLabels {
		if _, ok := q.Options[label]; !ok {
			return fmt.Errorf("missing option %q", label)
		}
	}
	if _, ok := q.Options[q.CorrectAnswer]; !ok {
		return fmt.Errorf("correct answer %q is not an option label", q.CorrectAnswer)
	}
	return nil
}

// QuizAttempt is one complete or partial run of a quiz by one user.
// Score stays 0 from creation until submission and never exceeds
// TotalQuestions.
type QuizAttempt struct {
	ID             int64      `json:"id"`
	Owner          string     `json:"owner"`
	SkillLevel     SkillLevel `json:"skill_level"`
	Subjects       []string   `json:"subjects"`
	QuestionCount  int        `json:"question_count"`
	TotalQuestions int        `json:"total_questions"`
	Score          int        `json:"score"`
	CreatedAt      time.Time  `json:"created_at"`
}

// QuizQuestion is the persisted review record for one question of an attempt.
// An empty UserAnswer means the question was left unanswered.
type QuizQuestion struct {
	ID            int64             `json:"id"`
	AttemptID     int64             `json:"attempt_id"`
	Text          string            `json:"question_text"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	UserAnswer    string            `json:"user_answer,omitempty"`
	Explanation   string            `json:"explanation"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Summary holds the aggregate performance figures shown on the history screen.
type Summary struct {
	Count             int `json:"count"`
	AveragePercentage int `json:"average_percentage"`
	BestPercentage    int `json:"best_percentage"`
}

// JoinSubjects renders a subject list as the single display string sent to
// the oracle.
func JoinSubjects(subjects []string) string {
	return strings.Join(subjects, ", ")
}
