package skillquiz

import "testing"

func TestParseSkillLevel(t *testing.T) {
	for _, input := range []string{"Beginner", "beginner", "  BEGINNER "} {
		level, err := ParseSkillLevel(input)
		if err != nil || level != LevelBeginner {
			t.Fatalf("ParseSkillLevel(%q) = (%q, %v), want (Beginner, nil)", input, level, err)
		}
	}

	if _, err := ParseSkillLevel("expert"); err == nil {
		t.Fatalf("expected error for unknown skill level")
	}
	if _, err := ParseSkillLevel(""); err == nil {
		t.Fatalf("expected error for empty skill level")
	}
}

func validQuestion() GeneratedQuestion {
	return GeneratedQuestion{
		Text: "What is 2+2?",
		Options: map[string]string{
			"A": "3", "B": "4", "C": "5", "D": "22",
		},
		CorrectAnswer: "B",
		Explanation:   "Basic addition.",
	}
}

func TestGeneratedQuestionValidate(t *testing.T) {
	if err := validQuestion().Validate(); err != nil {
		t.Fatalf("valid question rejected: %v", err)
	}

	empty := validQuestion()
	empty.Text = "   "
	if err := empty.Validate(); err == nil {
		t.Fatalf("expected error for empty question text")
	}

	missing := validQuestion()
	delete(missing.Options, "D")
	if err := missing.Validate(); err == nil {
		t.Fatalf("expected error for missing option label")
	}

	wrongLabel := validQuestion()
	delete(wrongLabel.Options, "D")
	wrongLabel.Options["E"] = "extra"
	if err := wrongLabel.Validate(); err == nil {
		t.Fatalf("expected error for off-set option label")
	}

	badAnswer := validQuestion()
	badAnswer.CorrectAnswer = "Z"
	if err := badAnswer.Validate(); err == nil {
		t.Fatalf("expected error for correct answer outside label set")
	}
}
