package quiz

import "testing"

func questions(correct ...string) []Question {
	qs := make([]Question, 0, len(correct))
	for i, c := range correct {
		qs = append(qs, Question{ID: int64(i + 1), CorrectAnswer: c})
	}
	return qs
}

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		questions   []Question
		answers     map[int64]string
		wantCorrect int
		wantScore   int
	}{
		{name: "no questions", answers: map[int64]string{1: "a"}},
		{name: "no answers", questions: questions("a", "b"), wantScore: 0},
		{name: "3 of 4", questions: questions("a", "b", "c", "d"), answers: map[int64]string{1: "a", 2: "b", 3: "c", 4: "x"}, wantCorrect: 3, wantScore: 75},
		{name: "all correct", questions: questions("a", "b"), answers: map[int64]string{1: "a", 2: "b"}, wantCorrect: 2, wantScore: 100},
		{name: "floored", questions: questions("a", "b", "c"), answers: map[int64]string{1: "a"}, wantCorrect: 1, wantScore: 33},
		{name: "2 of 3 floored", questions: questions("a", "b", "c"), answers: map[int64]string{1: "a", 3: "c"}, wantCorrect: 2, wantScore: 66},
		{name: "case sensitive", questions: questions("Paris"), answers: map[int64]string{1: "paris"}, wantScore: 0},
		{name: "no trimming", questions: questions("Paris"), answers: map[int64]string{1: "Paris "}, wantScore: 0},
		{name: "answers for unknown questions ignored", questions: questions("a"), answers: map[int64]string{1: "a", 99: "a"}, wantCorrect: 1, wantScore: 100},
		{name: "empty correct answer matches empty submission only", questions: questions(""), answers: map[int64]string{1: ""}, wantCorrect: 1, wantScore: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correct, score := Score(tt.questions, tt.answers)
			if correct != tt.wantCorrect || score != tt.wantScore {
				t.Errorf("Score() = (%d, %d), want (%d, %d)", correct, score, tt.wantCorrect, tt.wantScore)
			}
		})
	}
}

func TestScoreFloorProperty(t *testing.T) {
	for n := 1; n <= 12; n++ {
		correct := make([]string, n)
		for i := range correct {
			correct[i] = "ok"
		}
		qs := questions(correct...)
		for c := 0; c <= n; c++ {
			answers := make(map[int64]string, c)
			for i := 0; i < c; i++ {
				answers[qs[i].ID] = "ok"
			}
			if _, got := Score(qs, answers); got != c*100/n {
				t.Errorf("Score() with %d/%d correct = %d, want %d", c, n, got, c*100/n)
			}
		}
	}
}

func TestQuiz_aggregate(t *testing.T) {
	qz := New("Maths", "")
	qz.ID = 7
	if qz.DurationMinutes != DefaultDurationMinutes || !qz.IsActive {
		t.Fatalf("New() defaults = %d/%v", qz.DurationMinutes, qz.IsActive)
	}

	q := qz.AddQuestion(Question{Text: "1+1", Type: MultipleChoice, CorrectAnswer: "2"})
	q.AddAnswer("2", true)
	q.AddAnswer("3", false)
	qz.AddQuestion(Question{Text: "sky is blue", Type: TrueFalse, CorrectAnswer: "True", Points: 3})
	qz.AddQuestion(Question{Text: "capital of DRC", Type: ShortAnswer, CorrectAnswer: "Kinshasa"})

	if got := qz.Questions[0].Points; got != DefaultPoints {
		t.Errorf("default points = %d, want %d", got, DefaultPoints)
	}
	if got := qz.Questions[1].Points; got != 3 {
		t.Errorf("points = %d, want 3", got)
	}
	if err := qz.RemoveQuestion(1); err != nil {
		t.Fatalf("RemoveQuestion() error = %v", err)
	}
	if err := qz.RemoveQuestion(5); err != errNoSuchQuestion {
		t.Errorf("RemoveQuestion(5) error = %v, want %v", err, errNoSuchQuestion)
	}

	if len(qz.Questions) != 2 {
		t.Fatalf("len(Questions) = %d, want 2", len(qz.Questions))
	}
	for i, q := range qz.Questions {
		if q.Position != i || q.QuizID != qz.ID {
			t.Errorf("question %d: position=%d quizID=%d", i, q.Position, q.QuizID)
		}
	}
	if qz.Questions[1].Text != "capital of DRC" {
		t.Errorf("wrong question kept: %q", qz.Questions[1].Text)
	}

	first := &qz.Questions[0]
	if err := first.RemoveAnswer(0); err != nil {
		t.Fatalf("RemoveAnswer() error = %v", err)
	}
	if len(first.Answers) != 1 || first.Answers[0].Text != "3" || first.Answers[0].DisplayOrder != 0 {
		t.Errorf("answers after removal = %+v", first.Answers)
	}
}
