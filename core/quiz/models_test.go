package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuiz_questions(t *testing.T) {
	qz := New("Arithmetic", "")
	qz.ID = 7
	assert.Equal(t, DefaultDurationMinutes, qz.DurationMinutes)
	assert.True(t, qz.IsActive)

	q := qz.AddQuestion(Question{ID: 1, Text: "2 + 2 = ?", Type: MultipleChoice, CorrectAnswer: "4"})
	q.AddAnswer("3", false)
	q.AddAnswer("4", true)
	q.AddAnswer("5", false)
	qz.AddQuestion(Question{ID: 2, Text: "0 is even", Type: TrueFalse, CorrectAnswer: "True", Points: 3})
	qz.AddQuestion(Question{ID: 3, Text: "1 + 1 = ?", Type: ShortAnswer, CorrectAnswer: "2"})

	assert.Equal(t, int64(7), qz.Questions[0].QuizID)
	assert.Equal(t, DefaultPoints, qz.Questions[0].Points)
	assert.Equal(t, 3, qz.Questions[1].Points)

	if assert.NoError(t, qz.Questions[0].RemoveAnswer(0)) {
		answers := qz.Questions[0].Answers
		assert.Equal(t, []string{"4", "5"}, []string{answers[0].Text, answers[1].Text})
		assert.Equal(t, []int{0, 1}, []int{answers[0].DisplayOrder, answers[1].DisplayOrder})
	}
	assert.Error(t, qz.Questions[0].RemoveAnswer(5))

	if assert.NoError(t, qz.RemoveQuestion(1)) {
		assert.Len(t, qz.Questions, 2)
		assert.Equal(t, int64(3), qz.Questions[1].ID)
		assert.Equal(t, 1, qz.Questions[1].Position)
	}
	assert.Equal(t, errNoSuchQuestion, qz.RemoveQuestion(-1))

	assert.Equal(t, "1 + 1 = ?", qz.QuestionByID(3).Text)
	assert.Nil(t, qz.QuestionByID(2))
}

func TestQuestionType_Valid(t *testing.T) {
	for _, qt := range []QuestionType{MultipleChoice, TrueFalse, ShortAnswer} {
		assert.True(t, qt.Valid(), qt)
	}
	for _, qt := range []QuestionType{"", "ESSAY", "multiple_choice"} {
		assert.False(t, qt.Valid(), qt)
	}
}
