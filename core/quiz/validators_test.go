package quiz_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/quiz"
)

func TestQuizData_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)
	minutes := func(n int) *int { return &n }

	tests := []struct {
		name      string
		mutate    func(qd *quiz.QuizData)
		wantField string
	}{
		{name: "valid", mutate: func(qd *quiz.QuizData) {}},
		{name: "one minute", mutate: func(qd *quiz.QuizData) { qd.DurationMinutes = minutes(1) }},
		{name: "zero duration", mutate: func(qd *quiz.QuizData) { qd.DurationMinutes = minutes(0) }, wantField: "duration_minutes"},
		{name: "negative duration", mutate: func(qd *quiz.QuizData) { qd.DurationMinutes = minutes(-1) }, wantField: "duration_minutes"},
		{name: "too long", mutate: func(qd *quiz.QuizData) { qd.DurationMinutes = minutes(1441) }, wantField: "duration_minutes"},
		{name: "blank title", mutate: func(qd *quiz.QuizData) { qd.Title = "  " }, wantField: "title"},
		{name: "active without questions", mutate: func(qd *quiz.QuizData) { qd.Questions = nil }, wantField: "is_active"},
		{name: "inactive without questions", mutate: func(qd *quiz.QuizData) {
			qd.Questions = nil
			qd.IsActive = boolPtr(false)
		}},
		{name: "true/false case", mutate: func(qd *quiz.QuizData) { qd.Questions[1].CorrectAnswer = "true" }, wantField: "correct_answer"},
		{name: "single option", mutate: func(qd *quiz.QuizData) { qd.Questions[0].Answers = qd.Questions[0].Answers[:1] }, wantField: "answers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qd := arithmetic()
			tt.mutate(&qd)
			err := qd.Validate(validate)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			if assert.True(t, errors.As(err, &vErrs), "got %v", err) {
				fields := make([]string, 0, len(vErrs))
				for _, fe := range vErrs {
					fields = append(fields, fe.Field())
				}
				assert.Contains(t, fields, tt.wantField)
			}
		})
	}
}
