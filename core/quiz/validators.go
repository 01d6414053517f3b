package quiz

import (
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classroom/core"
)

var (
	qtypeTag  = "qtype"
	qtypeText = "question type must be one of MULTIPLE_CHOICE, TRUE_FALSE or SHORT_ANSWER"

	activeNeedsQuestionsTag  = "activeqs"
	activeNeedsQuestionsText = "an active quiz needs at least one question"

	choiceTag  = "choice"
	choiceText = "the correct answer must be one of the answer options"

	minChoicesTag  = "minchoices"
	minChoicesText = "a multiple choice question needs at least 2 answer options"

	trueFalseTag  = "truefalse"
	trueFalseText = "the correct answer must be True or False"
)

// InitValidators registers the quiz validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(qtypeTag, func(fl validator.FieldLevel) bool {
		return QuestionType(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, qtypeTag, qtypeText)

	validate.RegisterStructValidation(quizStructValidation, QuizData{})
	validate.RegisterStructValidation(questionStructValidation, QuestionData{})
	core.RegisterCustomTranslation(validate, translator, activeNeedsQuestionsTag, activeNeedsQuestionsText)
	core.RegisterCustomTranslation(validate, translator, choiceTag, choiceText)
	core.RegisterCustomTranslation(validate, translator, minChoicesTag, minChoicesText)
	core.RegisterCustomTranslation(validate, translator, trueFalseTag, trueFalseText)
}

// QuizData is what a teacher submits to create or replace a quiz.
type QuizData struct {
	Title           string         `json:"title" validate:"required,notblank,max=255"`
	Description     string         `json:"description" validate:"max=5000"`
	DurationMinutes *int           `json:"duration_minutes" validate:"omitempty,min=1,max=1440"`
	IsActive        *bool          `json:"is_active"`
	Questions       []QuestionData `json:"questions" validate:"dive"`
}

// QuestionData describes a question; ID refers to an existing question of the same quiz (0 for new).
type QuestionData struct {
	ID            int64        `json:"id"`
	Text          string       `json:"question_text" validate:"required,notblank"`
	Type          QuestionType `json:"question_type" validate:"required,qtype"`
	CorrectAnswer string       `json:"correct_answer" validate:"required"`
	Points        *int         `json:"points" validate:"omitempty,min=1,max=100"`
	Answers       []AnswerData `json:"answers" validate:"dive"`
}

type AnswerData struct {
	Text string `json:"answer_text" validate:"required,notblank"`
}

// SubmitData carries the submitted answers keyed by question ID.
type SubmitData struct {
	Answers map[int64]string `json:"answers"`
}

func (qd *QuizData) Validate(validate *validator.Validate) error {
	qd.Title = core.CleanString(qd.Title)
	qd.Description = core.CleanString(qd.Description)
	for i := range qd.Questions {
		q := &qd.Questions[i]
		q.Text = core.CleanString(q.Text)
		q.Type = QuestionType(core.CleanString(string(q.Type)))
		for j := range q.Answers {
			q.Answers[j].Text = core.CleanString(q.Answers[j].Text)
		}
	}
	return validate.Struct(qd)
}

func (qd QuizData) active() bool {
	return qd.IsActive == nil || *qd.IsActive
}

func quizStructValidation(sl validator.StructLevel) {
	qd := sl.Current().Interface().(QuizData)
	if qd.active() && len(qd.Questions) == 0 {
		sl.ReportError(qd.IsActive, "is_active", "IsActive", activeNeedsQuestionsTag, "")
	}
}

func questionStructValidation(sl validator.StructLevel) {
	q := sl.Current().Interface().(QuestionData)
	switch q.Type {
	case MultipleChoice:
		if len(q.Answers) < 2 {
			sl.ReportError(q.Answers, "answers", "Answers", minChoicesTag, "")
			return
		}
		for _, a := range q.Answers {
			if a.Text == q.CorrectAnswer {
				return
			}
		}
		sl.ReportError(q.CorrectAnswer, "correct_answer", "CorrectAnswer", choiceTag, "")
	case TrueFalse:
		if q.CorrectAnswer != "True" && q.CorrectAnswer != "False" {
			sl.ReportError(q.CorrectAnswer, "correct_answer", "CorrectAnswer", trueFalseTag, "")
		}
	}
}

// Apply replaces qz's editable fields and question list with qd.
// Questions are matched to the existing ones by ID; answer options are rebuilt.
func (qd QuizData) Apply(qz *Quiz) error {
	existing := make(map[int64]bool, len(qz.Questions))
	for _, q := range qz.Questions {
		existing[q.ID] = true
	}

	qz.Title = qd.Title
	qz.Description = qd.Description
	if qd.DurationMinutes != nil {
		qz.DurationMinutes = *qd.DurationMinutes
	} else if qz.DurationMinutes <= 0 {
		qz.DurationMinutes = DefaultDurationMinutes
	}
	qz.IsActive = qd.active()

	qz.Questions = make([]Question, 0, len(qd.Questions))
	for i, d := range qd.Questions {
		if d.ID != 0 && !existing[d.ID] {
			return core.NewValidationError(errNoSuchQuestion, core.FieldError{
				Field: "questions[" + strconv.Itoa(i) + "].id", Error: "unknown question for this quiz",
			})
		}
		q := Question{ID: d.ID, Text: d.Text, Type: d.Type, CorrectAnswer: d.CorrectAnswer}
		if d.Points != nil {
			q.Points = *d.Points
		}
		stored := qz.AddQuestion(q)
		for _, a := range d.Answers {
			stored.AddAnswer(a.Text, a.Text == d.CorrectAnswer)
		}
	}
	return nil
}
