package quiz

import (
	"time"

	"github.com/pkg/errors"
)

// Question types
const (
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
	ShortAnswer    QuestionType = "SHORT_ANSWER"
)

const (
	DefaultDurationMinutes = 30
	DefaultPoints          = 1
)

var errNoSuchQuestion = errors.New("no question at this position")

type QuestionType string

func (qt QuestionType) Valid() bool {
	switch qt {
	case MultipleChoice, TrueFalse, ShortAnswer:
		return true
	}
	return false
}

// Answer is an answer option displayed for a question.
type Answer struct {
	ID           int64  `json:"id"`
	QuestionID   int64  `json:"question_id"`
	Text         string `json:"answer_text"`
	IsCorrect    bool   `json:"is_correct"`
	DisplayOrder int    `json:"display_order"`
}

type Question struct {
	ID            int64        `json:"id"`
	QuizID        int64        `json:"quiz_id"`
	Text          string       `json:"question_text"`
	Type          QuestionType `json:"question_type"`
	CorrectAnswer string       `json:"correct_answer"`
	Points        int          `json:"points"`
	Position      int          `json:"position"`
	Answers       []Answer     `json:"answers"`
}

// AddAnswer appends an option, keeping the back reference and display order in sync.
func (q *Question) AddAnswer(text string, isCorrect bool) *Answer {
	q.Answers = append(q.Answers, Answer{
		QuestionID:   q.ID,
		Text:         text,
		IsCorrect:    isCorrect,
		DisplayOrder: len(q.Answers),
	})
	return &q.Answers[len(q.Answers)-1]
}

// RemoveAnswer drops the option displayed at order and renumbers the remaining ones.
func (q *Question) RemoveAnswer(order int) error {
	if order < 0 || order >= len(q.Answers) {
		return errors.New("no answer at this display order")
	}
	q.Answers = append(q.Answers[:order], q.Answers[order+1:]...)
	q.renumberAnswers()
	return nil
}

func (q *Question) renumberAnswers() {
	for i := range q.Answers {
		q.Answers[i].QuestionID = q.ID
		q.Answers[i].DisplayOrder = i
	}
}

// Quiz is the aggregate root owning its ordered questions and their answer options.
// A nil Questions slice means the questions were not loaded.
type Quiz struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CreatedBy       int64      `json:"created_by"`
	DurationMinutes int        `json:"duration_minutes"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"` // UTC
	Questions       []Question `json:"questions,omitempty"`
}

// New returns a quiz with the default duration, active and without questions.
func New(title, description string) *Quiz {
	return &Quiz{
		Title:           title,
		Description:     description,
		DurationMinutes: DefaultDurationMinutes,
		IsActive:        true,
		Questions:       []Question{},
	}
}

// AddQuestion appends q at the end of the quiz and returns the stored copy.
func (qz *Quiz) AddQuestion(q Question) *Question {
	if q.Points <= 0 {
		q.Points = DefaultPoints
	}
	q.QuizID = qz.ID
	q.Position = len(qz.Questions)
	q.renumberAnswers()
	qz.Questions = append(qz.Questions, q)
	return &qz.Questions[len(qz.Questions)-1]
}

// RemoveQuestion drops the question at position and renumbers the remaining ones.
func (qz *Quiz) RemoveQuestion(position int) error {
	if position < 0 || position >= len(qz.Questions) {
		return errNoSuchQuestion
	}
	qz.Questions = append(qz.Questions[:position], qz.Questions[position+1:]...)
	qz.renumber()
	return nil
}

// QuestionByID returns the question with id, or nil.
func (qz *Quiz) QuestionByID(id int64) *Question {
	for i := range qz.Questions {
		if qz.Questions[i].ID == id {
			return &qz.Questions[i]
		}
	}
	return nil
}

// renumber restores back references and positions, e.g. after the quiz got its ID.
func (qz *Quiz) renumber() {
	for i := range qz.Questions {
		qz.Questions[i].QuizID = qz.ID
		qz.Questions[i].Position = i
		qz.Questions[i].renumberAnswers()
	}
}

// Attempt is one student's take of one quiz.
// STARTED (Completed false) -> COMPLETED (Completed true, terminal).
type Attempt struct {
	ID             int64      `json:"id"`
	QuizID         int64      `json:"quiz_id"`
	StudentID      int64      `json:"student_id"`
	StartTime      time.Time  `json:"start_time"`      // UTC
	CompletionTime *time.Time `json:"completion_time"` // UTC
	Score          *int       `json:"score"`           // 0..100
	Completed      bool       `json:"is_completed"`

	Quiz *Quiz `json:"quiz,omitempty"` // set by eager loads only
}

// Response is the answer a student submitted for one question of an attempt.
type Response struct {
	ID         int64  `json:"id"`
	AttemptID  int64  `json:"attempt_id"`
	QuestionID int64  `json:"question_id"`
	AnswerText string `json:"answer_text"`
	IsCorrect  bool   `json:"is_correct"`
}

// AttemptSummary is an attempt joined with its quiz title and student name.
type AttemptSummary struct {
	ID             int64      `json:"id" boil:"id"`
	QuizID         int64      `json:"quiz_id" boil:"quiz_id"`
	QuizTitle      string     `json:"quiz_title" boil:"quiz_title"`
	StudentID      int64      `json:"student_id" boil:"student_id"`
	StudentName    string     `json:"student_name" boil:"student_name"`
	StartTime      time.Time  `json:"start_time" boil:"start_time"`
	CompletionTime *time.Time `json:"completion_time" boil:"completion_time"`
	Score          *int       `json:"score" boil:"score"`
	Completed      bool       `json:"is_completed" boil:"is_completed"`
}

// Result is a graded attempt with the quiz and the submitted responses.
type Result struct {
	Attempt   Attempt    `json:"attempt"`
	Quiz      Quiz       `json:"quiz"`
	Responses []Response `json:"responses"`
	Correct   int        `json:"correct"`
	Total     int        `json:"total"`
}

// QueryFilter narrows quiz listings; zero fields do not filter.
type QueryFilter struct {
	ActiveOnly  bool
	SubjectArea string // exact match on the creator's TeacherProfile.SubjectArea
	CreatedBy   int64
}

// AttemptFilter narrows attempt listings; zero fields do not filter.
type AttemptFilter struct {
	QuizID    int64
	StudentID int64
	CreatedBy int64 // quiz creator
}
