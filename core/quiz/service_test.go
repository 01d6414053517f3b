package quiz_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/quiz"
	"github.com/trezcool/classroom/core/user"
	inmemdb "github.com/trezcool/classroom/storage/database/inmem"
	testutil "github.com/trezcool/classroom/tests"
)

type env struct {
	svc     *quiz.Service
	usrRepo user.Repository
}

func setup(t *testing.T) env {
	t.Helper()
	db := inmemdb.Open()
	return env{
		svc:     quiz.NewService(db, inmemdb.NewQuizRepository(db)),
		usrRepo: inmemdb.NewUserRepository(db),
	}
}

func boolPtr(b bool) *bool { return &b }

// arithmetic has one multiple choice and one true/false question.
func arithmetic() quiz.QuizData {
	return quiz.QuizData{
		Title: "Arithmetic",
		Questions: []quiz.QuestionData{
			{
				Text: "2 + 2 = ?", Type: quiz.MultipleChoice, CorrectAnswer: "4",
				Answers: []quiz.AnswerData{{Text: "3"}, {Text: "4"}, {Text: "5"}},
			},
			{Text: "0 is even", Type: quiz.TrueFalse, CorrectAnswer: "True"},
		},
	}
}

func (e env) create(t *testing.T, qd quiz.QuizData, creator *user.Teacher) quiz.Quiz {
	t.Helper()
	var qz quiz.Quiz
	if err := qd.Apply(&qz); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	saved, err := e.svc.Save(context.Background(), qz, creator.User)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	return saved
}

func answersFor(qz quiz.Quiz, texts ...string) map[int64]string {
	answers := make(map[int64]string, len(texts))
	for i, text := range texts {
		answers[qz.Questions[i].ID] = text
	}
	return answers
}

func TestService_Save(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	teacher := testutil.CreateTeacher(t, e.usrRepo, "prof", "", "Math")

	qz := e.create(t, arithmetic(), teacher)
	assert.NotZero(t, qz.ID)
	assert.Equal(t, teacher.User.ID, qz.CreatedBy)
	assert.Equal(t, quiz.DefaultDurationMinutes, qz.DurationMinutes)
	assert.False(t, qz.CreatedAt.IsZero())
	if assert.Len(t, qz.Questions, 2) {
		mc := qz.Questions[0]
		assert.Equal(t, qz.ID, mc.QuizID)
		assert.Equal(t, quiz.DefaultPoints, mc.Points)
		if assert.Len(t, mc.Answers, 3) {
			assert.Equal(t, []bool{false, true, false}, []bool{mc.Answers[0].IsCorrect, mc.Answers[1].IsCorrect, mc.Answers[2].IsCorrect})
			assert.Equal(t, mc.ID, mc.Answers[2].QuestionID)
			assert.Equal(t, 2, mc.Answers[2].DisplayOrder)
		}
		assert.Equal(t, 1, qz.Questions[1].Position)
	}

	t.Run("update syncs questions", func(t *testing.T) {
		stored, err := e.svc.GetWithQuestions(ctx, qz.ID)
		if !assert.NoError(t, err) {
			return
		}
		qd := quiz.QuizData{
			Title:    "Arithmetic II",
			IsActive: boolPtr(false),
			Questions: []quiz.QuestionData{
				{Text: "1 + 1 = ?", Type: quiz.ShortAnswer, CorrectAnswer: "2"},
				{ID: stored.Questions[1].ID, Text: "1 is even", Type: quiz.TrueFalse, CorrectAnswer: "False"},
			},
		}
		if !assert.NoError(t, qd.Apply(&stored)) {
			return
		}
		other := testutil.CreateTeacher(t, e.usrRepo, "other", "", "Math")
		got, err := e.svc.Save(ctx, stored, other.User)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, qz.CreatedAt, got.CreatedAt)
		assert.Equal(t, other.User.ID, got.CreatedBy)

		got, err = e.svc.GetWithQuestions(ctx, qz.ID)
		if assert.NoError(t, err) && assert.Len(t, got.Questions, 2) {
			assert.False(t, got.IsActive)
			assert.Equal(t, "1 + 1 = ?", got.Questions[0].Text)
			assert.Equal(t, qz.Questions[1].ID, got.Questions[1].ID)
			assert.Equal(t, "False", got.Questions[1].CorrectAnswer)
			assert.Nil(t, got.QuestionByID(qz.Questions[0].ID))
		}
	})

	t.Run("unknown question", func(t *testing.T) {
		stored, _ := e.svc.GetWithQuestions(ctx, qz.ID)
		qd := arithmetic()
		qd.Questions[0].ID = 999
		err := qd.Apply(&stored)
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr))
	})

	t.Run("update unknown quiz", func(t *testing.T) {
		_, err := e.svc.Save(ctx, quiz.Quiz{ID: 999, Title: "x"}, teacher.User)
		assert.Equal(t, quiz.ErrNotFound, err)
	})
}

func TestService_listing(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	math := testutil.CreateTeacher(t, e.usrRepo, "math", "", "Math")
	bio := testutil.CreateTeacher(t, e.usrRepo, "bio", "", "Biology")

	algebra := e.create(t, arithmetic(), math)
	draft := quiz.QuizData{Title: "Draft", IsActive: boolPtr(false)}
	hidden := e.create(t, draft, math)
	cells := arithmetic()
	cells.Title = "Cells"
	cellsQz := e.create(t, cells, bio)

	titles := func(quizzes []quiz.Quiz) []string {
		got := make([]string, 0, len(quizzes))
		for _, qz := range quizzes {
			assert.Nil(t, qz.Questions, "listings do not load questions")
			got = append(got, qz.Title)
		}
		return got
	}

	tests := []struct {
		subject string
		want    []string
	}{
		{subject: "", want: []string{cellsQz.Title, algebra.Title}},
		{subject: core.AllSubjects, want: []string{cellsQz.Title, algebra.Title}},
		{subject: "Math", want: []string{algebra.Title}},
		{subject: "History", want: []string{}},
	}
	for _, tt := range tests {
		t.Run("subject "+tt.subject, func(t *testing.T) {
			got, err := e.svc.ListActive(ctx, tt.subject)
			assert.NoError(t, err)
			assert.ElementsMatch(t, tt.want, titles(got))
		})
	}

	mine, err := e.svc.ListByCreator(ctx, math.User.ID)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{algebra.Title, hidden.Title}, titles(mine))

	all, err := e.svc.ListAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestService_StartAttempt(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	teacher := testutil.CreateTeacher(t, e.usrRepo, "prof", "", "Math")
	student := testutil.CreateStudent(t, e.usrRepo, "stud", "")

	active := e.create(t, arithmetic(), teacher)
	inactive := arithmetic()
	inactive.IsActive = boolPtr(false)
	inactiveQz := e.create(t, inactive, teacher)
	emptyQz, err := e.svc.Save(ctx, quiz.Quiz{Title: "Empty", IsActive: true}, teacher.User)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	tests := []struct {
		name    string
		quizID  int64
		wantErr error
	}{
		{name: "unknown", quizID: 999, wantErr: quiz.ErrNotFound},
		{name: "inactive", quizID: inactiveQz.ID, wantErr: quiz.ErrInactive},
		{name: "no questions", quizID: emptyQz.ID, wantErr: quiz.ErrNoQuestions},
		{name: "started", quizID: active.ID},
		{name: "started twice", quizID: active.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := e.svc.StartAttempt(ctx, tt.quizID, student)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			if assert.NoError(t, err) {
				assert.NotZero(t, a.ID)
				assert.Equal(t, student.User.ID, a.StudentID)
				assert.False(t, a.Completed)
				assert.Nil(t, a.Score)
				assert.Nil(t, a.CompletionTime)
				if assert.NotNil(t, a.Quiz) {
					assert.Len(t, a.Quiz.Questions, 2)
				}
			}
		})
	}

	attempts, err := e.svc.ListAttemptsByStudent(ctx, student.User.ID)
	assert.NoError(t, err)
	if assert.Len(t, attempts, 2) {
		_, err = e.svc.CompleteAttempt(ctx, attempts[0].ID, nil)
		assert.NoError(t, err)
	}
	done, err := e.svc.HasCompleted(ctx, active.ID, student.User.ID)
	assert.NoError(t, err)
	assert.True(t, done)

	_, err = e.svc.StartAttempt(ctx, active.ID, student)
	assert.Equal(t, quiz.ErrAlreadyCompleted, err)
}

func TestService_CompleteAttempt(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	teacher := testutil.CreateTeacher(t, e.usrRepo, "prof", "", "Math")
	alice := testutil.CreateStudent(t, e.usrRepo, "alice", "")
	bob := testutil.CreateStudent(t, e.usrRepo, "bob", "")
	qz := e.create(t, arithmetic(), teacher)

	a, err := e.svc.StartAttempt(ctx, qz.ID, alice)
	if !assert.NoError(t, err) {
		return
	}

	_, err = e.svc.Submit(ctx, bob, a.ID, answersFor(qz, "4", "True"))
	assert.Equal(t, quiz.ErrAttemptNotFound, err, "someone else's attempt")
	_, err = e.svc.Submit(ctx, alice, 999, nil)
	assert.Equal(t, quiz.ErrAttemptNotFound, err)

	done, err := e.svc.Submit(ctx, alice, a.ID, answersFor(qz, "4", "true"))
	if assert.NoError(t, err) {
		assert.True(t, done.Completed)
		assert.NotNil(t, done.CompletionTime)
		if assert.NotNil(t, done.Score) {
			assert.Equal(t, 50, *done.Score, "answers are case sensitive")
		}
	}

	redone, err := e.svc.CompleteAttempt(ctx, a.ID, answersFor(qz, "4", "True"))
	if assert.NoError(t, err) && assert.NotNil(t, redone.Score) {
		assert.Equal(t, 100, *redone.Score, "completing again recomputes")
	}

	res, err := e.svc.GetResult(ctx, alice, a.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, 2, res.Correct)
		assert.Equal(t, 2, res.Total)
		assert.Len(t, res.Responses, 2, "responses replaced, not appended")
		assert.Nil(t, res.Attempt.Quiz)
		assert.Equal(t, qz.ID, res.Quiz.ID)
	}

	t.Run("one completion per student and quiz", func(t *testing.T) {
		first, _ := e.svc.StartAttempt(ctx, qz.ID, bob)
		second, _ := e.svc.StartAttempt(ctx, qz.ID, bob)
		_, err := e.svc.CompleteAttempt(ctx, first.ID, nil)
		assert.NoError(t, err)
		_, err = e.svc.CompleteAttempt(ctx, second.ID, nil)
		assert.Equal(t, quiz.ErrAlreadyCompleted, err)

		got, err := e.svc.FindAttemptWithQuizAndQuestions(ctx, second.ID)
		if assert.NoError(t, err) {
			assert.False(t, got.Completed)
		}
	})
}

func TestService_GetResult(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	creator := testutil.CreateTeacher(t, e.usrRepo, "prof", "", "Math")
	stranger := testutil.CreateTeacher(t, e.usrRepo, "stranger", "", "Math")
	alice := testutil.CreateStudent(t, e.usrRepo, "alice", "")
	bob := testutil.CreateStudent(t, e.usrRepo, "bob", "")
	qz := e.create(t, arithmetic(), creator)

	pending, _ := e.svc.StartAttempt(ctx, qz.ID, bob)
	a, _ := e.svc.StartAttempt(ctx, qz.ID, alice)
	if _, err := e.svc.CompleteAttempt(ctx, a.ID, answersFor(qz, "3", "True")); err != nil {
		t.Fatalf("CompleteAttempt() failed: %v", err)
	}

	tests := []struct {
		name      string
		viewer    user.Identity
		attemptID int64
		wantErr   error
	}{
		{name: "unknown attempt", viewer: alice, attemptID: 999, wantErr: quiz.ErrAttemptNotFound},
		{name: "other student", viewer: bob, attemptID: a.ID, wantErr: core.ErrForbidden},
		{name: "other teacher", viewer: stranger, attemptID: a.ID, wantErr: core.ErrForbidden},
		{name: "not completed", viewer: bob, attemptID: pending.ID, wantErr: quiz.ErrNotCompleted},
		{name: "student", viewer: alice, attemptID: a.ID},
		{name: "creator", viewer: creator, attemptID: a.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.svc.GetResult(ctx, tt.viewer, tt.attemptID)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, 1, res.Correct)
				assert.Equal(t, 2, res.Total)
				if assert.NotNil(t, res.Attempt.Score) {
					assert.Equal(t, 50, *res.Attempt.Score)
				}
			}
		})
	}

	byQuiz, err := e.svc.ListAttemptsByQuiz(ctx, qz.ID)
	assert.NoError(t, err)
	assert.Len(t, byQuiz, 2)
	byCreator, err := e.svc.ListAttemptsByCreator(ctx, stranger.User.ID)
	assert.NoError(t, err)
	assert.Equal(t, []quiz.AttemptSummary{}, byCreator)

	// deleting the quiz cascades to its attempts
	assert.NoError(t, e.svc.Delete(ctx, qz.ID))
	_, err = e.svc.GetResult(ctx, alice, a.ID)
	assert.Equal(t, quiz.ErrAttemptNotFound, err)
	assert.Equal(t, quiz.ErrNotFound, e.svc.Delete(ctx, qz.ID))
}
