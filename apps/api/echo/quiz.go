package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/quiz"
	"github.com/trezcool/classroom/core/user"
	"github.com/trezcool/classroom/services/metrics"
)

const contextQuizKey = "quiz"

type quizApi struct {
	svc      *quiz.Service
	validate *validator.Validate
	metrics  *metrics.Metrics
}

func registerQuizAPI(
	g *echo.Group,
	jwt, ident echo.MiddlewareFunc,
	svc *quiz.Service,
	validate *validator.Validate,
	m *metrics.Metrics,
) {
	api := quizApi{svc: svc, validate: validate, metrics: m}

	qg := g.Group("/quizzes", jwt, ident)
	qg.GET("", api.listActive)
	qg.GET("/mine", api.listMine, teacherOnly())
	qg.POST("", api.create, teacherOnly())

	dg := qg.Group("/:id", api.loadQuiz)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacherOnly(), creatorOnly)
	dg.DELETE("", api.destroy, teacherOnly(), creatorOnly)
	dg.GET("/attempts", api.quizAttempts, teacherOnly(), creatorOnly)
	dg.POST("/attempts", api.startAttempt, studentOnly())

	ag := g.Group("/attempts", jwt, ident)
	ag.GET("", api.listAttempts)
	ag.POST("/:id/submit", api.submit, studentOnly())
	ag.GET("/:id/result", api.result)
}

// loadQuiz puts the quiz named by the :id path param, with its questions, in the context.
func (api *quizApi) loadQuiz(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		qz, err := api.svc.GetWithQuestions(ctx.Request().Context(), id)
		if err != nil {
			return errors.Wrap(err, "getting quiz")
		}
		ctx.Set(contextQuizKey, qz)
		return next(ctx)
	}
}

func creatorOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		teacher, err := contextTeacher(ctx)
		if err != nil {
			return err
		}
		if contextQuiz(ctx).CreatedBy != teacher.User.ID {
			return core.ErrForbidden
		}
		return next(ctx)
	}
}

func contextQuiz(ctx echo.Context) quiz.Quiz {
	qz, _ := ctx.Get(contextQuizKey).(quiz.Quiz)
	return qz
}

// Catalog

func (api *quizApi) listActive(ctx echo.Context) error {
	var filter SubjectFilter
	filter.Bind(ctx)
	quizzes, err := api.svc.ListActive(ctx.Request().Context(), filter.Subject)
	if err != nil {
		return errors.Wrap(err, "listing active quizzes")
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (api *quizApi) listMine(ctx echo.Context) error {
	teacher, err := contextTeacher(ctx)
	if err != nil {
		return err
	}
	quizzes, err := api.svc.ListByCreator(ctx.Request().Context(), teacher.User.ID)
	if err != nil {
		return errors.Wrap(err, "listing own quizzes")
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

// retrieve shows the whole quiz to its creator, and active quizzes without answer keys to students.
func (api *quizApi) retrieve(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	qz := contextQuiz(ctx)

	switch id := ident.(type) {
	case *user.Teacher:
		if qz.CreatedBy != id.User.ID {
			return core.ErrForbidden
		}
		return ctx.JSON(http.StatusOK, qz)
	case *user.Student:
		if !qz.IsActive {
			return quiz.ErrNotFound
		}
		return ctx.JSON(http.StatusOK, newStudentQuiz(qz))
	}
	return errHttpForbidden
}

func (api *quizApi) create(ctx echo.Context) error {
	return api.save(ctx, quiz.Quiz{}, http.StatusCreated)
}

func (api *quizApi) update(ctx echo.Context) error {
	return api.save(ctx, contextQuiz(ctx), http.StatusOK)
}

func (api *quizApi) save(ctx echo.Context, qz quiz.Quiz, code int) error {
	teacher, err := contextTeacher(ctx)
	if err != nil {
		return err
	}

	var data quiz.QuizData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuizData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if err = data.Apply(&qz); err != nil {
		return err
	}

	qz, err = api.svc.Save(ctx.Request().Context(), qz, teacher.User)
	if err != nil {
		return errors.Wrap(err, "saving quiz")
	}
	return ctx.JSON(code, qz)
}

func (api *quizApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextQuiz(ctx).ID); err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Engine

func (api *quizApi) quizAttempts(ctx echo.Context) error {
	attempts, err := api.svc.ListAttemptsByQuiz(ctx.Request().Context(), contextQuiz(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing quiz attempts")
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *quizApi) startAttempt(ctx echo.Context) error {
	student, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	a, err := api.svc.StartAttempt(ctx.Request().Context(), contextQuiz(ctx).ID, student)
	if err != nil {
		return errors.Wrap(err, "starting attempt")
	}
	if api.metrics != nil {
		api.metrics.AttemptStarted()
	}

	qz := newStudentQuiz(*a.Quiz)
	a.Quiz = nil
	return ctx.JSON(http.StatusCreated, StartAttemptResponse{Attempt: a, Quiz: qz})
}

// listAttempts lists a student's own attempts, or the attempts on a teacher's quizzes.
func (api *quizApi) listAttempts(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var attempts []quiz.AttemptSummary
	switch id := ident.(type) {
	case *user.Student:
		attempts, err = api.svc.ListAttemptsByStudent(ctx.Request().Context(), id.User.ID)
	case *user.Teacher:
		attempts, err = api.svc.ListAttemptsByCreator(ctx.Request().Context(), id.User.ID)
	default:
		return errHttpForbidden
	}
	if err != nil {
		return errors.Wrap(err, "listing attempts")
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *quizApi) submit(ctx echo.Context) error {
	student, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data quiz.SubmitData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitData")
	}

	a, err := api.svc.Submit(ctx.Request().Context(), student, id, data.Answers)
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	if api.metrics != nil && a.Score != nil {
		api.metrics.AttemptCompleted(*a.Score)
	}
	a.Quiz = nil
	return ctx.JSON(http.StatusOK, a)
}

func (api *quizApi) result(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	res, err := api.svc.GetResult(ctx.Request().Context(), ident, id)
	if err != nil {
		return errors.Wrap(err, "getting result")
	}
	return ctx.JSON(http.StatusOK, res)
}

// Student views: no answer keys.

type (
	StudentAnswer struct {
		ID           int64  `json:"id"`
		Text         string `json:"answer_text"`
		DisplayOrder int    `json:"display_order"`
	}

	StudentQuestion struct {
		ID       int64             `json:"id"`
		Text     string            `json:"question_text"`
		Type     quiz.QuestionType `json:"question_type"`
		Points   int               `json:"points"`
		Position int               `json:"position"`
		Answers  []StudentAnswer   `json:"answers"`
	}

	StudentQuiz struct {
		ID              int64             `json:"id"`
		Title           string            `json:"title"`
		Description     string            `json:"description"`
		CreatedBy       int64             `json:"created_by"`
		DurationMinutes int               `json:"duration_minutes"`
		CreatedAt       time.Time         `json:"created_at"`
		Questions       []StudentQuestion `json:"questions"`
	}

	StartAttemptResponse struct {
		Attempt quiz.Attempt `json:"attempt"`
		Quiz    StudentQuiz  `json:"quiz"`
	}
)

func newStudentQuiz(qz quiz.Quiz) StudentQuiz {
	sq := StudentQuiz{
		ID:              qz.ID,
		Title:           qz.Title,
		Description:     qz.Description,
		CreatedBy:       qz.CreatedBy,
		DurationMinutes: qz.DurationMinutes,
		CreatedAt:       qz.CreatedAt,
		Questions:       make([]StudentQuestion, 0, len(qz.Questions)),
	}
	for _, q := range qz.Questions {
		sqq := StudentQuestion{
			ID:       q.ID,
			Text:     q.Text,
			Type:     q.Type,
			Points:   q.Points,
			Position: q.Position,
			Answers:  make([]StudentAnswer, 0, len(q.Answers)),
		}
		for _, a := range q.Answers {
			sqq.Answers = append(sqq.Answers, StudentAnswer{ID: a.ID, Text: a.Text, DisplayOrder: a.DisplayOrder})
		}
		sq.Questions = append(sq.Questions, sqq)
	}
	return sq
}
