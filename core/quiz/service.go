package quiz

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("quiz")
	ErrAttemptNotFound  = core.NewNotFoundError("quiz attempt")
	ErrInactive         = core.NewInvalidStateError("quiz is not active")
	ErrNoQuestions      = core.NewInvalidStateError("quiz has no questions")
	ErrQuizMissing      = core.NewInvalidStateError("attempt has no quiz or question list")
	ErrNotCompleted     = core.NewInvalidStateError("attempt is not completed yet")
	ErrAlreadyCompleted = core.NewConflictError(errors.New("you have already completed this quiz"))
)

type (
	Repository interface {
		// QueryQuizzes returns quizzes (without questions) matching filter, newest first.
		QueryQuizzes(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Quiz, error)
		GetQuizByID(ctx context.Context, id int64, exec ...core.DBExecutor) (Quiz, error)
		// GetQuizWithQuestions eager loads the questions (by position) and their answers (by display order).
		GetQuizWithQuestions(ctx context.Context, id int64, exec ...core.DBExecutor) (Quiz, error)
		// CreateQuiz inserts the quiz and all of its questions & answers.
		CreateQuiz(ctx context.Context, qz Quiz, exec ...core.DBExecutor) (Quiz, error)
		// UpdateQuiz updates the quiz and syncs its questions: questions missing from qz are deleted,
		// the others are inserted or updated and their answers replaced.
		UpdateQuiz(ctx context.Context, qz Quiz, exec ...core.DBExecutor) (Quiz, error)
		// DeleteQuiz cascades to questions, answers, attempts & responses.
		DeleteQuiz(ctx context.Context, id int64, exec ...core.DBExecutor) error

		CreateAttempt(ctx context.Context, a Attempt, exec ...core.DBExecutor) (Attempt, error)
		GetAttemptByID(ctx context.Context, id int64, exec ...core.DBExecutor) (Attempt, error)
		// GetAttemptWithQuizAndQuestions loads the attempt, its quiz and the quiz's questions together.
		GetAttemptWithQuizAndQuestions(ctx context.Context, id int64, exec ...core.DBExecutor) (Attempt, error)
		// UpdateAttempt returns a core.ConflictError when a second attempt of the same student
		// on the same quiz would become completed.
		UpdateAttempt(ctx context.Context, a Attempt, exec ...core.DBExecutor) (Attempt, error)
		HasCompletedAttempt(ctx context.Context, quizID, studentID int64, exec ...core.DBExecutor) (bool, error)
		// QueryAttemptSummaries returns attempts matching filter, most recent first.
		QueryAttemptSummaries(ctx context.Context, filter AttemptFilter, exec ...core.DBExecutor) ([]AttemptSummary, error)

		// ReplaceResponses deletes the attempt's responses then inserts rs.
		ReplaceResponses(ctx context.Context, attemptID int64, rs []Response, exec ...core.DBExecutor) ([]Response, error)
		GetResponses(ctx context.Context, attemptID int64, exec ...core.DBExecutor) ([]Response, error)
	}

	Service struct {
		tx   core.Transactor
		repo Repository
	}
)

func NewService(tx core.Transactor, repo Repository) *Service {
	return &Service{tx: tx, repo: repo}
}

// Catalog

// ListActive lists the active quizzes of teachers teaching subject.
// An empty subject or core.AllSubjects lists every active quiz.
func (svc *Service) ListActive(ctx context.Context, subject string) ([]Quiz, error) {
	filter := QueryFilter{ActiveOnly: true}
	if !core.IsAllSubjects(subject) {
		filter.SubjectArea = subject
	}
	return svc.query(ctx, filter)
}

func (svc *Service) ListAll(ctx context.Context) ([]Quiz, error) {
	return svc.query(ctx, QueryFilter{})
}

func (svc *Service) ListByCreator(ctx context.Context, creatorID int64) ([]Quiz, error) {
	return svc.query(ctx, QueryFilter{CreatedBy: creatorID})
}

func (svc *Service) query(ctx context.Context, filter QueryFilter) ([]Quiz, error) {
	quizzes, err := svc.repo.QueryQuizzes(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	if quizzes == nil {
		quizzes = []Quiz{}
	}
	return quizzes, nil
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Quiz, error) {
	return svc.repo.GetQuizByID(ctx, id)
}

func (svc *Service) GetWithQuestions(ctx context.Context, id int64) (Quiz, error) {
	return svc.repo.GetQuizWithQuestions(ctx, id)
}

// Save sets creator as the quiz's owner then inserts (zero ID) or updates qz with its questions.
func (svc *Service) Save(ctx context.Context, qz Quiz, creator user.User) (Quiz, error) {
	qz.CreatedBy = creator.ID
	if qz.DurationMinutes <= 0 {
		qz.DurationMinutes = DefaultDurationMinutes
	}
	if qz.Questions == nil {
		qz.Questions = []Question{}
	}
	qz.renumber()

	var saved Quiz
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if qz.ID == 0 {
			qz.CreatedAt = time.Now().UTC()
			saved, err = svc.repo.CreateQuiz(ctx, qz, exec)
		} else {
			saved, err = svc.repo.UpdateQuiz(ctx, qz, exec)
		}
		return err
	})
	if err != nil {
		if core.IsNotFound(err) {
			return Quiz{}, err
		}
		return Quiz{}, errors.Wrap(err, "saving quiz")
	}
	return saved, nil
}

func (svc *Service) Delete(ctx context.Context, id int64) error {
	if err := svc.repo.DeleteQuiz(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return err
		}
		return errors.Wrap(err, "deleting quiz")
	}
	return nil
}

// Engine

// StartAttempt creates a STARTED attempt of the quiz for student.
// The quiz must be active with at least one question, and the student must not have completed it already.
// Concurrent starts are not serialized: both may create an attempt, only one can ever be completed.
func (svc *Service) StartAttempt(ctx context.Context, quizID int64, student *user.Student) (Attempt, error) {
	qz, err := svc.repo.GetQuizWithQuestions(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if !qz.IsActive {
		return Attempt{}, ErrInactive
	}
	if len(qz.Questions) == 0 {
		return Attempt{}, ErrNoQuestions
	}
	done, err := svc.repo.HasCompletedAttempt(ctx, qz.ID, student.User.ID)
	if err != nil {
		return Attempt{}, errors.Wrap(err, "checking completed attempts")
	}
	if done {
		return Attempt{}, ErrAlreadyCompleted
	}

	a, err := svc.repo.CreateAttempt(ctx, Attempt{
		QuizID:    qz.ID,
		StudentID: student.User.ID,
		StartTime: time.Now().UTC(),
	})
	if err != nil {
		return Attempt{}, errors.Wrap(err, "creating attempt")
	}
	a.Quiz = &qz
	return a, nil
}

// CompleteAttempt grades answers (question ID -> submitted text) against the attempt's quiz
// and marks the attempt COMPLETED. Calling it again recomputes and overwrites the result.
func (svc *Service) CompleteAttempt(ctx context.Context, attemptID int64, answers map[int64]string) (Attempt, error) {
	a, err := svc.repo.GetAttemptWithQuizAndQuestions(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Quiz == nil || a.Quiz.Questions == nil {
		return Attempt{}, ErrQuizMissing
	}

	_, score := Score(a.Quiz.Questions, answers)
	now := time.Now().UTC()
	a.CompletionTime = &now
	a.Score = &score
	a.Completed = true

	qz := a.Quiz
	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		updated, err := svc.repo.UpdateAttempt(ctx, a, exec)
		if err != nil {
			return err
		}
		if _, err = svc.repo.ReplaceResponses(ctx, a.ID, grade(a.ID, qz.Questions, answers), exec); err != nil {
			return errors.Wrap(err, "saving responses")
		}
		a = updated
		return nil
	})
	if err != nil {
		if _, ok := errors.Cause(err).(*core.ConflictError); ok {
			return Attempt{}, ErrAlreadyCompleted
		}
		return Attempt{}, errors.Wrap(err, "completing attempt")
	}
	a.Quiz = qz
	return a, nil
}

// Submit completes one of student's own attempts; other students' attempts look missing.
func (svc *Service) Submit(ctx context.Context, student *user.Student, attemptID int64, answers map[int64]string) (Attempt, error) {
	a, err := svc.repo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.StudentID != student.User.ID {
		return Attempt{}, ErrAttemptNotFound
	}
	return svc.CompleteAttempt(ctx, attemptID, answers)
}

func (svc *Service) FindAttemptWithQuizAndQuestions(ctx context.Context, id int64) (Attempt, error) {
	return svc.repo.GetAttemptWithQuizAndQuestions(ctx, id)
}

func (svc *Service) HasCompleted(ctx context.Context, quizID, studentID int64) (bool, error) {
	return svc.repo.HasCompletedAttempt(ctx, quizID, studentID)
}

func (svc *Service) ListAttemptsByStudent(ctx context.Context, studentID int64) ([]AttemptSummary, error) {
	return svc.attempts(ctx, AttemptFilter{StudentID: studentID})
}

// ListAttemptsByQuiz lists every attempt on one quiz, for its creator.
func (svc *Service) ListAttemptsByQuiz(ctx context.Context, quizID int64) ([]AttemptSummary, error) {
	return svc.attempts(ctx, AttemptFilter{QuizID: quizID})
}

// ListAttemptsByCreator lists the attempts on every quiz created by creatorID.
func (svc *Service) ListAttemptsByCreator(ctx context.Context, creatorID int64) ([]AttemptSummary, error) {
	return svc.attempts(ctx, AttemptFilter{CreatedBy: creatorID})
}

func (svc *Service) attempts(ctx context.Context, filter AttemptFilter) ([]AttemptSummary, error) {
	attempts, err := svc.repo.QueryAttemptSummaries(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	if attempts == nil {
		attempts = []AttemptSummary{}
	}
	return attempts, nil
}

// GetResult returns the graded attempt to its student or to the quiz's creator; anyone else gets core.ErrForbidden.
func (svc *Service) GetResult(ctx context.Context, viewer user.Identity, attemptID int64) (Result, error) {
	a, err := svc.repo.GetAttemptWithQuizAndQuestions(ctx, attemptID)
	if err != nil {
		return Result{}, err
	}
	if a.Quiz == nil || a.Quiz.Questions == nil {
		return Result{}, ErrQuizMissing
	}

	viewerID := viewer.Account().ID
	if viewerID != a.StudentID && viewerID != a.Quiz.CreatedBy {
		return Result{}, core.ErrForbidden
	}
	if !a.Completed {
		return Result{}, ErrNotCompleted
	}

	responses, err := svc.repo.GetResponses(ctx, a.ID)
	if err != nil {
		return Result{}, errors.Wrap(err, "getting responses")
	}
	if responses == nil {
		responses = []Response{}
	}
	var correct int
	for _, r := range responses {
		if r.IsCorrect {
			correct++
		}
	}

	qz := *a.Quiz
	a.Quiz = nil
	return Result{
		Attempt:   a,
		Quiz:      qz,
		Responses: responses,
		Correct:   correct,
		Total:     len(qz.Questions),
	}, nil
}
