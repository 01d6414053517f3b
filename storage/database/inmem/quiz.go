package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo *quizRepository) QueryQuizzes(_ context.Context, filter quiz.QueryFilter, _ ...core.DBExecutor) ([]quiz.Quiz, error) {
	quizzes := make([]quiz.Quiz, 0)
	repo.db.read(func(t *tables) {
		for _, qz := range t.quizzes {
			if filter.ActiveOnly && !qz.IsActive {
				continue
			}
			if filter.CreatedBy != 0 && qz.CreatedBy != filter.CreatedBy {
				continue
			}
			if filter.SubjectArea != "" && t.teachers[qz.CreatedBy].SubjectArea != filter.SubjectArea {
				continue
			}
			quizzes = append(quizzes, qz)
		}
	})
	sort.Slice(quizzes, func(i, j int) bool {
		if quizzes[i].CreatedAt.Equal(quizzes[j].CreatedAt) {
			return quizzes[i].ID > quizzes[j].ID
		}
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})
	return quizzes, nil
}

func (repo *quizRepository) GetQuizByID(_ context.Context, id int64, _ ...core.DBExecutor) (qz quiz.Quiz, err error) {
	err = quiz.ErrNotFound
	repo.db.read(func(t *tables) {
		if found, ok := t.quizzes[id]; ok {
			qz, err = found, nil
		}
	})
	return qz, err
}

func (repo *quizRepository) GetQuizWithQuestions(_ context.Context, id int64, _ ...core.DBExecutor) (qz quiz.Quiz, err error) {
	err = quiz.ErrNotFound
	repo.db.read(func(t *tables) {
		if found, ok := t.quizzes[id]; ok {
			qz, err = found, nil
			qz.Questions = t.quizQuestions(id)
		}
	})
	return qz, err
}

// quizQuestions returns the quiz's questions by position, each with its answers by display order.
func (t *tables) quizQuestions(quizID int64) []quiz.Question {
	questions := make([]quiz.Question, 0)
	for _, q := range t.questions {
		if q.QuizID == quizID {
			q.Answers = t.questionAnswers(q.ID)
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].Position == questions[j].Position {
			return questions[i].ID < questions[j].ID
		}
		return questions[i].Position < questions[j].Position
	})
	return questions
}

func (t *tables) questionAnswers(questionID int64) []quiz.Answer {
	answers := make([]quiz.Answer, 0)
	for _, a := range t.answers {
		if a.QuestionID == questionID {
			answers = append(answers, a)
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		if answers[i].DisplayOrder == answers[j].DisplayOrder {
			return answers[i].ID < answers[j].ID
		}
		return answers[i].DisplayOrder < answers[j].DisplayOrder
	})
	return answers
}

// saveQuestion inserts (zero ID) or updates q and replaces its answers.
func (t *tables) saveQuestion(q quiz.Question) quiz.Question {
	if q.ID == 0 {
		q.ID = t.nextID()
	} else {
		t.deleteAnswers(q.ID)
	}
	answers := make([]quiz.Answer, 0, len(q.Answers))
	for _, a := range q.Answers {
		a.ID = t.nextID()
		a.QuestionID = q.ID
		t.answers[a.ID] = a
		answers = append(answers, a)
	}
	q.Answers = nil
	t.questions[q.ID] = q
	q.Answers = answers
	return q
}

func (t *tables) deleteAnswers(questionID int64) {
	for id, a := range t.answers {
		if a.QuestionID == questionID {
			delete(t.answers, id)
		}
	}
}

func (t *tables) deleteQuestion(id int64) {
	t.deleteAnswers(id)
	for rid, r := range t.responses {
		if r.QuestionID == id {
			delete(t.responses, rid)
		}
	}
	delete(t.questions, id)
}

func (t *tables) deleteAttempt(id int64) {
	for rid, r := range t.responses {
		if r.AttemptID == id {
			delete(t.responses, rid)
		}
	}
	delete(t.attempts, id)
}

func (repo *quizRepository) CreateQuiz(_ context.Context, qz quiz.Quiz, exec ...core.DBExecutor) (quiz.Quiz, error) {
	repo.db.write(exec, func(t *tables) {
		qz.ID = t.nextID()
		questions := qz.Questions
		qz.Questions = nil
		t.quizzes[qz.ID] = qz

		saved := make([]quiz.Question, 0, len(questions))
		for _, q := range questions {
			q.ID = 0
			q.QuizID = qz.ID
			saved = append(saved, t.saveQuestion(q))
		}
		qz.Questions = saved
	})
	return qz, nil
}

func (repo *quizRepository) UpdateQuiz(_ context.Context, qz quiz.Quiz, exec ...core.DBExecutor) (quiz.Quiz, error) {
	err := quiz.ErrNotFound
	repo.db.write(exec, func(t *tables) {
		orig, ok := t.quizzes[qz.ID]
		if !ok {
			return
		}
		err = nil
		qz.CreatedAt = orig.CreatedAt

		keep := make(map[int64]bool, len(qz.Questions))
		for _, q := range qz.Questions {
			if q.ID != 0 {
				keep[q.ID] = true
			}
		}
		for id, q := range t.questions {
			if q.QuizID == qz.ID && !keep[id] {
				t.deleteQuestion(id)
			}
		}

		questions := qz.Questions
		qz.Questions = nil
		t.quizzes[qz.ID] = qz

		saved := make([]quiz.Question, 0, len(questions))
		for _, q := range questions {
			if existing, ok := t.questions[q.ID]; !ok || existing.QuizID != qz.ID {
				q.ID = 0
			}
			q.QuizID = qz.ID
			saved = append(saved, t.saveQuestion(q))
		}
		qz.Questions = saved
	})
	if err != nil {
		return quiz.Quiz{}, err
	}
	return qz, nil
}

func (repo *quizRepository) DeleteQuiz(_ context.Context, id int64, exec ...core.DBExecutor) error {
	err := quiz.ErrNotFound
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.quizzes[id]; !ok {
			return
		}
		err = nil
		for aid, a := range t.attempts {
			if a.QuizID == id {
				t.deleteAttempt(aid)
			}
		}
		for qid, q := range t.questions {
			if q.QuizID == id {
				t.deleteQuestion(qid)
			}
		}
		delete(t.quizzes, id)
	})
	return err
}

func (repo *quizRepository) CreateAttempt(_ context.Context, a quiz.Attempt, exec ...core.DBExecutor) (quiz.Attempt, error) {
	a.Quiz = nil
	repo.db.write(exec, func(t *tables) {
		a.ID = t.nextID()
		t.attempts[a.ID] = a
	})
	return a, nil
}

func (repo *quizRepository) GetAttemptByID(_ context.Context, id int64, _ ...core.DBExecutor) (a quiz.Attempt, err error) {
	err = quiz.ErrAttemptNotFound
	repo.db.read(func(t *tables) {
		if found, ok := t.attempts[id]; ok {
			a, err = found, nil
		}
	})
	return a, err
}

func (repo *quizRepository) GetAttemptWithQuizAndQuestions(_ context.Context, id int64, _ ...core.DBExecutor) (a quiz.Attempt, err error) {
	err = quiz.ErrAttemptNotFound
	repo.db.read(func(t *tables) {
		found, ok := t.attempts[id]
		if !ok {
			return
		}
		a, err = found, nil
		if qz, ok := t.quizzes[a.QuizID]; ok {
			qz.Questions = t.quizQuestions(qz.ID)
			a.Quiz = &qz
		}
	})
	return a, err
}

func (repo *quizRepository) UpdateAttempt(_ context.Context, a quiz.Attempt, exec ...core.DBExecutor) (quiz.Attempt, error) {
	var err error
	a.Quiz = nil
	repo.db.write(exec, func(t *tables) {
		if _, ok := t.attempts[a.ID]; !ok {
			err = quiz.ErrAttemptNotFound
			return
		}
		if a.Completed {
			for _, other := range t.attempts {
				if other.ID != a.ID && other.Completed && other.QuizID == a.QuizID && other.StudentID == a.StudentID {
					err = core.NewConflictError(nil)
					return
				}
			}
		}
		t.attempts[a.ID] = a
	})
	if err != nil {
		return quiz.Attempt{}, err
	}
	return a, nil
}

func (repo *quizRepository) HasCompletedAttempt(_ context.Context, quizID, studentID int64, _ ...core.DBExecutor) (done bool, _ error) {
	repo.db.read(func(t *tables) {
		for _, a := range t.attempts {
			if a.Completed && a.QuizID == quizID && a.StudentID == studentID {
				done = true
				return
			}
		}
	})
	return done, nil
}

func (repo *quizRepository) QueryAttemptSummaries(_ context.Context, filter quiz.AttemptFilter, _ ...core.DBExecutor) ([]quiz.AttemptSummary, error) {
	summaries := make([]quiz.AttemptSummary, 0)
	repo.db.read(func(t *tables) {
		for _, a := range t.attempts {
			qz := t.quizzes[a.QuizID]
			if filter.QuizID != 0 && a.QuizID != filter.QuizID {
				continue
			}
			if filter.StudentID != 0 && a.StudentID != filter.StudentID {
				continue
			}
			if filter.CreatedBy != 0 && qz.CreatedBy != filter.CreatedBy {
				continue
			}
			prof := t.students[a.StudentID]
			name := core.CleanString(prof.FirstName + " " + prof.LastName)
			if name == "" {
				name = t.users[a.StudentID].Username
			}
			summaries = append(summaries, quiz.AttemptSummary{
				ID:             a.ID,
				QuizID:         a.QuizID,
				QuizTitle:      qz.Title,
				StudentID:      a.StudentID,
				StudentName:    name,
				StartTime:      a.StartTime,
				CompletionTime: a.CompletionTime,
				Score:          a.Score,
				Completed:      a.Completed,
			})
		}
	})
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].StartTime.Equal(summaries[j].StartTime) {
			return summaries[i].ID > summaries[j].ID
		}
		return summaries[i].StartTime.After(summaries[j].StartTime)
	})
	return summaries, nil
}

func (repo *quizRepository) ReplaceResponses(_ context.Context, attemptID int64, rs []quiz.Response, exec ...core.DBExecutor) ([]quiz.Response, error) {
	saved := make([]quiz.Response, 0, len(rs))
	repo.db.write(exec, func(t *tables) {
		for id, r := range t.responses {
			if r.AttemptID == attemptID {
				delete(t.responses, id)
			}
		}
		for _, r := range rs {
			r.ID = t.nextID()
			r.AttemptID = attemptID
			t.responses[r.ID] = r
			saved = append(saved, r)
		}
	})
	return saved, nil
}

func (repo *quizRepository) GetResponses(_ context.Context, attemptID int64, _ ...core.DBExecutor) ([]quiz.Response, error) {
	responses := make([]quiz.Response, 0)
	repo.db.read(func(t *tables) {
		for _, r := range t.responses {
			if r.AttemptID == attemptID {
				responses = append(responses, r)
			}
		}
	})
	sort.Slice(responses, func(i, j int) bool { return responses[i].ID < responses[j].ID })
	return responses, nil
}
