package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/quiz"
)

type (
	quizRow struct {
		ID              int64     `db:"id"`
		Title           string    `db:"title"`
		Description     string    `db:"description"`
		CreatedBy       int64     `db:"created_by"`
		DurationMinutes int       `db:"duration_minutes"`
		IsActive        bool      `db:"is_active"`
		CreatedAt       time.Time `db:"created_at"`
	}

	questionRow struct {
		ID            int64  `db:"id"`
		QuizID        int64  `db:"quiz_id"`
		Text          string `db:"question_text"`
		Type          string `db:"question_type"`
		CorrectAnswer string `db:"correct_answer"`
		Points        int    `db:"points"`
		Position      int    `db:"position"`
	}

	answerRow struct {
		ID           int64  `db:"id"`
		QuestionID   int64  `db:"question_id"`
		Text         string `db:"answer_text"`
		IsCorrect    bool   `db:"is_correct"`
		DisplayOrder int    `db:"display_order"`
	}

	attemptRow struct {
		ID             int64     `db:"id"`
		QuizID         int64     `db:"quiz_id"`
		StudentID      int64     `db:"student_id"`
		StartTime      time.Time `db:"start_time"`
		CompletionTime null.Time `db:"completion_time"`
		Score          null.Int  `db:"score"`
		Completed      bool      `db:"is_completed"`
	}

	responseRow struct {
		ID         int64  `db:"id"`
		AttemptID  int64  `db:"attempt_id"`
		QuestionID int64  `db:"question_id"`
		AnswerText string `db:"answer_text"`
		IsCorrect  bool   `db:"is_correct"`
	}
)

const (
	quizColumns     = "q.id, q.title, q.description, q.created_by, q.duration_minutes, q.is_active, q.created_at"
	questionColumns = "id, quiz_id, question_text, question_type, correct_answer, points, position"
	attemptColumns  = "id, quiz_id, student_id, start_time, completion_time, score, is_completed"
)

func (r quizRow) unboil() quiz.Quiz {
	return quiz.Quiz{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		CreatedBy:       r.CreatedBy,
		DurationMinutes: r.DurationMinutes,
		IsActive:        r.IsActive,
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

func (r questionRow) unboil() quiz.Question {
	return quiz.Question{
		ID:            r.ID,
		QuizID:        r.QuizID,
		Text:          r.Text,
		Type:          quiz.QuestionType(r.Type),
		CorrectAnswer: r.CorrectAnswer,
		Points:        r.Points,
		Position:      r.Position,
		Answers:       []quiz.Answer{},
	}
}

func (r answerRow) unboil() quiz.Answer {
	return quiz.Answer{
		ID:           r.ID,
		QuestionID:   r.QuestionID,
		Text:         r.Text,
		IsCorrect:    r.IsCorrect,
		DisplayOrder: r.DisplayOrder,
	}
}

func (r attemptRow) unboil() quiz.Attempt {
	a := quiz.Attempt{
		ID:        r.ID,
		QuizID:    r.QuizID,
		StudentID: r.StudentID,
		StartTime: r.StartTime.UTC(),
		Completed: r.Completed,
	}
	if r.CompletionTime.Valid {
		t := r.CompletionTime.Time.UTC()
		a.CompletionTime = &t
	}
	if r.Score.Valid {
		score := r.Score.Int
		a.Score = &score
	}
	return a
}

func (r responseRow) unboil() quiz.Response {
	return quiz.Response{
		ID:         r.ID,
		AttemptID:  r.AttemptID,
		QuestionID: r.QuestionID,
		AnswerText: r.AnswerText,
		IsCorrect:  r.IsCorrect,
	}
}

type quizRepository struct {
	repository
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(exec core.DBExecutor) *quizRepository {
	return &quizRepository{repository{exec: exec}}
}

func (repo quizRepository) QueryQuizzes(ctx context.Context, filter quiz.QueryFilter, exec ...core.DBExecutor) ([]quiz.Quiz, error) {
	q := "SELECT " + quizColumns + " FROM quizzes q"
	var wb whereBuilder
	if filter.SubjectArea != "" {
		q += " JOIN teacher_profiles tp ON tp.user_id = q.created_by"
		wb.add("tp.subject_area = ?", filter.SubjectArea)
	}
	if filter.ActiveOnly {
		wb.add("q.is_active = ?", true)
	}
	if filter.CreatedBy != 0 {
		wb.add("q.created_by = ?", filter.CreatedBy)
	}
	q += wb.String() + " ORDER BY q.created_at DESC, q.id DESC"

	var rows []quizRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, wb.args...); err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	quizzes := make([]quiz.Quiz, 0, len(rows))
	for _, r := range rows {
		quizzes = append(quizzes, r.unboil())
	}
	return quizzes, nil
}

func (repo quizRepository) GetQuizByID(ctx context.Context, id int64, exec ...core.DBExecutor) (quiz.Quiz, error) {
	var r quizRow
	if err := repo.getExec(exec).GetContext(ctx, &r, "SELECT "+quizColumns+" FROM quizzes q WHERE q.id = $1", id); err != nil {
		return quiz.Quiz{}, trapNoRowsErr(err, quiz.ErrNotFound, "finding quiz")
	}
	return r.unboil(), nil
}

func (repo quizRepository) GetQuizWithQuestions(ctx context.Context, id int64, exec ...core.DBExecutor) (quiz.Quiz, error) {
	exe := repo.getExec(exec)
	qz, err := repo.GetQuizByID(ctx, id, exe)
	if err != nil {
		return quiz.Quiz{}, err
	}
	if qz.Questions, err = repo.loadQuestions(ctx, exe, id); err != nil {
		return quiz.Quiz{}, err
	}
	return qz, nil
}

// loadQuestions returns the quiz's questions by position, each with its answers by display order.
func (repo quizRepository) loadQuestions(ctx context.Context, exe core.DBExecutor, quizID int64) ([]quiz.Question, error) {
	var qRows []questionRow
	q := "SELECT " + questionColumns + " FROM quiz_questions WHERE quiz_id = $1 ORDER BY position, id"
	if err := exe.SelectContext(ctx, &qRows, q, quizID); err != nil {
		return nil, errors.Wrap(err, "loading questions")
	}

	var aRows []answerRow
	q = `SELECT a.id, a.question_id, a.answer_text, a.is_correct, a.display_order
		FROM quiz_answers a JOIN quiz_questions qq ON qq.id = a.question_id
		WHERE qq.quiz_id = $1 ORDER BY a.display_order, a.id`
	if err := exe.SelectContext(ctx, &aRows, q, quizID); err != nil {
		return nil, errors.Wrap(err, "loading answers")
	}

	questions := make([]quiz.Question, 0, len(qRows))
	idx := make(map[int64]int, len(qRows))
	for i, r := range qRows {
		questions = append(questions, r.unboil())
		idx[r.ID] = i
	}
	for _, r := range aRows {
		if i, ok := idx[r.QuestionID]; ok {
			questions[i].Answers = append(questions[i].Answers, r.unboil())
		}
	}
	return questions, nil
}

// saveQuestion inserts (zero ID) or updates q, then replaces its answers.
func (repo quizRepository) saveQuestion(ctx context.Context, exe core.DBExecutor, q quiz.Question) (quiz.Question, error) {
	if q.ID != 0 {
		res, err := exe.ExecContext(ctx, `UPDATE quiz_questions SET question_text = $3, question_type = $4,
			correct_answer = $5, points = $6, position = $7 WHERE id = $1 AND quiz_id = $2`,
			q.ID, q.QuizID, q.Text, string(q.Type), q.CorrectAnswer, q.Points, q.Position)
		if err != nil {
			return quiz.Question{}, errors.Wrap(err, "updating question")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			q.ID = 0
		} else if _, err = exe.ExecContext(ctx, "DELETE FROM quiz_answers WHERE question_id = $1", q.ID); err != nil {
			return quiz.Question{}, errors.Wrap(err, "deleting answers")
		}
	}
	if q.ID == 0 {
		err := exe.GetContext(ctx, &q.ID, `INSERT INTO quiz_questions
			(quiz_id, question_text, question_type, correct_answer, points, position)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			q.QuizID, q.Text, string(q.Type), q.CorrectAnswer, q.Points, q.Position)
		if err != nil {
			return quiz.Question{}, errors.Wrap(err, "inserting question")
		}
	}

	answers := make([]quiz.Answer, 0, len(q.Answers))
	for _, a := range q.Answers {
		a.QuestionID = q.ID
		err := exe.GetContext(ctx, &a.ID, `INSERT INTO quiz_answers (question_id, answer_text, is_correct, display_order)
			VALUES ($1, $2, $3, $4) RETURNING id`, a.QuestionID, a.Text, a.IsCorrect, a.DisplayOrder)
		if err != nil {
			return quiz.Question{}, errors.Wrap(err, "inserting answer")
		}
		answers = append(answers, a)
	}
	q.Answers = answers
	return q, nil
}

func (repo quizRepository) saveQuestions(ctx context.Context, exe core.DBExecutor, qz quiz.Quiz) ([]quiz.Question, error) {
	saved := make([]quiz.Question, 0, len(qz.Questions))
	for _, q := range qz.Questions {
		q.QuizID = qz.ID
		sq, err := repo.saveQuestion(ctx, exe, q)
		if err != nil {
			return nil, err
		}
		saved = append(saved, sq)
	}
	return saved, nil
}

func (repo quizRepository) CreateQuiz(ctx context.Context, qz quiz.Quiz, exec ...core.DBExecutor) (quiz.Quiz, error) {
	exe := repo.getExec(exec)
	err := exe.GetContext(ctx, &qz.ID, `INSERT INTO quizzes (title, description, created_by, duration_minutes, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		qz.Title, qz.Description, qz.CreatedBy, qz.DurationMinutes, qz.IsActive, qz.CreatedAt.UTC())
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}

	for i := range qz.Questions {
		qz.Questions[i].ID = 0
	}
	if qz.Questions, err = repo.saveQuestions(ctx, exe, qz); err != nil {
		return quiz.Quiz{}, err
	}
	return qz, nil
}

func (repo quizRepository) UpdateQuiz(ctx context.Context, qz quiz.Quiz, exec ...core.DBExecutor) (quiz.Quiz, error) {
	exe := repo.getExec(exec)
	err := exe.GetContext(ctx, &qz.CreatedAt, `UPDATE quizzes SET title = $2, description = $3, created_by = $4,
		duration_minutes = $5, is_active = $6 WHERE id = $1 RETURNING created_at`,
		qz.ID, qz.Title, qz.Description, qz.CreatedBy, qz.DurationMinutes, qz.IsActive)
	if err != nil {
		return quiz.Quiz{}, trapNoRowsErr(err, quiz.ErrNotFound, "updating quiz")
	}
	qz.CreatedAt = qz.CreatedAt.UTC()

	keep := make([]int64, 0, len(qz.Questions))
	for _, q := range qz.Questions {
		if q.ID != 0 {
			keep = append(keep, q.ID)
		}
	}
	_, err = exe.ExecContext(ctx, "DELETE FROM quiz_questions WHERE quiz_id = $1 AND NOT (id = ANY($2))",
		qz.ID, pq.Int64Array(keep))
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "deleting removed questions")
	}

	if qz.Questions, err = repo.saveQuestions(ctx, exe, qz); err != nil {
		return quiz.Quiz{}, err
	}
	return qz, nil
}

func (repo quizRepository) DeleteQuiz(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM quizzes WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quiz.ErrNotFound
	}
	return nil
}

func (repo quizRepository) CreateAttempt(ctx context.Context, a quiz.Attempt, exec ...core.DBExecutor) (quiz.Attempt, error) {
	a.Quiz = nil
	err := repo.getExec(exec).GetContext(ctx, &a.ID, `INSERT INTO quiz_attempts (quiz_id, student_id, start_time, is_completed)
		VALUES ($1, $2, $3, FALSE) RETURNING id`, a.QuizID, a.StudentID, a.StartTime.UTC())
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return a, nil
}

func (repo quizRepository) GetAttemptByID(ctx context.Context, id int64, exec ...core.DBExecutor) (quiz.Attempt, error) {
	var r attemptRow
	if err := repo.getExec(exec).GetContext(ctx, &r, "SELECT "+attemptColumns+" FROM quiz_attempts WHERE id = $1", id); err != nil {
		return quiz.Attempt{}, trapNoRowsErr(err, quiz.ErrAttemptNotFound, "finding attempt")
	}
	return r.unboil(), nil
}

func (repo quizRepository) GetAttemptWithQuizAndQuestions(ctx context.Context, id int64, exec ...core.DBExecutor) (quiz.Attempt, error) {
	exe := repo.getExec(exec)
	a, err := repo.GetAttemptByID(ctx, id, exe)
	if err != nil {
		return quiz.Attempt{}, err
	}
	qz, err := repo.GetQuizWithQuestions(ctx, a.QuizID, exe)
	switch {
	case err == nil:
		a.Quiz = &qz
	case core.IsNotFound(err):
	default:
		return quiz.Attempt{}, err
	}
	return a, nil
}

func (repo quizRepository) UpdateAttempt(ctx context.Context, a quiz.Attempt, exec ...core.DBExecutor) (quiz.Attempt, error) {
	a.Quiz = nil
	var completion null.Time
	if a.CompletionTime != nil {
		completion = null.TimeFrom(a.CompletionTime.UTC())
	}
	res, err := repo.getExec(exec).ExecContext(ctx,
		"UPDATE quiz_attempts SET completion_time = $2, score = $3, is_completed = $4 WHERE id = $1",
		a.ID, completion, null.IntFromPtr(a.Score), a.Completed)
	if err != nil {
		if isUniqueViolation(err) {
			return quiz.Attempt{}, core.NewConflictError(err)
		}
		return quiz.Attempt{}, errors.Wrap(err, "updating attempt")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quiz.Attempt{}, quiz.ErrAttemptNotFound
	}
	return a, nil
}

func (repo quizRepository) HasCompletedAttempt(ctx context.Context, quizID, studentID int64, exec ...core.DBExecutor) (bool, error) {
	var done bool
	q := "SELECT EXISTS (SELECT 1 FROM quiz_attempts WHERE quiz_id = $1 AND student_id = $2 AND is_completed)"
	if err := repo.getExec(exec).GetContext(ctx, &done, q, quizID, studentID); err != nil {
		return false, errors.Wrap(err, "checking completed attempts")
	}
	return done, nil
}

func (repo quizRepository) QueryAttemptSummaries(ctx context.Context, filter quiz.AttemptFilter, exec ...core.DBExecutor) ([]quiz.AttemptSummary, error) {
	q := `SELECT a.id, a.quiz_id, q.title AS quiz_title, a.student_id,
			COALESCE(NULLIF(TRIM(sp.first_name || ' ' || sp.last_name), ''), u.username) AS student_name,
			a.start_time, a.completion_time, a.score, a.is_completed
		FROM quiz_attempts a
		JOIN quizzes q ON q.id = a.quiz_id
		JOIN users u ON u.id = a.student_id
		LEFT JOIN student_profiles sp ON sp.user_id = a.student_id`
	var wb whereBuilder
	if filter.QuizID != 0 {
		wb.add("a.quiz_id = ?", filter.QuizID)
	}
	if filter.StudentID != 0 {
		wb.add("a.student_id = ?", filter.StudentID)
	}
	if filter.CreatedBy != 0 {
		wb.add("q.created_by = ?", filter.CreatedBy)
	}
	q += wb.String() + " ORDER BY a.start_time DESC, a.id DESC"

	summaries := make([]quiz.AttemptSummary, 0)
	if err := queries.Raw(q, wb.args...).Bind(ctx, repo.getExec(exec), &summaries); err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	for i := range summaries {
		summaries[i].StartTime = summaries[i].StartTime.UTC()
		if ct := summaries[i].CompletionTime; ct != nil {
			utc := ct.UTC()
			summaries[i].CompletionTime = &utc
		}
	}
	return summaries, nil
}

func (repo quizRepository) ReplaceResponses(ctx context.Context, attemptID int64, rs []quiz.Response, exec ...core.DBExecutor) ([]quiz.Response, error) {
	exe := repo.getExec(exec)
	if _, err := exe.ExecContext(ctx, "DELETE FROM quiz_responses WHERE attempt_id = $1", attemptID); err != nil {
		return nil, errors.Wrap(err, "deleting responses")
	}
	saved := make([]quiz.Response, 0, len(rs))
	for _, r := range rs {
		r.AttemptID = attemptID
		err := exe.GetContext(ctx, &r.ID, `INSERT INTO quiz_responses (attempt_id, question_id, answer_text, is_correct)
			VALUES ($1, $2, $3, $4) RETURNING id`, r.AttemptID, r.QuestionID, r.AnswerText, r.IsCorrect)
		if err != nil {
			return nil, errors.Wrap(err, "inserting response")
		}
		saved = append(saved, r)
	}
	return saved, nil
}

func (repo quizRepository) GetResponses(ctx context.Context, attemptID int64, exec ...core.DBExecutor) ([]quiz.Response, error) {
	var rows []responseRow
	q := `SELECT r.id, r.attempt_id, r.question_id, r.answer_text, r.is_correct
		FROM quiz_responses r JOIN quiz_questions qq ON qq.id = r.question_id
		WHERE r.attempt_id = $1 ORDER BY qq.position, r.id`
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, attemptID); err != nil {
		return nil, errors.Wrap(err, "loading responses")
	}
	responses := make([]quiz.Response, 0, len(rows))
	for _, r := range rows {
		responses = append(responses, r.unboil())
	}
	return responses, nil
}
