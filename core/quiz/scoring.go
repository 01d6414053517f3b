package quiz

// Score counts the questions whose submitted answer equals the stored correct answer
// (exact, case-sensitive) and returns floor(correct*100/len(questions)), or 0 without questions.
func Score(questions []Question, answers map[int64]string) (correct, score int) {
	for _, q := range questions {
		if ans, ok := answers[q.ID]; ok && ans == q.CorrectAnswer {
			correct++
		}
	}
	if len(questions) == 0 {
		return 0, 0
	}
	return correct, correct * 100 / len(questions)
}

// grade builds one Response per question of the quiz.
func grade(attemptID int64, questions []Question, answers map[int64]string) []Response {
	responses := make([]Response, 0, len(questions))
	for _, q := range questions {
		ans := answers[q.ID]
		responses = append(responses, Response{
			AttemptID:  attemptID,
			QuestionID: q.ID,
			AnswerText: ans,
			IsCorrect:  ans == q.CorrectAnswer,
		})
	}
	return responses
}
