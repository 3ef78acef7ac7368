package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"careerpilot/pkg/ai"
	"careerpilot/pkg/domain"
)

const assessmentCategory = "Technical"

type quizPayload struct {
	Questions []domain.QuizQuestion `json:"questions"`
}

// GenerateQuiz produces 10 multiple-choice questions tailored to the
// caller's industry and skills.
func (a *App) GenerateQuiz(ctx context.Context, externalID string) ([]domain.QuizQuestion, error) {
	user, err := a.resolveUser(externalID)
	if err != nil {
		return nil, err
	}
	raw, err := a.gen.GenerateText(ctx, quizPrompt(user.Industry, user.Skills))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuizGenerationFailed, err)
	}
	var payload quizPayload
	if err := ai.DecodeJSON(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuizGenerationFailed, err)
	}
	return payload.Questions, nil
}

// SaveQuizResult grades the quiz pairwise against the user's answers and
// persists one immutable assessment. When at least one answer is wrong, a
// short remediation tip is requested from the model; a tip failure is
// logged and the assessment still saves without one.
func (a *App) SaveQuizResult(ctx context.Context, externalID string, questions []domain.QuizQuestion, answers []string, score float64) (domain.Assessment, error) {
	user, err := a.resolveUser(externalID)
	if err != nil {
		return domain.Assessment{}, err
	}

	results := make([]domain.QuestionResult, 0, len(questions))
	var wrong []domain.QuestionResult
	for i, q := range questions {
		var given string
		if i < len(answers) {
			given = answers[i]
		}
		result := domain.QuestionResult{
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			UserAnswer:    given,
			IsCorrect:     q.CorrectAnswer == given,
			Explanation:   q.Explanation,
		}
		results = append(results, result)
		if !result.IsCorrect {
			wrong = append(wrong, result)
		}
	}

	var improvementTip *string
	if len(wrong) > 0 {
		raw, err := a.gen.GenerateText(ctx, improvementTipPrompt(user.Industry, wrong))
		if err != nil {
			slog.Warn("improvement tip generation failed", "user_id", user.ID, "err", err)
		} else {
			tip := strings.TrimSpace(ai.CleanResponse(raw))
			if tip != "" {
				improvementTip = &tip
			}
		}
	}

	assessment := domain.Assessment{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		QuizScore:      score,
		Questions:      results,
		Category:       assessmentCategory,
		ImprovementTip: improvementTip,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.CreateAssessment(assessment); err != nil {
		return domain.Assessment{}, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return assessment, nil
}

// GetAssessments returns the caller's quiz history, oldest first.
func (a *App) GetAssessments(_ context.Context, externalID string) ([]domain.Assessment, error) {
	user, err := a.resolveUser(externalID)
	if err != nil {
		return nil, err
	}
	assessments, err := a.store.ListAssessmentsByUser(user.ID)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}
