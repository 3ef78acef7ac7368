package store

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"careerpilot/pkg/domain"
)

func newRowID() string {
	return uuid.NewString()
}

func stringsToJSON(values []string) (datatypes.JSON, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func stringsFromJSON(data datatypes.JSON) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func userToModel(u domain.User) (UserModel, error) {
	skills, err := stringsToJSON(u.Skills)
	if err != nil {
		return UserModel{}, err
	}
	return UserModel{
		ID:         u.ID,
		ExternalID: u.ExternalID,
		Email:      u.Email,
		Name:       u.Name,
		Industry:   u.Industry,
		Experience: u.Experience,
		Bio:        u.Bio,
		Skills:     skills,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}, nil
}

func userFromModel(m UserModel) (domain.User, error) {
	skills, err := stringsFromJSON(m.Skills)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:         m.ID,
		ExternalID: m.ExternalID,
		Email:      m.Email,
		Name:       m.Name,
		Industry:   m.Industry,
		Experience: m.Experience,
		Bio:        m.Bio,
		Skills:     skills,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}

func insightToModel(insight domain.IndustryInsight) (IndustryInsightModel, error) {
	ranges, err := json.Marshal(insight.SalaryRanges)
	if err != nil {
		return IndustryInsightModel{}, err
	}
	topSkills, err := stringsToJSON(insight.TopSkills)
	if err != nil {
		return IndustryInsightModel{}, err
	}
	keyTrends, err := stringsToJSON(insight.KeyTrends)
	if err != nil {
		return IndustryInsightModel{}, err
	}
	recommended, err := stringsToJSON(insight.RecommendedSkills)
	if err != nil {
		return IndustryInsightModel{}, err
	}
	return IndustryInsightModel{
		Industry:          insight.Industry,
		SalaryRanges:      datatypes.JSON(ranges),
		GrowthRate:        insight.GrowthRate,
		DemandLevel:       string(insight.DemandLevel),
		TopSkills:         topSkills,
		MarketOutlook:     string(insight.MarketOutlook),
		KeyTrends:         keyTrends,
		RecommendedSkills: recommended,
		LastUpdated:       insight.LastUpdated,
		NextUpdate:        insight.NextUpdate,
	}, nil
}

func insightFromModel(m IndustryInsightModel) (domain.IndustryInsight, error) {
	var ranges []domain.SalaryRange
	if len(m.SalaryRanges) > 0 {
		if err := json.Unmarshal(m.SalaryRanges, &ranges); err != nil {
			return domain.IndustryInsight{}, err
		}
	}
	topSkills, err := stringsFromJSON(m.TopSkills)
	if err != nil {
		return domain.IndustryInsight{}, err
	}
	keyTrends, err := stringsFromJSON(m.KeyTrends)
	if err != nil {
		return domain.IndustryInsight{}, err
	}
	recommended, err := stringsFromJSON(m.RecommendedSkills)
	if err != nil {
		return domain.IndustryInsight{}, err
	}
	return domain.IndustryInsight{
		Industry:          m.Industry,
		SalaryRanges:      ranges,
		GrowthRate:        m.GrowthRate,
		DemandLevel:       domain.DemandLevel(m.DemandLevel),
		TopSkills:         topSkills,
		MarketOutlook:     domain.MarketOutlook(m.MarketOutlook),
		KeyTrends:         keyTrends,
		RecommendedSkills: recommended,
		LastUpdated:       m.LastUpdated,
		NextUpdate:        m.NextUpdate,
	}, nil
}

func assessmentToModel(a domain.Assessment) (AssessmentModel, error) {
	questions, err := json.Marshal(a.Questions)
	if err != nil {
		return AssessmentModel{}, err
	}
	return AssessmentModel{
		ID:             a.ID,
		UserID:         a.UserID,
		QuizScore:      a.QuizScore,
		Questions:      datatypes.JSON(questions),
		Category:       a.Category,
		ImprovementTip: a.ImprovementTip,
		CreatedAt:      a.CreatedAt,
	}, nil
}

func assessmentFromModel(m AssessmentModel) (domain.Assessment, error) {
	var questions []domain.QuestionResult
	if len(m.Questions) > 0 {
		if err := json.Unmarshal(m.Questions, &questions); err != nil {
			return domain.Assessment{}, err
		}
	}
	return domain.Assessment{
		ID:             m.ID,
		UserID:         m.UserID,
		QuizScore:      m.QuizScore,
		Questions:      questions,
		Category:       m.Category,
		ImprovementTip: m.ImprovementTip,
		CreatedAt:      m.CreatedAt,
	}, nil
}

func resumeFromModel(m ResumeModel) domain.Resume {
	return domain.Resume{
		ID:        m.ID,
		UserID:    m.UserID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
