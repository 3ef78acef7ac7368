package store

import "careerpilot/pkg/domain"

// ProfileUpdate carries the user fields mutated by onboarding and
// profile-update flows.
type ProfileUpdate struct {
	Industry   string
	Experience int
	Bio        string
	Skills     []string
}

// Store defines persistence operations for users, industry insights,
// assessments, and resumes.
type Store interface {
	// users
	CreateUser(domain.User) error
	GetUserByExternalID(externalID string) (domain.User, bool, error)

	// industry insights (keyed by industry name, unique)
	GetInsightByIndustry(industry string) (domain.IndustryInsight, bool, error)
	CreateInsight(domain.IndustryInsight) error
	UpdateInsight(domain.IndustryInsight) error
	ListIndustries() ([]string, error)

	// ApplyProfileUpdate runs one bounded transaction: create newInsight
	// when non-nil, then update the user row. Either both persist or
	// neither does.
	ApplyProfileUpdate(userID string, update ProfileUpdate, newInsight *domain.IndustryInsight) (domain.User, error)

	// assessments
	CreateAssessment(domain.Assessment) error
	ListAssessmentsByUser(userID string) ([]domain.Assessment, error)

	// resumes
	UpsertResume(userID, content string) (domain.Resume, error)
	GetResumeByUser(userID string) (domain.Resume, bool, error)
}
