package domain

import "time"

type DemandLevel string

const (
	DemandHigh   DemandLevel = "High"
	DemandMedium DemandLevel = "Medium"
	DemandLow    DemandLevel = "Low"
)

type MarketOutlook string

const (
	OutlookPositive MarketOutlook = "Positive"
	OutlookNeutral  MarketOutlook = "Neutral"
	OutlookNegative MarketOutlook = "Negative"
)

// SalaryRange describes pay for one role within an industry.
type SalaryRange struct {
	Role     string  `json:"role"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Location string  `json:"location"`
}

// IndustryInsight is the AI-generated market snapshot for one industry.
// At most one row exists per industry; NextUpdate marks the refresh boundary.
type IndustryInsight struct {
	Industry          string        `json:"industry"`
	SalaryRanges      []SalaryRange `json:"salaryRanges"`
	GrowthRate        float64       `json:"growthRate"`
	DemandLevel       DemandLevel   `json:"demandLevel"`
	TopSkills         []string      `json:"topSkills"`
	MarketOutlook     MarketOutlook `json:"marketOutlook"`
	KeyTrends         []string      `json:"keyTrends"`
	RecommendedSkills []string      `json:"recommendedSkills"`
	LastUpdated       time.Time     `json:"lastUpdated"`
	NextUpdate        time.Time     `json:"nextUpdate"`
}

// User references its industry insight by industry name, not by key.
// Renaming an industry therefore orphans users pointing at the old name.
type User struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"-"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	Industry   string    `json:"industry,omitempty"`
	Experience int       `json:"experience"`
	Bio        string    `json:"bio,omitempty"`
	Skills     []string  `json:"skills"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// QuizQuestion is one generated multiple-choice question.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// QuestionResult is a graded question as stored on an assessment.
type QuestionResult struct {
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	UserAnswer    string   `json:"userAnswer"`
	IsCorrect     bool     `json:"isCorrect"`
	Explanation   string   `json:"explanation"`
}

// Assessment is one completed quiz attempt. Immutable once created.
type Assessment struct {
	ID             string           `json:"id"`
	UserID         string           `json:"userId"`
	QuizScore      float64          `json:"quizScore"`
	Questions      []QuestionResult `json:"questions"`
	Category       string           `json:"category"`
	ImprovementTip *string          `json:"improvementTip,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// Resume holds a user's resume content. At most one per user.
type Resume struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
