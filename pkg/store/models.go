package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID         string `gorm:"primaryKey"`
	ExternalID string `gorm:"uniqueIndex;not null"`
	Email      string `gorm:"not null"`
	Name       string
	Industry   string `gorm:"index"`
	Experience int
	Bio        string         `gorm:"type:text"`
	Skills     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time
}

type IndustryInsightModel struct {
	ID                uint   `gorm:"primaryKey"`
	Industry          string `gorm:"uniqueIndex;not null"`
	SalaryRanges      datatypes.JSON `gorm:"type:jsonb"`
	GrowthRate        float64
	DemandLevel       string
	TopSkills         datatypes.JSON `gorm:"type:jsonb"`
	MarketOutlook     string
	KeyTrends         datatypes.JSON `gorm:"type:jsonb"`
	RecommendedSkills datatypes.JSON `gorm:"type:jsonb"`
	LastUpdated       time.Time      `gorm:"not null"`
	NextUpdate        time.Time      `gorm:"not null"`
}

type AssessmentModel struct {
	ID             string         `gorm:"primaryKey"`
	UserID         string         `gorm:"not null;index"`
	QuizScore      float64        `gorm:"not null"`
	Questions      datatypes.JSON `gorm:"type:jsonb"`
	Category       string         `gorm:"not null"`
	ImprovementTip *string
	CreatedAt      time.Time `gorm:"not null;index"`
}

type ResumeModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"uniqueIndex;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
