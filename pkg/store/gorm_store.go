package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"careerpilot/pkg/domain"
)

const migrateLockID int64 = 52095209

// profileUpdateTimeout bounds the profile-update transaction. It covers
// two writes only; AI generation happens before the transaction opens.
const profileUpdateTimeout = 10 * time.Second

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &IndustryInsightModel{}, &AssessmentModel{}, &ResumeModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateUser inserts a new user row.
func (s *GormStore) CreateUser(u domain.User) error {
	model, err := userToModel(u)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// GetUserByExternalID looks up a user by identity-provider subject.
func (s *GormStore) GetUserByExternalID(externalID string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("external_id = ?", externalID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	user, err := userFromModel(model)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, true, nil
}

// GetInsightByIndustry returns the insight row for an industry.
func (s *GormStore) GetInsightByIndustry(industry string) (domain.IndustryInsight, bool, error) {
	var model IndustryInsightModel
	if err := s.db.Where("industry = ?", industry).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.IndustryInsight{}, false, nil
		}
		return domain.IndustryInsight{}, false, err
	}
	insight, err := insightFromModel(model)
	if err != nil {
		return domain.IndustryInsight{}, false, err
	}
	return insight, true, nil
}

// CreateInsight inserts a new insight row. A concurrent create for the
// same industry fails on the unique index rather than overwriting.
func (s *GormStore) CreateInsight(insight domain.IndustryInsight) error {
	model, err := insightToModel(insight)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// UpdateInsight replaces the generated fields of an existing industry row.
func (s *GormStore) UpdateInsight(insight domain.IndustryInsight) error {
	model, err := insightToModel(insight)
	if err != nil {
		return err
	}
	tx := s.db.Model(&IndustryInsightModel{}).
		Where("industry = ?", insight.Industry).
		Updates(map[string]any{
			"salary_ranges":      model.SalaryRanges,
			"growth_rate":        model.GrowthRate,
			"demand_level":       model.DemandLevel,
			"top_skills":         model.TopSkills,
			"market_outlook":     model.MarketOutlook,
			"key_trends":         model.KeyTrends,
			"recommended_skills": model.RecommendedSkills,
			"last_updated":       model.LastUpdated,
			"next_update":        model.NextUpdate,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("update insight: industry %q not found", insight.Industry)
	}
	return nil
}

// ListIndustries returns every known industry name in storage order.
func (s *GormStore) ListIndustries() ([]string, error) {
	var industries []string
	if err := s.db.Model(&IndustryInsightModel{}).Pluck("industry", &industries).Error; err != nil {
		return nil, err
	}
	return industries, nil
}

// ApplyProfileUpdate creates newInsight (when non-nil) and updates the
// user's profile fields in one transaction bounded by a hard timeout.
func (s *GormStore) ApplyProfileUpdate(userID string, update ProfileUpdate, newInsight *domain.IndustryInsight) (domain.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), profileUpdateTimeout)
	defer cancel()

	skills, err := stringsToJSON(update.Skills)
	if err != nil {
		return domain.User{}, err
	}

	var out UserModel
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if newInsight != nil {
			model, err := insightToModel(*newInsight)
			if err != nil {
				return err
			}
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("create insight: %w", err)
			}
		}
		res := tx.Model(&UserModel{}).Where("id = ?", userID).Updates(map[string]any{
			"industry":   update.Industry,
			"experience": update.Experience,
			"bio":        update.Bio,
			"skills":     skills,
			"updated_at": time.Now().UTC(),
		})
		if res.Error != nil {
			return fmt.Errorf("update user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("update user: id %q not found", userID)
		}
		if err := tx.First(&out, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("reload user: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return userFromModel(out)
}

// CreateAssessment records one completed quiz attempt.
func (s *GormStore) CreateAssessment(a domain.Assessment) error {
	model, err := assessmentToModel(a)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// ListAssessmentsByUser returns a user's assessments, oldest first.
func (s *GormStore) ListAssessmentsByUser(userID string) ([]domain.Assessment, error) {
	var models []AssessmentModel
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Assessment, 0, len(models))
	for _, m := range models {
		a, err := assessmentFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}

// UpsertResume creates or replaces a user's resume content.
func (s *GormStore) UpsertResume(userID, content string) (domain.Resume, error) {
	now := time.Now().UTC()
	model := ResumeModel{
		ID:        newRowID(),
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&model).Error; err != nil {
		return domain.Resume{}, err
	}
	var saved ResumeModel
	if err := s.db.Where("user_id = ?", userID).First(&saved).Error; err != nil {
		return domain.Resume{}, err
	}
	return resumeFromModel(saved), nil
}

// GetResumeByUser returns a user's resume if present.
func (s *GormStore) GetResumeByUser(userID string) (domain.Resume, bool, error) {
	var model ResumeModel
	if err := s.db.Where("user_id = ?", userID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Resume{}, false, nil
		}
		return domain.Resume{}, false, err
	}
	return resumeFromModel(model), true, nil
}
