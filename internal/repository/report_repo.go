package repository

import (
	"context"

	"learnhub/internal/domain"
	"learnhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report *models.ForumReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *ReportRepository) GetByID(ctx context.Context, id uint) (*models.ForumReport, error) {
	var report models.ForumReport
	err := r.db.WithContext(ctx).Preload("Reporter").Preload("TargetUser").First(&report, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &report, nil
}

func (r *ReportRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.ForumReport, error) {
	var report models.ForumReport
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&report, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &report, nil
}

func (r *ReportRepository) Update(ctx context.Context, report *models.ForumReport) error {
	return r.db.WithContext(ctx).Omit("Reporter", "TargetUser").Save(report).Error
}

func (r *ReportRepository) ExistsPending(ctx context.Context, targetType string, targetID, reporterID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ForumReport{}).
		Where("target_type = ? AND target_id = ? AND reporter_id = ? AND status = ?",
			targetType, targetID, reporterID, domain.ReportPending).
		Count(&n).Error
	return n > 0, err
}

// List returns reports matching f, newest first.
func (r *ReportRepository) List(ctx context.Context, f ReportFilter) ([]models.ForumReport, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ForumReport{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Reason != "" {
		q = q.Where("reason = ?", f.Reason)
	}
	if f.CourseID != 0 {
		q = q.Where("course_id = ?", f.CourseID)
	}
	if f.CourseIDs != nil {
		if len(f.CourseIDs) == 0 {
			return []models.ForumReport{}, 0, nil
		}
		q = q.Where("course_id IN ?", f.CourseIDs)
	}
	if f.TargetUserID != 0 {
		q = q.Where("target_user_id = ?", f.TargetUserID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.ForumReport
	err := paginate(q.Preload("Reporter").Preload("TargetUser").Order("created_at DESC"), f.Page, f.Limit).Find(&list).Error
	return list, total, err
}
