package repositories

import (
	"context"

	"github.com/Calstins/teensha/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepository struct {
	BaseRepository
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Columns overwritten when a teen resubmits a task. Review fields are reset too.
var resubmitColumns = []string{
	"content", "file_urls", "status", "score",
	"reviewed_by_id", "reviewed_at", "review_note",
	"submitted_at", "updated_at",
}

func (ds *SubmissionRepository) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	return first[model.Submission](ds.conn(ctx), "id = ?", id)
}

func (ds *SubmissionRepository) FindSubmission(ctx context.Context, taskID, teenID string) (*model.Submission, error) {
	return first[model.Submission](ds.conn(ctx), "task_id = ? AND teen_id = ?", taskID, teenID)
}

func (ds *SubmissionRepository) UpsertSubmission(ctx context.Context, submission *model.Submission) (*model.Submission, error) {
	err := ds.conn(ctx).Omit("Task").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}, {Name: "teen_id"}},
		DoUpdates: clause.AssignmentColumns(resubmitColumns),
	}).Create(submission).Error
	if err != nil {
		return nil, err
	}
	return ds.FindSubmission(ctx, submission.TaskID, submission.TeenID)
}

func (ds *SubmissionRepository) SaveReview(ctx context.Context, submission *model.Submission) error {
	res := ds.conn(ctx).Model(&model.Submission{}).Where("id = ?", submission.ID).Updates(map[string]interface{}{
		"status":         submission.Status,
		"score":          submission.Score,
		"review_note":    submission.ReviewNote,
		"reviewed_by_id": submission.ReviewedByID,
		"reviewed_at":    submission.ReviewedAt,
		"updated_at":     submission.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (ds *SubmissionRepository) DeleteSubmission(ctx context.Context, id string) error {
	res := ds.conn(ctx).Where("id = ?", id).Delete(&model.Submission{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountApprovedSubmissions ignores submissions whose task has since been removed.
func (ds *SubmissionRepository) CountApprovedSubmissions(ctx context.Context, teenID, challengeID string) (int64, error) {
	var n int64
	err := ds.conn(ctx).Model(&model.Submission{}).
		Joins("JOIN tasks ON tasks.id = submissions.task_id AND tasks.challenge_id = submissions.challenge_id").
		Where("submissions.teen_id = ? AND submissions.challenge_id = ? AND submissions.status = ?",
			teenID, challengeID, model.SubmissionApproved).
		Count(&n).Error
	return n, err
}

// ListTeenSubmissions returns a teen's submissions, optionally for one challenge.
func (ds *SubmissionRepository) ListTeenSubmissions(ctx context.Context, teenID, challengeID string) ([]model.Submission, error) {
	var submissions []model.Submission
	query := ds.conn(ctx).Preload("Task").Where("teen_id = ?", teenID)
	if challengeID != "" {
		query = query.Where("challenge_id = ?", challengeID)
	}
	if err := query.Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

// ListForReview pages through submissions for staff, newest first.
func (ds *SubmissionRepository) ListForReview(ctx context.Context, status model.SubmissionStatus, challengeID string, page, limit int) ([]model.Submission, int64, error) {
	var (
		submissions []model.Submission
		total       int64
	)
	filtered := func() *gorm.DB {
		query := ds.conn(ctx).Model(&model.Submission{})
		if status != "" {
			query = query.Where("status = ?", status)
		}
		if challengeID != "" {
			query = query.Where("challenge_id = ?", challengeID)
		}
		return query
	}
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, limit, offset := Page(page, limit)
	if err := filtered().Preload("Task").Order("submitted_at DESC").Offset(offset).Limit(limit).Find(&submissions).Error; err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}
