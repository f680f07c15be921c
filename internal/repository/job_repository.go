package repository

import (
	"context"

	"gorm.io/gorm"

	"pipeline/internal/models"
)

// JobRepository handles JobRecord persistence (A3 Job Store).
type JobRepository interface {
	Repository[models.JobRecord]
	FindByStatus(ctx context.Context, status models.JobStatus, offset, limit int) ([]models.JobRecord, int64, error)
}

type jobRepository struct {
	*BaseRepository[models.JobRecord]
	db *gorm.DB
}

// NewJobRepository returns a JobRepository backed by db.
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{
		BaseRepository: NewBaseRepository[models.JobRecord](db),
		db:             db,
	}
}

// FindByID overrides BaseRepository's generic lookup, which assumes a
// primary-key column named "id"; JobRecord's primary key column is
// "job_id".
func (r *jobRepository) FindByID(ctx context.Context, id interface{}) (*models.JobRecord, error) {
	var record models.JobRecord
	if err := r.db.WithContext(ctx).First(&record, "job_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete overrides BaseRepository's generic delete for the same reason as
// FindByID.
func (r *jobRepository) Delete(ctx context.Context, id interface{}) error {
	return r.db.WithContext(ctx).Delete(&models.JobRecord{}, "job_id = ?", id).Error
}

func (r *jobRepository) FindByStatus(ctx context.Context, status models.JobStatus, offset, limit int) ([]models.JobRecord, int64, error) {
	var records []models.JobRecord
	var count int64

	db := r.db.WithContext(ctx).Model(&models.JobRecord{}).Where("status = ?", status)
	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).Order("created_at desc").Find(&records).Error
	return records, count, err
}
