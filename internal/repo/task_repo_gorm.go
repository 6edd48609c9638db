package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"timbel-weekly/internal/domain"
)

type TaskRepo struct{ db *gorm.DB }

func NewTaskRepo(db *gorm.DB) *TaskRepo { return &TaskRepo{db: db} }

func (r *TaskRepo) FindByID(ctx context.Context, id string) (*domain.WeeklyTask, error) {
	var t domain.WeeklyTask
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) FindByKey(ctx context.Context, userID string, year, week int) (*domain.WeeklyTask, error) {
	var t domain.WeeklyTask
	err := r.db.WithContext(ctx).
		First(&t, "user_id = ? AND year = ? AND week_number = ?", userID, year, week).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) ListByUserYear(ctx context.Context, userID string, year int) ([]domain.WeeklyTask, error) {
	var ts []domain.WeeklyTask
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND year = ?", userID, year).
		Order("week_number ASC").
		Find(&ts).Error
	return ts, err
}

// Upsert 按自然键原子写入，消除先查后写的并发重复行
func (r *TaskRepo) Upsert(ctx context.Context, t *domain.WeeklyTask) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "year"}, {Name: "week_number"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"this_week_tasks", "next_week_plan", "note", "submission_date", "updated_at",
			}),
		}).
		Create(t).Error
}
