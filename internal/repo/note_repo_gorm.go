package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"timbel-weekly/internal/domain"
)

type NoteRepo struct{ db *gorm.DB }

func NewNoteRepo(db *gorm.DB) *NoteRepo { return &NoteRepo{db: db} }

func (r *NoteRepo) Create(ctx context.Context, n *domain.TaskNote) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NoteRepo) FindByID(ctx context.Context, id string) (*domain.TaskNote, error) {
	var n domain.TaskNote
	err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NoteRepo) ListByTask(ctx context.Context, weeklyTaskID string) ([]domain.TaskNote, error) {
	var ns []domain.TaskNote
	err := r.db.WithContext(ctx).
		Where("weekly_task_id = ?", weeklyTaskID).
		Order("created_at ASC").
		Find(&ns).Error
	return ns, err
}

func (r *NoteRepo) ListByTasks(ctx context.Context, weeklyTaskIDs []string) ([]domain.TaskNote, error) {
	if len(weeklyTaskIDs) == 0 {
		return nil, nil
	}
	var ns []domain.TaskNote
	err := r.db.WithContext(ctx).
		Where("weekly_task_id IN ?", weeklyTaskIDs).
		Order("created_at ASC").
		Find(&ns).Error
	return ns, err
}

// MarkRead 幂等：重复调用写相同的值
func (r *NoteRepo) MarkRead(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&domain.TaskNote{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_read": true, "status": domain.NoteStatusRead}).Error
}

func (r *NoteRepo) SetStatus(ctx context.Context, id string, status domain.NoteStatus) error {
	return r.db.WithContext(ctx).Model(&domain.TaskNote{}).
		Where("id = ?", id).
		Update("status", status).Error
}
