package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"timbel-weekly/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ListAll(ctx context.Context) ([]domain.User, error) {
	var us []domain.User
	err := r.db.WithContext(ctx).Order("full_name").Find(&us).Error
	return us, err
}

func (r *UserRepo) ListByDepartment(ctx context.Context, departmentID *string) ([]domain.User, error) {
	var us []domain.User
	q := r.db.WithContext(ctx).Order("full_name")
	if departmentID == nil {
		q = q.Where("department_id IS NULL")
	} else {
		q = q.Where("department_id = ?", *departmentID)
	}
	err := q.Find(&us).Error
	return us, err
}

func (r *UserRepo) ListByTeam(ctx context.Context, teamID *string) ([]domain.User, error) {
	var us []domain.User
	q := r.db.WithContext(ctx).Order("full_name")
	if teamID == nil {
		q = q.Where("team_id IS NULL")
	} else {
		q = q.Where("team_id = ?", *teamID)
	}
	err := q.Find(&us).Error
	return us, err
}

func (r *UserRepo) Search(ctx context.Context, q string, offset, limit int) ([]domain.User, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.User{})
	if s := strings.TrimSpace(q); s != "" {
		like := "%" + s + "%"
		tx = tx.Where("email LIKE ? OR full_name LIKE ?", like, like)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var us []domain.User
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&us).Error; err != nil {
		return nil, 0, err
	}
	return us, total, nil
}

func (r *UserRepo) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields).Error
}

// IsDuplicate 不依赖 gorm.ErrDuplicatedKey，避免驱动差异
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key")
}
