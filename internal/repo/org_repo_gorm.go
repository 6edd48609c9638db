package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"timbel-weekly/internal/domain"
)

type OrgRepo struct{ db *gorm.DB }

func NewOrgRepo(db *gorm.DB) *OrgRepo { return &OrgRepo{db: db} }

func (r *OrgRepo) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	var ds []domain.Department
	err := r.db.WithContext(ctx).Order("name").Find(&ds).Error
	return ds, err
}

func (r *OrgRepo) FindDepartment(ctx context.Context, id string) (*domain.Department, error) {
	var d domain.Department
	err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *OrgRepo) ListTeams(ctx context.Context) ([]domain.Team, error) {
	var ts []domain.Team
	err := r.db.WithContext(ctx).Order("name").Find(&ts).Error
	return ts, err
}

func (r *OrgRepo) ListTeamsByDepartment(ctx context.Context, departmentID string) ([]domain.Team, error) {
	var ts []domain.Team
	err := r.db.WithContext(ctx).Where("department_id = ?", departmentID).Order("name").Find(&ts).Error
	return ts, err
}

func (r *OrgRepo) FindTeam(ctx context.Context, id string) (*domain.Team, error) {
	var t domain.Team
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
