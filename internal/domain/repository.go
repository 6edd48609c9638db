package domain

import "context"

// 仓储接口约定：记录不存在时返回 (nil, nil)，由调用方决定语义

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ListAll(ctx context.Context) ([]User, error)
	// ListByDepartment / ListByTeam：nil 表示查未分配（IS NULL）
	ListByDepartment(ctx context.Context, departmentID *string) ([]User, error)
	ListByTeam(ctx context.Context, teamID *string) ([]User, error)
	Search(ctx context.Context, q string, offset, limit int) ([]User, int64, error)
	// UpdateFields 用 map 更新，保证能显式写 NULL
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
}

type OrgRepository interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	FindDepartment(ctx context.Context, id string) (*Department, error)
	ListTeams(ctx context.Context) ([]Team, error)
	ListTeamsByDepartment(ctx context.Context, departmentID string) ([]Team, error)
	FindTeam(ctx context.Context, id string) (*Team, error)
}

type TaskRepository interface {
	FindByID(ctx context.Context, id string) (*WeeklyTask, error)
	FindByKey(ctx context.Context, userID string, year, week int) (*WeeklyTask, error)
	ListByUserYear(ctx context.Context, userID string, year int) ([]WeeklyTask, error)
	// Upsert 以 (user_id, year, week_number) 为冲突键的原子写入
	Upsert(ctx context.Context, t *WeeklyTask) error
}

type NoteRepository interface {
	Create(ctx context.Context, n *TaskNote) error
	FindByID(ctx context.Context, id string) (*TaskNote, error)
	ListByTask(ctx context.Context, weeklyTaskID string) ([]TaskNote, error)
	ListByTasks(ctx context.Context, weeklyTaskIDs []string) ([]TaskNote, error)
	MarkRead(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status NoteStatus) error
}
