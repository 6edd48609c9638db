package domain

import "time"

// Role 五级角色，权限从高到低
type Role string

const (
	RoleSuper      Role = "SUPER"
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleTeamLeader Role = "TEAM_LEADER"
	RoleMember     Role = "MEMBER"
)

// roleRank 显式等级表，避免到处写枚举比较；未知角色为 0
var roleRank = map[Role]int{
	RoleSuper:      5,
	RoleAdmin:      4,
	RoleManager:    3,
	RoleTeamLeader: 2,
	RoleMember:     1,
}

func (r Role) Known() bool { return roleRank[r] > 0 }

// Elevated 高于普通成员（MANAGER/TEAM_LEADER/ADMIN/SUPER）
func (r Role) Elevated() bool { return roleRank[r] > roleRank[RoleMember] }

// Global SUPER/ADMIN 可见全部用户
func (r Role) Global() bool { return r == RoleSuper || r == RoleAdmin }

type User struct {
	ID           string  `gorm:"primaryKey;size:36" json:"id"`
	Email        string  `gorm:"uniqueIndex;size:191" json:"email"`
	FullName     string  `gorm:"size:64" json:"fullName"`
	PasswordHash string  `gorm:"size:191" json:"-"`
	Role         Role    `gorm:"size:16;default:MEMBER" json:"role"`
	DepartmentID *string `gorm:"size:36;index" json:"departmentId"`
	TeamID       *string `gorm:"size:36;index" json:"teamId"`
	AvatarURL    *string `gorm:"size:255" json:"avatarUrl"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// Department 只读参照数据
type Department struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Name string `gorm:"size:64" json:"name"`
}

func (Department) TableName() string { return "departments" }

// Team 每个团队隶属一个部门
type Team struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Name         string `gorm:"size:64" json:"name"`
	DepartmentID string `gorm:"size:36;index" json:"departmentId"`
}

func (Team) TableName() string { return "teams" }
