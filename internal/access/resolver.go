// Package access 实现基于角色 + 组织归属的周报可见性判定。
// 任何查询失败一律按“不可见”处理（fail-closed），不向上抛错。
package access

import (
	"context"
	"time"

	"go.uber.org/zap"

	"timbel-weekly/internal/core/cache"
	"timbel-weekly/internal/domain"
)

type Options struct {
	// StrictUnassigned 为 true 时，双方部门/团队同为空不算同组
	StrictUnassigned bool
	// CacheTTL 用户档案缓存时长，0 关闭缓存
	CacheTTL time.Duration
}

type Resolver struct {
	users domain.UserRepository
	cache *cache.Cache // 可为 nil（测试或未配 redis）
	opts  Options
	log   *zap.Logger
}

func NewResolver(users domain.UserRepository, c *cache.Cache, opts Options, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{users: users, cache: c, opts: opts, log: log}
}

// CanView 判定 viewer 是否可读 target 的周报数据
func (r *Resolver) CanView(ctx context.Context, viewerID, targetID string) bool {
	if viewerID == targetID {
		return true
	}

	viewer := r.lookup(ctx, viewerID)
	if viewer == nil {
		return false
	}
	if viewer.Role.Global() {
		return true
	}

	target := r.lookup(ctx, targetID)
	if target == nil {
		return false
	}

	switch viewer.Role {
	case domain.RoleManager:
		return r.sameGroup(viewer.DepartmentID, target.DepartmentID)
	case domain.RoleTeamLeader:
		return r.sameGroup(viewer.TeamID, target.TeamID)
	}
	// MEMBER 或未知角色
	return false
}

// VisibleUsers 返回 viewer 可见的用户集合（含自己）；失败返回空集
func (r *Resolver) VisibleUsers(ctx context.Context, viewerID string) []domain.User {
	viewer := r.lookup(ctx, viewerID)
	if viewer == nil {
		return nil
	}

	var (
		us  []domain.User
		err error
	)
	switch {
	case viewer.Role.Global():
		us, err = r.users.ListAll(ctx)
	case viewer.Role == domain.RoleManager:
		if viewer.DepartmentID == nil && r.opts.StrictUnassigned {
			return []domain.User{*viewer}
		}
		us, err = r.users.ListByDepartment(ctx, viewer.DepartmentID)
	case viewer.Role == domain.RoleTeamLeader:
		if viewer.TeamID == nil && r.opts.StrictUnassigned {
			return []domain.User{*viewer}
		}
		us, err = r.users.ListByTeam(ctx, viewer.TeamID)
	default:
		return []domain.User{*viewer}
	}
	if err != nil {
		r.log.Warn("list visible users", zap.String("viewer", viewerID), zap.Error(err))
		return nil
	}
	return us
}

// sameGroup 保留原始判定：双方同为空视作同组，除非开了 StrictUnassigned
func (r *Resolver) sameGroup(a, b *string) bool {
	if a == nil || b == nil {
		if r.opts.StrictUnassigned {
			return false
		}
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *Resolver) lookup(ctx context.Context, id string) *domain.User {
	load := func(ctx context.Context) (*domain.User, error) {
		return r.users.FindByID(ctx, id)
	}
	if r.cache != nil && r.opts.CacheTTL > 0 {
		u, err := cache.GetOrLoadJSON[domain.User](r.cache, ctx, "user:"+id, r.opts.CacheTTL, load)
		if err != nil {
			r.log.Warn("user lookup (cached)", zap.String("id", id), zap.Error(err))
			return nil
		}
		return u
	}
	u, err := load(ctx)
	if err != nil {
		r.log.Warn("user lookup", zap.String("id", id), zap.Error(err))
		return nil
	}
	return u
}
