// Package service 周报与留言的业务门面。
// 读路径一律“失败降级为空”，权限拒绝不抛错；写路径只允许本人。
package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"timbel-weekly/internal/access"
	"timbel-weekly/internal/domain"
	"timbel-weekly/internal/notify"
	"timbel-weekly/internal/repo"
	"timbel-weekly/pkg/utils"
)

type Options struct {
	ReadTimeout      time.Duration // 跨用户读取上限
	ProvisionRetries int           // 自动建档重试次数
}

type WeeklyService struct {
	users domain.UserRepository
	tasks domain.TaskRepository
	notes domain.NoteRepository
	acl   *access.Resolver
	feed  *notify.Hub
	opts  Options
	log   *zap.Logger
}

func NewWeeklyService(
	users domain.UserRepository,
	tasks domain.TaskRepository,
	notes domain.NoteRepository,
	acl *access.Resolver,
	feed *notify.Hub,
	opts Options,
	log *zap.Logger,
) *WeeklyService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ProvisionRetries <= 0 {
		opts.ProvisionRetries = 3
	}
	return &WeeklyService{
		users: users, tasks: tasks, notes: notes,
		acl: acl, feed: feed, opts: opts, log: log,
	}
}

// GetTask 查单周周报；viewerID 与 userID 不同时先过可见性判定。
// 拒绝和后端故障都表现为 (nil, false)，调用方按“无数据”渲染。
func (s *WeeklyService) GetTask(ctx context.Context, userID string, year, week int, viewerID string) (*domain.WeeklyTask, bool) {
	if viewerID != "" && viewerID != userID {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ReadTimeout)
		defer cancel()
		if !s.acl.CanView(ctx, viewerID, userID) {
			return nil, false
		}
	}
	t, err := s.tasks.FindByKey(ctx, userID, year, week)
	if err != nil {
		s.log.Warn("get weekly task", zap.String("user", userID), zap.Int("week", week), zap.Error(err))
		return nil, false
	}
	if t == nil {
		return nil, false
	}
	return t, true
}

// ListTasks 查某用户整年的周报，按周次升序；拒绝或失败返回空
func (s *WeeklyService) ListTasks(ctx context.Context, userID string, year int, viewerID string) []domain.WeeklyTask {
	if viewerID != "" && viewerID != userID {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ReadTimeout)
		defer cancel()
		if !s.acl.CanView(ctx, viewerID, userID) {
			return nil
		}
	}
	ts, err := s.tasks.ListByUserYear(ctx, userID, year)
	if err != nil {
		s.log.Warn("list weekly tasks", zap.String("user", userID), zap.Int("year", year), zap.Error(err))
		return nil
	}
	return ts
}

type SaveTaskInput struct {
	UserID        string
	Year          int
	WeekNumber    int
	ThisWeekTasks string
	NextWeekPlan  string
	Note          string
	ActorID       string // 操作者；必须等于 UserID
}

// SaveTask 写路径严格限本人，角色再高也不行。
// 按 (user_id, year, week_number) 原子 upsert，刷新 submission_date。
func (s *WeeklyService) SaveTask(ctx context.Context, in SaveTaskInput) bool {
	if in.ActorID != "" && in.ActorID != in.UserID {
		return false
	}
	t := &domain.WeeklyTask{
		ID:             utils.NewID(),
		UserID:         in.UserID,
		Year:           in.Year,
		WeekNumber:     in.WeekNumber,
		ThisWeekTasks:  in.ThisWeekTasks,
		NextWeekPlan:   in.NextWeekPlan,
		Note:           in.Note,
		SubmissionDate: time.Now(),
	}
	if err := s.tasks.Upsert(ctx, t); err != nil {
		s.log.Error("save weekly task", zap.String("user", in.UserID), zap.Int("week", in.WeekNumber), zap.Error(err))
		return false
	}
	return true
}

type ProvisionInput struct {
	ID           string // 为空则生成
	Email        string
	FullName     string
	PasswordHash string
}

// ProvisionUser 首次认证自动建档：不存在则按 MEMBER 创建。
// 唯一会重试的路径：冲突/外键竞态下有限次指数退避，耗尽后把错误抛给调用方。
func (s *WeeklyService) ProvisionUser(ctx context.Context, in ProvisionInput) (*domain.User, error) {
	if in.ID != "" {
		u, err := s.users.FindByID(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		if u != nil {
			return u, nil
		}
	} else {
		in.ID = utils.NewID()
	}

	if in.FullName == "" {
		if at := strings.IndexByte(in.Email, '@'); at > 0 {
			in.FullName = in.Email[:at]
		} else {
			in.FullName = "user"
		}
	}
	nu := &domain.User{
		ID:           in.ID,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: in.PasswordHash,
		Role:         domain.RoleMember,
	}

	var lastErr error
	for attempt := 0; attempt < s.opts.ProvisionRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		err := s.users.Create(ctx, nu)
		if err == nil {
			return nu, nil
		}
		lastErr = err
		if repo.IsDuplicate(err) {
			// 并发建档：别处已插入，查回来即成功
			if u, e := s.users.FindByEmail(ctx, in.Email); e == nil && u != nil {
				return u, nil
			}
			continue
		}
		if !isRetryable(err) {
			return nil, err
		}
	}
	s.log.Error("provision user", zap.String("email", in.Email), zap.Error(lastErr))
	return nil, lastErr
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key") ||
		strings.Contains(msg, "conflict") ||
		repo.IsDuplicate(err)
}
