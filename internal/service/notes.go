package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"timbel-weekly/internal/domain"
	"timbel-weekly/internal/notify"
	"timbel-weekly/pkg/utils"
)

type CreateNoteInput struct {
	WeeklyTaskID string
	RecipientID  string
	Content      string
	ParentNoteID *string
	ActorID      string // 发送者，由调用方显式传入
}

// CreateNote 发留言。规则：
//   - 新线程禁止发给自己，MANAGER 及以上豁免；
//   - 回复必须由父留言的收件人发出，且收件人强制改写为父留言的发送者；
//   - MEMBER 只能在自己的周报上开新线程。
func (s *WeeklyService) CreateNote(ctx context.Context, in CreateNoteInput) (*domain.TaskNote, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrEmptyContent
	}

	actor, err := s.users.FindByID(ctx, in.ActorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, ErrNotFound
	}

	task, err := s.tasks.FindByID(ctx, in.WeeklyTaskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}

	recipientID := in.RecipientID
	var parent *domain.TaskNote
	if in.ParentNoteID != nil && *in.ParentNoteID != "" {
		parent, err = s.notes.FindByID(ctx, *in.ParentNoteID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrNotFound
		}
		if parent.RecipientID != actor.ID {
			return nil, ErrNotRecipient
		}
		// 回复固定发回该线程分支的发起方，忽略调用方给的收件人
		recipientID = parent.SenderID
	} else {
		if recipientID == actor.ID && !actor.Role.Elevated() {
			return nil, ErrSelfRecipient
		}
		if actor.Role == domain.RoleMember && task.UserID != actor.ID {
			return nil, ErrNotOwner
		}
	}

	n := &domain.TaskNote{
		ID:           utils.NewID(),
		WeeklyTaskID: in.WeeklyTaskID,
		SenderID:     actor.ID,
		RecipientID:  recipientID,
		Content:      in.Content,
		Status:       domain.NoteStatusPending,
		IsRead:       false,
	}
	if parent != nil {
		n.ParentNoteID = &parent.ID
	}
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, err
	}

	if parent != nil {
		// 有了回复，父留言标为 replied；失败不影响本次发送
		if err := s.notes.SetStatus(ctx, parent.ID, domain.NoteStatusReplied); err != nil {
			s.log.Warn("mark parent replied", zap.String("note", parent.ID), zap.Error(err))
		}
	}
	s.publish(in.WeeklyTaskID, n.ID, "note.created")
	return n, nil
}

// MarkRead 标记已读，幂等
func (s *WeeklyService) MarkRead(ctx context.Context, noteID string) error {
	n, err := s.notes.FindByID(ctx, noteID)
	if err != nil {
		return err
	}
	if n == nil {
		return ErrNotFound
	}
	if err := s.notes.MarkRead(ctx, noteID); err != nil {
		return err
	}
	s.publish(n.WeeklyTaskID, noteID, "note.read")
	return nil
}

// SetStatus 改状态标签。只校验取值合法，不做状态机约束。
func (s *WeeklyService) SetStatus(ctx context.Context, noteID string, status domain.NoteStatus) error {
	if !status.Valid() {
		return ErrBadStatus
	}
	n, err := s.notes.FindByID(ctx, noteID)
	if err != nil {
		return err
	}
	if n == nil {
		return ErrNotFound
	}
	if err := s.notes.SetStatus(ctx, noteID, status); err != nil {
		return err
	}
	s.publish(n.WeeklyTaskID, noteID, "note.status")
	return nil
}

// NoteNode 留言树节点
type NoteNode struct {
	domain.TaskNote
	Children []*NoteNode `json:"children"`
}

// ListNotes 取某周报的留言并还原成森林。
// 父节点不在结果集内的留言按根处理（容忍残缺数据），各层按创建时间升序。
func (s *WeeklyService) ListNotes(ctx context.Context, weeklyTaskID string) []*NoteNode {
	ns, err := s.notes.ListByTask(ctx, weeklyTaskID)
	if err != nil {
		s.log.Warn("list task notes", zap.String("task", weeklyTaskID), zap.Error(err))
		return []*NoteNode{}
	}
	return buildForest(ns)
}

func buildForest(ns []domain.TaskNote) []*NoteNode {
	byID := make(map[string]*NoteNode, len(ns))
	for i := range ns {
		byID[ns[i].ID] = &NoteNode{TaskNote: ns[i], Children: []*NoteNode{}}
	}
	roots := make([]*NoteNode, 0, len(ns))
	for i := range ns {
		node := byID[ns[i].ID]
		if pid := ns[i].ParentNoteID; pid != nil {
			if parent, ok := byID[*pid]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	sortForest(roots)
	return roots
}

func sortForest(nodes []*NoteNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			sortForest(n.Children)
		}
	}
}

// WeekNoteCount 某周的留言汇总
type WeekNoteCount struct {
	Total         int  `json:"total"`
	Unread        int  `json:"unread"`
	HasUnresolved bool `json:"hasUnresolved"`
}

// NoteCounts 汇总某用户某年各周的留言数。
// unread 以当前调用者为收件人计（上级看下属时统计的是发给上级的未读）。
// 没有留言的周不出现在结果里；任何失败返回空表。
func (s *WeeklyService) NoteCounts(ctx context.Context, userID string, year int, viewerID string) map[int]WeekNoteCount {
	out := map[int]WeekNoteCount{}
	tasks, err := s.tasks.ListByUserYear(ctx, userID, year)
	if err != nil {
		s.log.Warn("note counts: list tasks", zap.String("user", userID), zap.Error(err))
		return out
	}
	if len(tasks) == 0 {
		return out
	}

	ids := make([]string, len(tasks))
	weekByTask := make(map[string]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		weekByTask[t.ID] = t.WeekNumber
	}
	ns, err := s.notes.ListByTasks(ctx, ids)
	if err != nil {
		s.log.Warn("note counts: list notes", zap.String("user", userID), zap.Error(err))
		return out
	}

	for _, n := range ns {
		week, ok := weekByTask[n.WeeklyTaskID]
		if !ok {
			continue
		}
		c := out[week]
		c.Total++
		if n.RecipientID == viewerID && !n.IsRead {
			c.Unread++
		}
		if n.Status == domain.NoteStatusPending {
			c.HasUnresolved = true
		}
		out[week] = c
	}
	return out
}

// WatchNotes 长轮询：since 之后该周报的留言有无变化
func (s *WeeklyService) WatchNotes(ctx context.Context, weeklyTaskID string, since time.Time) (notify.Event, bool) {
	if s.feed == nil {
		return notify.Event{}, false
	}
	return s.feed.Wait(ctx, weeklyTaskID, since)
}

func (s *WeeklyService) publish(taskID, noteID, kind string) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(notify.Event{TaskID: taskID, NoteID: noteID, Kind: kind, At: time.Now()})
}
