package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"timbel-weekly/internal/domain"
	"timbel-weekly/internal/notify"
	"timbel-weekly/internal/service"
	httpez "timbel-weekly/internal/transport/http/ez"
)

// mountNoteActions 留言树、状态、角标计数和变更长轮询
func mountNoteActions(authed *gin.RouterGroup, db *gorm.DB, deps Deps) {
	ez := httpez.New(authed)

	// --- 发留言 ---
	type createIn struct {
		WeeklyTaskID string  `json:"weeklyTaskId" binding:"required"`
		RecipientID  string  `json:"recipientId"  binding:"required"`
		Content      string  `json:"content"      binding:"required"`
		ParentNoteID *string `json:"parentNoteId"`
	}
	httpez.RegisterAction[createIn, *domain.TaskNote](ez, db, httpez.Action[createIn, *domain.TaskNote]{
		Method: http.MethodPost,
		Path:   "/notes",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *createIn) (*domain.TaskNote, error) {
			n, err := deps.Weekly.CreateNote(c, service.CreateNoteInput{
				WeeklyTaskID: in.WeeklyTaskID,
				RecipientID:  in.RecipientID,
				Content:      in.Content,
				ParentNoteID: in.ParentNoteID,
				ActorID:      c.GetString("userId"),
			})
			if err != nil {
				return nil, mapNoteErr(err)
			}
			return n, nil
		},
	})

	// --- 已读 ---
	httpez.RegisterAction[struct{}, gin.H](ez, db, httpez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/notes/:id/read",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (gin.H, error) {
			if err := deps.Weekly.MarkRead(c, c.Param("id")); err != nil {
				return nil, mapNoteErr(err)
			}
			return gin.H{"id": c.Param("id")}, nil
		},
	})

	// --- 改状态标签 ---
	type statusIn struct {
		Status string `json:"status" binding:"required"`
	}
	httpez.RegisterAction[statusIn, gin.H](ez, db, httpez.Action[statusIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/notes/:id/status",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *statusIn) (gin.H, error) {
			if err := deps.Weekly.SetStatus(c, c.Param("id"), domain.NoteStatus(in.Status)); err != nil {
				return nil, mapNoteErr(err)
			}
			return gin.H{"id": c.Param("id"), "status": in.Status}, nil
		},
	})

	// --- 留言树 ---
	httpez.RegisterAction[struct{}, []*service.NoteNode](ez, db, httpez.Action[struct{}, []*service.NoteNode]{
		Method: http.MethodGet,
		Path:   "/tasks/:id/notes",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) ([]*service.NoteNode, error) {
			return deps.Weekly.ListNotes(c, c.Param("id")), nil
		},
	})

	// --- 周次角标计数 ---
	type countsQ struct {
		UserID string `form:"user_id" binding:"required"`
		Year   int    `form:"year"    binding:"required"`
	}
	httpez.RegisterAction[countsQ, map[int]service.WeekNoteCount](ez, db, httpez.Action[countsQ, map[int]service.WeekNoteCount]{
		Method: http.MethodGet,
		Path:   "/notes/counts",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *countsQ) (map[int]service.WeekNoteCount, error) {
			return deps.Weekly.NoteCounts(c, in.UserID, in.Year, c.GetString("userId")), nil
		},
	})

	// --- 变更长轮询：since 之后有变化立即返回，否则挂到超时 ---
	type watchQ struct {
		Since string `form:"since"` // RFC3339，缺省表示“现在开始等”
	}
	type watchOut struct {
		Changed bool          `json:"changed"`
		Event   *notify.Event `json:"event,omitempty"`
		Now     time.Time     `json:"now"`
	}
	httpez.RegisterAction[watchQ, watchOut](ez, db, httpez.Action[watchQ, watchOut]{
		Method: http.MethodGet,
		Path:   "/tasks/:id/notes/watch",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *watchQ) (watchOut, error) {
			since := time.Now()
			if in.Since != "" {
				t, err := time.Parse(time.RFC3339, in.Since)
				if err != nil {
					return watchOut{}, httpez.BadRequest("since must be RFC3339")
				}
				since = t
			}
			ctx, cancel := context.WithTimeout(c.Request.Context(), deps.WatchTimeout)
			defer cancel()
			ev, changed := deps.Weekly.WatchNotes(ctx, c.Param("id"), since)
			out := watchOut{Changed: changed, Now: time.Now()}
			if changed {
				out.Event = &ev
			}
			return out, nil
		},
	})
}

// mapNoteErr 校验类错误给 400/404 并带上具体规则，其余按 500
func mapNoteErr(err error) error {
	switch {
	case errors.Is(err, service.ErrSelfRecipient),
		errors.Is(err, service.ErrNotRecipient),
		errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrBadStatus):
		return httpez.BadRequest(err.Error())
	case errors.Is(err, service.ErrNotFound):
		return httpez.NotFound(err.Error())
	default:
		return httpez.Internal("note operation failed", err)
	}
}
