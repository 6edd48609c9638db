package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"timbel-weekly/internal/domain"
	"timbel-weekly/internal/service"
	httpez "timbel-weekly/internal/transport/http/ez"
	"timbel-weekly/pkg/week"
)

// mountWeeklyActions 周报读写 + 可见用户 + 组织参照数据
func mountWeeklyActions(authed *gin.RouterGroup, db *gorm.DB, deps Deps) {
	ez := httpez.New(authed)

	// --- 可见用户列表 ---
	type visibleOut struct {
		Items []domain.User `json:"items"`
	}
	httpez.RegisterAction[struct{}, visibleOut](ez, db, httpez.Action[struct{}, visibleOut]{
		Method: http.MethodGet,
		Path:   "/users/visible",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (visibleOut, error) {
			us := deps.Access.VisibleUsers(c, c.GetString("userId"))
			if us == nil {
				us = []domain.User{}
			}
			return visibleOut{Items: us}, nil
		},
	})

	// --- 部门 / 团队参照数据（下拉框用，只读） ---
	httpez.RegisterAction[struct{}, []domain.Department](ez, db, httpez.Action[struct{}, []domain.Department]{
		Method: http.MethodGet,
		Path:   "/departments",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) ([]domain.Department, error) {
			ds, err := deps.Orgs.ListDepartments(c)
			if err != nil {
				return nil, httpez.Internal("list departments failed", err)
			}
			return ds, nil
		},
	})

	type teamsQ struct {
		DepartmentID string `form:"department_id"`
	}
	httpez.RegisterAction[teamsQ, []domain.Team](ez, db, httpez.Action[teamsQ, []domain.Team]{
		Method: http.MethodGet,
		Path:   "/teams",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *teamsQ) ([]domain.Team, error) {
			var (
				ts  []domain.Team
				err error
			)
			if in.DepartmentID != "" {
				ts, err = deps.Orgs.ListTeamsByDepartment(c, in.DepartmentID)
			} else {
				ts, err = deps.Orgs.ListTeams(c)
			}
			if err != nil {
				return nil, httpez.Internal("list teams failed", err)
			}
			return ts, nil
		},
	})

	// --- 当前周次（周选择器的基准） ---
	type weekOut struct {
		Year       int       `json:"year"`
		WeekNumber int       `json:"weekNumber"`
		Monday     time.Time `json:"monday"`
		Friday     time.Time `json:"friday"`
	}
	httpez.RegisterAction[struct{}, weekOut](ez, db, httpez.Action[struct{}, weekOut]{
		Method: http.MethodGet,
		Path:   "/weeks/current",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (weekOut, error) {
			now := time.Now()
			n := week.Number(now)
			mon, fri := week.Range(now.Year(), n)
			return weekOut{Year: now.Year(), WeekNumber: n, Monday: mon, Friday: fri}, nil
		},
	})

	// --- 某用户整年的周报 ---
	type listQ struct {
		UserID string `form:"user_id" binding:"required"`
		Year   int    `form:"year"    binding:"required"`
	}
	type listOut struct {
		Items []domain.WeeklyTask `json:"items"`
	}
	httpez.RegisterAction[listQ, listOut](ez, db, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/tasks",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *listQ) (listOut, error) {
			ts := deps.Weekly.ListTasks(c, in.UserID, in.Year, c.GetString("userId"))
			if ts == nil {
				ts = []domain.WeeklyTask{}
			}
			return listOut{Items: ts}, nil
		},
	})

	// --- 单周周报：无权限或无数据统一给空，不报错 ---
	type oneQ struct {
		UserID string `form:"user_id" binding:"required"`
		Year   int    `form:"year"    binding:"required"`
		Week   int    `form:"week"    binding:"required"`
	}
	type oneOut struct {
		Found bool               `json:"found"`
		Task  *domain.WeeklyTask `json:"task"`
	}
	httpez.RegisterAction[oneQ, oneOut](ez, db, httpez.Action[oneQ, oneOut]{
		Method: http.MethodGet,
		Path:   "/tasks/one",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *oneQ) (oneOut, error) {
			t, ok := deps.Weekly.GetTask(c, in.UserID, in.Year, in.Week, c.GetString("userId"))
			return oneOut{Found: ok, Task: t}, nil
		},
	})

	// --- 保存周报（只能写自己的） ---
	type saveIn struct {
		UserID        string `json:"userId"     binding:"required"`
		Year          int    `json:"year"       binding:"required"`
		WeekNumber    int    `json:"weekNumber" binding:"required,min=1,max=53"`
		ThisWeekTasks string `json:"thisWeekTasks"`
		NextWeekPlan  string `json:"nextWeekPlan"`
		Note          string `json:"note"`
	}
	type saveOut struct {
		Saved bool `json:"saved"`
	}
	httpez.RegisterAction[saveIn, saveOut](ez, db, httpez.Action[saveIn, saveOut]{
		Method: http.MethodPut,
		Path:   "/tasks",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *saveIn) (saveOut, error) {
			ok := deps.Weekly.SaveTask(c, service.SaveTaskInput{
				UserID:        in.UserID,
				Year:          in.Year,
				WeekNumber:    in.WeekNumber,
				ThisWeekTasks: in.ThisWeekTasks,
				NextWeekPlan:  in.NextWeekPlan,
				Note:          in.Note,
				ActorID:       c.GetString("userId"),
			})
			return saveOut{Saved: ok}, nil
		},
	})
}
