package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"timbel-weekly/internal/core/auth"
	"timbel-weekly/internal/core/server"
	"timbel-weekly/internal/domain"
	httpez "timbel-weekly/internal/transport/http/ez"
	mdw "timbel-weekly/internal/transport/http/middleware"
)

// AdminDeps 管理端路由依赖
type AdminDeps struct {
	Users domain.UserRepository
	Orgs  domain.OrgRepository
}

func NewAdminEngine(l *zap.Logger, db *gorm.DB, jwter *auth.JWTer, deps AdminDeps) *gin.Engine {
	r := server.NewRouter(l)
	r.Use(mdw.RequestID(), mdw.Metrics())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 管理端 v1：只有 SUPER 能进
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, string(domain.RoleSuper)))

	MountAllAdmin(admin)
	mountAdminActions(admin, db, deps)

	return r
}

func mountAdminActions(admin *gin.RouterGroup, db *gorm.DB, deps AdminDeps) {
	ez := httpez.New(admin)

	// --- 用户列表（带部门/团队名） ---
	type listQ struct {
		Offset int    `form:"offset,default=0"`
		Limit  int    `form:"limit,default=50"`
		Q      string `form:"q"` // 按 email/姓名模糊搜
	}
	type row struct {
		ID             string    `json:"id"`
		Email          string    `json:"email"`
		FullName       string    `json:"fullName"`
		Role           string    `json:"role"`
		DepartmentID   *string   `json:"departmentId"`
		DepartmentName string    `json:"departmentName"`
		TeamID         *string   `json:"teamId"`
		TeamName       string    `json:"teamName"`
		CreatedAt      time.Time `json:"createdAt"`
	}
	type listOut struct {
		Total int64 `json:"total"`
		Items []row `json:"items"`
	}
	httpez.RegisterAction[listQ, listOut](ez, db, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Auth:   true,
		Roles:  []string{string(domain.RoleSuper)},
		Handler: func(c *gin.Context, _ *gorm.DB, in *listQ) (listOut, error) {
			if in.Limit <= 0 || in.Limit > 200 {
				in.Limit = 50
			}
			us, total, err := deps.Users.Search(c, in.Q, in.Offset, in.Limit)
			if err != nil {
				return listOut{}, httpez.Internal("list users failed", err)
			}

			deptName := map[string]string{}
			if ds, err := deps.Orgs.ListDepartments(c); err == nil {
				for _, d := range ds {
					deptName[d.ID] = d.Name
				}
			}
			teamName := map[string]string{}
			if ts, err := deps.Orgs.ListTeams(c); err == nil {
				for _, t := range ts {
					teamName[t.ID] = t.Name
				}
			}

			out := listOut{Total: total, Items: make([]row, 0, len(us))}
			for _, u := range us {
				it := row{
					ID: u.ID, Email: u.Email, FullName: u.FullName, Role: string(u.Role),
					DepartmentID: u.DepartmentID, TeamID: u.TeamID, CreatedAt: u.CreatedAt,
				}
				if u.DepartmentID != nil {
					it.DepartmentName = deptName[*u.DepartmentID]
				}
				if u.TeamID != nil {
					it.TeamName = teamName[*u.TeamID]
				}
				out.Items = append(out.Items, it)
			}
			return out, nil
		},
	})

	// --- 调整角色/部门/团队 ---
	// "none" 或空串表示清空；换部门会连带清空团队
	type updateIn struct {
		Role         *string `json:"role"`
		DepartmentID *string `json:"departmentId"`
		TeamID       *string `json:"teamId"`
	}
	httpez.RegisterAction[updateIn, domain.User](ez, db, httpez.Action[updateIn, domain.User]{
		Method: http.MethodPut,
		Path:   "/users/:id",
		Binder: httpez.BindJSON,
		Auth:   true,
		Roles:  []string{string(domain.RoleSuper)},
		Handler: func(c *gin.Context, _ *gorm.DB, in *updateIn) (domain.User, error) {
			id := c.Param("id")
			u, err := deps.Users.FindByID(c, id)
			if err != nil {
				return domain.User{}, httpez.Internal("db error", err)
			}
			if u == nil {
				return domain.User{}, httpez.NotFound("user not found")
			}

			fields := map[string]any{}
			if in.Role != nil {
				role := domain.Role(*in.Role)
				if !role.Known() {
					return domain.User{}, httpez.BadRequest("unknown role")
				}
				fields["role"] = role
			}
			if in.DepartmentID != nil {
				dv := nilIfNone(*in.DepartmentID)
				if id, ok := dv.(string); ok {
					d, err := deps.Orgs.FindDepartment(c, id)
					if err != nil {
						return domain.User{}, httpez.Internal("db error", err)
					}
					if d == nil {
						return domain.User{}, httpez.BadRequest("unknown department")
					}
				}
				fields["department_id"] = dv
				fields["team_id"] = nil // 换了部门，旧团队归属不再有效
			}
			if in.TeamID != nil {
				tv := nilIfNone(*in.TeamID)
				if id, ok := tv.(string); ok {
					t, err := deps.Orgs.FindTeam(c, id)
					if err != nil {
						return domain.User{}, httpez.Internal("db error", err)
					}
					if t == nil {
						return domain.User{}, httpez.BadRequest("unknown team")
					}
				}
				fields["team_id"] = tv
			}
			if len(fields) == 0 {
				return *u, nil
			}

			if err := deps.Users.UpdateFields(c, id, fields); err != nil {
				return domain.User{}, httpez.Internal("update user failed", err)
			}
			nu, err := deps.Users.FindByID(c, id)
			if err != nil || nu == nil {
				return domain.User{}, httpez.Internal("reload user failed", err)
			}
			return *nu, nil
		},
	})

	// --- 部门 / 团队（只读参照数据） ---
	httpez.RegisterAction[struct{}, []domain.Department](ez, db, httpez.Action[struct{}, []domain.Department]{
		Method: http.MethodGet,
		Path:   "/departments",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  []string{string(domain.RoleSuper)},
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) ([]domain.Department, error) {
			ds, err := deps.Orgs.ListDepartments(c)
			if err != nil {
				return nil, httpez.Internal("list departments failed", err)
			}
			return ds, nil
		},
	})

	httpez.RegisterAction[struct{}, []domain.Team](ez, db, httpez.Action[struct{}, []domain.Team]{
		Method: http.MethodGet,
		Path:   "/departments/:id/teams",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  []string{string(domain.RoleSuper)},
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) ([]domain.Team, error) {
			ts, err := deps.Orgs.ListTeamsByDepartment(c, c.Param("id"))
			if err != nil {
				return nil, httpez.Internal("list teams failed", err)
			}
			return ts, nil
		},
	})
}

func nilIfNone(s string) any {
	if s == "" || s == "none" {
		return nil
	}
	return s
}
