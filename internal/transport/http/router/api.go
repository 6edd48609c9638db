package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"timbel-weekly/internal/access"
	"timbel-weekly/internal/core/auth"
	"timbel-weekly/internal/domain"
	"timbel-weekly/internal/service"
	httpez "timbel-weekly/internal/transport/http/ez"
	mdw "timbel-weekly/internal/transport/http/middleware"
	"timbel-weekly/pkg/utils"
)

// Deps 员工端路由依赖，由 main 组装
type Deps struct {
	Weekly       *service.WeeklyService
	Access       *access.Resolver
	Users        domain.UserRepository
	Orgs         domain.OrgRepository
	WatchTimeout time.Duration
}

func NewAPIEngine(l *zap.Logger, db *gorm.DB, jwter *auth.JWTer, deps Deps) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(30*time.Second),
		mdw.SimpleRecovery(),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	// 健康检查 + 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	// 统一注册器
	MountAllAPI(api)

	// 鉴权分组
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(jwter, ""))

	mountAuthActions(api, authed, db, jwter, deps)
	mountWeeklyActions(authed, db, deps)
	mountNoteActions(authed, db, deps)

	return r
}

// ---------- 认证 / 个人资料 ----------

func mountAuthActions(api, authed *gin.RouterGroup, db *gorm.DB, jwter *auth.JWTer, deps Deps) {
	ezPublic := httpez.New(api)

	type userOut struct {
		ID           string  `json:"id"`
		Email        string  `json:"email"`
		FullName     string  `json:"fullName"`
		Role         string  `json:"role"`
		DepartmentID *string `json:"departmentId"`
		TeamID       *string `json:"teamId"`
		AvatarURL    *string `json:"avatarUrl"`
	}
	toUserOut := func(u *domain.User) userOut {
		return userOut{
			ID: u.ID, Email: u.Email, FullName: u.FullName, Role: string(u.Role),
			DepartmentID: u.DepartmentID, TeamID: u.TeamID, AvatarURL: u.AvatarURL,
		}
	}

	// /auth/signup：重复邮箱直接拒绝
	type signupIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		FullName string `json:"fullName" binding:"omitempty,max=64"`
	}
	type signupOut struct {
		Token string  `json:"token"`
		User  userOut `json:"user"`
	}
	httpez.RegisterAction[signupIn, signupOut](ezPublic, db, httpez.Action[signupIn, signupOut]{
		Method: http.MethodPost,
		Path:   "/auth/signup",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *signupIn) (signupOut, error) {
			email := strings.TrimSpace(in.Email)
			if u, err := deps.Users.FindByEmail(c, email); err != nil {
				return signupOut{}, httpez.Internal("signup failed", err)
			} else if u != nil {
				return signupOut{}, httpez.BadRequest("email already registered")
			}
			u, err := deps.Weekly.ProvisionUser(c, service.ProvisionInput{
				Email:        email,
				FullName:     strings.TrimSpace(in.FullName),
				PasswordHash: utils.HashPassword(in.Password),
			})
			if err != nil {
				return signupOut{}, httpez.Internal("signup failed", err)
			}
			tok, err := jwter.Issue(u.ID, string(u.Role))
			if err != nil || tok == "" {
				return signupOut{}, httpez.Internal("issue token failed", err)
			}
			return signupOut{Token: tok, User: toUserOut(u)}, nil
		},
	})

	// /auth/login：查不到档案就自动建档（首次认证），再发 JWT
	type loginIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
		FullName string `json:"fullName" binding:"omitempty,max=64"`
	}
	type loginOut struct {
		Token string  `json:"token"`
		IsNew bool    `json:"isNew"`
		User  userOut `json:"user"`
	}
	httpez.RegisterAction[loginIn, loginOut](ezPublic, db, httpez.Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *loginIn) (loginOut, error) {
			email := strings.TrimSpace(in.Email)
			u, err := deps.Users.FindByEmail(c, email)
			if err != nil {
				return loginOut{}, httpez.Internal("db error", err)
			}
			isNew := false
			if u == nil {
				u, err = deps.Weekly.ProvisionUser(c, service.ProvisionInput{
					Email:        email,
					FullName:     strings.TrimSpace(in.FullName),
					PasswordHash: utils.HashPassword(in.Password),
				})
				if err != nil {
					return loginOut{}, httpez.Internal("provision user failed", err)
				}
				isNew = true
			}
			if !utils.CheckPassword(in.Password, u.PasswordHash) {
				return loginOut{}, httpez.Unauthorized("invalid credentials")
			}
			tok, err := jwter.Issue(u.ID, string(u.Role))
			if err != nil || tok == "" {
				return loginOut{}, httpez.Internal("issue token failed", err)
			}
			return loginOut{Token: tok, IsNew: isNew, User: toUserOut(u)}, nil
		},
	})

	ezAuth := httpez.New(authed)

	// /me：档案不存在视同未登录，前端跳登录页
	httpez.RegisterAction[struct{}, userOut](ezAuth, db, httpez.Action[struct{}, userOut]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (userOut, error) {
			u, err := deps.Users.FindByID(c, c.GetString("userId"))
			if err != nil {
				return userOut{}, httpez.Internal("db error", err)
			}
			if u == nil {
				return userOut{}, httpez.Unauthorized("user not found")
			}
			return toUserOut(u), nil
		},
	})

	// /me/profile：本人只能改姓名和头像
	type profileIn struct {
		FullName  *string `json:"fullName"  binding:"omitempty,max=64"`
		AvatarURL *string `json:"avatarUrl" binding:"omitempty,max=255"`
	}
	httpez.RegisterAction[profileIn, userOut](ezAuth, db, httpez.Action[profileIn, userOut]{
		Method: http.MethodPut,
		Path:   "/me/profile",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *profileIn) (userOut, error) {
			uid := c.GetString("userId")
			fields := map[string]any{}
			if in.FullName != nil && strings.TrimSpace(*in.FullName) != "" {
				fields["full_name"] = strings.TrimSpace(*in.FullName)
			}
			if in.AvatarURL != nil {
				fields["avatar_url"] = in.AvatarURL
			}
			if len(fields) > 0 {
				if err := deps.Users.UpdateFields(c, uid, fields); err != nil {
					return userOut{}, httpez.Internal("update profile failed", err)
				}
			}
			u, err := deps.Users.FindByID(c, uid)
			if err != nil || u == nil {
				return userOut{}, httpez.Internal("reload profile failed", err)
			}
			return toUserOut(u), nil
		},
	})

	// /me/password
	type passwordIn struct {
		OldPassword string `json:"oldPassword" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required,min=6"`
	}
	httpez.RegisterAction[passwordIn, gin.H](ezAuth, db, httpez.Action[passwordIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/me/password",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *passwordIn) (gin.H, error) {
			uid := c.GetString("userId")
			u, err := deps.Users.FindByID(c, uid)
			if err != nil || u == nil {
				return nil, httpez.Unauthorized("user not found")
			}
			if !utils.CheckPassword(in.OldPassword, u.PasswordHash) {
				return nil, httpez.BadRequest("old password mismatch")
			}
			if err := deps.Users.UpdateFields(c, uid, map[string]any{
				"password_hash": utils.HashPassword(in.NewPassword),
			}); err != nil {
				return nil, httpez.Internal("update password failed", err)
			}
			return gin.H{"updated": true}, nil
		},
	})
}
