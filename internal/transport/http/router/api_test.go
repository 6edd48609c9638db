package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"timbel-weekly/internal/access"
	"timbel-weekly/internal/core/auth"
	"timbel-weekly/internal/domain"
	"timbel-weekly/internal/notify"
	"timbel-weekly/internal/repo"
	"timbel-weekly/internal/service"
)

type APITestSuite struct {
	suite.Suite
	db     *gorm.DB
	engine *gin.Engine
	admin  *gin.Engine
	jwter  *auth.JWTer
}

func (s *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	var err error
	s.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)
	s.Require().NoError(s.db.AutoMigrate(
		&domain.User{}, &domain.Department{}, &domain.Team{},
		&domain.WeeklyTask{}, &domain.TaskNote{},
	))

	s.jwter = &auth.JWTer{Secret: []byte("test-secret"), Issuer: "test", TTL: time.Hour}

	users := repo.NewUserRepo(s.db)
	orgs := repo.NewOrgRepo(s.db)
	tasks := repo.NewTaskRepo(s.db)
	notes := repo.NewNoteRepo(s.db)
	acl := access.NewResolver(users, nil, access.Options{}, nil)
	weekly := service.NewWeeklyService(users, tasks, notes, acl, notify.NewHub(), service.Options{}, nil)

	l := zap.NewNop()
	s.engine = NewAPIEngine(l, s.db, s.jwter, Deps{
		Weekly: weekly, Access: acl, Users: users, Orgs: orgs,
		WatchTimeout: 100 * time.Millisecond,
	})
	s.admin = NewAdminEngine(l, s.db, s.jwter, AdminDeps{Users: users, Orgs: orgs})
}

func (s *APITestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (s *APITestSuite) do(engine *gin.Engine, method, path, token string, body any) envelope {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	s.Require().Equal(http.StatusOK, w.Code)

	var env envelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func (s *APITestSuite) signup(email, password string) (token, id string) {
	env := s.do(s.engine, http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"email": email, "password": password,
	})
	s.Require().Equal(0, env.Code, env.Msg)

	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &out))
	return out.Token, out.User.ID
}

func (s *APITestSuite) TestSignupLoginAndMe() {
	token, id := s.signup("alice@example.com", "secret1")
	s.NotEmpty(token)

	// 重复注册被拒
	env := s.do(s.engine, http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"email": "alice@example.com", "password": "secret1",
	})
	s.Equal(400, env.Code)

	// 登录换新 token
	env = s.do(s.engine, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "secret1",
	})
	s.Require().Equal(0, env.Code, env.Msg)

	var login struct {
		Token string `json:"token"`
		IsNew bool   `json:"isNew"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &login))
	s.False(login.IsNew)

	env = s.do(s.engine, http.MethodGet, "/api/v1/me", login.Token, nil)
	s.Require().Equal(0, env.Code)
	var me struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &me))
	s.Equal(id, me.ID)
	s.Equal("MEMBER", me.Role)

	// 错密码
	env = s.do(s.engine, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "wrong",
	})
	s.Equal(401, env.Code)
}

func (s *APITestSuite) TestTaskRoundTrip() {
	token, id := s.signup("bob@example.com", "secret1")

	env := s.do(s.engine, http.MethodPut, "/api/v1/tasks", token, gin.H{
		"userId": id, "year": 2025, "weekNumber": 7,
		"thisWeekTasks": "ship it", "nextWeekPlan": "rest",
	})
	s.Require().Equal(0, env.Code, env.Msg)

	env = s.do(s.engine, http.MethodGet, "/api/v1/tasks/one?user_id="+id+"&year=2025&week=7", token, nil)
	s.Require().Equal(0, env.Code)
	var one struct {
		Found bool `json:"found"`
		Task  struct {
			ThisWeekTasks string `json:"thisWeekTasks"`
		} `json:"task"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &one))
	s.True(one.Found)
	s.Equal("ship it", one.Task.ThisWeekTasks)
}

func (s *APITestSuite) TestSaveForAnotherUserIsRejected() {
	tokenA, _ := s.signup("eve@example.com", "secret1")
	_, idB := s.signup("victim@example.com", "secret1")

	env := s.do(s.engine, http.MethodPut, "/api/v1/tasks", tokenA, gin.H{
		"userId": idB, "year": 2025, "weekNumber": 7, "thisWeekTasks": "pwned",
	})
	s.Require().Equal(0, env.Code)
	var out struct {
		Saved bool `json:"saved"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &out))
	s.False(out.Saved)
}

func (s *APITestSuite) TestAuthRequired() {
	env := s.do(s.engine, http.MethodGet, "/api/v1/me", "", nil)
	s.Equal(401, env.Code)
}

func (s *APITestSuite) TestAdminGateBlocksNonSuper() {
	token, _ := s.signup("carol@example.com", "secret1")

	// 新用户是 MEMBER，进不了后台
	env := s.do(s.admin, http.MethodGet, "/admin/v1/users", token, nil)
	s.Equal(403, env.Code)

	superTok, err := s.jwter.Issue("root", string(domain.RoleSuper))
	s.Require().NoError(err)
	env = s.do(s.admin, http.MethodGet, "/admin/v1/users", superTok, nil)
	s.Equal(0, env.Code)
}

func (s *APITestSuite) TestAdminUpdatesRoleAndClearsTeamOnDeptChange() {
	_, id := s.signup("dave@example.com", "secret1")
	s.Require().NoError(s.db.Create(&domain.Department{ID: "d1", Name: "Eng"}).Error)
	s.Require().NoError(s.db.Create(&domain.Department{ID: "d2", Name: "Sales"}).Error)
	s.Require().NoError(s.db.Create(&domain.Team{ID: "t1", Name: "Core", DepartmentID: "d1"}).Error)

	superTok, err := s.jwter.Issue("root", string(domain.RoleSuper))
	s.Require().NoError(err)

	env := s.do(s.admin, http.MethodPut, "/admin/v1/users/"+id, superTok, gin.H{
		"role": "TEAM_LEADER", "departmentId": "d1", "teamId": "t1",
	})
	s.Require().Equal(0, env.Code, env.Msg)

	var u domain.User
	s.Require().NoError(s.db.First(&u, "id = ?", id).Error)
	s.Equal(domain.RoleTeamLeader, u.Role)
	s.Require().NotNil(u.TeamID)
	s.Equal("t1", *u.TeamID)

	// 只换部门：旧团队被清掉
	env = s.do(s.admin, http.MethodPut, "/admin/v1/users/"+id, superTok, gin.H{
		"departmentId": "d2",
	})
	s.Require().Equal(0, env.Code, env.Msg)
	s.Require().NoError(s.db.First(&u, "id = ?", id).Error)
	s.Require().NotNil(u.DepartmentID)
	s.Equal("d2", *u.DepartmentID)
	s.Nil(u.TeamID)

	// 非法角色被拒
	env = s.do(s.admin, http.MethodPut, "/admin/v1/users/"+id, superTok, gin.H{
		"role": "OVERLORD",
	})
	s.Equal(400, env.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
