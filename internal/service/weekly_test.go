package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"timbel-weekly/internal/access"
	"timbel-weekly/internal/domain"
	"timbel-weekly/internal/notify"
	"timbel-weekly/internal/repo"
)

type WeeklyServiceTestSuite struct {
	suite.Suite
	db    *gorm.DB
	users *repo.UserRepo
	tasks *repo.TaskRepo
	svc   *WeeklyService
}

func (s *WeeklyServiceTestSuite) SetupTest() {
	var err error
	s.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)
	s.Require().NoError(s.db.AutoMigrate(
		&domain.User{}, &domain.WeeklyTask{}, &domain.TaskNote{},
	))

	s.users = repo.NewUserRepo(s.db)
	s.tasks = repo.NewTaskRepo(s.db)
	notes := repo.NewNoteRepo(s.db)
	acl := access.NewResolver(s.users, nil, access.Options{}, nil)
	s.svc = NewWeeklyService(s.users, s.tasks, notes, acl, notify.NewHub(), Options{}, nil)
}

func (s *WeeklyServiceTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *WeeklyServiceTestSuite) seedUser(id string, role domain.Role) {
	s.Require().NoError(s.users.Create(context.Background(), &domain.User{
		ID: id, Email: id + "@example.com", FullName: id, Role: role,
	}))
}

func (s *WeeklyServiceTestSuite) TestSaveTaskRejectsOtherUsers() {
	s.seedUser("alice", domain.RoleSuper)
	s.seedUser("bob", domain.RoleMember)

	// 角色再高也不能替别人写
	ok := s.svc.SaveTask(context.Background(), SaveTaskInput{
		UserID: "bob", Year: 2025, WeekNumber: 10,
		ThisWeekTasks: "x", ActorID: "alice",
	})
	s.False(ok)

	t, err := s.tasks.FindByKey(context.Background(), "bob", 2025, 10)
	s.NoError(err)
	s.Nil(t)
}

func (s *WeeklyServiceTestSuite) TestSaveTaskUpsertsSameWeek() {
	s.seedUser("alice", domain.RoleMember)
	ctx := context.Background()

	in := SaveTaskInput{
		UserID: "alice", Year: 2025, WeekNumber: 10,
		ThisWeekTasks: "first draft", ActorID: "alice",
	}
	s.True(s.svc.SaveTask(ctx, in))

	in.ThisWeekTasks = "second draft"
	in.NextWeekPlan = "plan"
	s.True(s.svc.SaveTask(ctx, in))

	var count int64
	s.db.Model(&domain.WeeklyTask{}).Count(&count)
	s.EqualValues(1, count)

	t, err := s.tasks.FindByKey(ctx, "alice", 2025, 10)
	s.NoError(err)
	s.Require().NotNil(t)
	s.Equal("second draft", t.ThisWeekTasks)
	s.Equal("plan", t.NextWeekPlan)
}

func (s *WeeklyServiceTestSuite) TestGetTaskDeniedReadsAsAbsent() {
	s.seedUser("alice", domain.RoleMember)
	s.seedUser("bob", domain.RoleMember)
	ctx := context.Background()

	s.True(s.svc.SaveTask(ctx, SaveTaskInput{
		UserID: "alice", Year: 2025, WeekNumber: 3,
		ThisWeekTasks: "secret", ActorID: "alice",
	}))

	// 本人能读
	t, ok := s.svc.GetTask(ctx, "alice", 2025, 3, "alice")
	s.True(ok)
	s.Require().NotNil(t)
	s.Equal("secret", t.ThisWeekTasks)

	// 同级成员读不到，表现和无数据一致
	t, ok = s.svc.GetTask(ctx, "alice", 2025, 3, "bob")
	s.False(ok)
	s.Nil(t)
}

func (s *WeeklyServiceTestSuite) TestListTasksOrderedByWeek() {
	s.seedUser("alice", domain.RoleMember)
	ctx := context.Background()
	for _, w := range []int{7, 2, 5} {
		s.True(s.svc.SaveTask(ctx, SaveTaskInput{
			UserID: "alice", Year: 2025, WeekNumber: w, ActorID: "alice",
		}))
	}

	ts := s.svc.ListTasks(ctx, "alice", 2025, "alice")
	s.Require().Len(ts, 3)
	s.Equal([]int{2, 5, 7}, []int{ts[0].WeekNumber, ts[1].WeekNumber, ts[2].WeekNumber})
}

func (s *WeeklyServiceTestSuite) TestProvisionUserCreatesMember() {
	u, err := s.svc.ProvisionUser(context.Background(), ProvisionInput{
		Email: "carol@example.com", PasswordHash: "h",
	})
	s.Require().NoError(err)
	s.Require().NotNil(u)
	s.NotEmpty(u.ID)
	s.Equal(domain.RoleMember, u.Role)
	// 没给姓名时取邮箱前缀
	s.Equal("carol", u.FullName)
}

func (s *WeeklyServiceTestSuite) TestProvisionUserReturnsExistingOnDuplicate() {
	s.seedUser("carol", domain.RoleManager)

	u, err := s.svc.ProvisionUser(context.Background(), ProvisionInput{
		Email: "carol@example.com", FullName: "someone else", PasswordHash: "h",
	})
	s.Require().NoError(err)
	s.Require().NotNil(u)
	// 撞上已有邮箱：回读既有档案，角色不被重置
	s.Equal("carol", u.ID)
	s.Equal(domain.RoleManager, u.Role)
}

func (s *WeeklyServiceTestSuite) TestProvisionUserByIDIsIdempotent() {
	s.seedUser("dave", domain.RoleTeamLeader)

	u, err := s.svc.ProvisionUser(context.Background(), ProvisionInput{
		ID: "dave", Email: "dave@example.com",
	})
	s.Require().NoError(err)
	s.Require().NotNil(u)
	s.Equal(domain.RoleTeamLeader, u.Role)
}

func TestWeeklyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WeeklyServiceTestSuite))
}
