package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"timbel-weekly/internal/domain"
	"timbel-weekly/internal/repo"
)

type ResolverTestSuite struct {
	suite.Suite
	db    *gorm.DB
	users *repo.UserRepo
}

func (s *ResolverTestSuite) SetupTest() {
	var err error
	s.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)
	s.Require().NoError(s.db.AutoMigrate(&domain.User{}))
	s.users = repo.NewUserRepo(s.db)
}

func (s *ResolverTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *ResolverTestSuite) newResolver(strict bool) *Resolver {
	return NewResolver(s.users, nil, Options{StrictUnassigned: strict}, nil)
}

func (s *ResolverTestSuite) seedUser(id string, role domain.Role, dept, team *string) {
	u := &domain.User{
		ID: id, Email: id + "@example.com", FullName: id,
		Role: role, DepartmentID: dept, TeamID: team,
	}
	s.Require().NoError(s.users.Create(context.Background(), u))
}

func ptr(v string) *string { return &v }

func (s *ResolverTestSuite) TestSelfAlwaysVisible() {
	r := s.newResolver(false)
	// 连档案都不用查
	s.True(r.CanView(context.Background(), "u1", "u1"))
}

func (s *ResolverTestSuite) TestGlobalRolesSeeEveryone() {
	s.seedUser("super", domain.RoleSuper, nil, nil)
	s.seedUser("admin", domain.RoleAdmin, ptr("d1"), nil)
	s.seedUser("m", domain.RoleMember, ptr("d2"), ptr("t2"))

	r := s.newResolver(false)
	s.True(r.CanView(context.Background(), "super", "m"))
	s.True(r.CanView(context.Background(), "admin", "m"))
}

func (s *ResolverTestSuite) TestManagerMatchesDepartment() {
	s.seedUser("mgr", domain.RoleManager, ptr("d1"), nil)
	s.seedUser("same", domain.RoleMember, ptr("d1"), ptr("t1"))
	s.seedUser("other", domain.RoleMember, ptr("d2"), ptr("t2"))

	r := s.newResolver(false)
	s.True(r.CanView(context.Background(), "mgr", "same"))
	s.False(r.CanView(context.Background(), "mgr", "other"))
}

func (s *ResolverTestSuite) TestTeamLeaderMatchesTeam() {
	// 团队长只看团队，部门相同也不够
	s.seedUser("tl", domain.RoleTeamLeader, ptr("d1"), ptr("t1"))
	s.seedUser("mate", domain.RoleMember, ptr("d1"), ptr("t1"))
	s.seedUser("neighbor", domain.RoleMember, ptr("d1"), ptr("t2"))

	r := s.newResolver(false)
	s.True(r.CanView(context.Background(), "tl", "mate"))
	s.False(r.CanView(context.Background(), "tl", "neighbor"))
}

func (s *ResolverTestSuite) TestMemberSeesOnlySelf() {
	s.seedUser("m1", domain.RoleMember, ptr("d1"), ptr("t1"))
	s.seedUser("m2", domain.RoleMember, ptr("d1"), ptr("t1"))

	r := s.newResolver(false)
	s.False(r.CanView(context.Background(), "m1", "m2"))
}

func (s *ResolverTestSuite) TestVisibilityIsAsymmetric() {
	s.seedUser("mgr", domain.RoleManager, ptr("d1"), nil)
	s.seedUser("m", domain.RoleMember, ptr("d1"), nil)

	r := s.newResolver(false)
	s.True(r.CanView(context.Background(), "mgr", "m"))
	s.False(r.CanView(context.Background(), "m", "mgr"))
}

func (s *ResolverTestSuite) TestUnassignedMatchesUnassigned() {
	// 双方部门同为空：默认算同组
	s.seedUser("mgr", domain.RoleManager, nil, nil)
	s.seedUser("stray", domain.RoleMember, nil, nil)
	s.seedUser("placed", domain.RoleMember, ptr("d1"), nil)

	r := s.newResolver(false)
	s.True(r.CanView(context.Background(), "mgr", "stray"))
	s.False(r.CanView(context.Background(), "mgr", "placed"))
}

func (s *ResolverTestSuite) TestStrictUnassignedClosesNullMatch() {
	s.seedUser("mgr", domain.RoleManager, nil, nil)
	s.seedUser("stray", domain.RoleMember, nil, nil)

	r := s.newResolver(true)
	s.False(r.CanView(context.Background(), "mgr", "stray"))
}

func (s *ResolverTestSuite) TestMissingUsersFailClosed() {
	s.seedUser("mgr", domain.RoleManager, ptr("d1"), nil)

	r := s.newResolver(false)
	s.False(r.CanView(context.Background(), "ghost", "mgr"))
	s.False(r.CanView(context.Background(), "mgr", "ghost"))
}

func (s *ResolverTestSuite) TestVisibleUsersPerRole() {
	s.seedUser("super", domain.RoleSuper, nil, nil)
	s.seedUser("mgr", domain.RoleManager, ptr("d1"), nil)
	s.seedUser("tl", domain.RoleTeamLeader, ptr("d1"), ptr("t1"))
	s.seedUser("a", domain.RoleMember, ptr("d1"), ptr("t1"))
	s.seedUser("b", domain.RoleMember, ptr("d1"), ptr("t2"))
	s.seedUser("c", domain.RoleMember, ptr("d2"), nil)

	r := s.newResolver(false)
	ctx := context.Background()

	s.Len(r.VisibleUsers(ctx, "super"), 6)

	ids := func(us []domain.User) []string {
		out := make([]string, len(us))
		for i, u := range us {
			out[i] = u.ID
		}
		return out
	}

	s.ElementsMatch([]string{"mgr", "tl", "a", "b"}, ids(r.VisibleUsers(ctx, "mgr")))
	s.ElementsMatch([]string{"tl", "a"}, ids(r.VisibleUsers(ctx, "tl")))
	s.ElementsMatch([]string{"a"}, ids(r.VisibleUsers(ctx, "a")))
}

func (s *ResolverTestSuite) TestVisibleUsersStrictUnassignedSelfOnly() {
	s.seedUser("mgr", domain.RoleManager, nil, nil)
	s.seedUser("stray", domain.RoleMember, nil, nil)

	r := s.newResolver(true)
	us := r.VisibleUsers(context.Background(), "mgr")
	s.Require().Len(us, 1)
	s.Equal("mgr", us[0].ID)
}

func TestResolverTestSuite(t *testing.T) {
	suite.Run(t, new(ResolverTestSuite))
}
