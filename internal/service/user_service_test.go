package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/summercamp-api/internal/models"
	appErrors "github.com/noah-isme/summercamp-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	listCount int
	upserts   []*models.User
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var users []models.User
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, m.listCount, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Upsert(ctx context.Context, user *models.User) error {
	if existing, ok := m.users[user.Email]; ok {
		user.ID = existing.ID
		user.Role = existing.Role
	}
	m.upserts = append(m.upserts, user)
	return nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id string, role models.UserRole) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			u.Role = role
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func newUserFixture() (*UserService, *mockUserRepo) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"sam@example.com": {ID: "u1", Email: "sam@example.com", Role: models.RoleStudent},
		"new@example.com": {ID: "u2", Email: "new@example.com"},
	}}
	return NewUserService(repo, nil, zap.NewNop()), repo
}

func TestUserListPagination(t *testing.T) {
	svc, repo := newUserFixture()
	repo.listCount = 42

	users, pagination, err := svc.List(context.Background(), models.UserFilter{Page: 2, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 42, pagination.TotalCount)

	bogus := models.UserRole("root")
	_, _, err = svc.List(context.Background(), models.UserFilter{Role: &bogus})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRoleDefaultsToStudent(t *testing.T) {
	svc, _ := newUserFixture()

	view, err := svc.Role(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, view.Role)

	view, err = svc.Role(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, view.Role)
}

func TestChangeRole(t *testing.T) {
	svc, _ := newUserFixture()

	user, err := svc.ChangeRole(context.Background(), "u1", models.RoleChangeRequest{Role: "Instructor"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleInstructor, user.Role)

	_, err = svc.ChangeRole(context.Background(), "missing", models.RoleChangeRequest{Role: models.RoleAdmin})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = svc.ChangeRole(context.Background(), "u1", models.RoleChangeRequest{Role: "superadmin"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSaveProfileNeverTouchesRole(t *testing.T) {
	svc, repo := newUserFixture()

	user, err := svc.SaveProfile(context.Background(), "sam@example.com", models.ProfileRequest{Name: " Sam ", PhotoURL: "https://img.example.com/sam.png"})
	require.NoError(t, err)
	assert.Equal(t, "Sam", user.Name)
	assert.Equal(t, models.RoleStudent, user.Role)
	require.Len(t, repo.upserts, 1)

	_, err = svc.SaveProfile(context.Background(), "sam@example.com", models.ProfileRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
