package service

import (
	"context"
	"testing"

	"lendit/internal/database"
	"lendit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) CreateUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}
func (m *mockUserStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockUserStore) UpdateUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}
func (m *mockUserStore) DeleteUser(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockUserStore) UserExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *mockUserStore) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func TestUpdateUser_PartialMerge(t *testing.T) {
	store := new(mockUserStore)
	svc := NewUserService(store, testLogger())

	ctx := context.Background()
	store.On("GetUserByID", ctx, int64(2)).Return(&models.User{ID: 2, Name: "Alice", Email: "alice@example.com"}, nil)
	store.On("UpdateUser", ctx, mock.AnythingOfType("*models.User")).Return(nil)

	user, err := svc.UpdateUser(ctx, 2, "", "alice.b@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "alice.b@example.com", user.Email)
}

func TestUpdateUser_NotFound(t *testing.T) {
	store := new(mockUserStore)
	svc := NewUserService(store, testLogger())

	ctx := context.Background()
	store.On("GetUserByID", ctx, int64(9)).Return(nil, database.ErrUserNotFound)

	_, err := svc.UpdateUser(ctx, 9, "X", "")
	assert.ErrorIs(t, err, database.ErrUserNotFound)
	store.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything)
}

func TestUpdateUser_DuplicateEmail(t *testing.T) {
	store := new(mockUserStore)
	svc := NewUserService(store, testLogger())

	ctx := context.Background()
	store.On("GetUserByID", ctx, int64(2)).Return(&models.User{ID: 2, Name: "Alice", Email: "alice@example.com"}, nil)
	store.On("UpdateUser", ctx, mock.AnythingOfType("*models.User")).Return(database.ErrEmailInUse)

	_, err := svc.UpdateUser(ctx, 2, "", "taken@example.com")
	assert.ErrorIs(t, err, database.ErrEmailInUse)
}

func TestDeleteUser(t *testing.T) {
	store := new(mockUserStore)
	svc := NewUserService(store, testLogger())

	ctx := context.Background()
	store.On("DeleteUser", ctx, int64(2)).Return(nil)
	store.On("DeleteUser", ctx, int64(9)).Return(database.ErrUserNotFound)

	require.NoError(t, svc.DeleteUser(ctx, 2))
	assert.ErrorIs(t, svc.DeleteUser(ctx, 9), database.ErrUserNotFound)
}
