package service

import (
	"context"

	"lendit/internal/models"

	"github.com/rs/zerolog"
)

// UserDirectoryStore is the slice of the store behind the user directory.
type UserDirectoryStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	UserExists(ctx context.Context, id int64) (bool, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
}

// UserService is the user directory collaborator. The booking engine only
// ever asks it "does this user exist".
type UserService struct {
	store  UserDirectoryStore
	logger *zerolog.Logger
}

func NewUserService(store UserDirectoryStore, logger *zerolog.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

func (s *UserService) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.store.CreateUser(ctx, user); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", user.ID).Msg("user created")
	return nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.store.GetUserByID(ctx, id)
}

// UpdateUser applies a partial update: empty name or email keeps the current
// value. Email uniqueness is enforced by the store.
func (s *UserService) UpdateUser(ctx context.Context, id int64, name, email string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		user.Name = name
	}
	if email != "" {
		user.Email = email
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", id).Msg("user updated")
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

func (s *UserService) UserExists(ctx context.Context, id int64) (bool, error) {
	return s.store.UserExists(ctx, id)
}
