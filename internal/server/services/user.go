package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/valetdrive/valetdrive/internal/common"
	"github.com/valetdrive/valetdrive/internal/logging"
	"github.com/valetdrive/valetdrive/internal/server/auth"
	sc "github.com/valetdrive/valetdrive/internal/server/config"
	"github.com/valetdrive/valetdrive/internal/server/models"
	"github.com/valetdrive/valetdrive/internal/server/repositories/repomanager"
)

// UserService handles accounts: registration, login and the admin
// operations on permission flags and quotas.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger
}

func NewUserService(db *sql.DB, rm repomanager.RepositoryManager, config *sc.Config, logger logging.Logger) *UserService {
	return &UserService{db: db, repomanager: rm, config: config, logger: logger}
}

// Register creates an account with default permissions and quota.
func (s *UserService) Register(ctx context.Context, username string, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", common.ErrInvalidInput)
	}

	userRepo := s.repomanager.Users(s.db)

	if _, err := userRepo.GetByUsername(ctx, username); err == nil {
		return nil, common.ErrConflictingName
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CanCreate:    true,
		CanRead:      true,
		CanWrite:     true,
		StorageQuota: models.DefaultStorageQuota,
	}

	return userRepo.Create(ctx, user)
}

// Login verifies credentials and returns a signed access token.
func (s *UserService) Login(ctx context.Context, username string, password string) (string, *models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", nil, common.ErrUnauthorized
		}
		return "", nil, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", nil, common.ErrUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, []byte(s.config.SecretKey), s.config.AccessTokenValidityDuration)
	if err != nil {
		return "", nil, fmt.Errorf("error generating token: %w", err)
	}

	return token, user, nil
}

// GetByID returns one account.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

func (s *UserService) requireAdmin(ctx context.Context, actorID string) error {
	actor, err := s.repomanager.Users(s.db).GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleAdmin {
		return common.ErrAccessDenied
	}
	return nil
}

// List returns all accounts. Admin only.
func (s *UserService) List(ctx context.Context, actorID string) ([]*models.User, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.repomanager.Users(s.db).List(ctx)
}

// UpdatePermissions sets a user's permission flags. Admin only.
func (s *UserService) UpdatePermissions(ctx context.Context, actorID string, targetID string, canCreate, canRead, canWrite bool) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return s.repomanager.Users(s.db).UpdatePermissions(ctx, targetID, canCreate, canRead, canWrite)
}

// UpdateQuota sets a user's storage allowance in bytes. Admin only.
func (s *UserService) UpdateQuota(ctx context.Context, actorID string, targetID string, quota int64) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if quota < 0 {
		return fmt.Errorf("%w: negative quota", common.ErrInvalidInput)
	}
	return s.repomanager.Users(s.db).UpdateQuota(ctx, targetID, quota)
}

// SeedDemoUsers provisions the demo accounts when they do not exist yet.
func (s *UserService) SeedDemoUsers(ctx context.Context) error {
	seeds := []struct {
		username string
		password string
		role     string
	}{
		{"admin", "admin123", models.RoleAdmin},
		{"demo", "demo123", models.RoleUser},
	}

	userRepo := s.repomanager.Users(s.db)

	for _, seed := range seeds {
		_, err := userRepo.GetByUsername(ctx, seed.username)
		if err == nil {
			continue
		}
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		hash, err := auth.HashPassword(seed.password)
		if err != nil {
			return fmt.Errorf("error hashing password: %w", err)
		}

		_, err = userRepo.Create(ctx, &models.User{
			ID:           uuid.NewString(),
			Username:     seed.username,
			PasswordHash: hash,
			Role:         seed.role,
			CanCreate:    true,
			CanRead:      true,
			CanWrite:     true,
			StorageQuota: models.DefaultStorageQuota,
		})
		if err != nil {
			return err
		}

		s.logger.Info(ctx, "seeded demo user", "username", seed.username)
	}

	return nil
}
