package service

import (
	"context"

	apperrors "clubtac-rating-backend/internal/common/errors"
	"clubtac-rating-backend/internal/features/user/models"
	"clubtac-rating-backend/internal/features/user/repository"
)

type UserService interface {
	// Authenticate резолвит пользователя по Telegram-идентичности:
	// существующий возвращается как есть (created=false), отсутствующий
	// создаётся. Идемпотентна относительно повторных вызовов.
	Authenticate(ctx context.Context, req models.AuthRequest) (user *models.User, created bool, err error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) Authenticate(ctx context.Context, req models.AuthRequest) (*models.User, bool, error) {
	// Валидация до любого обращения к базе.
	if req.TelegramID == 0 {
		return nil, false, apperrors.NewValidationError("telegram_id", "required")
	}
	if req.FirstName == "" {
		return nil, false, apperrors.NewValidationError("first_name", "required")
	}

	existing, err := s.repo.GetByTelegramID(ctx, req.TelegramID)
	if err == nil {
		if existing.Username != req.Username || existing.FirstName != req.FirstName || existing.LastName != req.LastName {
			existing.Username = req.Username
			existing.FirstName = req.FirstName
			existing.LastName = req.LastName
			if err := s.repo.Update(ctx, existing); err != nil {
				return nil, false, apperrors.NewDatabaseError("update user", err)
			}
		}
		return existing, false, nil
	}
	if err != repository.ErrUserNotFound {
		return nil, false, apperrors.NewDatabaseError("find user", err)
	}

	created, err := s.repo.Create(ctx, &models.User{
		TelegramID: req.TelegramID,
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
	})
	if err != nil {
		return nil, false, apperrors.NewDatabaseError("create user", err)
	}

	return created, true, nil
}

func (s *userService) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.repo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return nil, apperrors.NewUserNotFoundError(telegramID)
		}
		return nil, apperrors.NewDatabaseError("find user", err)
	}
	return user, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return nil, apperrors.NewUserNotFoundError(username)
		}
		return nil, apperrors.NewDatabaseError("find user", err)
	}
	return user, nil
}
