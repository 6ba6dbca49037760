// Package user registers Telegram users and tracks their activity.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/domain"
	apperrors "github.com/Proton-105/lessonnotes-bot/internal/errors"
	"github.com/Proton-105/lessonnotes-bot/internal/repository"
	"github.com/Proton-105/lessonnotes-bot/internal/usercache"
)

// Service provides business operations over users. Repository calls share one
// circuit breaker.
type Service struct {
	repo    repository.UserRepository
	cache   *usercache.Cache
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
	now     func() time.Time
}

// NewService constructs a new Service instance. cache may be nil.
func NewService(repo repository.UserRepository, cache *usercache.Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		repo:    repo,
		cache:   cache,
		breaker: apperrors.NewCircuitBreaker(apperrors.DefaultBreakerSettings),
		log:     log,
		now:     time.Now,
	}
}

// GetOrCreate fetches a user by telegram ID or creates a new profile when missing.
func (s *Service) GetOrCreate(ctx context.Context, telegramUser *telebot.User) (*domain.User, error) {
	if telegramUser == nil {
		return nil, errors.New("telegram user is nil")
	}

	if cached, err := s.cache.Get(ctx, telegramUser.ID); err != nil {
		s.log.Warn("user cache lookup failed", slog.Int64("telegram_id", telegramUser.ID), slog.Any("error", err))
	} else if cached != nil {
		return cached, nil
	}

	var user *domain.User
	err := s.breaker.Call(func() error {
		found, err := s.repo.FindByID(ctx, telegramUser.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		user = found
		return err
	})
	switch {
	case err != nil:
		s.logError("get_or_create.find", telegramUser.ID, err)
		return nil, fmt.Errorf("get user: %w", err)
	case user == nil:
		now := s.now().UTC()
		user = &domain.User{
			TelegramID:   telegramUser.ID,
			FirstName:    telegramUser.FirstName,
			LastName:     telegramUser.LastName,
			Username:     telegramUser.Username,
			CreatedAt:    now,
			LastActiveAt: now,
		}
		if err := s.breaker.Call(func() error { return s.repo.Create(ctx, user) }); err != nil {
			s.logError("get_or_create.create", telegramUser.ID, err)
			return nil, fmt.Errorf("create user: %w", err)
		}
		s.log.Info("user registered", slog.Int64("telegram_id", user.TelegramID))
	}

	if err := s.cache.Set(ctx, user); err != nil {
		s.log.Warn("user cache store failed", slog.Int64("telegram_id", user.TelegramID), slog.Any("error", err))
	}

	return user, nil
}

// UpdateLastActive refreshes the last_active_at field for the user.
func (s *Service) UpdateLastActive(ctx context.Context, telegramID int64) error {
	err := s.breaker.Call(func() error { return s.repo.UpdateLastActiveAt(ctx, telegramID) })
	if err != nil {
		s.logError("update_last_active", telegramID, err)
		return err
	}

	return nil
}

func (s *Service) logError(operation string, telegramID int64, err error) {
	s.log.Error("user service operation failed",
		slog.String("operation", operation),
		slog.Int64("telegram_id", telegramID),
		slog.Any("error", err),
	)
}
