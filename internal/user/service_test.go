package user

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/domain"
	apperrors "github.com/Proton-105/lessonnotes-bot/internal/errors"
	"github.com/Proton-105/lessonnotes-bot/internal/usercache"
)

type repoMock struct {
	mock.Mock
}

func (m *repoMock) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *repoMock) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *repoMock) UpdateLastActiveAt(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCache(t *testing.T) *usercache.Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return usercache.NewCache(client, 0)
}

func TestService_GetOrCreate(t *testing.T) {
	tgUser := &telebot.User{ID: 42, FirstName: "Ama", Username: "ama"}

	t.Run("creates missing user then serves from cache", func(t *testing.T) {
		repo := &repoMock{}
		repo.On("FindByID", mock.Anything, int64(42)).Return(nil, sql.ErrNoRows).Once()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.TelegramID == 42 && u.FirstName == "Ama" && !u.CreatedAt.IsZero()
		})).Return(nil).Once()

		svc := NewService(repo, newCache(t), testLogger())

		user, err := svc.GetOrCreate(context.Background(), tgUser)
		require.NoError(t, err)
		assert.Equal(t, int64(42), user.TelegramID)

		again, err := svc.GetOrCreate(context.Background(), tgUser)
		require.NoError(t, err)
		assert.Equal(t, "Ama", again.FirstName)

		repo.AssertExpectations(t)
	})

	t.Run("returns existing user", func(t *testing.T) {
		repo := &repoMock{}
		repo.On("FindByID", mock.Anything, int64(42)).Return(&domain.User{ID: 3, TelegramID: 42}, nil).Once()

		svc := NewService(repo, nil, testLogger())

		user, err := svc.GetOrCreate(context.Background(), tgUser)
		require.NoError(t, err)
		assert.Equal(t, int64(3), user.ID)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("propagates lookup failure", func(t *testing.T) {
		repo := &repoMock{}
		repo.On("FindByID", mock.Anything, int64(42)).Return(nil, errors.New("connection reset")).Once()

		svc := NewService(repo, nil, testLogger())

		_, err := svc.GetOrCreate(context.Background(), tgUser)
		assert.Error(t, err)
	})

	t.Run("stops querying a failing database", func(t *testing.T) {
		repo := &repoMock{}
		threshold := apperrors.DefaultBreakerSettings.MinRequests
		repo.On("FindByID", mock.Anything, int64(42)).Return(nil, errors.New("connection refused")).Times(threshold)

		svc := NewService(repo, nil, testLogger())
		for i := 0; i < threshold; i++ {
			_, err := svc.GetOrCreate(context.Background(), tgUser)
			require.Error(t, err)
		}

		_, err := svc.GetOrCreate(context.Background(), tgUser)
		assert.ErrorIs(t, err, apperrors.ErrCircuitOpen)
		repo.AssertNumberOfCalls(t, "FindByID", threshold)
	})

	t.Run("rejects nil user", func(t *testing.T) {
		svc := NewService(&repoMock{}, nil, testLogger())

		_, err := svc.GetOrCreate(context.Background(), nil)
		assert.Error(t, err)
	})
}

func TestService_UpdateLastActive(t *testing.T) {
	repo := &repoMock{}
	repo.On("UpdateLastActiveAt", mock.Anything, int64(42)).Return(nil).Once()
	repo.On("UpdateLastActiveAt", mock.Anything, int64(7)).Return(errors.New("boom")).Once()

	svc := NewService(repo, nil, testLogger())

	assert.NoError(t, svc.UpdateLastActive(context.Background(), 42))
	assert.Error(t, svc.UpdateLastActive(context.Background(), 7))
	repo.AssertExpectations(t)
}
