package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskScheduler/internal/logger"
	"taskScheduler/internal/models/session"
	"taskScheduler/internal/repository"
	"taskScheduler/internal/security"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (int64, error)
}

// SessionService выдаёт сессии после проверки пароля и разрешает токен обратно в пользователя.
type SessionService struct {
	credentials CredentialVerifier
	store       SessionStore
	signer      *security.SessionSigner
	ttl         time.Duration
	opts        options
}

func NewSessionService(credentials CredentialVerifier, store SessionStore, signer *security.SessionSigner, ttl time.Duration, opts ...Option) *SessionService {
	return &SessionService{
		credentials: credentials,
		store:       store,
		signer:      signer,
		ttl:         ttl,
		opts:        applyOptions(opts),
	}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

func (s *SessionService) Authenticate(ctx context.Context, username, password string) (*session.Session, string, error) {
	userID, err := s.credentials.Verify(ctx, username, password)
	if err != nil {
		return nil, "", err
	}

	now := s.opts.now()
	sess := &session.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("сохранение сессии: %w", err)
	}

	token, err := s.signer.Sign(sess.ID, userID, now, sess.ExpiresAt)
	if err != nil {
		_ = s.store.Delete(ctx, sess.ID)
		return nil, "", err
	}

	logger.Info("Service: Сессия открыта",
		zap.Int64("user_id", userID),
		zap.Time("expires_at", sess.ExpiresAt))
	return sess, token, nil
}

func (s *SessionService) CurrentUser(ctx context.Context, token string) (int64, error) {
	now := s.opts.now()

	claims, err := s.signer.Parse(token, now)
	if err != nil {
		return 0, NewUnauthenticated()
	}

	sess, err := s.store.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, NewUnauthenticated()
		}
		return 0, fmt.Errorf("получение сессии: %w", err)
	}

	if sess.Expired(now) {
		if err := s.store.Delete(ctx, sess.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			logger.Warn("Service: Не удалось удалить истёкшую сессию", zap.Error(err))
		}
		return 0, NewUnauthenticated()
	}

	userID, err := claims.UserID()
	if err != nil || userID != sess.UserID {
		logger.Warn("Service: Токен не соответствует сессии", zap.Int64("session_user_id", sess.UserID))
		return 0, NewUnauthenticated()
	}

	return sess.UserID, nil
}

// EndSession для недействительного токена ничего не делает.
func (s *SessionService) EndSession(ctx context.Context, token string) error {
	claims, err := s.signer.Parse(token, s.opts.now())
	if err != nil {
		return nil
	}

	if err := s.store.Delete(ctx, claims.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("удаление сессии: %w", err)
	}

	logger.Info("Service: Сессия закрыта", zap.String("subject", claims.Subject))
	return nil
}
