package sessions

import (
	"context"
	"time"
)

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

// CreateSession records refresh as a live session of userID.
func (s *Service) CreateSession(ctx context.Context, userID, refresh string, ttl time.Duration) error {
	now := time.Now().UTC()
	return s.repo.Create(ctx, &Session{
		ID:        Digest(refresh),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
}

// ValidateRefresh returns the session if refresh token is valid and not
// expired, or nil when it is unknown.
func (s *Service) ValidateRefresh(ctx context.Context, refresh string) (*Session, error) {
	id := Digest(refresh)
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		_ = s.repo.Delete(ctx, id)
		return nil, nil
	}
	return sess, nil
}

func (s *Service) DeleteRefresh(ctx context.Context, refresh string) error {
	return s.repo.Delete(ctx, Digest(refresh))
}
