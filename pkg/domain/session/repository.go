package session

import (
	"context"

	"github.com/allayhq/api/pkg/domain/shared"
)

// Repository defines the interface for session persistence.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	InvalidateByTokenHash(ctx context.Context, tokenHash string) error
	InvalidateAllByUserID(ctx context.Context, userID shared.ID) error
	DeleteExpired(ctx context.Context) (int64, error)
}
