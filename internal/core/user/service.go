package user

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

const (
	maxSubjectLength  = 255
	maxUsernameLength = 255
)

// Service は外部 ID から申請者を解決します。
type Service struct {
	repo  Repository
	clock Clock
	log   *zap.Logger
}

// UseCase はユーザーユースケースの公開インターフェースです。
type UseCase interface {
	ResolveOwner(ctx context.Context, id Identity) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, log *zap.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, clock: clock, log: log}
}

// ResolveOwner は subject に対応するユーザーを返します。初回の呼び出しではユーザーを作成します。
func (s *Service) ResolveOwner(ctx context.Context, id Identity) (*User, error) {
	subject := strings.TrimSpace(id.Subject)
	if subject == "" || utf8.RuneCountInString(subject) > maxSubjectLength {
		return nil, ErrInvalidSubject
	}

	existing, err := s.repo.FindBySubject(ctx, subject)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	username := strings.TrimSpace(id.Username)
	if username == "" {
		username = subject
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return nil, ErrInvalidUsername
	}

	created, err := s.repo.Create(ctx, &User{
		Subject:   subject,
		Username:  username,
		CreatedAt: s.clock.Now(),
	})
	if errors.Is(err, ErrSubjectAlreadyExists) {
		// 同時に初回アクセスした別リクエストが先に作成した
		return s.repo.FindBySubject(ctx, subject)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("owner identity registered", zap.String("user_id", created.ID))
	return created, nil
}

// GetUser は ID でユーザーを取得します。
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidID
	}
	return s.repo.FindByID(ctx, id)
}
