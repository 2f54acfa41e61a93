package company

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
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

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// DocumentPurger は会社に紐づく添付書類を blob ごと削除します。
// 返却される warnings は削除できなかった blob を表し、会社の削除は妨げません。
type DocumentPurger interface {
	PurgeCompanyDocuments(ctx context.Context, companyID string) (warnings []error, err error)
}

// Recorder は審査と取り下げの件数を記録します。
type Recorder interface {
	IncDecision(decision string)
	IncWithdrawal()
}

type noopRecorder struct{}

func (noopRecorder) IncDecision(string) {}
func (noopRecorder) IncWithdrawal()     {}

// TaxIDGenerator は承認時に払い出す税務 ID を生成します。
type TaxIDGenerator func() string

const (
	defaultListPageSize = 50
	maxListPageSize     = 200

	maxWithdrawAttempts = 3

	maxNameLength         = 255
	maxEmailLength        = 255
	maxGoalLength         = 1000
	maxHeadquartersLength = 500
	maxExecutivesLength   = 1000
)

// Service は登録申請の状態遷移を管理します。
type Service struct {
	repo    Repository
	docs    DocumentPurger
	clock   Clock
	tx      TransactionManager
	log     *zap.Logger
	metrics Recorder
	taxID   TaxIDGenerator
}

// UseCase は登録申請ユースケースの公開インターフェースです。
type UseCase interface {
	Register(ctx context.Context, in RegisterInput) (*Company, error)
	GetCompany(ctx context.Context, id string) (*Company, error)
	GetByOwner(ctx context.Context, ownerID string) (*Company, error)
	ListByState(ctx context.Context, in ListInput) (*ListResult, error)
	Update(ctx context.Context, in UpdateInput) (*Company, error)
	Decide(ctx context.Context, in DecideInput) (*Company, error)
	Withdraw(ctx context.Context, in WithdrawInput) (*WithdrawResult, error)
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithLogger はロガーを設定します。
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRecorder はメトリクス記録先を設定します。
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithTaxIDGenerator は税務 ID の生成方法を差し替えます。
func WithTaxIDGenerator(gen TaxIDGenerator) Option {
	return func(s *Service) {
		if gen != nil {
			s.taxID = gen
		}
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, docs DocumentPurger, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:    repo,
		docs:    docs,
		clock:   clock,
		tx:      tx,
		log:     zap.NewNop(),
		metrics: noopRecorder{},
		taxID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput は登録申請時の入力です。
type RegisterInput struct {
	OwnerID string
	Details Details
}

// UpdateInput は申請内容更新時の入力です。
type UpdateInput struct {
	ID      string
	Details Details
}

// DecideInput は審査時の入力です。
type DecideInput struct {
	ID       string
	Decision Decision
}

// WithdrawInput は取り下げ時の入力です。
type WithdrawInput struct {
	ID string
}

// WithdrawResult は取り下げ結果です。DocumentWarnings は削除できず残った blob を表します。
type WithdrawResult struct {
	Company          *Company
	DocumentWarnings []error
}

// ListInput は状態別一覧取得時の入力です。
type ListInput struct {
	State     State
	PageSize  int
	PageToken string
}

// ListResult は一覧取得結果を表します。
type ListResult struct {
	Companies     []*Company
	NextPageToken string
}

// Register は新しい登録申請を PENDING で作成します。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Company, error) {
	ownerID := strings.TrimSpace(in.OwnerID)
	if ownerID == "" {
		return nil, ErrInvalidOwner
	}

	details, err := normalizeDetails(in.Details)
	if err != nil {
		return nil, err
	}

	var created *Company
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureOwnerHasNoCompany(txCtx, ownerID); err != nil {
			return err
		}

		now := s.clock.Now()
		c := &Company{
			OwnerID:   ownerID,
			State:     StatePending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		c.applyDetails(details)

		result, err := s.repo.Create(txCtx, c)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.log.Info("registration submitted", zap.String("company_id", created.ID))
	return created, nil
}

// GetCompany は ID で会社を取得します。
func (s *Service) GetCompany(ctx context.Context, id string) (*Company, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}

	var found *Company
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		found = result
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// GetByOwner は申請者の会社を取得します。
func (s *Service) GetByOwner(ctx context.Context, ownerID string) (*Company, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrInvalidOwner
	}

	var found *Company
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByOwner(txCtx, ownerID)
		if err != nil {
			return err
		}
		found = result
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// ListByState は指定状態の申請を作成日時の古い順に取得します。
func (s *Service) ListByState(ctx context.Context, in ListInput) (*ListResult, error) {
	if !in.State.Valid() {
		return nil, ErrInvalidState
	}

	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var (
		companies []*Company
		nextToken string
	)
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, token, err := s.repo.ListByState(txCtx, ListFilter{State: in.State, Limit: limit, Offset: offset})
		if err != nil {
			return err
		}
		companies = result
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListResult{Companies: companies, NextPageToken: nextToken}, nil
}

// Update は申請内容を上書きします。DENIED の申請は PENDING に戻り再審査待ちになります。
func (s *Service) Update(ctx context.Context, in UpdateInput) (*Company, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	details, err := normalizeDetails(in.Details)
	if err != nil {
		return nil, err
	}

	var updated *Company
	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if existing.IsAccepted() {
			return ErrImmutableState
		}

		version := existing.Version
		existing.applyDetails(details)
		if existing.State == StateDenied {
			existing.State = StatePending
		}
		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing, version)
		if err != nil {
			return err
		}
		updated = result
		return nil
	})
	if errors.Is(err, ErrVersionConflict) {
		return nil, s.classifyConflict(ctx, id, err, func(current *Company) error {
			if current.IsAccepted() {
				return ErrImmutableState
			}
			return nil
		})
	}
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Decide は PENDING の申請を承認または却下します。
// 承認時は新しい税務 ID を払い出します。
func (s *Service) Decide(ctx context.Context, in DecideInput) (*Company, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	var decided *Company
	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if existing.State != StatePending {
			return ErrAlreadyProcessed
		}

		version := existing.Version
		switch in.Decision {
		case DecisionAccept:
			taxID := s.taxID()
			existing.TaxID = &taxID
			existing.State = StateAccepted
		case DecisionDeny:
			existing.TaxID = nil
			existing.State = StateDenied
		default:
			return fmt.Errorf("%w: %q", ErrInvalidDecision, in.Decision)
		}
		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing, version)
		if err != nil {
			return err
		}
		decided = result
		return nil
	})
	if errors.Is(err, ErrVersionConflict) {
		return nil, s.classifyConflict(ctx, id, err, func(current *Company) error {
			if current.State != StatePending {
				return ErrAlreadyProcessed
			}
			return nil
		})
	}
	if err != nil {
		return nil, err
	}

	s.metrics.IncDecision(string(in.Decision))
	s.log.Info("registration decided",
		zap.String("company_id", decided.ID),
		zap.String("decision", string(in.Decision)),
		zap.String("state", string(decided.State)),
	)
	return decided, nil
}

// Withdraw は申請を取り下げます。添付書類を blob → メタデータの順に削除した後で会社を削除します。
func (s *Service) Withdraw(ctx context.Context, in WithdrawInput) (*WithdrawResult, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	current, err := s.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsAccepted() {
		return nil, ErrImmutableState
	}

	// 競合後の再試行では、その間に添付された書類も削除し直します。
	var warnings []error
	for attempt := 1; ; attempt++ {
		if s.docs != nil {
			purged, err := s.docs.PurgeCompanyDocuments(ctx, id)
			warnings = append(warnings, purged...)
			if err != nil {
				return nil, fmt.Errorf("purge documents of company %s: %w", id, err)
			}
		}

		err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
			return s.repo.Delete(txCtx, id, current.Version)
		})
		if !errors.Is(err, ErrVersionConflict) || attempt == maxWithdrawAttempts {
			break
		}

		current, err = s.GetCompany(ctx, id)
		if err != nil {
			break
		}
		if current.IsAccepted() {
			s.log.Error("registration accepted while withdrawal was in progress",
				zap.String("company_id", id),
				zap.Int("purged_warnings", len(warnings)),
			)
			err = ErrImmutableState
			break
		}
	}
	if err != nil {
		return nil, err
	}

	for _, w := range warnings {
		s.log.Warn("document blob left behind by withdrawal", zap.String("company_id", id), zap.Error(w))
	}
	s.metrics.IncWithdrawal()
	s.log.Info("registration withdrawn", zap.String("company_id", id))

	return &WithdrawResult{Company: current, DocumentWarnings: warnings}, nil
}

// classifyConflict は楽観ロック競合時に最新の状態を読み直し、違反した不変条件に応じたエラーへ変換します。
func (s *Service) classifyConflict(ctx context.Context, id string, conflict error, check func(*Company) error) error {
	current, err := s.GetCompany(ctx, id)
	if err != nil {
		return err
	}
	if err := check(current); err != nil {
		return err
	}
	return conflict
}

func (s *Service) ensureOwnerHasNoCompany(ctx context.Context, ownerID string) error {
	existing, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil && !errors.Is(err, ErrCompanyNotFound) {
		return err
	}
	if existing != nil {
		return ErrAlreadyRegistered
	}
	return nil
}

func normalizeID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("id: %w", ErrInvalidID)
	}
	return id, nil
}

func normalizeDetails(in Details) (Details, error) {
	var (
		out Details
		err error
	)

	if out.Name, err = requireText(in.Name, maxNameLength, ErrInvalidName); err != nil {
		return Details{}, err
	}
	if out.Email, err = normalizeEmail(in.Email); err != nil {
		return Details{}, err
	}
	if out.Goal, err = requireText(in.Goal, maxGoalLength, ErrInvalidGoal); err != nil {
		return Details{}, err
	}
	if out.Headquarters, err = requireText(in.Headquarters, maxHeadquartersLength, ErrInvalidHeadquarters); err != nil {
		return Details{}, err
	}
	if out.Executives, err = requireText(in.Executives, maxExecutivesLength, ErrInvalidExecutives); err != nil {
		return Details{}, err
	}
	return out, nil
}

func requireText(raw string, maxLen int, invalid error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > maxLen {
		return "", invalid
	}
	return trimmed, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > maxEmailLength {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(addr.Address), nil
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
