package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ogurasousui/codex-company-registration/internal/core/company"
)

const (
	defaultMaxFileSize        int64 = 20 << 20
	defaultCascadeConcurrency       = 4
	defaultContentType              = "application/octet-stream"
	maxFilenameLength               = 255

	stageValidation = "validation"
	stageBlob       = "blob"
	stageMetadata   = "metadata"

	operationUpload  = "upload"
	operationCascade = "cascade"
)

var tracer = otel.Tracer("github.com/ogurasousui/codex-company-registration/internal/core/document")

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
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// Recorder はアップロードと削除の件数を記録します。
type Recorder interface {
	IncUpload()
	IncUploadFailure(stage string)
	IncOrphanBlob(operation string)
	AddDocumentDeletes(n int)
}

type noopRecorder struct{}

func (noopRecorder) IncUpload()              {}
func (noopRecorder) IncUploadFailure(string) {}
func (noopRecorder) IncOrphanBlob(string)    {}
func (noopRecorder) AddDocumentDeletes(int)  {}

// Coordinator はメタデータと blob の二つのストアにまたがる書類のライフサイクルを管理します。
// blob の書き込みは行より先、削除は行より先に行い、行が存在する限り blob が存在する状態を保ちます。
type Coordinator struct {
	repo        Repository
	blobs       BlobStore
	companies   CompanyFinder
	clock       Clock
	tx          TransactionManager
	log         *zap.Logger
	metrics     Recorder
	maxFileSize int64
	concurrency int
	newKey      func(filename string) string
}

// Option は Coordinator の任意設定です。
type Option func(*Coordinator)

// WithLogger はロガーを設定します。
func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRecorder はメトリクス記録先を設定します。
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.metrics = r
		}
	}
}

// WithMaxFileSize は 1 ファイルあたりの上限バイト数を設定します。
func WithMaxFileSize(n int64) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxFileSize = n
		}
	}
}

// WithCascadeConcurrency は一括削除時に並行して削除する blob 数を設定します。
func WithCascadeConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// NewCoordinator は Coordinator を生成します。
func NewCoordinator(repo Repository, blobs BlobStore, companies CompanyFinder, clock Clock, tx TransactionManager, opts ...Option) *Coordinator {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	c := &Coordinator{
		repo:        repo,
		blobs:       blobs,
		companies:   companies,
		clock:       clock,
		tx:          tx,
		log:         zap.NewNop(),
		metrics:     noopRecorder{},
		maxFileSize: defaultMaxFileSize,
		concurrency: defaultCascadeConcurrency,
		newKey:      objectKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// objectKey は "<ランダム ID>/<元のファイル名>" 形式のキーを返します。
func objectKey(filename string) string {
	return uuid.NewString() + "/" + filename
}

// Upload は会社にファイルを添付します。ファイルは互いに独立して処理され、結果は入力と同じ順序で返ります。
// 会社が存在しない場合や承認済みの場合はどのファイルも保存せずにエラーを返します。
func (c *Coordinator) Upload(ctx context.Context, companyID string, files []File) (outcomes []UploadOutcome, err error) {
	ctx, span := tracer.Start(ctx, "document.Upload", trace.WithAttributes(
		attribute.String("company.id", companyID),
		attribute.Int("files", len(files)),
	))
	defer func() { endSpan(span, err) }()

	companyID, err = normalizeID(companyID)
	if err != nil {
		return nil, err
	}
	if err := c.ensureMutable(ctx, companyID); err != nil {
		return nil, err
	}

	outcomes = make([]UploadOutcome, 0, len(files))
	for _, f := range files {
		outcomes = append(outcomes, c.uploadOne(ctx, companyID, f))
	}
	return outcomes, nil
}

func (c *Coordinator) uploadOne(ctx context.Context, companyID string, f File) UploadOutcome {
	outcome := UploadOutcome{Filename: f.Filename}

	filename, err := normalizeFilename(f.Filename)
	if err != nil {
		c.metrics.IncUploadFailure(stageValidation)
		outcome.Err = fmt.Errorf("%w: %w", ErrUploadFailed, err)
		return outcome
	}
	if f.Content == nil {
		c.metrics.IncUploadFailure(stageValidation)
		outcome.Err = fmt.Errorf("%w: %s has no content", ErrUploadFailed, filename)
		return outcome
	}
	if f.Size > c.maxFileSize {
		c.metrics.IncUploadFailure(stageValidation)
		outcome.Err = fmt.Errorf("%w: %s: %w", ErrUploadFailed, filename, ErrFileTooLarge)
		return outcome
	}

	contentType := strings.TrimSpace(f.ContentType)
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(filename))
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	key := c.newKey(filename)
	body := &limitedReader{r: f.Content, limit: c.maxFileSize}
	if err := c.blobs.Put(ctx, key, contentType, body); err != nil {
		c.metrics.IncUploadFailure(stageBlob)
		if body.exceeded {
			err = ErrFileTooLarge
		}
		outcome.Err = fmt.Errorf("%w: store blob for %s: %w", ErrUploadFailed, filename, err)
		return outcome
	}

	doc := &Document{
		CompanyID:   companyID,
		ObjectKey:   key,
		Filename:    filename,
		ContentType: contentType,
		Size:        body.n,
		UploadedAt:  c.clock.Now(),
	}

	var created *Document
	err = c.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := c.ensureMutable(txCtx, companyID); err != nil {
			return err
		}
		result, err := c.repo.Create(txCtx, doc)
		if err != nil {
			return err
		}
		created = result
		return nil
	})
	if err != nil {
		c.metrics.IncUploadFailure(stageMetadata)
		outcome.Err = fmt.Errorf("%w: persist metadata for %s: %w", ErrUploadFailed, filename, err)
		outcome.Warning = c.compensate(ctx, key)
		return outcome
	}

	c.metrics.IncUpload()
	c.log.Info("document uploaded",
		zap.String("company_id", companyID),
		zap.String("document_id", created.ID),
		zap.String("object_key", key),
		zap.Int64("size", created.Size),
	)
	outcome.Document = created
	return outcome
}

// compensate はメタデータを保存できなかった blob を削除します。削除できなければ警告を返します。
func (c *Coordinator) compensate(ctx context.Context, key string) *OrphanBlobWarning {
	err := c.blobs.Delete(ctx, key)
	if err == nil || errors.Is(err, ErrBlobNotFound) {
		return nil
	}

	warning := &OrphanBlobWarning{Key: key, Err: err}
	c.metrics.IncOrphanBlob(operationUpload)
	c.log.Warn("orphan blob left by failed upload", zap.String("object_key", key), zap.Error(err))
	return warning
}

// Get はスコープの検査を行った上でドキュメントのメタデータを返します。
func (c *Coordinator) Get(ctx context.Context, scope Scope, documentID string) (*Document, error) {
	documentID, err := normalizeID(documentID)
	if err != nil {
		return nil, err
	}
	return c.authorized(ctx, scope, documentID)
}

// ListByCompany は会社に添付されたドキュメントをアップロード順に返します。
// 呼び出し元は会社への参照権限を事前に確認します。
func (c *Coordinator) ListByCompany(ctx context.Context, companyID string) ([]*Document, error) {
	companyID, err := normalizeID(companyID)
	if err != nil {
		return nil, err
	}

	var docs []*Document
	if err := c.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		if _, err := c.companies.FindByID(txCtx, companyID); err != nil {
			return err
		}
		result, err := c.repo.ListByCompany(txCtx, companyID)
		if err != nil {
			return err
		}
		docs = result
		return nil
	}); err != nil {
		return nil, err
	}
	return docs, nil
}

// Download はスコープの検査を行った上で blob のストリームを返します。
func (c *Coordinator) Download(ctx context.Context, scope Scope, documentID string) (_ *Download, err error) {
	ctx, span := tracer.Start(ctx, "document.Download", trace.WithAttributes(attribute.String("document.id", documentID)))
	defer func() { endSpan(span, err) }()

	documentID, err = normalizeID(documentID)
	if err != nil {
		return nil, err
	}

	doc, err := c.authorized(ctx, scope, documentID)
	if err != nil {
		return nil, err
	}

	body, err := c.blobs.Get(ctx, doc.ObjectKey)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			c.log.Error("document metadata has no blob",
				zap.String("document_id", doc.ID),
				zap.String("object_key", doc.ObjectKey),
			)
		}
		return nil, fmt.Errorf("fetch blob of document %s: %w", doc.ID, err)
	}

	return &Download{Document: doc, Body: body}, nil
}

// Delete はドキュメントを blob、メタデータの順に削除します。
// 親の会社が承認済みの場合は ErrImmutableState を返し何も削除しません。
func (c *Coordinator) Delete(ctx context.Context, scope Scope, documentID string) (err error) {
	ctx, span := tracer.Start(ctx, "document.Delete", trace.WithAttributes(attribute.String("document.id", documentID)))
	defer func() { endSpan(span, err) }()

	documentID, err = normalizeID(documentID)
	if err != nil {
		return err
	}

	doc, err := c.authorized(ctx, scope, documentID)
	if err != nil {
		return err
	}
	if err := c.ensureMutable(ctx, doc.CompanyID); err != nil {
		return err
	}

	if err := c.blobs.Delete(ctx, doc.ObjectKey); err != nil && !errors.Is(err, ErrBlobNotFound) {
		return fmt.Errorf("delete blob of document %s: %w", doc.ID, err)
	}

	if err := c.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return c.repo.Delete(txCtx, doc.ID)
	}); err != nil {
		if !errors.Is(err, ErrDocumentNotFound) {
			c.log.Error("document metadata left after its blob was deleted",
				zap.String("document_id", doc.ID),
				zap.String("object_key", doc.ObjectKey),
				zap.Error(err),
			)
		}
		return fmt.Errorf("delete document %s: %w", doc.ID, err)
	}

	c.metrics.AddDocumentDeletes(1)
	c.log.Info("document deleted",
		zap.String("company_id", doc.CompanyID),
		zap.String("document_id", doc.ID),
	)
	return nil
}

// CascadeDelete は会社の全ドキュメントを削除します。
// 全 blob の削除を試みて失敗を警告として集めた後、全メタデータを削除します。
// 戻り値が nil エラーであれば会社の行を削除して構いません。
func (c *Coordinator) CascadeDelete(ctx context.Context, companyID string) (_ *CascadeResult, err error) {
	ctx, span := tracer.Start(ctx, "document.CascadeDelete", trace.WithAttributes(attribute.String("company.id", companyID)))
	defer func() { endSpan(span, err) }()

	companyID, err = normalizeID(companyID)
	if err != nil {
		return nil, err
	}

	var docs []*Document
	if err := c.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := c.repo.ListByCompany(txCtx, companyID)
		if err != nil {
			return err
		}
		docs = result
		return nil
	}); err != nil {
		return nil, fmt.Errorf("list documents of company %s: %w", companyID, err)
	}

	failures := make([]*OrphanBlobWarning, len(docs))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			if err := c.blobs.Delete(ctx, doc.ObjectKey); err != nil && !errors.Is(err, ErrBlobNotFound) {
				failures[i] = &OrphanBlobWarning{Key: doc.ObjectKey, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &CascadeResult{}
	for _, w := range failures {
		if w == nil {
			continue
		}
		result.Warnings = append(result.Warnings, w)
		c.metrics.IncOrphanBlob(operationCascade)
		c.log.Warn("orphan blob left by cascade delete",
			zap.String("company_id", companyID),
			zap.String("object_key", w.Key),
			zap.Error(w.Err),
		)
	}

	if err := c.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		n, err := c.repo.DeleteByCompany(txCtx, companyID)
		if err != nil {
			return err
		}
		result.Deleted = n
		return nil
	}); err != nil {
		c.log.Error("document metadata left after cascade blob deletion",
			zap.String("company_id", companyID),
			zap.Int("documents", len(docs)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("delete documents of company %s: %w", companyID, err)
	}

	c.metrics.AddDocumentDeletes(int(result.Deleted))
	c.log.Info("company documents deleted",
		zap.String("company_id", companyID),
		zap.Int64("deleted", result.Deleted),
		zap.Int("orphan_blobs", len(result.Warnings)),
	)
	return result, nil
}

// PurgeCompanyDocuments は company.DocumentPurger を満たします。
func (c *Coordinator) PurgeCompanyDocuments(ctx context.Context, companyID string) ([]error, error) {
	result, err := c.CascadeDelete(ctx, companyID)
	if err != nil {
		return nil, err
	}

	var warnings []error
	for _, w := range result.Warnings {
		warnings = append(warnings, w)
	}
	return warnings, nil
}

func (c *Coordinator) authorized(ctx context.Context, scope Scope, documentID string) (*Document, error) {
	if scope == nil {
		return nil, errors.New("document: scope is required")
	}

	var doc *Document
	if err := c.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := c.repo.FindByID(txCtx, documentID)
		if err != nil {
			return err
		}
		doc = result
		return nil
	}); err != nil {
		return nil, err
	}

	if err := scope.AuthorizeDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Coordinator) ensureMutable(ctx context.Context, companyID string) error {
	parent, err := c.companies.FindByID(ctx, companyID)
	if err != nil {
		return err
	}
	if parent.IsAccepted() {
		return company.ErrImmutableState
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func normalizeID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("id: %w", ErrInvalidID)
	}
	return id, nil
}

// normalizeFilename はクライアント側のディレクトリ部分を取り除いたファイル名を返します。
func normalizeFilename(raw string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", ErrInvalidFilename
	}
	if utf8.RuneCountInString(name) > maxFilenameLength || strings.ContainsRune(name, 0) {
		return "", ErrInvalidFilename
	}
	return name, nil
}

// limitedReader は読み取ったバイト数を数え、上限を超えた時点でエラーを返します。
type limitedReader struct {
	r        io.Reader
	limit    int64
	n        int64
	exceeded bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.n > l.limit {
		l.exceeded = true
		return n, ErrFileTooLarge
	}
	return n, err
}
