package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ogurasousui/codex-company-registration/internal/core/document"
	"github.com/ogurasousui/codex-company-registration/internal/platform/config"
)

// emulatorAPIPath はエミュレータの JSON API のパスです。
const emulatorAPIPath = "/storage/v1/"

// BlobStore は Cloud Storage のバケットを document.BlobStore として扱います。
// 各操作には設定されたタイムアウトが適用されます。
type BlobStore struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
	log     *zap.Logger
}

// New は設定に従って Cloud Storage クライアントを生成し BlobStore を返します。
func New(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*BlobStore, error) {
	client, err := storage.NewClient(ctx, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}

	store := NewWithClient(client, cfg.Bucket, cfg.OperationTimeout, log)
	store.log.Info("object storage initialized",
		zap.String("mode", cfg.Mode),
		zap.String("bucket", cfg.Bucket),
		zap.String("emulator_host", cfg.EmulatorHost),
	)
	return store, nil
}

// NewWithClient は生成済みのクライアントから BlobStore を生成します。
func NewWithClient(client *storage.Client, bucket string, timeout time.Duration, log *zap.Logger) *BlobStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &BlobStore{
		client:  client,
		bucket:  bucket,
		timeout: timeout,
		log:     log.With(zap.String("component", "gcs_blob_store")),
	}
}

func clientOptions(cfg config.StorageConfig) []option.ClientOption {
	if cfg.IsEmulator() {
		return []option.ClientOption{
			option.WithEndpoint(emulatorEndpoint(cfg.EmulatorHost)),
			option.WithoutAuthentication(),
		}
	}

	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return opts
}

// emulatorEndpoint はエミュレータのホストから API エンドポイントを組み立てます。
func emulatorEndpoint(host string) string {
	return strings.TrimRight(host, "/") + emulatorAPIPath
}

// Close はクライアントを閉じます。
func (s *BlobStore) Close() error {
	return s.client.Close()
}

// Put は key にオブジェクトを書き込みます。既存のオブジェクトは上書きしません。
func (s *BlobStore) Put(ctx context.Context, key, contentType string, content io.Reader) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	w := s.object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, content); err != nil {
		// 書き込み途中のオブジェクトを確定させない
		cancel()
		_ = w.Close()
		return fmt.Errorf("gcs: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: finalize %s: %w", key, translateError(err))
	}
	return nil
}

// Get は key のオブジェクトを読み出すストリームを返します。
func (s *BlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx, cancel := s.withTimeout(ctx)

	r, err := s.object(key).NewReader(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("gcs: read %s: %w", key, translateError(err))
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

// Delete は key のオブジェクトを削除します。
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.object(key).Delete(ctx); err != nil {
		return fmt.Errorf("gcs: delete %s: %w", key, translateError(err))
	}
	return nil
}

func (s *BlobStore) object(key string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(key)
}

func (s *BlobStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func translateError(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return document.ErrBlobNotFound
	}
	return err
}

type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}
