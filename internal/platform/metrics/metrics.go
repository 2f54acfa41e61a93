package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/ogurasousui/codex-company-registration/internal/platform/config"
)

// Metrics は登録審査と添付書類の整合性に関するメトリクスです。
// nil レシーバでも安全に呼び出せます。
type Metrics struct {
	registry *prometheus.Registry

	Decisions       *prometheus.CounterVec
	Withdrawals     prometheus.Counter
	Uploads         prometheus.Counter
	UploadFailures  *prometheus.CounterVec
	OrphanBlobs     *prometheus.CounterVec
	DocumentDeletes prometheus.Counter
}

// New は専用レジストリにメトリクスを登録して Metrics を生成します。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_decisions_total",
			Help: "Registration decisions applied by reviewers",
		}, []string{"decision"}),
		Withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Name: "registry_withdrawals_total",
			Help: "Registrations withdrawn by their owner",
		}),
		Uploads: factory.NewCounter(prometheus.CounterOpts{
			Name: "registry_documents_uploaded_total",
			Help: "Documents stored with both blob and metadata",
		}),
		UploadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_upload_failures_total",
			Help: "Per-file upload failures by the stage that failed (blob, metadata, validation)",
		}, []string{"stage"}),
		OrphanBlobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_orphan_blobs_total",
			Help: "Blobs left without metadata that need out-of-band reconciliation",
		}, []string{"operation"}),
		DocumentDeletes: factory.NewCounter(prometheus.CounterOpts{
			Name: "registry_documents_deleted_total",
			Help: "Documents deleted individually or by cascade",
		}),
	}
}

// Registry は内部レジストリを返します。
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncDecision は審査結果を記録します。
func (m *Metrics) IncDecision(decision string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision).Inc()
}

// IncWithdrawal は取り下げを記録します。
func (m *Metrics) IncWithdrawal() {
	if m == nil {
		return
	}
	m.Withdrawals.Inc()
}

// IncUpload は成功したアップロードを記録します。
func (m *Metrics) IncUpload() {
	if m == nil {
		return
	}
	m.Uploads.Inc()
}

// IncUploadFailure は失敗したアップロードを段階別に記録します。
func (m *Metrics) IncUploadFailure(stage string) {
	if m == nil {
		return
	}
	m.UploadFailures.WithLabelValues(stage).Inc()
}

// IncOrphanBlob は孤立した blob を記録します。
func (m *Metrics) IncOrphanBlob(operation string) {
	if m == nil {
		return
	}
	m.OrphanBlobs.WithLabelValues(operation).Inc()
}

// AddDocumentDeletes は削除したドキュメント数を加算します。
func (m *Metrics) AddDocumentDeletes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DocumentDeletes.Add(float64(n))
}

// Push は Pushgateway が設定されていればメトリクスを送信します。
func (m *Metrics) Push(ctx context.Context, cfg config.MetricsConfig) error {
	if m == nil || cfg.PushgatewayURL == "" {
		return nil
	}
	if err := push.New(cfg.PushgatewayURL, cfg.Job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("metrics: push to %s: %w", cfg.PushgatewayURL, err)
	}
	return nil
}
