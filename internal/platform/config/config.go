package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath は設定ファイルパスが指定されなかった場合の既定値です。
	DefaultPath = "assets/local.yaml"

	defaultStorageMode         = "gcs"
	defaultOperationTimeout    = 30 * time.Second
	defaultMaxFileSize         = 20 << 20
	defaultCascadeConcurrency  = 4
	defaultMetricsJob          = "company-registry"
	defaultLogLevel            = "info"
	defaultLogMode             = "production"
	storageModeGCSEmulator     = "gcs_emulator"
	maxCascadeConcurrencyLimit = 64
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Documents DocumentsConfig `yaml:"documents"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
}

// StorageConfig はドキュメント本体を保存するオブジェクトストレージの設定です。
type StorageConfig struct {
	Bucket              string        `yaml:"bucket"`
	Mode                string        `yaml:"mode"`
	EmulatorHost        string        `yaml:"emulator_host"`
	CredentialsFile     string        `yaml:"credentials_file"`
	OperationTimeout    time.Duration `yaml:"-"`
	OperationTimeoutRaw string        `yaml:"operation_timeout"`
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Level string `yaml:"level"`
	Mode  string `yaml:"mode"`
}

// MetricsConfig は Pushgateway へのメトリクス送信設定です。空の URL は送信しないことを意味します。
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// DocumentsConfig は添付書類の取り扱いに関する設定です。
type DocumentsConfig struct {
	MaxFileSize        int64 `yaml:"max_file_size"`
	CascadeConcurrency int   `yaml:"cascade_concurrency"`
}

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// EffectivePath はフラグ、環境変数 CONFIG_PATH、既定値の順に設定ファイルのパスを決定します。
func EffectivePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return DefaultPath
}

func (c *Config) validateAndNormalize() error {
	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Storage.validateAndNormalize(); err != nil {
		return err
	}
	c.Log.normalize()
	c.Metrics.normalize()
	return c.Documents.validateAndNormalize()
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (s *StorageConfig) validateAndNormalize() error {
	s.Bucket = strings.TrimSpace(s.Bucket)
	if s.Bucket == "" {
		return fmt.Errorf("config: storage.bucket must be set")
	}

	s.Mode = strings.ToLower(strings.TrimSpace(s.Mode))
	if s.Mode == "" {
		s.Mode = defaultStorageMode
	}
	switch s.Mode {
	case defaultStorageMode:
	case storageModeGCSEmulator:
		host := strings.TrimRight(strings.TrimSpace(s.EmulatorHost), "/")
		if host == "" {
			return fmt.Errorf("config: storage.emulator_host must be set when mode is %s", storageModeGCSEmulator)
		}
		parsed, err := url.Parse(host)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("config: storage.emulator_host %q must be an absolute URL", s.EmulatorHost)
		}
		s.EmulatorHost = host
	default:
		return fmt.Errorf("config: storage.mode %q is not supported", s.Mode)
	}

	timeout, err := parseDurationAllowEmpty(s.OperationTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: storage.operation_timeout: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultOperationTimeout
	}
	s.OperationTimeout = timeout

	return nil
}

// IsEmulator はエミュレータ (fake-gcs-server など) を利用するかを返します。
func (s StorageConfig) IsEmulator() bool {
	return s.Mode == storageModeGCSEmulator
}

func (l *LogConfig) normalize() {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	l.Mode = strings.ToLower(strings.TrimSpace(l.Mode))
	if l.Mode == "" {
		l.Mode = defaultLogMode
	}
}

func (m *MetricsConfig) normalize() {
	m.PushgatewayURL = strings.TrimSpace(m.PushgatewayURL)
	if m.Job == "" {
		m.Job = defaultMetricsJob
	}
}

func (d *DocumentsConfig) validateAndNormalize() error {
	if d.MaxFileSize < 0 {
		return fmt.Errorf("config: documents.max_file_size must not be negative")
	}
	if d.MaxFileSize == 0 {
		d.MaxFileSize = defaultMaxFileSize
	}
	if d.CascadeConcurrency < 0 || d.CascadeConcurrency > maxCascadeConcurrencyLimit {
		return fmt.Errorf("config: documents.cascade_concurrency must be between 1 and %d", maxCascadeConcurrencyLimit)
	}
	if d.CascadeConcurrency == 0 {
		d.CascadeConcurrency = defaultCascadeConcurrency
	}
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。ユーザー名とパスワードはエスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
