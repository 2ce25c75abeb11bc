package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	Sink   SinkConfig
	Deploy DeployConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New()

type AppConfig struct {
	Port         int    `envconfig:"WEB_PORT" default:"8080" validate:"min=1,max=65535"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`
	Hostname     string `envconfig:"HOSTNAME" default:"[hostname]"`
}

// Addr returns the listen address for the HTTP server.
func (a AppConfig) Addr() string {
	return fmt.Sprintf(":%d", a.Port)
}

type DBConfig struct {
	DSN    string `envconfig:"DB_DSN"`
	Driver string `envconfig:"DB_DRIVER" default:"postgres" validate:"oneof=postgres sqlite"`

	Host     string `envconfig:"DB_HOST"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	Schema string `envconfig:"DB_SCHEMA" required:"true" validate:"required"`
	Table  string `envconfig:"DB_TABLE" required:"true" validate:"required"`

	PoolSize        int           `envconfig:"DB_POOL_SIZE" default:"10" validate:"min=1"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sink is pointed at the embedded dev/test dialect.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type SinkConfig struct {
	Shape string `envconfig:"SINK_TABLE_SHAPE" default:"full" validate:"oneof=full deadletter"`
}

// DeployConfig carries chart metadata that is only ever logged at startup.
type DeployConfig struct {
	ReleaseName      string `envconfig:"HELM_RELEASE_NAME" default:"[helm release name]"`
	ReleaseRevision  string `envconfig:"HELM_RELEASE_REVISION" default:"[helm release revision]"`
	ChartName        string `envconfig:"HELM_CHART_NAME" default:"[helm chart name]"`
	ChartVersion     string `envconfig:"HELM_CHART_VERSION" default:"[helm chart version]"`
	ReleaseNamespace string `envconfig:"HELM_RELEASE_NAMESPACE" default:"[helm release namespace]"`
}

// Fields flattens the deployment metadata for structured logging.
func (d DeployConfig) Fields() map[string]any {
	return map[string]any{
		"helm_release":   d.ReleaseName,
		"helm_revision":  d.ReleaseRevision,
		"helm_chart":     d.ChartName,
		"helm_chart_ver": d.ChartVersion,
		"helm_namespace": d.ReleaseNamespace,
	}
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	if db.IsSQLite() {
		if db.Name == "" {
			return fmt.Errorf("either %s or %s are required", EnvDBDSN, EnvDBName)
		}
		db.DSN = db.Name
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		EnvDBHost:     db.Host,
		EnvDBUser:     db.User,
		EnvDBName:     db.Name,
		EnvDBPassword: db.Password,
	}
	for _, env := range requiredDBEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	// DB_HOST may already carry a port; DB_PORT only fills in a bare host.
	host := db.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, strconv.Itoa(db.Port))
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(db.User, db.Password),
		Host:   host,
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
