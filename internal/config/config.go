package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mmrzaf/sdcatalog/internal/domain"
	"github.com/mmrzaf/sdcatalog/internal/infra/store"
)

// Driver names are owned by the store package.
const (
	DriverPostgres = store.DriverPostgres
	DriverSQLite   = store.DriverSQLite
)

type Config struct {
	DBDriver         string
	DBDSN            string
	SQLitePath       string
	DBMaxOpenConns   int
	BindAddr         string
	LogLevel         string
	LogFile          string
	DefaultStatus    domain.TaskStatus
	StrictTransition bool
}

// Load reads .env from the working directory when present, then the
// process environment. Values already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBDriver:         strings.ToLower(getEnv("SDCATALOG_DB_DRIVER", DriverPostgres)),
		DBDSN:            getEnv("SDCATALOG_DB", ""),
		SQLitePath:       getEnv("SDCATALOG_SQLITE_PATH", "./sdcatalog.sqlite"),
		DBMaxOpenConns:   getEnvInt("SDCATALOG_DB_MAX_OPEN_CONNS", 10),
		BindAddr:         getEnv("SDCATALOG_BIND_ADDR", ":83"),
		LogLevel:         getEnv("SDCATALOG_LOG_LEVEL", "info"),
		LogFile:          getEnv("SDCATALOG_LOG_FILE", ""),
		DefaultStatus:    domain.TaskStatus(strings.ToLower(getEnv("SDCATALOG_DEFAULT_TASK_STATUS", string(domain.TaskStatusRunning)))),
		StrictTransition: getEnvBool("SDCATALOG_STRICT_TRANSITIONS", false),
	}
	if cfg.DBDSN == "" && cfg.DBDriver == DriverPostgres {
		cfg.DBDSN = PostgresDSN(
			getEnv("POSTGRES_HOST", "mstorage-svc"),
			getEnv("POSTGRES_PORT", "5432"),
			getEnv("POSTGRES_USER", "sdcatalog"),
			getEnv("POSTGRES_PASSWORD", ""),
			getEnv("POSTGRES_DB", "dataset_catalogue"),
		)
	}
	return cfg
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DBDSN) == "" {
			return fmt.Errorf("postgres dsn is required")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	if !c.DefaultStatus.IsValid() {
		return fmt.Errorf("invalid default task status %q", c.DefaultStatus)
	}
	if c.DBMaxOpenConns <= 0 {
		return fmt.Errorf("max open connections must be positive, got %d", c.DBMaxOpenConns)
	}
	return nil
}

// DataSource returns what the selected driver should open.
func (c *Config) DataSource() string {
	if c.DBDriver == DriverSQLite {
		return c.SQLitePath
	}
	return c.DBDSN
}

func PostgresDSN(host, port, user, password, database string) string {
	u := &url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + database,
		RawQuery: "sslmode=disable",
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else if user != "" {
		u.User = url.User(user)
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return defaultValue
	}
	return b
}
