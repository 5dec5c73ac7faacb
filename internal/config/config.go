package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultHelper is the name of the helper used when none is requested.
const DefaultHelper = "default"

type Driver string

const (
	DriverSqlite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMssql    Driver = "mssql"
	DriverMysql    Driver = "mysql"
)

var ErrUnsupportedDriver = errors.New("unsupported driver")

// Settings is one named entry of the db.config file. Field names follow the
// keys used by existing db.config files.
type Settings struct {
	DBType            string `yaml:"DBType"`
	Server            string `yaml:"DBServerAdd"`
	Port              string `yaml:"DBServerPort"`
	Database          string `yaml:"DBDataBaseName"`
	User              string `yaml:"DBUserName"`
	Password          string `yaml:"DBPassword"`
	ConnectionTimeout int    `yaml:"ConnectionTimeout"` // seconds
	PoolNum           int    `yaml:"DBPoolNum"`
	// DSN, when set, is passed to the driver unchanged.
	DSN string `yaml:"DSN"`
}

type Config struct {
	Helpers map[string]Settings
}

// Load reads .env (if present), then the db.config file named by
// DBHELPER_CONFIG, then lets DBHELPER_DRIVER/DBHELPER_DSN define or
// override the default helper.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	path := getEnv("DBHELPER_CONFIG", "db.config")
	cfg, err := LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{Helpers: map[string]Settings{}}
	} else if err != nil {
		return nil, err
	}

	if dsn := getEnv("DBHELPER_DSN", ""); dsn != "" {
		s := cfg.Helpers[DefaultHelper]
		s.DSN = dsn
		s.DBType = getEnv("DBHELPER_DRIVER", s.DBType)
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("DBHELPER_DSN: %w", err)
		}
		cfg.Helpers[DefaultHelper] = s
	}

	if len(cfg.Helpers) == 0 {
		return nil, fmt.Errorf("no database configured: create %s or set DBHELPER_DSN", path)
	}
	return cfg, nil
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a db.config document. JSON and YAML are both accepted.
func Parse(data []byte) (*Config, error) {
	helpers := map[string]Settings{}
	if err := yaml.Unmarshal(data, &helpers); err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	for name, s := range helpers {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("helper %q: %w", name, err)
		}
	}
	return &Config{Helpers: helpers}, nil
}

// Names returns the configured helper names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Helpers))
	for name := range c.Helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Settings) Validate() error {
	if _, err := s.Driver(); err != nil {
		return err
	}
	if s.DSN == "" && s.Database == "" {
		return errors.New("DBDataBaseName or DSN is required")
	}
	if s.ConnectionTimeout < 0 || s.PoolNum < 0 {
		return errors.New("ConnectionTimeout and DBPoolNum must not be negative")
	}
	return nil
}

// Driver maps DBType onto a supported driver. An empty DBType means sqlite.
func (s Settings) Driver() (Driver, error) {
	switch strings.ToUpper(strings.TrimSpace(s.DBType)) {
	case "", "SQLITE", "SQLITE3":
		return DriverSqlite, nil
	case "PGSQL", "POSTGRES", "POSTGRESQL":
		return DriverPostgres, nil
	case "MYSQL":
		return DriverMysql, nil
	case "MSSQL", "SQLSERVER":
		return DriverMssql, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnsupportedDriver, s.DBType)
	}
}

func (s Settings) Timeout() time.Duration {
	return time.Duration(s.ConnectionTimeout) * time.Second
}

// ConnString returns DSN when set, otherwise a driver-specific connection
// string assembled from the individual fields.
func (s Settings) ConnString() (string, error) {
	if s.DSN != "" {
		return s.DSN, nil
	}

	driver, err := s.Driver()
	if err != nil {
		return "", err
	}

	switch driver {
	case DriverSqlite:
		return s.Database, nil

	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(s.User, s.Password),
			Host:   s.hostPort("5432"),
			Path:   "/" + s.Database,
		}
		if s.ConnectionTimeout > 0 {
			u.RawQuery = url.Values{"connect_timeout": {strconv.Itoa(s.ConnectionTimeout)}}.Encode()
		}
		return u.String(), nil

	case DriverMysql:
		mc := mysql.NewConfig()
		mc.User = s.User
		mc.Passwd = s.Password
		mc.Net = "tcp"
		mc.Addr = s.hostPort("3306")
		mc.DBName = s.Database
		mc.ParseTime = true
		mc.Timeout = s.Timeout()
		return mc.FormatDSN(), nil

	case DriverMssql:
		q := url.Values{"database": {s.Database}}
		if s.ConnectionTimeout > 0 {
			q.Set("dial timeout", strconv.Itoa(s.ConnectionTimeout))
		}
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(s.User, s.Password),
			Host:     s.hostPort("1433"),
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	}

	return "", fmt.Errorf("%w %q", ErrUnsupportedDriver, driver)
}

func (s Settings) hostPort(defaultPort string) string {
	host := s.Server
	if host == "" {
		host = "localhost"
	}
	port := s.Port
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort(host, port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
