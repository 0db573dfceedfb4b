package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Type         string `yaml:"type" json:"type" validate:"required"`
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port" validate:"gte=0,lte=65535"`
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"password"`
	DatabaseName string `yaml:"database_name" json:"database_name"`
	DSN          string `yaml:"dsn" json:"dsn"` // optional explicit DSN
}

type ServerConfig struct {
	Port       int `yaml:"port" json:"port" validate:"gte=0,lte=65535"`
	TimeoutSec int `yaml:"timeout_sec" json:"timeout_sec" validate:"gte=0"`
}

// StoreConfig locates the SQLite file holding saved queries and connections.
type StoreConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LayoutConfig overrides the diagram grid.
type LayoutConfig struct {
	Columns  int     `yaml:"columns" json:"columns" validate:"gte=0"`
	SpacingX float64 `yaml:"spacing_x" json:"spacing_x"`
	SpacingY float64 `yaml:"spacing_y" json:"spacing_y"`
	OriginX  float64 `yaml:"origin_x" json:"origin_x"`
	OriginY  float64 `yaml:"origin_y" json:"origin_y"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

type AppConfig struct {
	Database DBConfig     `yaml:"database" json:"database"`
	Server   ServerConfig `yaml:"server" json:"server"`
	Store    StoreConfig  `yaml:"store" json:"store"`
	Layout   LayoutConfig `yaml:"layout" json:"layout"`
	Log      LogConfig    `yaml:"log" json:"log"`
}

const (
	DefaultPort       = 8080
	DefaultTimeoutSec = 5
	DefaultStorePath  = "sqlviz.db"
)

// DefaultLayout mirrors the built-in diagram grid.
var DefaultLayout = LayoutConfig{Columns: 3, SpacingX: 350, SpacingY: 300, OriginX: 50, OriginY: 50}

var validate = validator.New()

// LoadFile loads YAML config from path.
func LoadFile(path string) (AppConfig, error) {
	var cfg AppConfig
	f, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WithDefaults fills every unset field with its default.
// The layout is replaced as a whole when its column count is unset.
func (c AppConfig) WithDefaults() AppConfig {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.TimeoutSec == 0 {
		c.Server.TimeoutSec = DefaultTimeoutSec
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Layout.Columns == 0 {
		c.Layout = DefaultLayout
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return c
}

// Validate checks the server, layout and log sections. The database section
// is optional at startup and checked on connect.
func (c AppConfig) Validate() error {
	for _, section := range []any{c.Server, c.Layout, c.Log} {
		if err := validate.Struct(section); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}

// ValidateDB checks a connection definition before it is used or saved.
func ValidateDB(db DBConfig) error {
	if err := validate.Struct(db); err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}
	return nil
}

// engine describes one supported database family.
type engine struct {
	aliases     []string
	defaultPort int
	dsn         func(db DBConfig, addr string) (string, error)
}

var engines = map[string]engine{
	"postgres": {
		aliases:     []string{"postgresql", "pg"},
		defaultPort: 5432,
		dsn: func(db DBConfig, addr string) (string, error) {
			u := url.URL{
				Scheme:   "postgres",
				User:     url.UserPassword(db.Username, db.Password),
				Host:     addr,
				Path:     "/" + db.DatabaseName,
				RawQuery: "sslmode=disable",
			}
			return u.String(), nil
		},
	},
	"mysql": {
		aliases:     []string{"mariadb"},
		defaultPort: 3306,
		dsn: func(db DBConfig, addr string) (string, error) {
			c := mysql.NewConfig()
			c.User = db.Username
			c.Passwd = db.Password
			c.Net = "tcp"
			c.Addr = addr
			c.DBName = db.DatabaseName
			c.ParseTime = true
			return c.FormatDSN(), nil
		},
	},
	"sqlite": {
		aliases: []string{"sqlite3"},
		dsn: func(db DBConfig, _ string) (string, error) {
			if db.DatabaseName == "" {
				return "", fmt.Errorf("sqlite needs a file path in database_name")
			}
			// scans only read
			return fmt.Sprintf("file:%s?mode=ro", db.DatabaseName), nil
		},
	},
	"sqlserver": {
		aliases:     []string{"mssql"},
		defaultPort: 1433,
		dsn: func(db DBConfig, addr string) (string, error) {
			u := url.URL{
				Scheme:   "sqlserver",
				User:     url.UserPassword(db.Username, db.Password),
				Host:     addr,
				RawQuery: url.Values{"database": {db.DatabaseName}}.Encode(),
			}
			return u.String(), nil
		},
	},
	"godror": {
		aliases:     []string{"oracle"},
		defaultPort: 1521,
		dsn: func(db DBConfig, addr string) (string, error) {
			// EZCONNECT
			return fmt.Sprintf("%s/%s@%s/%s", db.Username, db.Password, addr, db.DatabaseName), nil
		},
	},
}

// NormalizeDriver maps a type name or one of its aliases to the canonical
// driver key. Unknown names are only lower-cased.
func NormalizeDriver(d string) string {
	name := strings.ToLower(strings.TrimSpace(d))
	if _, ok := engines[name]; ok {
		return name
	}
	for key, e := range engines {
		if slices.Contains(e.aliases, name) {
			return key
		}
	}
	return strings.ToLower(d)
}

// BuildDriverAndDSN produces a driver name and DSN string for supported DB
// types. An explicit DSN wins over the discrete fields; Port 0 means the
// engine's default port.
func BuildDriverAndDSN(db DBConfig) (driver string, dsn string, err error) {
	t := NormalizeDriver(db.Type)
	e, ok := engines[t]
	if !ok {
		return "", "", fmt.Errorf("unsupported database type: %s", db.Type)
	}
	if db.DSN != "" {
		return t, db.DSN, nil
	}

	port := db.Port
	if port == 0 {
		port = e.defaultPort
	}
	dsn, err = e.dsn(db, net.JoinHostPort(db.Host, strconv.Itoa(port)))
	if err != nil {
		return "", "", err
	}
	return t, dsn, nil
}

// Redacted returns db with the password masked, for logging and API replies.
func (db DBConfig) Redacted() DBConfig {
	if db.Password != "" {
		db.Password = "****"
	}
	if db.DSN != "" {
		db.DSN = redactDSN(db.DSN)
	}
	return db
}

// redactDSN masks the password part of a user:pass@ style DSN.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	head := dsn[:at]
	start := strings.Index(head, "://") + 3
	if start < 3 {
		start = 0
	}
	colon := strings.Index(head[start:], ":")
	if colon < 0 {
		return dsn
	}
	return head[:start+colon+1] + "****" + dsn[at:]
}
