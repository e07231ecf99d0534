package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedDriver is returned for database types without a DSN builder.
var ErrUnsupportedDriver = errors.New("unsupported database type")

// Environment variables overriding the config file.
const (
	EnvBaseline    = "SCHEMASYNC_BASELINE"
	EnvDestination = "SCHEMASYNC_DESTINATION"
	EnvSchemas     = "SCHEMASYNC_SCHEMAS"
)

// SchemaPlaceholder is replaced by the schema name in OutputConfig.DDLFile.
const SchemaPlaceholder = "{schema}"

type DBConfig struct {
	Type         string `yaml:"type" json:"type"`
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"password"`
	DatabaseName string `yaml:"database_name" json:"database_name"`
	DSN          string `yaml:"dsn" json:"dsn"` // optional explicit DSN
}

type OutputConfig struct {
	Dir        string `yaml:"dir"`
	DDLFile    string `yaml:"ddl_file"`
	ReportFile string `yaml:"report_file"`
}

type SyncConfig struct {
	// FallbackCollation is used when a baseline table has no explicit collation.
	FallbackCollation string `yaml:"fallback_collation"`
}

type DumpConfig struct {
	File    string   `yaml:"file"`
	Exclude []string `yaml:"exclude"`
	Split   bool     `yaml:"split"`
}

type AppConfig struct {
	Baseline    DBConfig     `yaml:"baseline"`
	Destination DBConfig     `yaml:"destination"`
	Schemas     []string     `yaml:"schemas"`
	Timeout     int          `yaml:"timeout"`
	Output      OutputConfig `yaml:"output"`
	Sync        SyncConfig   `yaml:"sync"`
	Dump        DumpConfig   `yaml:"dump"`
}

// Default returns the configuration used when no file overrides it.
func Default() AppConfig {
	return AppConfig{
		Timeout: 10,
		Output: OutputConfig{
			Dir:        "output",
			DDLFile:    SchemaPlaceholder + "-ddl.sql",
			ReportFile: "missing-cols-indices.csv",
		},
		Sync: SyncConfig{FallbackCollation: "utf8mb4_unicode_520_ci"},
		Dump: DumpConfig{File: "schema.sql"},
	}
}

// LoadFile loads YAML config from path on top of Default.
func LoadFile(path string) (AppConfig, error) {
	cfg := Default()
	f, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadEnv loads .env style files into the process environment. Missing files
// are not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides connection strings and schemas from the environment.
func (c *AppConfig) ApplyEnv() error {
	if v := os.Getenv(EnvBaseline); v != "" {
		db, err := ParseURL(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBaseline, err)
		}
		c.Baseline = db
	}
	if v := os.Getenv(EnvDestination); v != "" {
		db, err := ParseURL(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDestination, err)
		}
		c.Destination = db
	}
	if v := os.Getenv(EnvSchemas); v != "" {
		c.Schemas = SplitList(v)
	}
	return nil
}

// DDLPath returns the DDL artifact path for schema.
func (o OutputConfig) DDLPath(schema string) string {
	return filepath.Join(o.Dir, strings.ReplaceAll(o.DDLFile, SchemaPlaceholder, schema))
}

// ReportPath returns the combined report path.
func (o OutputConfig) ReportPath() string {
	return filepath.Join(o.Dir, o.ReportFile)
}

// SplitList splits a comma separated list, dropping blanks and duplicates.
func SplitList(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// NormalizeDriver maps common aliases to canonical keys (keeps backwards compat).
func NormalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "postgresql", "pg", "postgres":
		return "postgres"
	case "mysql", "mariadb":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	case "mssql", "sqlserver":
		return "sqlserver"
	case "godror", "oracle":
		return "godror"
	default:
		return strings.ToLower(d)
	}
}

// ParseURL parses a root connection string of the form
// <engine>://[user[:password]@]host[:port][/database].
// For sqlite the path names a directory holding one <schema>.db file per schema.
func ParseURL(raw string) (DBConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return DBConfig{}, fmt.Errorf("parse connection string: %w", err)
	}
	if u.Scheme == "" {
		return DBConfig{}, fmt.Errorf("connection string %q has no engine", raw)
	}

	db := DBConfig{Type: NormalizeDriver(u.Scheme)}
	if db.Type == "sqlite" {
		db.DatabaseName = path.Clean(u.Host + u.Path)
		return db, nil
	}

	db.Host = u.Hostname()
	if p := u.Port(); p != "" {
		if db.Port, err = strconv.Atoi(p); err != nil {
			return DBConfig{}, fmt.Errorf("invalid port %q: %w", p, err)
		}
	}
	if u.User != nil {
		db.Username = u.User.Username()
		db.Password, _ = u.User.Password()
	}
	db.DatabaseName = strings.Trim(u.Path, "/")
	return db, nil
}

// ForSchema returns the connection settings qualified for schema.
// MySQL treats the schema as the database; sqlite resolves <dir>/<schema>.db;
// the other engines keep their database and use the schema as a namespace.
func (db DBConfig) ForSchema(schema string) (DBConfig, error) {
	out := db
	switch NormalizeDriver(db.Type) {
	case "mysql":
		out.DatabaseName = schema
		if db.DSN != "" {
			mc, err := mysql.ParseDSN(db.DSN)
			if err != nil {
				return DBConfig{}, fmt.Errorf("parse mysql dsn: %w", err)
			}
			mc.DBName = schema
			out.DSN = mc.FormatDSN()
		}
	case "sqlite":
		if db.DSN != "" {
			return DBConfig{}, fmt.Errorf("sqlite needs a directory in database_name, not a dsn")
		}
		out.DatabaseName = filepath.Join(db.DatabaseName, schema+".db")
	}
	return out, nil
}

// Descriptor renders the connection without credentials for logging:
// <engine>://<host>[:port]/<database>.
func (db DBConfig) Descriptor() string {
	t := NormalizeDriver(db.Type)
	if t == "sqlite" {
		return t + "://" + db.DatabaseName
	}
	host := db.Host
	if db.DSN != "" && host == "" {
		host = "dsn"
	}
	if db.Port != 0 {
		host = fmt.Sprintf("%s:%d", host, db.Port)
	}
	return fmt.Sprintf("%s://%s/%s", t, host, db.DatabaseName)
}

// BuildDriverAndDSN produces a driver name and DSN string for supported DB types.
func BuildDriverAndDSN(db DBConfig) (driver string, dsn string, err error) {
	// If explicit DSN provided, user must also set Type to choose driver or we guess
	t := NormalizeDriver(db.Type)

	if db.DSN != "" {
		return t, db.DSN, nil
	}

	switch t {
	case "postgres":
		driver = "postgres"
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(db.Username, db.Password),
			Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
			Path:     "/" + db.DatabaseName,
			RawQuery: "sslmode=disable",
		}
		dsn = u.String()
	case "mysql":
		driver = "mysql"
		mc := mysql.NewConfig()
		mc.User = db.Username
		mc.Passwd = db.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", db.Host, db.Port)
		mc.DBName = db.DatabaseName
		mc.ParseTime = true
		dsn = mc.FormatDSN()
	case "sqlite":
		driver = "sqlite"
		if db.DatabaseName == "" {
			return "", "", fmt.Errorf("sqlite needs a file path in database_name")
		}
		dsn = fmt.Sprintf("file:%s?mode=ro", db.DatabaseName)
	case "sqlserver":
		driver = "sqlserver"
		dsn = fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
			url.QueryEscape(db.Username), url.QueryEscape(db.Password), db.Host, db.Port, url.QueryEscape(db.DatabaseName))
	case "godror":
		driver = "godror"
		// simple EZCONNECT style; may need adjustments per environment
		dsn = fmt.Sprintf("%s/%s@%s:%d/%s",
			db.Username, db.Password, db.Host, db.Port, db.DatabaseName)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedDriver, db.Type)
	}
	return
}
