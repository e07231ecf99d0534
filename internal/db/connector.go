package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"schemasync/internal/introspect"
	"schemasync/internal/logger"
	"schemasync/pkg/config"
)

// ErrDialectNotRegistered is returned when no extractor serves a driver.
var ErrDialectNotRegistered = errors.New("dialect not registered")

type Extractor interface {

	// Tables lists the base tables of schema
	Tables(ctx context.Context, dbConn *sql.DB, schema string) ([]string, error)

	// Columns lists the columns of a table in ordinal order
	Columns(ctx context.Context, dbConn *sql.DB, schema, table string) ([]introspect.Column, error)

	// Indexes lists the indexes of a table
	Indexes(ctx context.Context, dbConn *sql.DB, schema, table string) ([]introspect.Index, error)

	// TableOptions returns table level options; dialects without any return nil
	TableOptions(ctx context.Context, dbConn *sql.DB, schema, table string) (introspect.TableOptions, error)
}

// DumpExtractor is implemented by extractors that can reproduce CREATE statements.
type DumpExtractor interface {
	Schemas(ctx context.Context, dbConn *sql.DB) ([]string, error)
	CreateTable(ctx context.Context, dbConn *sql.DB, schema, table string) (string, error)
}

var dialects = map[string]Extractor{}

// Register makes an Extractor available under name.
func Register(name string, e Extractor) {
	dialects[strings.ToLower(name)] = e
}

// listRegistered returns the registered dialect keys (for diagnostics).
func listRegistered() []string {
	keys := make([]string, 0, len(dialects))
	for k := range dialects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RegisteredDialects is a helper that allows main to print registered dialects
func RegisteredDialects() []string {
	return listRegistered()
}

// Connector opens scoped introspection sessions.
type Connector struct {
	// Timeout bounds connecting and pinging, in seconds
	Timeout int
}

// With connects to the database described by cfg, hands fn an introspector
// bound to that connection and closes the connection when fn returns,
// whether or not it failed.
func (c Connector) With(ctx context.Context, cfg config.DBConfig, fn func(introspect.Introspector) error) (err error) {
	driver, dsn, err := config.BuildDriverAndDSN(cfg)
	if err != nil {
		return err
	}
	extractor, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("%w: %q (available: %v)", ErrDialectNotRegistered, driver, listRegistered())
	}

	dbConn, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Descriptor(), err)
	}
	defer func() {
		if cerr := dbConn.Close(); cerr != nil {
			logger.Warn("close %s: %v", cfg.Descriptor(), cerr)
		}
	}()

	pctx, cancel := context.WithTimeout(ctx, time.Duration(c.timeout())*time.Second)
	defer cancel()
	if err := dbConn.PingContext(pctx); err != nil {
		return fmt.Errorf("connect %s: %w", cfg.Descriptor(), err)
	}
	logger.Debug("connected to %s", cfg.Descriptor())

	return fn(newSession(dbConn, extractor))
}

func (c Connector) timeout() int {
	if c.Timeout <= 0 {
		return 10
	}
	return c.Timeout
}

// Session adapts an Extractor and an open connection to introspect.Introspector.
type Session struct {
	db        *sql.DB
	extractor Extractor
}

// dumpSession additionally satisfies introspect.Dumper.
type dumpSession struct {
	*Session
	dumper DumpExtractor
}

func newSession(dbConn *sql.DB, e Extractor) introspect.Introspector {
	s := &Session{db: dbConn, extractor: e}
	if d, ok := e.(DumpExtractor); ok {
		return &dumpSession{Session: s, dumper: d}
	}
	return s
}

func (s *Session) ListTables(ctx context.Context, schema string) ([]string, error) {
	return s.extractor.Tables(ctx, s.db, schema)
}

func (s *Session) Columns(ctx context.Context, schema, table string) ([]introspect.Column, error) {
	return s.extractor.Columns(ctx, s.db, schema, table)
}

func (s *Session) Indexes(ctx context.Context, schema, table string) ([]introspect.Index, error) {
	return s.extractor.Indexes(ctx, s.db, schema, table)
}

func (s *Session) TableOptions(ctx context.Context, schema, table string) (introspect.TableOptions, error) {
	return s.extractor.TableOptions(ctx, s.db, schema, table)
}

func (s *dumpSession) ListSchemas(ctx context.Context) ([]string, error) {
	return s.dumper.Schemas(ctx, s.db)
}

func (s *dumpSession) CreateTable(ctx context.Context, schema, table string) (string, error) {
	return s.dumper.CreateTable(ctx, s.db, schema, table)
}
