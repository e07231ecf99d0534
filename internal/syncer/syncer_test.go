package syncer

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"schemasync/internal/db"
	_ "schemasync/internal/db/extractors"
	"schemasync/internal/differ"
	"schemasync/internal/introspect"
	"schemasync/internal/sink"
	"schemasync/pkg/config"
)

// fakeServer serves schemas keyed by name, each a set of tables.
type fakeServer map[string]map[string]introspect.Table

type fakeIntrospector struct {
	server fakeServer
	fail   error
}

func (f fakeIntrospector) ListTables(ctx context.Context, schema string) ([]string, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	var names []string
	for n := range f.server[schema] {
		names = append(names, n)
	}
	return names, nil
}

func (f fakeIntrospector) Columns(ctx context.Context, schema, table string) ([]introspect.Column, error) {
	return f.server[schema][table].Columns, nil
}

func (f fakeIntrospector) Indexes(ctx context.Context, schema, table string) ([]introspect.Index, error) {
	return f.server[schema][table].Indexes, nil
}

func (f fakeIntrospector) TableOptions(ctx context.Context, schema, table string) (introspect.TableOptions, error) {
	return f.server[schema][table].Options, nil
}

type fakeDumpIntrospector struct {
	fakeIntrospector
	schemas    []string
	failSchema string
}

func (f fakeDumpIntrospector) ListSchemas(ctx context.Context) ([]string, error) {
	return f.schemas, nil
}

func (f fakeDumpIntrospector) CreateTable(ctx context.Context, schema, table string) (string, error) {
	if schema == f.failSchema {
		return "", errors.New("lost connection during query")
	}
	return "CREATE TABLE `" + table + "` (\n  `id` int\n)", nil
}

// fakeConnector picks a server by host and counts open sessions.
type fakeConnector struct {
	servers map[string]introspect.Introspector
	open    int
	opened  []string
}

func (c *fakeConnector) With(ctx context.Context, cfg config.DBConfig, fn func(introspect.Introspector) error) error {
	in, ok := c.servers[cfg.Host]
	if !ok {
		return errors.New("connection refused")
	}
	c.open++
	c.opened = append(c.opened, cfg.Host+"/"+cfg.DatabaseName)
	defer func() { c.open-- }()
	return fn(in)
}

// failingFs refuses to create files whose name contains fail.
type failingFs struct {
	afero.Fs
	fail string
}

func (f failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if strings.Contains(filepath.Base(name), f.fail) {
		return nil, errors.New("no space left on device")
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func ptr(s string) *string { return &s }

func mysqlCfg(host string) config.DBConfig {
	return config.DBConfig{Type: "mysql", Host: host, Port: 3306}
}

func outputConfig() config.OutputConfig {
	return config.OutputConfig{Dir: "out", DDLFile: "{schema}-ddl.sql", ReportFile: "report.csv"}
}

func newRunner(left, right fakeServer) (Runner, *fakeConnector, afero.Fs) {
	fs := afero.NewMemMapFs()
	conn := &fakeConnector{servers: map[string]introspect.Introspector{
		"left":  fakeIntrospector{server: left},
		"right": fakeIntrospector{server: right},
	}}
	return Runner{
		Baseline:    mysqlCfg("left"),
		Destination: mysqlCfg("right"),
		Connector:   conn,
		Differ:      differ.New(differ.Options{}),
		Sink:        sink.Writer{Fs: fs},
		Output:      outputConfig(),
	}, conn, fs
}

func ordersServer(cols ...introspect.Column) fakeServer {
	return fakeServer{"shop": {"orders": {Name: "orders", Columns: cols}}}
}

func TestRunIdentical(t *testing.T) {
	cols := []introspect.Column{{Name: "id", Type: "int"}}
	r, conn, fs := newRunner(ordersServer(cols...), ordersServer(cols...))

	summary, err := r.Run(context.Background(), []string{"shop"})
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	if summary.Statements() != 0 || summary.Schemas[0].DDLPath != "" {
		t.Errorf("\ngot summary %+v", summary)
	}
	if ok, _ := afero.Exists(fs, "out/shop-ddl.sql"); ok {
		t.Errorf("\nddl written although nothing differs")
	}
	report, err := afero.ReadFile(fs, "out/report.csv")
	if err != nil {
		t.Fatalf("\nreport not written: %v", err)
	}
	if strings.Count(string(report), "\n") != 1 {
		t.Errorf("\nexpected header only, got %q", report)
	}
	if conn.open != 0 {
		t.Errorf("\n%d sessions left open", conn.open)
	}
	if !reflect.DeepEqual(conn.opened, []string{"left/shop", "right/shop"}) {
		t.Errorf("\nopened %v", conn.opened)
	}
}

func TestRunGeneratesArtifacts(t *testing.T) {
	left := ordersServer(
		introspect.Column{Name: "id", Type: "int"},
		introspect.Column{Name: "status", Type: "varchar(20)", Default: ptr("'new'")},
		introspect.Column{Name: "discount_code", Type: "varchar(32)", Nullable: true},
	)
	right := ordersServer(
		introspect.Column{Name: "id", Type: "int"},
		introspect.Column{Name: "status", Type: "varchar(20)", Nullable: true, Default: ptr("'new'")},
		introspect.Column{Name: "legacy_flag", Type: "tinyint(1)"},
	)
	r, _, fs := newRunner(left, right)

	summary, err := r.Run(context.Background(), []string{"shop", " ", "shop"})
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	if len(summary.Schemas) != 1 || summary.Schemas[0].Statements != 3 || summary.Schemas[0].Rows != 1 {
		t.Errorf("\ngot summary %+v", summary)
	}

	ddl, err := afero.ReadFile(fs, "out/shop-ddl.sql")
	if err != nil {
		t.Fatalf("\nddl not written: %v", err)
	}
	want := "ALTER TABLE `shop`.`orders` CHANGE COLUMN `status` `status` varchar(20) NOT NULL DEFAULT 'new';\n\n" +
		"ALTER TABLE `shop`.`orders` ADD COLUMN `discount_code` varchar(32);\n\n" +
		"ALTER TABLE `shop`.`orders` DROP COLUMN `legacy_flag`;\n\n"
	if string(ddl) != want {
		t.Errorf("\ngot:\n%s\nwant:\n%s", ddl, want)
	}

	report, err := afero.ReadFile(fs, "out/report.csv")
	if err != nil {
		t.Fatalf("\nreport not written: %v", err)
	}
	if !strings.Contains(string(report), "0,`shop`.`orders`,['discount_code'],['legacy_flag'],[],[]") {
		t.Errorf("\ngot report %q", report)
	}
}

func TestRunAbortsWithoutArtifacts(t *testing.T) {
	var tests = []struct {
		name    string
		mutate  func(r *Runner)
		wantErr error
	}{
		{
			name:   "unreachable destination",
			mutate: func(r *Runner) { r.Destination = mysqlCfg("nowhere") },
		},
		{
			name: "introspection failure",
			mutate: func(r *Runner) {
				r.Connector.(*fakeConnector).servers["right"] = fakeIntrospector{fail: errors.New("access denied")}
			},
		},
		{
			name: "missing charset",
			mutate: func(r *Runner) {
				c := r.Connector.(*fakeConnector)
				c.servers["left"] = fakeIntrospector{server: fakeServer{
					"shop": {"orders": {Name: "orders", Options: introspect.TableOptions{introspect.OptionEngine: "MyISAM"}}},
					"crm":  {"leads": {Name: "leads", Columns: []introspect.Column{{Name: "id", Type: "int"}}}},
				}}
				c.servers["right"] = fakeIntrospector{server: fakeServer{
					"shop": {"orders": {Name: "orders", Options: introspect.TableOptions{introspect.OptionEngine: "InnoDB"}}},
					"crm":  {"leads": {Name: "leads"}},
				}}
			},
			wantErr: differ.ErrMissingCharset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left := fakeServer{"crm": {"leads": {Name: "leads", Columns: []introspect.Column{{Name: "id", Type: "int"}}}}}
			right := fakeServer{"crm": {"leads": {Name: "leads"}}}
			r, conn, fs := newRunner(left, right)
			tt.mutate(&r)

			_, err := r.Run(context.Background(), []string{"crm", "shop"})
			if err == nil {
				t.Fatalf("\nexpected an error, did not receive one")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("\ngot %v, want %v", err, tt.wantErr)
			}
			if ok, _ := afero.Exists(fs, "out/crm-ddl.sql"); ok {
				t.Errorf("\npartial ddl written")
			}
			if ok, _ := afero.Exists(fs, "out/report.csv"); ok {
				t.Errorf("\nreport written for failed run")
			}
			if conn.open != 0 {
				t.Errorf("\n%d sessions left open", conn.open)
			}
		})
	}
}

func TestRunWriteFailureLeavesNoArtifacts(t *testing.T) {
	server := func(extra ...introspect.Column) fakeServer {
		cols := append([]introspect.Column{{Name: "id", Type: "int"}}, extra...)
		return fakeServer{
			"crm":  {"leads": {Name: "leads", Columns: cols}},
			"shop": {"orders": {Name: "orders", Columns: cols}},
		}
	}
	r, _, fs := newRunner(server(introspect.Column{Name: "note", Type: "text", Nullable: true}), server())
	r.Sink = sink.Writer{Fs: failingFs{Fs: fs, fail: "shop-ddl"}}

	if _, err := r.Run(context.Background(), []string{"crm", "shop"}); err == nil {
		t.Fatalf("\nexpected an error, did not receive one")
	}
	for _, path := range []string{"out/crm-ddl.sql", "out/shop-ddl.sql", "out/report.csv"} {
		if ok, _ := afero.Exists(fs, path); ok {
			t.Errorf("\n%s written for failed run", path)
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	left := fakeServer{"shop": {
		"b": {Name: "b", Columns: []introspect.Column{{Name: "z", Type: "int"}, {Name: "y", Type: "int"}}},
		"a": {Name: "a", Columns: []introspect.Column{{Name: "x", Type: "int"}}},
	}}
	right := fakeServer{"shop": {"a": {Name: "a"}, "b": {Name: "b"}}}

	var first []byte
	for i := 0; i < 5; i++ {
		r, _, fs := newRunner(left, right)
		if _, err := r.Run(context.Background(), []string{"shop"}); err != nil {
			t.Fatalf("\ngot unexpected error: \"%v\"", err)
		}
		ddl, _ := afero.ReadFile(fs, "out/shop-ddl.sql")
		report, _ := afero.ReadFile(fs, "out/report.csv")
		got := append(ddl, report...)
		if first == nil {
			first = got
			continue
		}
		if string(got) != string(first) {
			t.Fatalf("\nrun %d differs:\n%s\nvs\n%s", i, got, first)
		}
	}
}

func TestRunSQLite(t *testing.T) {
	baseline, destination := t.TempDir(), t.TempDir()
	createSQLite(t, filepath.Join(baseline, "shop.db"),
		`CREATE TABLE orders (id INTEGER NOT NULL, total REAL, discount_code TEXT)`,
		`CREATE INDEX idx_created ON orders (total)`,
	)
	createSQLite(t, filepath.Join(destination, "shop.db"),
		`CREATE TABLE orders (id INTEGER NOT NULL, total REAL)`,
		`CREATE TABLE legacy (id INTEGER)`,
	)

	fs := afero.NewMemMapFs()
	r := Runner{
		Baseline:    config.DBConfig{Type: "sqlite", DatabaseName: baseline},
		Destination: config.DBConfig{Type: "sqlite", DatabaseName: destination},
		Connector:   db.Connector{Timeout: 5},
		Sink:        sink.Writer{Fs: fs},
		Output:      outputConfig(),
	}

	summary, err := r.Run(context.Background(), []string{"shop"})
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	if !reflect.DeepEqual(summary.Schemas[0].Skipped, []string{"legacy"}) {
		t.Errorf("\ngot skipped %v", summary.Schemas[0].Skipped)
	}

	ddl, err := afero.ReadFile(fs, "out/shop-ddl.sql")
	if err != nil {
		t.Fatalf("\nddl not written: %v", err)
	}
	if string(ddl) != "ALTER TABLE `shop`.`orders` ADD COLUMN `discount_code` TEXT;\n\n" {
		t.Errorf("\ngot %q", ddl)
	}
	report, _ := afero.ReadFile(fs, "out/report.csv")
	if !strings.Contains(string(report), "['discount_code'],[],['idx_created'],[]") {
		t.Errorf("\ngot report %q", report)
	}
}

func createSQLite(t *testing.T, path string, stmts ...string) {
	t.Helper()
	dbConn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer dbConn.Close()
	for _, s := range stmts {
		if _, err := dbConn.Exec(s); err != nil {
			t.Fatalf("\n%s: %v", s, err)
		}
	}
}

func newDumper(in introspect.Introspector) (Dumper, afero.Fs) {
	fs := afero.NewMemMapFs()
	return Dumper{
		Config:    mysqlCfg("server"),
		Connector: &fakeConnector{servers: map[string]introspect.Introspector{"server": in}},
		Sink:      sink.Writer{Fs: fs},
	}, fs
}

func dumpServer() fakeDumpIntrospector {
	return fakeDumpIntrospector{
		fakeIntrospector: fakeIntrospector{server: fakeServer{
			"crm":  {"leads": {Name: "leads"}},
			"shop": {"orders": {Name: "orders"}},
			"temp": {"scratch": {Name: "scratch"}},
		}},
		schemas: []string{"crm", "information_schema", "mysql", "shop", "sys", "temp"},
	}
}

func TestDump(t *testing.T) {
	d, fs := newDumper(dumpServer())

	paths, err := d.Dump(context.Background(), DumpOptions{File: "dump/schema.sql", Exclude: []string{"temp"}})
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	if !reflect.DeepEqual(paths, []string{"dump/schema.sql"}) {
		t.Errorf("\ngot paths %v", paths)
	}
	got, _ := afero.ReadFile(fs, "dump/schema.sql")
	want := "CREATE TABLE IF NOT EXISTS `crm`.`leads` (\n  `id` int\n);\n\n" +
		"CREATE TABLE IF NOT EXISTS `shop`.`orders` (\n  `id` int\n);\n\n"
	if string(got) != want {
		t.Errorf("\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestDumpSplit(t *testing.T) {
	d, fs := newDumper(dumpServer())

	paths, err := d.Dump(context.Background(), DumpOptions{File: "dump/schema.sql", Split: true})
	if err != nil {
		t.Fatalf("\ngot unexpected error: \"%v\"", err)
	}
	want := []string{
		filepath.Join("dump", "crm_schema.sql"),
		filepath.Join("dump", "shop_schema.sql"),
		filepath.Join("dump", "temp_schema.sql"),
	}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("\ngot paths %v", paths)
	}
	got, _ := afero.ReadFile(fs, filepath.Join("dump", "shop_schema.sql"))
	if string(got) != "CREATE TABLE IF NOT EXISTS `shop`.`orders` (\n  `id` int\n);\n\n" {
		t.Errorf("\ngot %q", got)
	}
	if ok, _ := afero.Exists(fs, "dump/schema.sql"); ok {
		t.Errorf("\ncombined file written in split mode")
	}
}

func TestDumpSplitFailureWritesNothing(t *testing.T) {
	server := dumpServer()
	server.failSchema = "temp"
	d, fs := newDumper(server)

	if _, err := d.Dump(context.Background(), DumpOptions{File: "dump/schema.sql", Split: true}); err == nil {
		t.Fatalf("\nexpected an error, did not receive one")
	}
	for _, name := range []string{"crm_schema.sql", "shop_schema.sql", "temp_schema.sql"} {
		if ok, _ := afero.Exists(fs, filepath.Join("dump", name)); ok {
			t.Errorf("\n%s written for failed dump", name)
		}
	}
}

func TestDumpUnsupported(t *testing.T) {
	d, _ := newDumper(fakeIntrospector{})
	if _, err := d.Dump(context.Background(), DumpOptions{File: "schema.sql"}); !errors.Is(err, ErrDumpUnsupported) {
		t.Errorf("\ngot %v, want %v", err, ErrDumpUnsupported)
	}
}

func TestQualifyCreate(t *testing.T) {
	got := QualifyCreate("shop", "CREATE TABLE `orders` (`id` int)")
	if got != "CREATE TABLE IF NOT EXISTS `shop`.`orders` (`id` int)" {
		t.Errorf("\ngot %s", got)
	}
}
