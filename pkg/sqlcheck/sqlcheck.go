// Package sqlcheck validates PostgreSQL and MySQL databases: TCP gate,
// authenticated connection, server version, then a create/insert/select/
// update/delete/drop cycle on a scratch table.
package sqlcheck

import (
	"context"
	"fmt"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/connurl"
	"github.com/vertti/validate-infra/pkg/validator"
	"github.com/vertti/validate-infra/pkg/version"
)

// TestTable is the scratch table created and dropped by the probe.
const TestTable = "_validate_infra_test"

// DB is the part of a SQL connection the probe uses. Implementations return
// errors already classified with check.Kind.
type DB interface {
	Exec(ctx context.Context, query string) (int64, error)
	QueryInt(ctx context.Context, query string) (int, error)
	QueryString(ctx context.Context, query string) (string, error)
	Close() error
}

// Connector opens an authenticated connection.
type Connector func(ctx context.Context, cfg Config) (DB, error)

type dialectInfo struct {
	name        string
	createSQL   string
	versionSQL  string
	installHint string
	connect     Connector
}

var dialects = map[Dialect]dialectInfo{
	Postgres: {
		name:        "PostgreSQL",
		createSQL:   "CREATE TABLE " + TestTable + " (id SERIAL PRIMARY KEY, val TEXT)",
		versionSQL:  "SELECT version()",
		installHint: "PostgreSQL client (lib/pq) not available in this build",
		connect:     ConnectPostgres,
	},
	MySQL: {
		name:        "MySQL",
		createSQL:   "CREATE TABLE " + TestTable + " (id INT AUTO_INCREMENT PRIMARY KEY, val VARCHAR(255))",
		versionSQL:  "SELECT VERSION()",
		installHint: "MySQL client (go-sql-driver/mysql) not available in this build",
		connect:     ConnectMySQL,
	},
}

// Service validates one relational database.
type Service struct {
	Config Config
	Open   Connector // nil means no client is available
}

// New returns a Service using the real client for cfg's dialect.
func New(cfg Config) *Service {
	return &Service{Config: cfg, Open: dialects[cfg.Dialect].connect}
}

// Validator wraps New in the shared validator state machine.
func Validator(cfg Config, probes validator.Probes) validator.Validator {
	return validator.New(New(cfg), probes)
}

func (s *Service) info() dialectInfo { return dialects[s.Config.Dialect] }

func (s *Service) Profile() validator.Profile {
	info := s.info()
	return validator.Profile{
		Name:          info.name,
		Kind:          validator.KindRelational,
		ConnectStep:   "Connection",
		ConnectDetail: "Connected successfully",
		InfoStep:      "Query",
		InstallHint:   info.installHint,
	}
}

func (s *Service) Validate() error {
	cfg := s.Config
	if _, ok := dialects[cfg.Dialect]; !ok {
		panic(fmt.Sprintf("sqlcheck: unknown dialect %q", cfg.Dialect))
	}
	if cfg.URL == "" {
		return check.Errorf(check.KindNotConfigured, "No %s URL found (%s)", s.info().name, cfg.varNames())
	}
	if vars := connurl.Placeholders(cfg.URL); len(vars) > 0 {
		return check.Wrap(check.KindUnresolvedTemplate, "config", &connurl.ErrUnresolved{Vars: vars})
	}
	return nil
}

func (s *Service) Describe() []string {
	d := connurl.Parse(s.Config.URL)
	return []string{
		fmt.Sprintf("Found %s URL in %s", s.info().name, s.Config.Source),
		fmt.Sprintf("Host: %s:%d", d.Host, d.Port),
		"Database: " + d.Database,
		"User: " + d.Username,
		"Password: " + connurl.Mask(d.Password, 4),
	}
}

func (s *Service) Endpoint() validator.Endpoint {
	d := connurl.Parse(s.Config.URL)
	return validator.Endpoint{Host: d.Host, Port: d.Port}
}

func (s *Service) Driver() error {
	if s.Open == nil {
		return check.Errorf(check.KindDriverMissing, "no %s client", s.info().name)
	}
	return nil
}

func (s *Service) Connect(ctx context.Context) (validator.Session, error) {
	db, err := s.Open(ctx, s.Config)
	if err != nil {
		return nil, err
	}
	return &session{db: db, info: s.info()}, nil
}

type session struct {
	db   DB
	info dialectInfo
}

func (s *session) Info(ctx context.Context) (string, error) {
	banner, err := s.db.QueryString(ctx, s.info.versionSQL)
	if err != nil {
		return "", err
	}
	return version.Describe(banner, 60), nil
}

func (s *session) Close() error {
	return s.db.Close()
}

type step struct {
	name   string
	query  string
	detail string
	count  bool
}

// Probe runs the table cycle. A permission error ends the cycle with a
// single Permissions check. The table is dropped on every path once created.
func (s *session) Probe(ctx context.Context, rec *validator.Recorder) {
	// Leftover from an interrupted run; absence is fine.
	_, _ = s.db.Exec(ctx, "DROP TABLE IF EXISTS "+TestTable)

	created := false
	defer func() {
		if !created {
			return
		}
		if _, err := s.db.Exec(context.WithoutCancel(ctx), "DROP TABLE "+TestTable); err != nil {
			rec.Cleanup("table "+TestTable, err)
			return
		}
		rec.Pass("DROP", "Dropped test table")
	}()

	steps := []step{
		{name: "CREATE", query: s.info.createSQL, detail: "Created table " + TestTable},
		{name: "INSERT", query: "INSERT INTO " + TestTable + " (val) VALUES ('test')", detail: "Inserted test row"},
		{name: "SELECT", query: "SELECT COUNT(*) FROM " + TestTable + " WHERE val = 'test'", detail: "Selected from test table", count: true},
		{name: "UPDATE", query: "UPDATE " + TestTable + " SET val = 'updated' WHERE val = 'test'", detail: "Updated test row"},
		{name: "DELETE", query: "DELETE FROM " + TestTable + " WHERE val = 'updated'", detail: "Deleted test row"},
	}

	for _, st := range steps {
		err := s.run(ctx, st)
		if err == nil {
			if st.name == "CREATE" {
				created = true
			}
			rec.Pass(st.name, st.detail)
			continue
		}
		if check.Classify(err) == check.KindPermissionDenied {
			rec.Fail("Permissions", "", err)
		} else {
			rec.Fail(st.name, "", err)
		}
		return
	}
}

func (s *session) run(ctx context.Context, st step) error {
	if st.count {
		n, err := s.db.QueryInt(ctx, st.query)
		if err != nil {
			return err
		}
		if n != 1 {
			return check.Errorf(check.KindOperationFailed, "expected 1 row, found %d", n)
		}
		return nil
	}
	_, err := s.db.Exec(ctx, st.query)
	return err
}
