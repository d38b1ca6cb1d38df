package sqlcheck

import (
	"context"
	"net"
	"strconv"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vertti/validate-infra/pkg/connurl"
)

type mysqlDB struct {
	db *gorm.DB
}

// ConnectMySQL opens and pings a MySQL connection through gorm.
func ConnectMySQL(ctx context.Context, cfg Config) (DB, error) {
	db, err := gorm.Open(gormmysql.Open(mysqlDSN(cfg)), &gorm.Config{
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, classifyMySQL("connect", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, classifyMySQL("connect", err)
	}
	sqlDB.SetMaxOpenConns(1)

	pingCtx, cancel := withTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, classifyMySQL("connect", err)
	}
	return &mysqlDB{db: db}, nil
}

// mysqlDSN converts a mysql:// URL to the driver's DSN. TLS is enabled
// without verification when the URL asks for ssl-mode REQUIRED, matching
// managed databases that present a private CA.
func mysqlDSN(cfg Config) string {
	d := connurl.Parse(cfg.URL)

	c := mysqldriver.NewConfig()
	c.User = d.Username
	c.Passwd = d.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	c.DBName = d.Database
	c.Timeout = cfg.ConnectTimeout
	c.ParseTime = true

	switch strings.ToUpper(d.Param("ssl-mode", "sslmode", "ssl_mode")) {
	case "REQUIRED", "REQUIRE", "VERIFY_CA", "VERIFY_IDENTITY":
		c.TLSConfig = "skip-verify"
	}
	return c.FormatDSN()
}

func (m *mysqlDB) Exec(ctx context.Context, query string) (int64, error) {
	res := m.db.WithContext(ctx).Exec(query)
	if res.Error != nil {
		return 0, classifyMySQL("exec", res.Error)
	}
	return res.RowsAffected, nil
}

func (m *mysqlDB) QueryInt(ctx context.Context, query string) (int, error) {
	var n int
	if err := m.db.WithContext(ctx).Raw(query).Scan(&n).Error; err != nil {
		return 0, classifyMySQL("query", err)
	}
	return n, nil
}

func (m *mysqlDB) QueryString(ctx context.Context, query string) (string, error) {
	var s string
	if err := m.db.WithContext(ctx).Raw(query).Scan(&s).Error; err != nil {
		return "", classifyMySQL("query", err)
	}
	return s, nil
}

func (m *mysqlDB) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ DB = (*mysqlDB)(nil)
