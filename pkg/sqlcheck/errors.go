package sqlcheck

import (
	"context"
	"errors"
	"net"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/vertti/validate-infra/pkg/check"
)

const (
	hintTrustedSources = "Check trusted sources - your IP may not be whitelisted"
	hintCredentials    = "Check username/password credentials"
	hintMySQLAccess    = "Check username/password or trusted sources"
	hintServiceDown    = "Database may be down or firewall blocking access"
)

func classified(kind check.Kind, op, hint string, err error) error {
	return &check.Error{Kind: kind, Op: op, Hint: hint, Err: err}
}

// classifyPostgres labels a lib/pq or network error.
func classifyPostgres(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "28P01":
			return classified(check.KindAuthFailed, op, hintCredentials, err)
		case "28000":
			if strings.Contains(pqErr.Message, "pg_hba.conf") {
				return classified(check.KindUnreachable, op, hintTrustedSources, err)
			}
			return classified(check.KindAuthFailed, op, hintCredentials, err)
		case "42501":
			return classified(check.KindPermissionDenied, op, "", err)
		}
		return classified(check.KindOperationFailed, op, "", err)
	}
	return classifyTransport(op, err)
}

// classifyMySQL labels a go-sql-driver or network error.
func classifyMySQL(op string, err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1045:
			return classified(check.KindAuthFailed, op, hintMySQLAccess, err)
		case 1130:
			return classified(check.KindUnreachable, op, hintTrustedSources, err)
		case 1044, 1142, 1143, 1227:
			return classified(check.KindPermissionDenied, op, "", err)
		}
		return classified(check.KindOperationFailed, op, "", err)
	}
	return classifyTransport(op, err)
}

func classifyTransport(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return classified(check.KindUnreachable, op, hintServiceDown, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no pg_hba.conf entry"), strings.Contains(msg, "not allowed"):
		return classified(check.KindUnreachable, op, hintTrustedSources, err)
	case strings.Contains(msg, "connection refused"):
		return classified(check.KindUnreachable, op, hintServiceDown, err)
	case strings.Contains(msg, "password authentication failed"), strings.Contains(msg, "access denied"):
		return classified(check.KindAuthFailed, op, hintCredentials, err)
	}
	return classified(check.KindOperationFailed, op, "", err)
}
