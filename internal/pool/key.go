package pool

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/go-sql-driver/mysql"

	"github.com/erdemdnmz2/WebQuery/internal/core"
)

// ConnectionSpec fully qualifies a connection identity: who connects where,
// with what, over which driver. Two specs differing in any field map to
// distinct pool entries.
type ConnectionSpec struct {
	Technology string // mssql, postgres, mysql, odbc, sqlite
	Driver     string // database/sql driver name; derived from Technology when empty
	Username   string
	Password   string
	Server     string // network address (host or host:port)
	Database   string
}

// Key derives the cache index: a fixed-length digest of the full identity.
// The digest, not the spec, is what gets logged or stored.
func (s ConnectionSpec) Key() string {
	h := sha256.New()
	for _, field := range []string{s.Technology, s.driverName(), s.Username, s.Password, s.Server, s.Database} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s ConnectionSpec) driverName() string {
	if s.Driver != "" {
		return s.Driver
	}
	d, _ := DriverFor(s.Technology)
	return d
}

// DriverFor maps a technology tag to its registered database/sql driver.
func DriverFor(technology string) (string, error) {
	switch technology {
	case "mssql":
		return "sqlserver", nil
	case "postgres":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "odbc":
		return "odbc", nil
	case "sqlite":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("technology %q: %w", technology, core.ErrNotConfigured)
	}
}

// DSN builds the driver connection string for the spec.
func (s ConnectionSpec) DSN() (string, error) {
	switch s.Technology {
	case "mssql":
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(s.Username, s.Password),
			Host:     s.Server,
			RawQuery: url.Values{"database": {s.Database}, "encrypt": {"disable"}}.Encode(),
		}
		return u.String(), nil
	case "postgres":
		u := &url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(s.Username, s.Password),
			Host:     s.Server,
			Path:     "/" + s.Database,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	case "mysql":
		cfg := mysql.NewConfig()
		cfg.User = s.Username
		cfg.Passwd = s.Password
		cfg.Net = "tcp"
		cfg.Addr = s.Server
		cfg.DBName = s.Database
		return cfg.FormatDSN(), nil
	case "odbc":
		// SQL Anywhere / Sybase style ODBC data source
		return fmt.Sprintf("DSN=%s;UID=%s;PWD=%s;DatabaseName=%s", s.Server, s.Username, s.Password, s.Database), nil
	case "sqlite":
		// local file (or :memory:), no credentials
		return s.Database, nil
	default:
		return "", fmt.Errorf("technology %q: %w", s.Technology, core.ErrNotConfigured)
	}
}
