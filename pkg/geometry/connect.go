package geometry

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

// ConnConfig locates the PostGIS database under inspection.
type ConnConfig struct {
	Host     string `json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `json:"port" yaml:"port" mapstructure:"port"`
	Database string `json:"database" yaml:"database" mapstructure:"database"`
	User     string `json:"user" yaml:"user" mapstructure:"user"`
	Password string `json:"-" yaml:"-" mapstructure:"password"`
	SSLMode  string `json:"sslmode" yaml:"sslmode" mapstructure:"sslmode"`
}

// DSN renders the key=value connection string understood by pgx.
func (c ConnConfig) DSN() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	pairs := [][2]string{
		{"host", host},
		{"port", strconv.Itoa(port)},
		{"dbname", c.Database},
		{"sslmode", sslmode},
	}
	if c.User != "" {
		pairs = append(pairs, [2]string{"user", c.User})
	}
	if c.Password != "" {
		pairs = append(pairs, [2]string{"password", c.Password})
	}

	parts := make([]string, len(pairs))
	for i, kv := range pairs {
		parts[i] = kv[0] + "=" + quoteDSNValue(kv[1])
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a keyword/value connection string value the way libpq
// parses it.
func quoteDSNValue(v string) string {
	return "'" + dsnEscaper.Replace(v) + "'"
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Connect opens and pings the database. The caller owns the returned pool.
func Connect(ctx context.Context, cfg ConnConfig, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("connecting to postgis", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)

	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to connect to database %q", cfg.Database)
	}
	return db, nil
}
