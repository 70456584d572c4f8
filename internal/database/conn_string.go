package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/lexflow-notify/internal/config"
)

// ApplicationName is reported to the server as application_name.
const ApplicationName = "lexflow-notifier"

// BuildConnString builds a PostgreSQL connection URL from config.
// Credentials are escaped so special characters survive.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
