package shared

import (
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	MySQLDSN      string
	MySQLMaxConns int

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	CAIBase      string
	CAIPageDelay time.Duration

	NominatimBase string
	ElevationBase string
	GeoUserAgent  string
	GeoRPS        float64

	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string
	AdminCacheTTL     time.Duration

	SessionSecret string
	SessionTTL    time.Duration

	CORSOrigins    []string
	LoginRateLimit int
}

func (c Config) Dev() bool { return c.AppEnv == "dev" || c.AppEnv == "development" }

func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "prod")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", "")
	v.SetDefault("MYSQL_HOST", "localhost:3306")
	v.SetDefault("MYSQL_USER", "root")
	v.SetDefault("MYSQL_PASSWORD", "root")
	v.SetDefault("MYSQL_DATABASE", "cabins")
	v.SetDefault("MYSQL_MAX_CONNS", 10)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL_SECONDS", 300)
	v.SetDefault("CAI_BASE_URL", "https://rifugi.cai.it/api/v1")
	v.SetDefault("CAI_PAGE_DELAY_MS", 250)
	v.SetDefault("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("ELEVATION_BASE_URL", "https://api.open-elevation.com")
	v.SetDefault("GEO_USER_AGENT", "free-cabins-europe-app")
	v.SetDefault("GEO_RPS", 1.0)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", defaultAdminPassword)
	v.SetDefault("ADMIN_CACHE_TTL_SECONDS", 300)
	v.SetDefault("SESSION_SECRET", defaultSessionSecret)
	v.SetDefault("SESSION_TTL_HOURS", 24*7)
	v.SetDefault("LOGIN_RATE_LIMIT", 10)

	c := Config{
		AppEnv:            v.GetString("APP_ENV"),
		HTTPAddr:          v.GetString("HTTP_ADDR"),
		MetricsAddr:       v.GetString("METRICS_ADDR"),
		MySQLDSN:          v.GetString("MYSQL_DSN"),
		MySQLMaxConns:     v.GetInt("MYSQL_MAX_CONNS"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisDB:           v.GetInt("REDIS_DB"),
		RedisPass:         v.GetString("REDIS_PASSWORD"),
		CacheTTL:          time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		CAIBase:           v.GetString("CAI_BASE_URL"),
		CAIPageDelay:      time.Duration(v.GetInt("CAI_PAGE_DELAY_MS")) * time.Millisecond,
		NominatimBase:     v.GetString("NOMINATIM_BASE_URL"),
		ElevationBase:     v.GetString("ELEVATION_BASE_URL"),
		GeoUserAgent:      v.GetString("GEO_USER_AGENT"),
		GeoRPS:            v.GetFloat64("GEO_RPS"),
		AdminUsername:     v.GetString("ADMIN_USERNAME"),
		AdminPassword:     v.GetString("ADMIN_PASSWORD"),
		AdminPasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		AdminCacheTTL:     time.Duration(v.GetInt("ADMIN_CACHE_TTL_SECONDS")) * time.Second,
		SessionSecret:     v.GetString("SESSION_SECRET"),
		SessionTTL:        time.Duration(v.GetInt("SESSION_TTL_HOURS")) * time.Hour,
		CORSOrigins:       splitCSV(v.GetString("CORS_ORIGINS")),
		LoginRateLimit:    v.GetInt("LOGIN_RATE_LIMIT"),
	}

	// MYSQL_DSN wins; otherwise build one from the discrete MYSQL_* variables.
	if c.MySQLDSN == "" {
		mc := mysql.NewConfig()
		mc.Net = "tcp"
		mc.Addr = v.GetString("MYSQL_HOST")
		mc.User = v.GetString("MYSQL_USER")
		mc.Passwd = v.GetString("MYSQL_PASSWORD")
		mc.DBName = v.GetString("MYSQL_DATABASE")
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Params = map[string]string{"charset": "utf8mb4"}
		c.MySQLDSN = mc.FormatDSN()
	}

	if c.Dev() && c.usesDefaultCredentials() {
		log.Warn().Msg("running with development admin credentials")
	}
	return c
}

const (
	defaultAdminPassword = "admin"
	defaultSessionSecret = "dev-secret-change-me"
)

var ErrInsecureDefaults = errors.New("SESSION_SECRET and ADMIN_PASSWORD (or ADMIN_PASSWORD_HASH) must be set outside dev")

func (c Config) usesDefaultCredentials() bool {
	return c.SessionSecret == defaultSessionSecret ||
		(c.AdminPasswordHash == "" && c.AdminPassword == defaultAdminPassword)
}

// CheckAuth fails outside dev when the session secret or the admin password
// is still the built-in default.
func (c Config) CheckAuth() error {
	if c.Dev() {
		return nil
	}
	if strings.TrimSpace(c.SessionSecret) == "" || c.usesDefaultCredentials() {
		return ErrInsecureDefaults
	}
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
