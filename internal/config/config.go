package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets and identifiers are strings, token
// lifetimes and costs are ints.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	JWTSecret    string // secret used to sign JWTs
	TokenTTLHour int    // lifetime of the session cookie token in hours
	CookieSecure bool   // mark the session cookie Secure (HTTPS only)
	BcryptCost   int    // bcrypt cost for password hashing
	TimeZone     string // business time zone used for ticket numbering
	CORSOrigins  []string
	BodyLimit    string // max request body accepted by Echo (e.g. "20M")
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:          envStr("APP_ENV", "dev"),
		Port:         envStr("APP_PORT", "5000"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"), // empty allowed
		DBHost:       must("DB_HOST"),
		DBPort:       envStr("DB_PORT", "3306"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		TokenTTLHour: envInt("TOKEN_TTL_HOURS", 24),
		CookieSecure: envBool("COOKIE_SECURE", false),
		BcryptCost:   envInt("BCRYPT_COST", 10),
		TimeZone:     envStr("APP_TIMEZONE", "America/Chicago"),
		CORSOrigins:  splitList(envStr("CORS_ORIGINS", "http://localhost:5173")),
		BodyLimit:    envStr("BODY_LIMIT", "25M"),
	}
}

// TokenTTL returns the session lifetime as a duration.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHour) * time.Hour
}

// Location resolves TimeZone.  An unknown zone falls back to UTC so a
// misconfigured host never stops ticket creation.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		log.Printf("config: unknown APP_TIMEZONE %q, using UTC", c.TimeZone)
		return time.UTC
	}
	return loc
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
