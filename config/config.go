package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/phillip/pawshome-go/idempotency"
	"github.com/phillip/pawshome-go/identity"
	"github.com/phillip/pawshome-go/observability"
)

// Config carries the settings read from the environment plus the
// process-wide handles built from them at startup. Handlers receive it by
// pointer and only read from it.
type Config struct {
	Port           string
	MongoURI       string
	DBName         string
	RequestTimeout time.Duration

	AuthProvider      string
	FirebaseProjectID string
	GoogleClientID    string
	JWTSecret         string
	JWTIssuer         string

	CORSOrigins     []string
	IdempotencyPath string
	IdempotencyTTL  time.Duration

	LogLevel       string
	LogFormat      string
	GinMode        string
	MetricsEnabled bool

	MongoClient *mongo.Client
	Verifier    identity.Verifier
	Logger      *slog.Logger
	Metrics     *observability.Metrics
	Idempotency *idempotency.Store
}

var defaults = map[string]interface{}{
	"PORT":                "5000",
	"MONGODB_URI":         "",
	"MONGODB_USERNAME":    "",
	"MONGODB_PASSWORD":    "",
	"MONGODB_HOST":        "localhost:27017",
	"MONGODB_APP_NAME":    "PawsHome",
	"DB_NAME":             "PawsHome",
	"REQUEST_TIMEOUT":     "5s",
	"AUTH_PROVIDER":       identity.ProviderFirebase,
	"FIREBASE_PROJECT_ID": "",
	"GOOGLE_CLIENT_ID":    "",
	"JWT_SECRET":          "",
	"JWT_ISSUER":          "pawshome",
	"CORS_ORIGINS":        "*",
	"IDEMPOTENCY_DB_PATH": "idempotency.db",
	"IDEMPOTENCY_TTL":     "24h",
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "json",
	"GIN_MODE":            "release",
	"METRICS_ENABLED":     true,
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// a missing .env is normal in deployed environments
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:              v.GetString("PORT"),
		MongoURI:          mongoURI(v),
		DBName:            v.GetString("DB_NAME"),
		RequestTimeout:    v.GetDuration("REQUEST_TIMEOUT"),
		AuthProvider:      strings.ToLower(v.GetString("AUTH_PROVIDER")),
		FirebaseProjectID: v.GetString("FIREBASE_PROJECT_ID"),
		GoogleClientID:    v.GetString("GOOGLE_CLIENT_ID"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		JWTIssuer:         v.GetString("JWT_ISSUER"),
		CORSOrigins:       splitList(v.GetString("CORS_ORIGINS")),
		IdempotencyPath:   v.GetString("IDEMPOTENCY_DB_PATH"),
		IdempotencyTTL:    v.GetDuration("IDEMPOTENCY_TTL"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
		GinMode:           v.GetString("GIN_MODE"),
		MetricsEnabled:    v.GetBool("METRICS_ENABLED"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.DBName == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be positive"))
	}
	switch c.AuthProvider {
	case identity.ProviderFirebase, identity.ProviderGoogle, identity.ProviderHMAC:
	default:
		errs = append(errs, fmt.Errorf("AUTH_PROVIDER %q is not one of firebase, google, hmac", c.AuthProvider))
	}
	return errors.Join(errs...)
}

// VerifierOptions maps the auth settings onto identity.Options.
func (c *Config) VerifierOptions() identity.Options {
	return identity.Options{
		Provider:          c.AuthProvider,
		FirebaseProjectID: c.FirebaseProjectID,
		GoogleClientID:    c.GoogleClientID,
		Secret:            c.JWTSecret,
		Issuer:            c.JWTIssuer,
	}
}

// Collection is shorthand for a collection in the configured database.
func (c *Config) Collection(name string) *mongo.Collection {
	return c.MongoClient.Database(c.DBName).Collection(name)
}

func mongoURI(v *viper.Viper) string {
	if uri := v.GetString("MONGODB_URI"); uri != "" {
		return uri
	}
	user, pass := v.GetString("MONGODB_USERNAME"), v.GetString("MONGODB_PASSWORD")
	if user == "" {
		return "mongodb://" + v.GetString("MONGODB_HOST")
	}
	// Atlas style credentials
	return fmt.Sprintf("mongodb+srv://%s:%s@%s/?retryWrites=true&w=majority&appName=%s",
		url.QueryEscape(user), url.QueryEscape(pass), v.GetString("MONGODB_HOST"), url.QueryEscape(v.GetString("MONGODB_APP_NAME")))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
