package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string `envconfig:"APP_ENV" default:"prod"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:""`
	InstanceID  string `envconfig:"INSTANCE_ID" default:""`

	// Empty MYSQL_DSN disables payment confirmation.
	MySQLDSN string `envconfig:"MYSQL_DSN" default:""`

	// Empty REDIS_ADDR runs an in-process Redis, for development only.
	RedisAddr string `envconfig:"REDIS_ADDR" default:""`
	RedisPass string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`

	// Empty AMQP_URL keeps invalidation local to this instance.
	AMQPURL      string `envconfig:"AMQP_URL" default:""`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"staybook.events"`

	UsersAPI          string `envconfig:"USERS_API" default:"http://localhost:8001/api"`
	PropertiesAPI     string `envconfig:"PROPERTIES_API" default:"http://localhost:8002/api"`
	BookingsAPI       string `envconfig:"BOOKINGS_API" default:"http://localhost:8003/api"`
	VendorsAPI        string `envconfig:"VENDORS_API" default:"http://localhost:8004/api"`
	VendorServicesAPI string `envconfig:"VENDOR_SERVICES_API" default:"http://localhost:8005/api"`
	UpstreamRPS       int    `envconfig:"UPSTREAM_RPS" default:"10"`

	CacheTTLSeconds int `envconfig:"CACHE_TTL_SECONDS" default:"300"`
	DraftTTLHours   int `envconfig:"DRAFT_TTL_HOURS" default:"24"`

	OmisePublicKey string `envconfig:"OMISE_PUBLIC_KEY" default:""`
	OmiseSecretKey string `envconfig:"OMISE_SECRET_KEY" default:""`

	// Wizard attachment refs resolve under this directory.
	UploadDir string `envconfig:"UPLOAD_DIR" default:"uploads"`

	WarmLocations []string `envconfig:"WARM_LOCATIONS" default:"Doha,Dubai,Muscat"`
	WarmWorkers   int      `envconfig:"WARM_WORKERS" default:"4"`
}

func (c Config) CacheTTL() time.Duration { return time.Duration(c.CacheTTLSeconds) * time.Second }
func (c Config) DraftTTL() time.Duration { return time.Duration(c.DraftTTLHours) * time.Hour }

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("envconfig: %w", err)
	}
	if c.UpstreamRPS <= 0 {
		return Config{}, fmt.Errorf("UPSTREAM_RPS must be positive, got %d", c.UpstreamRPS)
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		return Config{}, errors.New("UPLOAD_DIR must not be empty")
	}
	if c.WarmWorkers <= 0 {
		c.WarmWorkers = 1
	}
	for i, l := range c.WarmLocations {
		c.WarmLocations[i] = strings.TrimSpace(l)
	}
	if c.OmiseSecretKey == "" && c.MySQLDSN != "" {
		log.Warn().Msg("OMISE_SECRET_KEY is empty; payment confirmation disabled")
	}
	return c, nil
}
