package transport

import (
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// FirmwareSink opens the destination of an OTA download. size is the
// advertised length, or -1 when unknown.
type FirmwareSink func(size int64) (io.WriteCloser, error)

// Config configures a Client. Zero fields other than MaxRetries take the
// defaults of DefaultConfig; start from DefaultConfig to keep retries.
type Config struct {
	// Capacity bounds the number of live slots.
	Capacity int

	// Timeout applies to each HTTP attempt.
	Timeout time.Duration

	// MaxRetries counts retries after the first attempt for network
	// errors, 429 and 5xx responses.
	MaxRetries int

	// RateLimit is the steady request rate per second, RateBurst the
	// bucket size.
	RateLimit float64
	RateBurst int

	UserAgent string

	// Endpoints maps a request host to the base URL it is sent to, e.g.
	// "storage.googleapis.com" -> "http://127.0.0.1:9023". Unlisted hosts
	// go to https://<host>.
	Endpoints map[string]string

	Firmware FirmwareSink

	HTTPClient     *http.Client
	Logger         logrus.FieldLogger
	TracerProvider trace.TracerProvider
}

func DefaultConfig() Config {
	return Config{
		Capacity:   8,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RateLimit:  10.0,
		RateBurst:  5,
		UserAgent:  "gcrest/1.0",
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = def.RateBurst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	return cfg
}
