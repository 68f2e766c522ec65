package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"coursera-sync/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL    = "https://www.coursera.org"
	DefaultMaxRetries = 3
	DefaultLocation   = "us-central1"
)

// Endpoint is one catalog source and the response shape it is expected to return.
type Endpoint struct {
	URL   string               `yaml:"url"`
	Shape domain.ResponseShape `yaml:"shape"`
}

type Config struct {
	// Coursera
	BaseURL          string
	CatalogEndpoints []Endpoint
	BrowseURL        string
	GatewayURL       string
	UserAgent        string
	MaxRetries       int
	HTTPTimeout      time.Duration
	GatewayRPS       float64 // 0 disables pacing

	OutputDir string

	// Storage
	StorageBackend string // "gcs", "sftp" or "" (none)
	GCSProjectID   string
	GCSLocation    string

	SFTPHost                  string
	SFTPPort                  int
	SFTPUser                  string
	SFTPPass                  string
	SFTPDir                   string
	SFTPInsecureIgnoreHostKey bool
	SFTPKnownHosts            string

	// Observability
	MetricsTextfile string
	LogLevel        string
	LogFormat       string
}

// catalogFile is the optional YAML override for the scrape surface.
type catalogFile struct {
	Endpoints  []Endpoint `yaml:"endpoints"`
	BrowseURL  string     `yaml:"browse_url"`
	GatewayURL string     `yaml:"gateway_url"`
	UserAgent  string     `yaml:"user_agent"`
	MaxRetries int        `yaml:"max_retries"`
}

// DefaultEndpoints lists the catalog APIs in the order they are tried.
func DefaultEndpoints(baseURL string) []Endpoint {
	baseURL = strings.TrimRight(baseURL, "/")
	return []Endpoint{
		{URL: baseURL + "/api/catalogResults.v2", Shape: domain.ShapeElements},
		{URL: baseURL + "/api/courses.v1", Shape: domain.ShapeAuto},
		{URL: baseURL + "/api/browse/courses", Shape: domain.ShapeAuto},
	}
}

// LoadDotenv loads .env files when present. A missing file is not an error.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from the environment. catalogPath, when non-empty
// (or COURSERA_CATALOG_FILE when it is empty), names a YAML file overriding
// the scrape surface; environment variables still win over the file.
func Load(catalogPath string) (Config, error) {
	if catalogPath == "" {
		catalogPath = os.Getenv("COURSERA_CATALOG_FILE")
	}

	var fc catalogFile
	if catalogPath != "" {
		b, err := os.ReadFile(catalogPath)
		if err != nil {
			return Config{}, fmt.Errorf("config: read catalog file: %w", err)
		}
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return Config{}, fmt.Errorf("config: parse catalog file %s: %w", catalogPath, err)
		}
	}

	baseURL := strings.TrimRight(getenv("COURSERA_BASE_URL", DefaultBaseURL), "/")

	endpoints := DefaultEndpoints(baseURL)
	if len(fc.Endpoints) > 0 {
		endpoints = make([]Endpoint, 0, len(fc.Endpoints))
		for i, e := range fc.Endpoints {
			if strings.TrimSpace(e.URL) == "" {
				return Config{}, fmt.Errorf("config: endpoint %d has no url", i)
			}
			shape, err := domain.ParseResponseShape(string(e.Shape))
			if err != nil {
				return Config{}, fmt.Errorf("config: endpoint %s: %w", e.URL, err)
			}
			endpoints = append(endpoints, Endpoint{URL: strings.TrimSpace(e.URL), Shape: shape})
		}
	}

	maxRetries := DefaultMaxRetries
	if fc.MaxRetries > 0 {
		maxRetries = fc.MaxRetries
	}

	return Config{
		// Coursera
		BaseURL:          baseURL,
		CatalogEndpoints: endpoints,
		BrowseURL:        getenv("COURSERA_BROWSE_URL", firstNonEmpty(fc.BrowseURL, baseURL+"/browse/data-science")),
		GatewayURL:       getenv("COURSERA_GATEWAY_URL", firstNonEmpty(fc.GatewayURL, baseURL+"/graphql-gateway")),
		UserAgent:        getenv("COURSERA_USER_AGENT", fc.UserAgent),
		MaxRetries:       getenvInt("COURSERA_MAX_RETRIES", maxRetries),
		HTTPTimeout:      getenvDuration("COURSERA_HTTP_TIMEOUT", 30*time.Second),
		GatewayRPS:       getenvFloat("COURSERA_GATEWAY_RPS", 0),

		OutputDir: getenv("OUTPUT_DIR", "."),

		// Storage
		StorageBackend: strings.ToLower(getenv("STORAGE_BACKEND", "gcs")),
		GCSProjectID:   os.Getenv("GCS_PROJECT_ID"),
		GCSLocation:    getenv("GCS_LOCATION", DefaultLocation),

		SFTPHost:                  os.Getenv("SFTP_HOST"),
		SFTPPort:                  getenvInt("SFTP_PORT", 22),
		SFTPUser:                  os.Getenv("SFTP_USER"),
		SFTPPass:                  os.Getenv("SFTP_PASS"),
		SFTPDir:                   getenv("SFTP_DIR", "/"),
		SFTPInsecureIgnoreHostKey: getenvBool("SFTP_INSECURE_IGNORE_HOST_KEY", false),
		SFTPKnownHosts:            os.Getenv("SFTP_KNOWN_HOSTS"),

		// Observability
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "text"),
	}, nil
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}

func getenvBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}
