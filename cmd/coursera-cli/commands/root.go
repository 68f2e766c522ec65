package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"coursera-sync/internal/config"
	"coursera-sync/internal/logging"
	"coursera-sync/internal/metrics"
	"coursera-sync/internal/providers/coursera"
	"coursera-sync/internal/storage"
	"coursera-sync/internal/storage/backend"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

const defaultLimit = 10

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfg     config.Config
	log     logrus.FieldLogger
	metrics *metrics.Recorder
	runID   string
	out     io.Writer

	now       func() time.Time
	openStore func(ctx context.Context, cfg config.Config, log logrus.FieldLogger) storage.Store

	envFile     string
	catalogFile string
	logLevel    string
	logFormat   string
}

func newRootCmd(a *app) *cobra.Command {
	if a.now == nil {
		a.now = time.Now
	}
	if a.openStore == nil {
		a.openStore = backend.Open
	}

	root := &cobra.Command{
		Use:           "coursera-cli",
		Short:         "coursera-cli scrapes the Coursera catalog, exports it to CSV and uploads it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			a.flushMetrics()
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file to load when present")
	pf.StringVar(&a.catalogFile, "config", "", "YAML file overriding catalog endpoints (default $COURSERA_CATALOG_FILE)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (default $LOG_LEVEL or info)")
	pf.StringVar(&a.logFormat, "log-format", "", "text or json (default $LOG_FORMAT or text)")

	root.AddCommand(newCatalogCmd(a), newDetailsCmd(a), newUploadCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotenv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.catalogFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	a.cfg = cfg

	if a.out == nil {
		a.out = cmd.OutOrStdout()
	}
	a.runID = uuid.NewString()
	a.log = logging.New(cfg.LogLevel, cfg.LogFormat, a.out).WithField("run_id", a.runID)
	a.metrics = metrics.NewRecorder()
	return nil
}

func (a *app) flushMetrics() {
	if a.cfg.MetricsTextfile == "" || a.metrics == nil {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		a.log.WithError(err).Warn("could not write metrics textfile")
	}
}

func (a *app) httpClient() *http.Client {
	return &http.Client{Timeout: a.cfg.HTTPTimeout}
}

func (a *app) catalogClient() *coursera.CatalogClient {
	endpoints := make([]coursera.Endpoint, 0, len(a.cfg.CatalogEndpoints))
	for _, e := range a.cfg.CatalogEndpoints {
		endpoints = append(endpoints, coursera.Endpoint{URL: e.URL, Shape: e.Shape})
	}
	c := coursera.NewCatalogClient(endpoints, a.cfg.BrowseURL)
	c.UserAgent = a.cfg.UserAgent
	c.HTTP = a.httpClient()
	c.MaxRetries = a.cfg.MaxRetries
	c.Log = a.log
	c.Metrics = a.metrics
	return c
}

func (a *app) detailClient() *coursera.DetailClient {
	c := coursera.NewDetailClient(a.cfg.GatewayURL)
	c.UserAgent = a.cfg.UserAgent
	c.HTTP = a.httpClient()
	if a.cfg.GatewayRPS > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(a.cfg.GatewayRPS), 1)
	}
	c.Log = a.log
	c.Metrics = a.metrics
	return c
}

// parseLimit reads the optional positional limit. Anything that is not a
// positive integer falls back to the default with a warning.
func parseLimit(log logrus.FieldLogger, args []string, i int) int {
	if len(args) <= i {
		return defaultLimit
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n <= 0 {
		log.WithField("limit", args[i]).Warnf("invalid limit, using default %d", defaultLimit)
		return defaultLimit
	}
	return n
}

func ExecuteContext(ctx context.Context) {
	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
