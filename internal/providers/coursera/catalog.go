package coursera

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"coursera-sync/internal/domain"
	"coursera-sync/internal/httpx"
	"coursera-sync/internal/logging"
	"coursera-sync/internal/mappers"
	"coursera-sync/internal/metrics"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	DefaultMaxRetries = 3
	DefaultLimit      = 20

	catalogFields = "name,slug,description,partnerIds,partners.v1(name),skills,workload,rating,certificates"
)

// Endpoint is a catalog API URL together with the response shape it is
// expected to produce.
type Endpoint struct {
	URL   string
	Shape domain.ResponseShape
}

// CatalogClient extracts course summaries by walking its endpoints in
// order, retrying each with exponential backoff, and finally scraping the
// browse page.
type CatalogClient struct {
	Endpoints []Endpoint
	BrowseURL string
	UserAgent string
	HTTP      *http.Client

	MaxRetries  int
	BackoffBase time.Duration
	Sleep       httpx.Sleeper

	Log     logrus.FieldLogger
	Metrics *metrics.Recorder
}

func NewCatalogClient(endpoints []Endpoint, browseURL string) *CatalogClient {
	return &CatalogClient{
		Endpoints:   endpoints,
		BrowseURL:   browseURL,
		HTTP:        &http.Client{Timeout: 30 * time.Second},
		MaxRetries:  DefaultMaxRetries,
		BackoffBase: time.Second,
		Sleep:       httpx.SleepContext,
	}
}

// ExtractCourses returns the first non-empty result from the catalog
// endpoints or, failing those, from the browse page. Total failure is an
// empty slice; it is never reported as an error. overrides replace the
// default query parameters key by key.
func (c *CatalogClient) ExtractCourses(ctx context.Context, limit int, overrides url.Values) []domain.CourseSummary {
	params := catalogParams(limit, overrides)
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	for _, ep := range c.Endpoints {
		label := endpointLabel(ep.URL)
		log := c.log().WithFields(logrus.Fields{"endpoint": ep.URL, "shape": ep.Shape})

		for attempt := 0; attempt < maxRetries; attempt++ {
			alog := log.WithField("attempt", attempt+1)
			alog.Infof("trying endpoint (attempt %d/%d)", attempt+1, maxRetries)

			courses, outcome, err := c.fetchEndpoint(ctx, ep, params, alog)
			c.Metrics.CatalogAttempt(label, outcome)

			if len(courses) > 0 {
				alog.WithField("count", len(courses)).Info("successfully extracted courses")
				c.Metrics.CatalogCourses(label, len(courses))
				return courses
			}
			if err != nil {
				alog.WithError(err).WithField("outcome", outcome).Warn("endpoint attempt failed")
			}

			if attempt == maxRetries-1 {
				log.Warnf("failed after %d attempts, moving to next endpoint", maxRetries)
				break
			}

			delay := httpx.ExponentialDelay(attempt, c.backoffBase())
			alog.WithField("delay", delay).Info("retrying after backoff")
			if err := c.sleep(ctx, delay); err != nil {
				log.WithError(err).Warn("extraction canceled during backoff")
				return []domain.CourseSummary{}
			}
		}
	}

	c.log().Warn("all API endpoints failed, trying to scrape course data from HTML")
	if courses := c.scrapeBrowsePage(ctx); len(courses) > 0 {
		return courses
	}

	c.log().Error("all extraction methods failed, could not retrieve course data")
	return []domain.CourseSummary{}
}

// fetchEndpoint performs one attempt. An empty result with a nil error means
// the response parsed but held no courses in the declared shape.
func (c *CatalogClient) fetchEndpoint(ctx context.Context, ep Endpoint, params url.Values, log logrus.FieldLogger) ([]domain.CourseSummary, string, error) {
	resp, body, err := httpx.Do(ctx, c.httpClient(), func(ctx context.Context) (*http.Request, error) {
		u, err := url.Parse(ep.URL)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		for k, vs := range params {
			q[k] = vs
		}
		u.RawQuery = q.Encode()

		r, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		origin := originOf(u)
		httpx.SetBrowserHeaders(r.Header, c.UserAgent, origin, origin+"/courses")
		return r, nil
	})
	if resp != nil {
		log.WithField("status", resp.StatusCode).Debug("response received")
	}
	if err != nil {
		var herr *httpx.HTTPError
		if errors.As(err, &herr) {
			return nil, metrics.OutcomeHTTPError, err
		}
		return nil, metrics.OutcomeNetwork, err
	}

	log.WithField("preview", httpx.Snippet(body, 100)).Debug("response preview")

	courses, err := mappers.ParseCourses(ep.Shape, body)
	if err != nil {
		log.WithField("raw", httpx.Snippet(body, 200)).Debug("unparseable response")
		return nil, metrics.OutcomeParse, err
	}
	if len(courses) == 0 {
		log.WithField("response_keys", topLevelKeys(body)).Warn("no courses found in response data structure")
		return nil, metrics.OutcomeEmpty, nil
	}
	return courses, metrics.OutcomeSuccess, nil
}

func catalogParams(limit int, overrides url.Values) url.Values {
	if limit <= 0 {
		limit = DefaultLimit
	}
	params := url.Values{
		"start":  {"0"},
		"limit":  {strconv.Itoa(limit)},
		"query":  {""},
		"sort":   {"relevance"},
		"fields": {catalogFields},
	}
	for k, vs := range overrides {
		params[k] = vs
	}
	return params
}

func topLevelKeys(body []byte) []string {
	var keys []string
	gjson.ParseBytes(body).ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	return keys
}

func originOf(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// endpointLabel keeps metric label cardinality tied to the API name.
func endpointLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	return path.Base(u.Path)
}

func (c *CatalogClient) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *CatalogClient) backoffBase() time.Duration {
	if c.BackoffBase <= 0 {
		return time.Second
	}
	return c.BackoffBase
}

func (c *CatalogClient) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep == nil {
		return httpx.SleepContext(ctx, d)
	}
	return c.Sleep(ctx, d)
}

func (c *CatalogClient) log() logrus.FieldLogger {
	if c.Log == nil {
		return logging.Discard()
	}
	return c.Log
}
