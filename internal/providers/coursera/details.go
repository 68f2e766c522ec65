package coursera

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coursera-sync/internal/httpx"
	"coursera-sync/internal/logging"
	"coursera-sync/internal/metrics"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const cdpOperationName = "CDPPageQuery"

const cdpPageQuery = `
query CDPPageQuery($slug: String!) {
  XdpV1Resource {
    slug(productType: "COURSE", slug: $slug) {
      elements {
        name
        id
        slug
        xdpMetadata {
          ... on XdpV1_cdpMetadataMember {
            cdpMetadata {
              id
              avgLearningHoursAdjusted
              level
              certificates
              courseStatus
              domains {
                domainId
                domainName
                subdomainName
                subdomainId
              }
              primaryLanguages
              skills
              photoUrl
              name
              slug
              description
              workload
              partners {
                id
                name
                shortName
                logo
              }
              instructors {
                id
                fullName
                photo
                title
              }
              ratings {
                averageFiveStarRating
                ratingCount
                commentCount
              }
            }
          }
        }
      }
    }
  }
}`

type graphQLRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

// DetailClient queries the GraphQL gateway for a single course.
type DetailClient struct {
	GatewayURL string
	UserAgent  string
	HTTP       *http.Client

	// Limiter paces gateway requests across workers; nil means unpaced.
	Limiter *rate.Limiter

	Log     logrus.FieldLogger
	Metrics *metrics.Recorder

	breaker *gobreaker.CircuitBreaker
}

// gatewayFailureThreshold consecutive failures open the breaker; later
// requests in the same run are rejected locally until it half-opens.
const gatewayFailureThreshold = 5

func NewDetailClient(gatewayURL string) *DetailClient {
	c := &DetailClient{
		GatewayURL: gatewayURL,
		HTTP:       &http.Client{Timeout: 30 * time.Second},
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "graphql-gateway",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= gatewayFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log().WithFields(logrus.Fields{
				"circuit": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
	return c
}

// FetchCourseDetails returns the raw gateway response for slug. It makes a
// single request; any failure (including an open breaker) is returned as an
// error with a nil response.
func (c *DetailClient) FetchCourseDetails(ctx context.Context, slug string) (json.RawMessage, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, errors.New("coursera: empty course slug")
	}

	payload, err := json.Marshal(graphQLRequest{
		OperationName: cdpOperationName,
		Variables:     map[string]any{"slug": slug},
		Query:         cdpPageQuery,
	})
	if err != nil {
		return nil, fmt.Errorf("coursera: marshal gql request: %w", err)
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			c.Metrics.DetailRequest(metrics.OutcomeRejected)
			return nil, fmt.Errorf("coursera: details for %q: rate limit wait: %w", slug, err)
		}
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, slug, payload)
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			c.Metrics.DetailRequest(metrics.OutcomeRejected)
		default:
			c.Metrics.DetailRequest(metrics.OutcomeFailure)
		}
		c.log().WithError(err).WithField("slug", slug).Warn("course details request failed")
		return nil, fmt.Errorf("coursera: details for %q: %w", slug, err)
	}

	c.Metrics.DetailRequest(metrics.OutcomeSuccess)
	return res.(json.RawMessage), nil
}

func (c *DetailClient) post(ctx context.Context, slug string, payload []byte) (json.RawMessage, error) {
	_, body, err := httpx.Do(ctx, c.httpClient(), func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.GatewayURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		ua := c.UserAgent
		if ua == "" {
			ua = httpx.DefaultUserAgent
		}
		origin := c.origin()
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("Accept", "application/json")
		r.Header.Set("User-Agent", ua)
		r.Header.Set("Origin", origin)
		r.Header.Set("Referer", origin+"/learn/"+url.PathEscape(slug))
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("gateway returned invalid json: %s", httpx.Snippet(body, 200))
	}
	return json.RawMessage(body), nil
}

func (c *DetailClient) origin() string {
	u, err := url.Parse(c.GatewayURL)
	if err != nil || u.Host == "" {
		return "https://www.coursera.org"
	}
	return originOf(u)
}

func (c *DetailClient) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *DetailClient) log() logrus.FieldLogger {
	if c.Log == nil {
		return logging.Discard()
	}
	return c.Log
}
