package coursera

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"coursera-sync/internal/domain"
	"coursera-sync/internal/httpx"
	"coursera-sync/internal/mappers"
	"coursera-sync/internal/metrics"

	"github.com/PuerkitoBio/goquery"
)

// initialStateSelector matches the script tag the browse page embeds its
// state in. The page layout is not a contract; this is best effort.
const initialStateSelector = `script#initialState[type="application/json"]`

const fallbackLabel = "html_fallback"

// scrapeBrowsePage is the last resort: fetch the browse page and map the
// courses embedded in its initialState blob.
func (c *CatalogClient) scrapeBrowsePage(ctx context.Context) []domain.CourseSummary {
	if c.BrowseURL == "" {
		return nil
	}
	log := c.log().WithField("url", c.BrowseURL)
	log.Info("fetching HTML browse page")

	_, body, err := httpx.Do(ctx, c.httpClient(), func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BrowseURL, nil)
		if err != nil {
			return nil, err
		}
		ua := c.UserAgent
		if ua == "" {
			ua = httpx.DefaultUserAgent
		}
		r.Header.Set("User-Agent", ua)
		return r, nil
	})
	if err != nil {
		var herr *httpx.HTTPError
		outcome := metrics.OutcomeNetwork
		if errors.As(err, &herr) {
			outcome = metrics.OutcomeHTTPError
		}
		c.Metrics.CatalogAttempt(fallbackLabel, outcome)
		log.WithError(err).Warn("failed to fetch browse page")
		return nil
	}

	state, ok := extractInitialState(body)
	if !ok {
		c.Metrics.CatalogAttempt(fallbackLabel, metrics.OutcomeEmpty)
		log.Warn("could not find initialState JSON in the HTML")
		return nil
	}

	courses, err := mappers.ParseCourses(domain.ShapeInitialState, state)
	if err != nil {
		c.Metrics.CatalogAttempt(fallbackLabel, metrics.OutcomeParse)
		log.WithError(err).Warn("error parsing JSON from HTML")
		return nil
	}
	if len(courses) == 0 {
		c.Metrics.CatalogAttempt(fallbackLabel, metrics.OutcomeEmpty)
		log.Warn("could not find course data in the initialState JSON")
		return nil
	}

	c.Metrics.CatalogAttempt(fallbackLabel, metrics.OutcomeSuccess)
	c.Metrics.CatalogCourses(fallbackLabel, len(courses))
	log.WithField("count", len(courses)).Info("successfully extracted courses from HTML")
	return courses
}

func extractInitialState(html []byte) ([]byte, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, false
	}
	sel := doc.Find(initialStateSelector).First()
	if sel.Length() == 0 {
		return nil, false
	}
	text := bytes.TrimSpace([]byte(sel.Text()))
	if len(text) == 0 {
		return nil, false
	}
	return text, true
}
