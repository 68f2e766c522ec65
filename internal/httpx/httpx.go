package httpx

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
)

// maxBodySize caps how much of a response is buffered.
const maxBodySize = 10 * 1024 * 1024

// HTTPError carries status/body for non-2xx responses.
// Callers decide whether that means retry, fallback or give up.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %s %s status=%d body=%s", e.Method, e.URL, e.StatusCode, Snippet(e.Body, 900))
}

// Snippet trims b and cuts it to at most max bytes for logs and error
// messages, never inside a UTF-8 sequence.
func Snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

// Do executes a single request built by buildReq. It always reads the full
// (decoded) body so the connection can be reused, and turns non-2xx statuses
// into *HTTPError while still returning the response and body.
func Do(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
) (*http.Response, []byte, error) {
	req, err := buildReq(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("httpx: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("httpx: %s %s: %w", req.Method, req.URL.Redacted(), err)
	}

	body, err := ReadBody(resp)
	if err != nil {
		return resp, nil, fmt.Errorf("httpx: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, body, &HTTPError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		}
	}
	return resp, body, nil
}

// ReadBody reads and closes resp.Body, undoing any Content-Encoding the
// server applied. Needed because browser headers set Accept-Encoding
// explicitly, which turns off net/http's transparent gzip handling.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	return decode(strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))), raw)
}

func decode(encoding string, raw []byte) ([]byte, error) {
	var r io.Reader
	switch encoding {
	case "", "identity":
		return raw, nil
	case "br":
		r = brotli.NewReader(bytes.NewReader(raw))
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case "deflate":
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}

	out, err := io.ReadAll(io.LimitReader(r, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", encoding, err)
	}
	return out, nil
}
