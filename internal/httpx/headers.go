package httpx

import "net/http"

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// SetBrowserHeaders makes a request look like it came from the site's own
// frontend. The catalog endpoints reject obvious bots.
func SetBrowserHeaders(h http.Header, userAgent, origin, referer string) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Connection", "keep-alive")
	if origin != "" {
		h.Set("Origin", origin)
		h.Set("Sec-Fetch-Site", "same-origin")
	}
	if referer != "" {
		h.Set("Referer", referer)
	}
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
}
