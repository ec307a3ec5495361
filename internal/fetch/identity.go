package fetch

import (
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
)

// DefaultUserAgents is the rotation pool used when no other pool is configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
}

// Identity is the client fingerprint presented on one request attempt.
type Identity struct {
	UserAgent string
	Headers   http.Header
	Cookies   []*http.Cookie
}

// Apply sets the identity's headers and cookies on req.
func (id Identity) Apply(req *http.Request) {
	for key, values := range id.Headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("User-Agent", id.UserAgent)
	for _, c := range id.Cookies {
		req.AddCookie(c)
	}
}

// IdentityProvider hands out an identity per request attempt.
type IdentityProvider interface {
	Next() Identity
}

// RotatingIdentities picks a random user agent from its pool for every
// attempt and pairs it with browser-like headers and fresh session cookies.
type RotatingIdentities struct {
	agents []string
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewRotatingIdentities creates a provider over agents. An empty pool falls
// back to DefaultUserAgents; a nil rng is seeded randomly.
func NewRotatingIdentities(agents []string, rng *rand.Rand) *RotatingIdentities {
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RotatingIdentities{agents: agents, rng: rng}
}

func (r *RotatingIdentities) Next() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Identity{
		UserAgent: r.agents[r.rng.IntN(len(r.agents))],
		Headers:   browserHeaders(),
		Cookies: []*http.Cookie{
			{Name: "sessionid", Value: r.sixDigits()},
			{Name: "_ga", Value: r.sixDigits()},
			{Name: "_gid", Value: r.sixDigits()},
		},
	}
}

func (r *RotatingIdentities) sixDigits() string {
	return strconv.Itoa(100000 + r.rng.IntN(900000))
}

func browserHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("DNT", "1")
	h.Set("Referer", "https://www.google.com/")
	h.Set("Sec-Ch-Ua", `"Chromium";v="122", "Not:A-Brand";v="99"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "cross-site")
	h.Set("Sec-Fetch-User", "?1")
	return h
}

// StaticIdentity always returns the same identity.
type StaticIdentity Identity

func (s StaticIdentity) Next() Identity {
	return Identity(s)
}
