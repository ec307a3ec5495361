package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Caia-Tech/sitemap-extractor/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

// Capturer retrieves a document through some other channel once automated
// retrieval has given up, typically a human-driven browser session.
type Capturer interface {
	Capture(ctx context.Context, source string) (string, error)
}

// SleepFunc pauses between attempts. It returns early with ctx's error.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config configures remote retrieval
type Config struct {
	MaxAttempts       int           `json:"max_attempts"`
	Timeout           time.Duration `json:"timeout"`
	BackoffMin        time.Duration `json:"backoff_min"`
	BackoffMax        time.Duration `json:"backoff_max"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	MaxBodySize       int64         `json:"max_body_size"`
}

// DefaultConfig returns default retrieval configuration
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:       3,
		Timeout:           15 * time.Second,
		BackoffMin:        2 * time.Second,
		BackoffMax:        5 * time.Second,
		RequestsPerSecond: 2,
		MaxBodySize:       50 * 1024 * 1024, // 50MB
	}
}

// Fetcher reads documents from local paths or remote locators.
type Fetcher struct {
	client     *http.Client
	config     *Config
	identities IdentityProvider
	capturer   Capturer
	limiter    *hostLimiter
	logger     zerolog.Logger

	// Sleep is used for backoff between attempts.
	Sleep SleepFunc

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewFetcher creates a fetcher. identities defaults to a RotatingIdentities
// over DefaultUserAgents; capturer may be nil to disable the fallback.
func NewFetcher(config *Config, identities IdentityProvider, capturer Capturer) *Fetcher {
	if config == nil {
		config = DefaultConfig()
	}
	if identities == nil {
		identities = NewRotatingIdentities(nil, nil)
	}

	// A jar keeps cookies set by challenge pages across attempts.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &Fetcher{
		client: &http.Client{
			Timeout: config.Timeout,
			Jar:     jar,
		},
		config:     config,
		identities: identities,
		capturer:   capturer,
		limiter:    newHostLimiter(config.RequestsPerSecond),
		logger:     logging.GetLogger("fetcher"),
		Sleep:      sleepContext,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// IsRemote reports whether source is a remote locator rather than a path.
func IsRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// LocalPath maps a local source identifier to a filesystem path.
func LocalPath(source string) string {
	if len(source) >= 7 && strings.EqualFold(source[:7], "file://") {
		return source[7:]
	}
	return source
}

// Fetch returns the document for source. Failures are always *Error.
func (f *Fetcher) Fetch(ctx context.Context, source string) (string, error) {
	if IsRemote(source) {
		return f.fetchRemote(ctx, source)
	}
	return f.fetchLocal(source)
}

func (f *Fetcher) fetchLocal(source string) (string, error) {
	data, err := os.ReadFile(LocalPath(source))
	if err != nil {
		kind := KindIO
		if errors.Is(err, fs.ErrNotExist) {
			kind = KindNotFound
		}
		return "", &Error{Source: source, Kind: kind, Err: err}
	}

	data, err = sniffGzip(data, f.config.MaxBodySize)
	if err != nil {
		return "", &Error{Source: source, Kind: KindIO, Err: err}
	}
	return string(data), nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, source string) (string, error) {
	attempts := f.config.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		content, err := f.attempt(ctx, source)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", &Error{Source: source, Kind: KindFetchFailed, Attempts: attempt, Err: ctx.Err()}
		}

		f.logger.Warn().
			Err(err).
			Str("source", source).
			Msgf("attempt %d/%d failed", attempt, attempts)

		if attempt < attempts {
			delay := f.backoff(attempt)
			f.logger.Debug().Dur("delay", delay).Str("source", source).Msg("backing off")
			if err := f.Sleep(ctx, delay); err != nil {
				return "", &Error{Source: source, Kind: KindFetchFailed, Attempts: attempt, Err: err}
			}
		}
	}

	if f.capturer != nil {
		f.logger.Info().Str("source", source).Msg("falling back to interactive browser capture")
		content, err := f.capturer.Capture(ctx, source)
		if err == nil {
			return content, nil
		}
		f.logger.Error().Err(err).Str("source", source).Msg("interactive capture failed")
		lastErr = fmt.Errorf("interactive capture: %w", err)
	}

	return "", &Error{Source: source, Kind: KindFetchFailed, Attempts: attempts, Err: lastErr}
}

// attempt performs one GET with a fresh identity.
func (f *Fetcher) attempt(ctx context.Context, source string) (string, error) {
	if err := f.limiter.Wait(ctx, source); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", err
	}
	identity := f.identities.Next()
	identity.Apply(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Debug().
			Int("status_code", resp.StatusCode).
			Str("user_agent", identity.UserAgent).
			Str("source", source).
			Msg("non-success response")
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	raw, err := readLimited(resp.Body, f.config.MaxBodySize)
	if err != nil {
		return "", err
	}
	data, err := decodeContent(raw, resp.Header.Get("Content-Encoding"), f.config.MaxBodySize)
	if err != nil {
		return "", err
	}
	data, err = sniffGzip(data, f.config.MaxBodySize)
	if err != nil {
		return "", err
	}

	f.logger.Debug().
		Str("source", source).
		Int("status_code", resp.StatusCode).
		Int("bytes", len(data)).
		Msg("fetched")

	return string(data), nil
}

// backoff returns a uniform delay in [BackoffMin, BackoffMax) scaled by the
// 1-based attempt number.
func (f *Fetcher) backoff(attempt int) time.Duration {
	base := f.config.BackoffMin
	if spread := f.config.BackoffMax - f.config.BackoffMin; spread > 0 {
		f.rngMu.Lock()
		base += time.Duration(f.rng.Int64N(int64(spread)))
		f.rngMu.Unlock()
	}
	return base * time.Duration(attempt)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
