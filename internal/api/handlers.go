package api

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/Caia-Tech/sitemap-extractor/internal/fetch"
	"github.com/Caia-Tech/sitemap-extractor/internal/sitemap"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// Handlers contains the HTTP handlers for the API
type Handlers struct {
	fetcher  sitemap.Fetcher
	maxDepth int
}

// NewHandlers creates a new handlers instance. The fetcher should not have
// an interactive capturer: nobody is at the server's terminal. Every source
// the handlers resolve, nested ones included, must be remote.
func NewHandlers(fetcher sitemap.Fetcher, maxDepth int) *Handlers {
	return &Handlers{
		fetcher:  remoteOnly{next: fetcher},
		maxDepth: maxDepth,
	}
}

var errLocalSource = errors.New("local sources are not served")

// remoteOnly refuses filesystem sources, including child locs of a remote index.
type remoteOnly struct {
	next sitemap.Fetcher
}

func (r remoteOnly) Fetch(ctx context.Context, source string) (string, error) {
	if !fetch.IsRemote(source) {
		return "", &fetch.Error{Source: source, Kind: fetch.KindFetchFailed, Err: errLocalSource}
	}
	return r.next.Fetch(ctx, source)
}

// Health returns the service health status
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"service":   "sitemap-extractor",
		"version":   version,
		"timestamp": time.Now().UTC(),
	})
}

// ResolveRequest represents a sitemap resolution request
type ResolveRequest struct {
	Source        string `json:"source"`
	SkipMalformed bool   `json:"skip_malformed"`
}

// ResolveResponse represents the response for a resolution
type ResolveResponse struct {
	RunID    string            `json:"run_id"`
	Source   string            `json:"source"`
	Count    int               `json:"count"`
	URLs     []string          `json:"urls"`
	Warnings []sitemap.Warning `json:"warnings"`
	Fetched  int               `json:"fetched"`
	Duration string            `json:"duration"`
}

// Resolve expands a remote sitemap or sitemap index into its URLs
func (h *Handlers) Resolve(c *fiber.Ctx) error {
	var req ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}

	if err := validateSource(req.Source); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	resolver := sitemap.NewResolver(h.fetcher, &sitemap.Options{
		MaxDepth:      h.maxDepth,
		SkipMalformed: req.SkipMalformed,
	})

	result, err := resolver.Resolve(c.UserContext(), req.Source)
	if err != nil {
		var pe *sitemap.ParseError
		if errors.As(err, &pe) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":   "Malformed sitemap",
				"source":  pe.Source,
				"details": err.Error(),
			})
		}
		log.Error().Err(err).Str("source", req.Source).Msg("resolution failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Resolution failed",
			"details": err.Error(),
		})
	}

	resp := ResolveResponse{
		RunID:    result.RunID,
		Source:   result.Source,
		Count:    len(result.URLs),
		URLs:     result.URLs,
		Warnings: result.Warnings,
		Fetched:  result.Fetched,
		Duration: result.Duration.String(),
	}
	if resp.Warnings == nil {
		resp.Warnings = []sitemap.Warning{}
	}

	if resp.Count == 0 {
		return c.Status(fiber.StatusNotFound).JSON(resp)
	}
	return c.JSON(resp)
}

// validateSource only admits remote locators; the server must not read its
// own filesystem on behalf of clients.
func validateSource(source string) error {
	source = strings.TrimSpace(source)
	if source == "" {
		return errors.New("source is required")
	}
	if !fetch.IsRemote(source) {
		return errors.New("source must be an http or https URL")
	}
	u, err := url.Parse(source)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return errors.New("source URL has no host")
	}
	return nil
}
