package sitemap

import (
	"context"
	"time"

	"github.com/Caia-Tech/sitemap-extractor/pkg/logging"
	"github.com/google/uuid"
)

// DefaultMaxDepth bounds how deep index documents may nest.
const DefaultMaxDepth = 20

// Fetcher retrieves the raw document for a source identifier.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (string, error)
}

// Options configures a Resolver
type Options struct {
	MaxDepth int `json:"max_depth"`
	// SkipMalformed downgrades a malformed document to a warning for its
	// branch instead of aborting the whole resolution.
	SkipMalformed bool `json:"skip_malformed"`
}

// DefaultOptions returns default resolver options
func DefaultOptions() *Options {
	return &Options{MaxDepth: DefaultMaxDepth}
}

// WarningKind classifies a non-fatal problem met during resolution.
type WarningKind string

const (
	WarnFetchFailed   WarningKind = "fetch_failed"
	WarnDepthExceeded WarningKind = "depth_exceeded"
	WarnParse         WarningKind = "parse_error"
)

// Warning records a branch that contributed no URLs.
type Warning struct {
	Source  string      `json:"source"`
	Kind    WarningKind `json:"kind"`
	Depth   int         `json:"depth"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

// Result is the outcome of one top-level resolution.
type Result struct {
	RunID    string        `json:"run_id"`
	Source   string        `json:"source"`
	URLs     []string      `json:"urls"`
	Warnings []Warning     `json:"warnings"`
	Fetched  int           `json:"fetched"`
	Indexes  int           `json:"indexes"`
	Leaves   int           `json:"leaves"`
	Duration time.Duration `json:"duration"`
}

// Resolver walks sitemap index trees.
type Resolver struct {
	fetcher Fetcher
	opts    *Options
}

// NewResolver creates a resolver on top of fetcher.
func NewResolver(fetcher Fetcher, opts *Options) *Resolver {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Resolver{fetcher: fetcher, opts: opts}
}

type pending struct {
	source string
	depth  int
}

// Resolve returns every leaf URL reachable from source, depth first in
// document order, duplicates preserved.
//
// Each source is fetched at most once per call: the visited set is shared by
// all branches. Fetch failures and over-deep indexes only add warnings. A
// malformed document aborts with a *ParseError unless SkipMalformed is set.
func (r *Resolver) Resolve(ctx context.Context, source string) (*Result, error) {
	start := time.Now()
	result := &Result{
		RunID:  uuid.New().String(),
		Source: source,
		URLs:   []string{},
	}
	logger := logging.GetResolveLogger(result.RunID, source)

	visited := make(map[string]struct{})
	stack := []pending{{source: source}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[item.source]; seen {
			logger.Debug().Str("source", item.source).Msg("already visited, skipping")
			continue
		}
		visited[item.source] = struct{}{}

		if item.depth > 0 {
			logger.Info().Str("source", item.source).Int("depth", item.depth).Msg("-> child sitemap")
		}

		content, err := r.fetcher.Fetch(ctx, item.source)
		if err != nil {
			logger.Warn().Err(err).Str("source", item.source).Msg("could not fetch sitemap")
			result.warn(item, WarnFetchFailed, err)
			continue
		}
		result.Fetched++

		node, err := ParseDocument(item.source, content)
		if err != nil {
			if !r.opts.SkipMalformed {
				logger.Error().Err(err).Str("source", item.source).Msg("malformed sitemap, aborting")
				return nil, err
			}
			logger.Warn().Err(err).Str("source", item.source).Msg("could not parse sitemap")
			result.warn(item, WarnParse, err)
			continue
		}

		if node.Kind == KindLeaf {
			result.Leaves++
			result.URLs = append(result.URLs, node.Locs...)
			logger.Debug().Str("source", item.source).Int("urls", len(node.Locs)).Msg("leaf sitemap")
			continue
		}

		if item.depth >= r.opts.MaxDepth {
			logger.Warn().Str("source", item.source).Int("depth", item.depth).Msg("max sitemap index depth reached")
			result.warn(item, WarnDepthExceeded, nil)
			continue
		}

		result.Indexes++
		logger.Info().
			Str("source", item.source).
			Int("children", len(node.Locs)).
			Msg("sitemap index detected, fetching child sitemaps")

		for i := len(node.Locs) - 1; i >= 0; i-- {
			stack = append(stack, pending{source: node.Locs[i], depth: item.depth + 1})
		}
	}

	result.Duration = time.Since(start)
	logger.Info().
		Int("urls", len(result.URLs)).
		Int("fetched", result.Fetched).
		Int("warnings", len(result.Warnings)).
		Dur("duration", result.Duration).
		Msg("resolution complete")

	return result, nil
}

func (res *Result) warn(item pending, kind WarningKind, err error) {
	w := Warning{Source: item.source, Kind: kind, Depth: item.depth, Err: err}
	switch {
	case err != nil:
		w.Message = err.Error()
	case kind == WarnDepthExceeded:
		w.Message = "max sitemap index depth reached"
	}
	res.Warnings = append(res.Warnings, w)
}
