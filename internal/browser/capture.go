// Package browser implements the interactive capture fallback: a visible
// Chromium window a human can use to get past challenges before the page
// content is taken as the sitemap document.
package browser

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Caia-Tech/sitemap-extractor/pkg/logging"
	"github.com/rs/zerolog"
)

const confirmPrompt = "[Action required] When the sitemap is fully loaded and visible in the browser, press Enter here to capture the content..."

// Config configures the capture session
type Config struct {
	UserAgent         string        `json:"user_agent"`
	Width             int           `json:"width"`
	Height            int           `json:"height"`
	NavigationTimeout time.Duration `json:"navigation_timeout"`
	Headless          bool          `json:"headless"`
	ExecPath          string        `json:"exec_path"`
}

// DefaultConfig returns a visible 1280x800 session that identifies as Googlebot.
func DefaultConfig() *Config {
	return &Config{
		UserAgent:         "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		Width:             1280,
		Height:            800,
		NavigationTimeout: 30 * time.Second,
	}
}

// Capturer opens one browser session per Capture call.
type Capturer struct {
	config     *Config
	confirmer  Confirmer
	out        io.Writer
	logger     zerolog.Logger
	newSession func(ctx context.Context, config *Config) session
}

// NewCapturer creates a capturer. Instructions for the operator go to out.
func NewCapturer(config *Config, confirmer Confirmer, out io.Writer) *Capturer {
	if config == nil {
		config = DefaultConfig()
	}
	if out == nil {
		out = io.Discard
	}
	return &Capturer{
		config:     config,
		confirmer:  confirmer,
		out:        out,
		logger:     logging.GetLogger("browser"),
		newSession: newChromeSession,
	}
}

// Capture navigates to source, waits for the operator and returns the
// rendered document. The browser is closed before Capture returns.
func (c *Capturer) Capture(ctx context.Context, source string) (string, error) {
	fmt.Fprintf(c.out, "A Chromium window will open for %s. Solve any challenge in it (captcha, reload, scroll), then come back here.\n", source)

	s := c.newSession(ctx, c.config)
	defer s.Close()

	if err := s.Start(); err != nil {
		return "", fmt.Errorf("start browser: %w", err)
	}

	if err := s.Navigate(source, c.config.NavigationTimeout); err != nil {
		c.logger.Warn().Err(err).Str("source", source).Msg("browser navigation failed")
		fmt.Fprintln(c.out, "Navigation failed. The browser stays open: reload the page or interact with it as needed.")
	}

	if err := c.confirmer.Confirm(ctx, confirmPrompt); err != nil {
		return "", fmt.Errorf("waiting for confirmation: %w", err)
	}

	content, err := s.Content()
	if err != nil {
		fmt.Fprintln(c.out, "Could not capture the page. If the sitemap is visible in the browser, save it manually and run again on the local file.")
		return "", fmt.Errorf("capture page content: %w", err)
	}

	c.logger.Info().Str("source", source).Int("bytes", len(content)).Msg("captured page content")
	return Unwrap(content), nil
}
