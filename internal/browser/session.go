package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// session is one browser window driven through a capture.
type session interface {
	Start() error
	Navigate(source string, timeout time.Duration) error
	Content() (string, error)
	Close()
}

// captureScript serializes the page. Chromium's XML viewer keeps the source
// document as live nodes inside a container; those are serialized directly
// so CDATA sections survive.
const captureScript = `(() => {
  const serializer = new XMLSerializer();
  const viewer = document.getElementById('` + xmlViewerSourceID + `');
  if (viewer && viewer.childNodes.length > 0) {
    return Array.from(viewer.childNodes).map((n) => serializer.serializeToString(n)).join('');
  }
  return serializer.serializeToString(document);
})()`

type chromeSession struct {
	config      *Config
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

func newChromeSession(ctx context.Context, config *Config) session {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(config)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	return &chromeSession{
		config:      config,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}
}

func allocatorOptions(config *Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(config.UserAgent),
		chromedp.WindowSize(config.Width, config.Height),
	)
	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}
	return opts
}

// Start launches the browser and installs the stealth script for every
// document the tab loads.
func (s *chromeSession) Start() error {
	return chromedp.Run(s.tabCtx,
		chromedp.EmulateViewport(int64(s.config.Width), int64(s.config.Height)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	)
}

func (s *chromeSession) Navigate(source string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(source)); err != nil {
		return err
	}
	// Scrolling triggers lazy rendering; failures here do not matter.
	_ = chromedp.Run(s.tabCtx, chromedp.Evaluate(`window.scrollTo(0, document.body ? document.body.scrollHeight : 0)`, nil))
	return nil
}

func (s *chromeSession) Content() (string, error) {
	var content string
	err := chromedp.Run(s.tabCtx, chromedp.Evaluate(captureScript, &content))
	return content, err
}

// Close shuts the tab, then the browser process.
func (s *chromeSession) Close() {
	s.cancelTab()
	s.cancelAlloc()
}
