package browser

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Caia-Tech/sitemap-extractor/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ fetch.Capturer = (*Capturer)(nil)

func TestUnwrap(t *testing.T) {
	raw := `<?xml version="1.0"?><urlset><url><loc>https://a.test/</loc></url></urlset>`

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "plain xml untouched",
			content: raw,
			want:    raw,
		},
		{
			name: "chromium xml viewer",
			content: `<html><head></head><body><div id="webkit-xml-viewer-source-xml">` +
				`<urlset><url><loc>https://a.test/</loc></url></urlset>` +
				`</div><div class="header">This XML file does not appear to have any style information</div></body></html>`,
			want: `<urlset><url><loc>https://a.test/</loc></url></urlset>`,
		},
		{
			name: "chromium xml viewer with cdata",
			content: `<html><head></head><body><div id="webkit-xml-viewer-source-xml">` +
				`<urlset><url><loc><![CDATA[https://a.test/?a=1&b=2]]></loc></url></urlset>` +
				`</div></body></html>`,
			want: `<urlset><url><loc>https://a.test/?a=1&amp;b=2</loc></url></urlset>`,
		},
		{
			name:    "escaped xml in pre",
			content: `<!DOCTYPE html><html><body><pre>&lt;urlset&gt;&lt;url&gt;&lt;loc&gt;https://a.test/&lt;/loc&gt;&lt;/url&gt;&lt;/urlset&gt;</pre></body></html>`,
			want:    `<urlset><url><loc>https://a.test/</loc></url></urlset>`,
		},
		{
			name:    "ordinary html page untouched",
			content: `<html><body><p>Access denied</p></body></html>`,
			want:    `<html><body><p>Access denied</p></body></html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unwrap(tt.content))
		})
	}
}

func TestTerminalConfirmer(t *testing.T) {
	t.Run("enter confirms", func(t *testing.T) {
		var out bytes.Buffer
		c := &TerminalConfirmer{In: strings.NewReader("\n"), Out: &out}
		require.NoError(t, c.Confirm(context.Background(), "press enter"))
		assert.Contains(t, out.String(), "press enter")
	})

	t.Run("closed input fails", func(t *testing.T) {
		c := &TerminalConfirmer{In: strings.NewReader(""), Out: io.Discard}
		err := c.Confirm(context.Background(), "press enter")
		require.Error(t, err)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("context cancels the wait", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer pw.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		c := &TerminalConfirmer{In: pr, Out: io.Discard}
		err := c.Confirm(ctx, "press enter")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("lines typed ahead serve later calls", func(t *testing.T) {
		c := &TerminalConfirmer{In: strings.NewReader("\n\n"), Out: io.Discard}
		require.NoError(t, c.Confirm(context.Background(), "first"))
		require.NoError(t, c.Confirm(context.Background(), "second"))
		assert.ErrorIs(t, c.Confirm(context.Background(), "third"), io.EOF)
	})

	t.Run("abandoned read carries over", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer pw.Close()

		c := &TerminalConfirmer{In: pr, Out: io.Discard}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, c.Confirm(ctx, "first"), context.DeadlineExceeded)

		go pw.Write([]byte("\n"))
		require.NoError(t, c.Confirm(context.Background(), "second"))
	})
}

func TestConfirmFunc(t *testing.T) {
	var got string
	c := ConfirmFunc(func(ctx context.Context, prompt string) error {
		got = prompt
		return nil
	})
	require.NoError(t, c.Confirm(context.Background(), "ready?"))
	assert.Equal(t, "ready?", got)
}

func TestStealthScript(t *testing.T) {
	script := StealthScript()
	for _, marker := range []string{"webdriver", "getImageData", "37445", "getChannelData", "permissions", "outerWidth"} {
		assert.Contains(t, script, marker)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Contains(t, cfg.UserAgent, "Googlebot")
	assert.False(t, cfg.Headless)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 800, cfg.Height)
}

type fakeSession struct {
	steps       []string
	startErr    error
	navigateErr error
	content     string
	contentErr  error
	closed      bool
}

func (f *fakeSession) Start() error {
	f.steps = append(f.steps, "start")
	return f.startErr
}

func (f *fakeSession) Navigate(source string, timeout time.Duration) error {
	f.steps = append(f.steps, "navigate "+source)
	return f.navigateErr
}

func (f *fakeSession) Content() (string, error) {
	f.steps = append(f.steps, "content")
	return f.content, f.contentErr
}

func (f *fakeSession) Close() {
	f.closed = true
}

func TestCapturer_Capture(t *testing.T) {
	const source = "https://a.test/sitemap.xml"
	leaf := `<urlset><url><loc>https://a.test/</loc></url></urlset>`

	tests := []struct {
		name       string
		session    *fakeSession
		confirmErr error
		want       string
		wantErr    string
		wantSteps  []string
		confirmed  bool
	}{
		{
			name:      "captures after confirmation",
			session:   &fakeSession{content: leaf},
			want:      leaf,
			wantSteps: []string{"start", "navigate " + source, "content"},
			confirmed: true,
		},
		{
			name:      "navigation failure still waits for the operator",
			session:   &fakeSession{navigateErr: context.DeadlineExceeded, content: leaf},
			want:      leaf,
			wantSteps: []string{"start", "navigate " + source, "content"},
			confirmed: true,
		},
		{
			name:      "start failure",
			session:   &fakeSession{startErr: errors.New("no chrome")},
			wantErr:   "start browser",
			wantSteps: []string{"start"},
		},
		{
			name:       "confirmation failure skips capture",
			session:    &fakeSession{content: leaf},
			confirmErr: io.EOF,
			wantErr:    "waiting for confirmation",
			wantSteps:  []string{"start", "navigate " + source},
			confirmed:  true,
		},
		{
			name:      "capture failure",
			session:   &fakeSession{contentErr: errors.New("target closed")},
			wantErr:   "capture page content",
			wantSteps: []string{"start", "navigate " + source, "content"},
			confirmed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confirmed := false
			confirmer := ConfirmFunc(func(ctx context.Context, prompt string) error {
				confirmed = true
				return tt.confirmErr
			})

			c := NewCapturer(nil, confirmer, io.Discard)
			c.newSession = func(ctx context.Context, config *Config) session {
				return tt.session
			}

			got, err := c.Capture(context.Background(), source)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.wantSteps, tt.session.steps)
			assert.Equal(t, tt.confirmed, confirmed)
			assert.True(t, tt.session.closed, "browser left open")
		})
	}
}

func TestCaptureScript(t *testing.T) {
	assert.Contains(t, captureScript, xmlViewerSourceID)
	assert.Contains(t, captureScript, "XMLSerializer")
}
