// Package browser owns the lifecycle of the browser process and the tabs
// opened against it.
package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/verity-cli/internal/config"
	"github.com/xkilldash9x/verity-cli/internal/verr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// startupProbeTimeout bounds the about:blank responsiveness check after launch.
const startupProbeTimeout = 30 * time.Second

// Manager handles the lifecycle of the browser process. All page contexts
// are derived from its allocator context, so Shutdown tears everything down
// in one place.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// cdpURL is resolved lazily from the debugging port, if one was set.
	cdpURLOnce sync.Once
	cdpURL     string
	cdpURLErr  error

	// wg tracks open pages for a graceful shutdown.
	wg sync.WaitGroup
}

// NewManager launches the browser process and verifies it responds before
// returning.
func NewManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}
	if err := m.launch(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) launch(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...",
		zap.String("type", m.cfg.Browser.Type),
		zap.Bool("headless", m.cfg.Browser.Headless),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, m.buildAllocatorOptions()...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel

	// Confirm the browser actually starts and answers CDP before handing
	// the manager to callers.
	probeCtx, cancelProbe := context.WithTimeout(allocCtx, startupProbeTimeout)
	probeCtx, cancelProbeTab := chromedp.NewContext(probeCtx)
	defer cancelProbeTab()
	defer cancelProbe()

	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return verr.Wrap(verr.KindTimeout, "browser failed to start or respond", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// buildAllocatorOptions assembles launch flags from the defaults and the
// configuration.
func (m *Manager) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	return buildAllocatorOptions(m.cfg.Browser)
}

func buildAllocatorOptions(bc config.BrowserConfig) []chromedp.ExecAllocatorOption {
	var opts []chromedp.ExecAllocatorOption

	// Filter out the "enable-automation" flag so pages under test behave
	// the way they would for a human-driven browser. Overriding the flag to
	// false makes chromedp omit it from the command line entirely.
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("enable-automation", false))

	opts = append(opts,
		chromedp.Flag("headless", bc.Headless),
		chromedp.Flag("ignore-certificate-errors", bc.IgnoreTLSErrors),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", bc.Headless),
	)

	if bc.DebuggingPort > 0 {
		opts = append(opts, chromedp.Flag("remote-debugging-port", fmt.Sprintf("%d", bc.DebuggingPort)))
	}
	if w, h := bc.Viewport["width"], bc.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}

	// Custom arguments from config.yaml.
	for _, arg := range bc.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Flags required for running inside containers (e.g. Docker on Linux).
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// CDPURL returns the browser's websocket debugger endpoint, resolved through
// the devtools HTTP interface. Requires browser.debugging_port to be set;
// chromedp's default pipe transport does not expose a reconnectable endpoint.
func (m *Manager) CDPURL(ctx context.Context) (string, error) {
	m.cdpURLOnce.Do(func() {
		port := m.cfg.Browser.DebuggingPort
		if port <= 0 {
			m.cdpURLErr = verr.New(verr.KindSession,
				"session persistence requires browser.debugging_port")
			return
		}
		m.cdpURL, m.cdpURLErr = resolveWebSocketURL(ctx, port)
	})
	return m.cdpURL, m.cdpURLErr
}

func resolveWebSocketURL(ctx context.Context, port int) (string, error) {
	endpoint := fmt.Sprintf("http://127.0.0.1:%d/json/version", port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", verr.Session("building devtools version request", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", verr.Session("querying devtools version endpoint", err).With("endpoint", endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", verr.Session("reading devtools version response", err)
	}

	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.Unmarshal(body, &version); err != nil {
		return "", verr.Session("decoding devtools version response", err)
	}
	if version.WebSocketDebuggerURL == "" {
		return "", verr.New(verr.KindSession, "devtools version response has no webSocketDebuggerUrl")
	}
	return version.WebSocketDebuggerURL, nil
}

// NewPage opens a fresh tab. The page is tracked for shutdown; callers must
// Close it when done.
func (m *Manager) NewPage() (*Page, error) {
	tabCtx, cancelTab := chromedp.NewContext(m.allocatorCtx)

	// Force tab creation now so a dead browser surfaces here, not on the
	// first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		return nil, verr.Wrap(verr.KindSession, "opening browser tab", err)
	}

	m.wg.Add(1)
	return &Page{
		ctx:     tabCtx,
		cancel:  cancelTab,
		cfg:     m.cfg,
		logger:  m.logger.Named("page"),
		onClose: m.wg.Done,
	}, nil
}

// Shutdown waits for open pages to close, respecting the caller's deadline,
// then terminates the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated. Waiting for open pages...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		m.logger.Info("All pages closed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline reached with pages still open; terminating browser anyway.")
		err = verr.Timeout("waiting for pages during shutdown", ctx.Err())
	}

	if m.allocatorCancel != nil {
		m.allocatorCancel()
	}
	m.logger.Info("Browser process terminated.")
	return err
}
