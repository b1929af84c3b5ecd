package session

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// validateTimeout bounds the connection probe; a dead endpoint should fail
// fast rather than consume the navigation budget.
const validateTimeout = 5 * time.Second

// Handle is a live attachment to a previously saved browser. Close detaches
// from the browser without terminating it, so the session stays restorable.
type Handle struct {
	Info Info
	// Ctx is the chromedp tab context for issuing actions.
	Ctx context.Context

	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// Close detaches from the remote browser. Idempotent.
func (h *Handle) Close() {
	if h.cancelTab != nil {
		h.cancelTab()
		h.cancelTab = nil
	}
	if h.cancelAlloc != nil {
		h.cancelAlloc()
		h.cancelAlloc = nil
	}
}

// Manager combines the on-disk store with CDP attach/detach.
type Manager struct {
	store  *Store
	logger *zap.Logger
}

// NewManager wraps a store.
func NewManager(store *Store, logger *zap.Logger) *Manager {
	return &Manager{store: store, logger: logger.Named("session_manager")}
}

// Store exposes the underlying file store.
func (m *Manager) Store() *Store { return m.store }

// Save records a reconnectable session. pageCtx must be a live chromedp tab
// context; the current URL and title are captured into the metadata so a
// human can tell sessions apart later.
func (m *Manager) Save(pageCtx context.Context, name, cdpURL, browserType string, metadata map[string]string) (Info, error) {
	if metadata == nil {
		metadata = make(map[string]string)
	}

	var url, title string
	if err := chromedp.Run(pageCtx, chromedp.Location(&url), chromedp.Title(&title)); err != nil {
		// A page that cannot report its location is still attachable later;
		// record the session without the convenience metadata.
		m.logger.Warn("Could not capture page state for session metadata", zap.Error(err))
	} else {
		metadata["url"] = url
		metadata["title"] = title
	}

	now := time.Now().UTC()
	info := Info{
		SessionID:    name,
		CDPURL:       cdpURL,
		BrowserType:  browserType,
		CreatedAt:    now,
		LastAccessed: now,
		Metadata:     metadata,
	}

	if err := m.store.Save(info); err != nil {
		return Info{}, err
	}
	return info, nil
}

// Restore attaches to the browser recorded under name and returns a live
// tab handle. The caller owns the handle and must Close it. Missing file
// and unreachable endpoint are both session errors; only the former wraps
// ErrSessionNotFound.
func (m *Manager) Restore(ctx context.Context, name string) (*Handle, error) {
	info, err := m.store.Get(name)
	if err != nil {
		return nil, err
	}

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, info.CDPURL)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// An empty Run forces the websocket dial, surfacing a dead endpoint now
	// instead of on the first action.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, verr.Session("connecting to recorded endpoint", err).
			With("name", name).
			With("cdp_url", info.CDPURL)
	}

	info.LastAccessed = time.Now().UTC()
	if err := m.store.Save(info); err != nil {
		m.logger.Warn("Could not bump last_accessed on restore", zap.Error(err))
	}

	m.logger.Info("Session restored",
		zap.String("session_id", name),
		zap.String("cdp_url", info.CDPURL),
	)
	return &Handle{Info: info, Ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}, nil
}

// Validate reports whether the session file exists AND the recorded
// endpoint still accepts connections.
func (m *Manager) Validate(ctx context.Context, name string) bool {
	info, err := m.store.Get(name)
	if err != nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(probeCtx, info.CDPURL)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	return chromedp.Run(tabCtx) == nil
}
