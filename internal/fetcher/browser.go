package fetcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/pagewatch/internal/config"
	"github.com/aleister1102/pagewatch/internal/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// BrowserFetcher renders pages in a shared headless browser and extracts
// snapshots from the rendered DOM. One instance is shared by all workers;
// each fetch opens its own page.
type BrowserFetcher struct {
	config    config.FetcherConfig
	logger    zerolog.Logger
	extractor *SnapshotExtractor

	mutex     sync.Mutex
	launcher  *launcher.Launcher
	browser   *rod.Browser
	isRunning bool
}

// NewBrowserFetcher creates a new browser fetcher. Start must be called
// before the first Fetch.
func NewBrowserFetcher(cfg config.FetcherConfig, logger zerolog.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		config:    cfg,
		logger:    logger.With().Str("component", "BrowserFetcher").Logger(),
		extractor: NewSnapshotExtractor(logger),
	}
}

// Start launches the headless browser.
func (bf *BrowserFetcher) Start() error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.isRunning {
		return nil
	}

	l := launcher.New().
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-first-run").
		Set("disable-default-apps").
		Set("disable-sync")

	if bf.config.ChromePath != "" {
		l = l.Bin(bf.config.ChromePath)
	}
	if bf.config.UserDataDir != "" {
		l = l.UserDataDir(bf.config.UserDataDir)
	}
	if bf.config.DisableImages {
		l = l.Set("blink-settings", "imagesEnabled=false")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return NewFetchError(FetchErrorRenderFailure, "", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return NewFetchError(FetchErrorRenderFailure, "", err)
	}

	bf.launcher = l
	bf.browser = browser
	bf.isRunning = true
	bf.logger.Info().Msg("Headless browser started")
	return nil
}

// Stop closes the browser and cleans up the launcher.
func (bf *BrowserFetcher) Stop() {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if !bf.isRunning {
		return
	}
	if bf.browser != nil {
		_ = bf.browser.Close()
	}
	if bf.launcher != nil {
		bf.launcher.Cleanup()
	}
	bf.isRunning = false
	bf.logger.Info().Msg("Headless browser stopped")
}

// Fetch renders the page and extracts a snapshot. Failures are classified
// FetchErrors; ctx cancellation aborts the render.
func (bf *BrowserFetcher) Fetch(ctx context.Context, url string) (*models.PageSnapshot, error) {
	bf.mutex.Lock()
	browser := bf.browser
	running := bf.isRunning
	bf.mutex.Unlock()

	if !running {
		return nil, NewFetchError(FetchErrorRenderFailure, url, errors.New("browser fetcher not started"))
	}

	html, err := bf.renderPage(ctx, browser, url)
	if err != nil {
		return nil, bf.classifyError(ctx, url, err)
	}

	snapshot, err := bf.extractor.Extract(url, html, time.Now())
	if err != nil {
		return nil, NewFetchError(FetchErrorRenderFailure, url, err)
	}
	return snapshot, nil
}

func (bf *BrowserFetcher) renderPage(ctx context.Context, browser *rod.Browser, url string) (html string, err error) {
	// rod panics on protocol errors; confine that behavior here.
	defer func() {
		if r := recover(); r != nil {
			if recovered, ok := r.(error); ok {
				err = recovered
			} else {
				err = errors.New("browser render panicked")
			}
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", err
	}
	defer func() { _ = page.Close() }()

	page = page.Context(ctx).Timeout(bf.config.PageTimeout())

	if err := page.Navigate(url); err != nil {
		return "", err
	}
	if err := page.WaitLoad(); err != nil {
		return "", err
	}

	return page.HTML()
}

func (bf *BrowserFetcher) classifyError(ctx context.Context, url string, err error) error {
	kind := FetchErrorRenderFailure
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = FetchErrorTimeout
	case ctx.Err() != nil:
		// Cancelled from outside; surface the context error unchanged so the
		// worker can tell cancellation apart from a page failure.
		return ctx.Err()
	case isConnectionError(err):
		kind = FetchErrorUnreachable
	}

	bf.logger.Debug().Err(err).Str("url", url).Str("kind", string(kind)).Msg("Page fetch failed")
	return NewFetchError(kind, url, err)
}

func isConnectionError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{
		"ERR_NAME_NOT_RESOLVED",
		"ERR_CONNECTION_REFUSED",
		"ERR_ADDRESS_UNREACHABLE",
		"ERR_INTERNET_DISCONNECTED",
		"net::",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
