package capture

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/config"
	"github.com/aleister1102/pendoc/internal/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// RodEngineConfig holds everything the browser engine needs for a run.
type RodEngineConfig struct {
	ChromePath    string
	Headless      bool
	PoolSize      int
	BrowserArgs   []string
	UserAgent     string
	ExtraHeaders  map[string]string
	FullPage      bool
	WaitAfterLoad time.Duration
	VerifySSL     bool
	// OutputDir is the base artifact references are made relative to.
	OutputDir     string
	ScreenshotDir string
}

// NewRodEngineConfig derives engine settings from the global config and run policy.
func NewRodEngineConfig(cfg *config.GlobalConfig, policy models.CapturePolicy) RodEngineConfig {
	poolSize := cfg.CaptureConfig.PoolSize
	if poolSize <= 0 {
		poolSize = policy.ConcurrentWorkers
	}
	return RodEngineConfig{
		ChromePath:    cfg.CaptureConfig.ChromePath,
		Headless:      cfg.CaptureConfig.Headless,
		PoolSize:      poolSize,
		BrowserArgs:   cfg.CaptureConfig.BrowserArgs,
		UserAgent:     policy.UserAgent,
		ExtraHeaders:  cfg.CaptureConfig.ExtraHeaders,
		FullPage:      policy.FullPage,
		WaitAfterLoad: policy.WaitAfterLoad,
		VerifySSL:     policy.VerifySSL,
		OutputDir:     cfg.OutputDir,
		ScreenshotDir: cfg.ScreenshotDir(),
	}
}

// RodEngine captures targets with a pooled headless Chromium.
type RodEngine struct {
	cfg         RodEngineConfig
	logger      zerolog.Logger
	limiter     *HostLimiter
	fileManager *common.FileManager

	mutex     sync.Mutex
	launcher  *launcher.Launcher
	browser   *rod.Browser
	pool      chan *rod.Browser
	isRunning bool
}

// NewRodEngine creates an engine; Start must be called before Capture.
func NewRodEngine(cfg RodEngineConfig, limiter *HostLimiter, logger zerolog.Logger) *RodEngine {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	return &RodEngine{
		cfg:         cfg,
		logger:      logger.With().Str("component", "RodEngine").Logger(),
		limiter:     limiter,
		fileManager: common.NewFileManager(logger),
		pool:        make(chan *rod.Browser, cfg.PoolSize),
	}
}

// Start launches the browser and fills the pool with incognito contexts. Failure wraps
// common.ErrCaptureEngineUnavailable.
func (e *RodEngine) Start(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.isRunning {
		return nil
	}

	l := launcher.New().
		Context(ctx).
		Headless(e.cfg.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-first-run").
		Set("disable-default-apps")

	if e.cfg.ChromePath != "" {
		l = l.Bin(e.cfg.ChromePath)
	}
	if !e.cfg.VerifySSL {
		l = l.Set("ignore-certificate-errors")
	}
	for _, arg := range e.cfg.BrowserArgs {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if hasValue {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: failed to launch browser: %v", common.ErrCaptureEngineUnavailable, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("%w: failed to connect browser: %v", common.ErrCaptureEngineUnavailable, err)
	}
	if !e.cfg.VerifySSL {
		if err := browser.IgnoreCertErrors(true); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to disable certificate verification")
		}
	}

	for i := 0; i < e.cfg.PoolSize; i++ {
		incognito, err := browser.Incognito()
		if err != nil {
			e.logger.Error().Err(err).Int("browser_index", i).Msg("Failed to create browser context")
			continue
		}
		e.pool <- incognito
	}
	if len(e.pool) == 0 {
		_ = browser.Close()
		l.Kill()
		return fmt.Errorf("%w: no browser context could be created", common.ErrCaptureEngineUnavailable)
	}

	e.launcher = l
	e.browser = browser
	e.isRunning = true
	e.logger.Info().Int("pool_size", len(e.pool)).Bool("headless", e.cfg.Headless).Msg("Capture engine started")
	return nil
}

// Stop closes every browser context, the browser and the launcher.
func (e *RodEngine) Stop() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.isRunning {
		return
	}

	for len(e.pool) > 0 {
		b := <-e.pool
		_ = b.Close()
	}

	if e.browser != nil {
		_ = e.browser.Close()
	}
	if e.launcher != nil {
		e.launcher.Cleanup()
	}

	e.isRunning = false
	e.logger.Info().Msg("Capture engine stopped")
}

// Capture navigates to the target, records the main document response and writes a PNG.
func (e *RodEngine) Capture(ctx context.Context, target models.CanonicalTarget, viewport models.Viewport, timeout time.Duration) (result *models.CaptureSuccess, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = models.NewCaptureError(models.CaptureErrOther, "capture engine panic: %v", r)
		}
	}()

	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	url := target.URL()
	log := e.logger.With().Str("url", url).Str("viewport", viewport.Name).Logger()

	if err := e.limiter.Wait(ctx, target.Host); err != nil {
		return nil, ClassifyError(err)
	}

	browser, err := e.acquire(ctx)
	if err != nil {
		return nil, ClassifyError(err)
	}
	defer e.release(browser)

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewCaptureError(models.CaptureErrOther, "failed to create page: %v", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Msg("Failed to close page")
		}
	}()
	pageCtx := page.Context(ctx)

	doc := &documentResponse{}
	wait := pageCtx.EachEvent(func(ev *proto.NetworkResponseReceived) {
		if ev.Type == proto.NetworkResourceTypeDocument && (ev.FrameID == "" || ev.FrameID == page.FrameID) {
			doc.record(ev.Response)
		}
	})
	go wait()

	if err := e.preparePage(pageCtx, viewport); err != nil {
		return nil, ClassifyError(err)
	}

	if err := pageCtx.Navigate(url); err != nil {
		return nil, ClassifyError(err)
	}
	if err := pageCtx.WaitLoad(); err != nil {
		return nil, ClassifyError(err)
	}

	if e.cfg.WaitAfterLoad > 0 {
		select {
		case <-ctx.Done():
			return nil, ClassifyError(ctx.Err())
		case <-time.After(e.cfg.WaitAfterLoad):
		}
	}

	info, err := pageCtx.Info()
	if err != nil {
		return nil, ClassifyError(err)
	}
	if strings.HasPrefix(info.URL, "chrome-error://") {
		return nil, models.NewCaptureError(models.CaptureErrOther, "navigation to %s ended on a browser error page", url)
	}

	html, err := pageCtx.HTML()
	if err != nil {
		return nil, ClassifyError(err)
	}

	png, err := pageCtx.Screenshot(e.cfg.FullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, ClassifyError(err)
	}

	artifactRef, err := e.writeArtifact(target, viewport, png, start)
	if err != nil {
		return nil, models.NewCaptureError(models.CaptureErrOther, "failed to store screenshot: %v", err)
	}

	status, headers := doc.snapshot()
	log.Debug().Int("status", status).Dur("elapsed", time.Since(start)).Msg("Captured target")

	return &models.CaptureSuccess{
		ArtifactRef: artifactRef,
		Artifacts:   map[string]string{viewport.Name: artifactRef},
		HTTPStatus:  status,
		Headers:     headers,
		PageTitle:   strings.TrimSpace(info.Title),
		TimingMs:    time.Since(start).Milliseconds(),
		FinalURL:    info.URL,
		Body:        html,
	}, nil
}

func (e *RodEngine) preparePage(page *rod.Page, viewport models.Viewport) error {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewport.Width,
		Height:            viewport.Height,
		DeviceScaleFactor: 1,
		Mobile:            viewport.Width < 600,
	}); err != nil {
		return fmt.Errorf("failed to set viewport: %w", err)
	}

	if e.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: e.cfg.UserAgent}); err != nil {
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	if len(e.cfg.ExtraHeaders) > 0 {
		dict := make([]string, 0, len(e.cfg.ExtraHeaders)*2)
		for k, v := range e.cfg.ExtraHeaders {
			dict = append(dict, k, v)
		}
		if _, err := page.SetExtraHeaders(dict); err != nil {
			return fmt.Errorf("failed to set extra headers: %w", err)
		}
	}

	return nil
}

func (e *RodEngine) acquire(ctx context.Context) (*rod.Browser, error) {
	e.mutex.Lock()
	running := e.isRunning
	e.mutex.Unlock()
	if !running {
		return nil, fmt.Errorf("%w: engine not started", common.ErrCaptureEngineUnavailable)
	}

	select {
	case b := <-e.pool:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *RodEngine) release(b *rod.Browser) {
	select {
	case e.pool <- b:
	default:
		_ = b.Close()
	}
}

func (e *RodEngine) writeArtifact(target models.CanonicalTarget, viewport models.Viewport, png []byte, at time.Time) (string, error) {
	path := ArtifactPath(e.cfg.ScreenshotDir, target, viewport.Name, at)
	if err := e.fileManager.EnsureDirectory(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := e.fileManager.WriteFileAtomic(path, png, 0o644); err != nil {
		return "", err
	}

	if e.cfg.OutputDir != "" {
		if rel, err := filepath.Rel(e.cfg.OutputDir, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel), nil
		}
	}
	return filepath.ToSlash(path), nil
}

// documentResponse holds the first main-frame document response of a navigation.
type documentResponse struct {
	mu      sync.Mutex
	seen    bool
	status  int
	headers map[string]string
}

func (d *documentResponse) record(resp *proto.NetworkResponse) {
	if resp == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen {
		return
	}
	d.seen = true
	d.status = resp.Status
	d.headers = make(map[string]string, len(resp.Headers))
	for k, v := range resp.Headers {
		d.headers[strings.ToLower(k)] = v.String()
	}
}

func (d *documentResponse) snapshot() (int, map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status, d.headers
}
