package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mgcaisse/caisse/config"
)

// Request classes, evaluated in order; first match wins.
const (
	classShell   = "shell"
	classAPI     = "api"
	classDefault = "default"
)

// Gateway intercepts every outbound resource fetch of the application shell
// and answers from cache, network or a fallback so the shell stays usable
// with zero connectivity. It is unaware of application data.
type Gateway struct {
	cfg      config.GatewayConfig
	cache    *Cache
	client   *http.Client
	group    singleflight.Group
	manifest map[string]bool

	hits   int64
	misses int64
}

func NewGateway(cfg config.GatewayConfig, cache *Cache) *Gateway {
	manifest := make(map[string]bool, len(cfg.ShellManifest))
	for _, path := range cfg.ShellManifest {
		manifest[path] = true
	}
	return &Gateway{
		cfg:   cfg,
		cache: cache,
		// Proxy timeouts lean on the transport, no internal deadlines.
		client:   &http.Client{Timeout: 30 * time.Second},
		manifest: manifest,
	}
}

// StaticGeneration is the immutable shell asset generation of this revision.
func (g *Gateway) StaticGeneration() string {
	return "static-" + g.cfg.Revision
}

// DynamicGeneration is the runtime-fetched resource generation of this
// revision.
func (g *Gateway) DynamicGeneration() string {
	return "dynamic-" + g.cfg.Revision
}

// Activate creates the current generation pair and purges every older one.
func (g *Gateway) Activate() error {
	return g.cache.Activate(g.StaticGeneration(), g.DynamicGeneration())
}

// Stats returns cache hit/miss counters since start.
func (g *Gateway) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&g.hits), atomic.LoadInt64(&g.misses)
}

// Register mounts the interception handler on an echo instance.
func (g *Gateway) Register(e *echo.Echo) {
	e.GET("/gateway/revision", g.handleRevision)
	e.Any("/*", g.Handle)
}

// handleRevision lets the shell detect a new deployment.
func (g *Gateway) handleRevision(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"revision": g.cfg.Revision,
		"static":   g.StaticGeneration(),
		"dynamic":  g.DynamicGeneration(),
	})
}

func (g *Gateway) classify(req *http.Request) string {
	path := req.URL.Path
	if g.manifest[path] ||
		strings.Contains(path, "/assets/") ||
		strings.HasSuffix(path, ".js") ||
		strings.HasSuffix(path, ".css") ||
		strings.HasSuffix(path, ".html") {
		return classShell
	}
	if strings.Contains(req.URL.String(), "/api/") || strings.Contains(req.URL.Host, "identity") {
		return classAPI
	}
	return classDefault
}

// Handle applies the per-class caching strategy to one request.
func (g *Gateway) Handle(c echo.Context) error {
	req := c.Request()
	switch g.classify(req) {
	case classShell:
		return g.cacheFirst(c, true)
	case classAPI:
		return g.networkFirst(c)
	default:
		return g.cacheFirst(c, false)
	}
}

// cacheFirst serves the cached copy when present, otherwise fetches and,
// when store is set, keeps a copy in the static generation. A failed fetch
// degrades to the cached shell document for HTML navigations.
func (g *Gateway) cacheFirst(c echo.Context, store bool) error {
	req := c.Request()
	key := cacheKey(req)

	if cached, err := g.cache.Get(g.StaticGeneration(), key); err == nil && cached != nil {
		atomic.AddInt64(&g.hits, 1)
		return writeCached(c, cached)
	}
	atomic.AddInt64(&g.misses, 1)

	// Concurrent misses on the same asset share a single upstream fetch.
	v, err, _ := g.group.Do(key, func() (interface{}, error) {
		resp, err := g.fetch(req)
		if err != nil {
			return nil, err
		}
		if store {
			if err := g.cache.Put(g.StaticGeneration(), key, resp); err != nil {
				zap.S().Warnf("failed to store shell asset %s: %s", key, err)
			}
		}
		return resp, nil
	})
	if err != nil {
		return g.offlineFallback(c)
	}
	return writeCached(c, v.(*CachedResponse))
}

// networkFirst always tries the network, opportunistically storing a copy in
// the dynamic generation, and degrades to the last stored copy on failure.
func (g *Gateway) networkFirst(c echo.Context) error {
	req := c.Request()
	key := cacheKey(req)

	resp, err := g.fetch(req)
	if err == nil {
		if resp.Status < http.StatusBadRequest {
			if err := g.cache.Put(g.DynamicGeneration(), key, resp); err != nil {
				zap.S().Warnf("failed to store dynamic copy %s: %s", key, err)
			}
		}
		return writeCached(c, resp)
	}

	if cached, cerr := g.cache.Get(g.DynamicGeneration(), key); cerr == nil && cached != nil {
		atomic.AddInt64(&g.hits, 1)
		return writeCached(c, cached)
	}
	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "remote service unreachable and no cached copy available",
	})
}

// offlineFallback substitutes the cached shell document for HTML navigations
// and a synthetic unavailable response for everything else.
func (g *Gateway) offlineFallback(c echo.Context) error {
	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML) {
		key := "GET " + g.cfg.ShellDocument
		if cached, err := g.cache.Get(g.StaticGeneration(), key); err == nil && cached != nil {
			return writeCached(c, cached)
		}
	}
	return c.String(http.StatusServiceUnavailable, "resource unavailable offline")
}

// fetch proxies the request to the configured origin and snapshots the
// response.
func (g *Gateway) fetch(req *http.Request) (*CachedResponse, error) {
	origin, err := url.Parse(g.cfg.Origin)
	if err != nil {
		return nil, errors.Wrap(err, "parse origin")
	}

	target := *req.URL
	target.Scheme = origin.Scheme
	target.Host = origin.Host

	var body io.Reader
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, "read request body")
		}
		body = bytes.NewReader(data)
	}

	upstream, err := http.NewRequestWithContext(req.Context(), req.Method, target.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "build upstream request")
	}
	upstream.Header = req.Header.Clone()

	resp, err := g.client.Do(upstream)
	if err != nil {
		return nil, errors.Wrap(err, "fetch upstream")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read upstream body")
	}
	return &CachedResponse{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   data,
	}, nil
}

// Precache warms the static generation with the shell manifest, fetching
// assets concurrently. Individual failures are logged and skipped, the shell
// simply fills in on first online visit.
func (g *Gateway) Precache(ctx context.Context) {
	pool, err := ants.NewPool(4)
	if err != nil {
		zap.S().Errorf("precache pool init failed: %s", err)
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, path := range g.cfg.ShellManifest {
		path := path
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
			if err != nil {
				return
			}
			key := cacheKey(req)
			if cached, err := g.cache.Get(g.StaticGeneration(), key); err == nil && cached != nil {
				return
			}
			resp, err := g.fetch(req)
			if err != nil {
				zap.S().Warnf("precache skipped %s: %s", path, err)
				return
			}
			if err := g.cache.Put(g.StaticGeneration(), key, resp); err != nil {
				zap.S().Warnf("precache store failed %s: %s", path, err)
			}
		}); err != nil {
			wg.Done()
			zap.S().Warnf("precache submit failed %s: %s", path, err)
		}
	}
	wg.Wait()
}

// cacheKey identifies a request by method and full URL. The query string is
// part of the identity, two parameterized fetches never share a cached copy.
func cacheKey(req *http.Request) string {
	key := req.Method + " " + req.URL.Path
	if req.URL.RawQuery != "" {
		key += "?" + req.URL.RawQuery
	}
	return key
}

func writeCached(c echo.Context, cached *CachedResponse) error {
	header := c.Response().Header()
	for k, values := range cached.Header {
		for _, v := range values {
			header.Add(k, v)
		}
	}
	return c.Blob(cached.Status, cached.Header.Get(echo.HeaderContentType), cached.Body)
}
