// Package app is the composition root: it builds the service from
// configuration and runs its background work.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ncobase/ohsmetrics/cache"
	"github.com/ncobase/ohsmetrics/concurrency/worker"
	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/ctxutil"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/events"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/metrics"
	"github.com/ncobase/ohsmetrics/query"
	"github.com/ncobase/ohsmetrics/service"
	"github.com/ncobase/ohsmetrics/version"
)

const shutdownTimeout = 10 * time.Second

// App holds the wired components.
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Telemetry *Telemetry
	Collector metrics.Collector
	Provider  data.Provider
	Cache     *cache.Cache
	Executor  *query.Executor
	Service   *service.Service
	Pool      *worker.Pool
}

// Serve runs the cache sweep, the event consumer and the operations
// endpoint until ctx is done or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	a.Cache.Start(ctx)
	defer a.Cache.Stop()

	config.Watch(a.Config, func(c *config.Config) {
		a.Cache.SetPolicy(cache.PolicyFromConfig(c.Cache))
		logger.Infof(ctx, "app: cache policy reloaded")
	})

	g, gctx := errgroup.WithContext(ctx)

	source, err := events.Open(gctx, a.Config.Events)
	if err != nil {
		return err
	}
	if source != nil {
		defer source.Close()
		g.Go(func() error {
			return events.NewDispatcher(source, a.Pool, a.Collector).Run(gctx)
		})
	} else {
		logger.Infof(ctx, "app: no event source configured, invalidation is manual")
	}

	if s := a.Config.Server; s != nil && s.Addr != "" {
		srv := &http.Server{
			Addr:         s.Addr,
			Handler:      a.Router(),
			ReadTimeout:  s.ReadTimeout,
			WriteTimeout: s.WriteTimeout,
		}
		g.Go(func() error {
			logger.Infof(gctx, "app: operations endpoint on %s", s.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := ctxutil.WithAsyncContext(gctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	<-gctx.Done()
	return g.Wait()
}

// Router serves health, cache statistics and Prometheus metrics.
func (a *App) Router() http.Handler {
	switch a.Config.RunMode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(a.Config.RunMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"provider": a.Provider.Name(),
			"version":  version.GetVersionInfo().Version,
		})
	})
	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"cache":   a.Cache.Stats(),
			"workers": a.Pool.GetMetrics(),
		})
	})
	if pc, ok := a.Collector.(*metrics.PrometheusCollector); ok {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(pc.Registry(), promhttp.HandlerOpts{})))
	}
	return r
}
