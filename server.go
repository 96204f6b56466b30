package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goerrors "github.com/go-errors/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"ro-array-designer/internal/optimizer"
)

const (
	// maxSpecBytes bounds a design request body.
	maxSpecBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// newRouter wires the HTTP surface. Design requests carry the same JSON
// SystemSpec the design command reads.
func newRouter(d designer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.POST("/design", func(c *gin.Context) {
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSpecBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorBody{Error: err.Error(), Kind: outcomeError})
			return
		}
		spec, err := parseSpecJSON(string(raw))
		if err != nil {
			body := errorBody(err)
			body.Kind = outcomeInvalidInput
			c.JSON(http.StatusBadRequest, body)
			return
		}
		res, err := d.run(spec)
		if err != nil {
			c.JSON(httpStatus(err), errorBody(err))
			return
		}
		c.JSON(http.StatusOK, res)
	})
	v1.GET("/defaults/:membrane", func(c *gin.Context) {
		def, err := optimizer.DefaultsFor(optimizer.MembraneType(c.Param("membrane")))
		if err != nil {
			c.JSON(http.StatusNotFound, errorBody(err))
			return
		}
		c.JSON(http.StatusOK, def)
	})
	return r
}

// serve runs the HTTP surface until ctx is cancelled, then drains in-flight
// design requests.
func serve(ctx context.Context, addr string, d designer) error {
	gin.SetMode(gin.ReleaseMode)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return goerrors.Wrap(err, 0)
	}
	srv := &http.Server{Handler: newRouter(d), ReadHeaderTimeout: 10 * time.Second}
	d.log.WithField("addr", ln.Addr().String()).Info("[serve] listening")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		d.log.Info("[serve] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return goerrors.Wrap(err, 0)
		}
		return nil
	})
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return goerrors.WrapPrefix(err, "serve "+addr, 0)
		}
		return nil
	})
	return g.Wait()
}
