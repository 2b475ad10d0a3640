// Package server exposes a running calibration session over HTTP on a unix
// socket, so it can be inspected and driven from another terminal.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/camcalib/pkg/calibration"
	"github.com/charlie0129/camcalib/pkg/events"
	"github.com/charlie0129/camcalib/pkg/session"
	"github.com/charlie0129/camcalib/pkg/version"
)

// Session is what the server needs from a calibration session. All methods
// must be safe to call from any goroutine.
type Session interface {
	Status() calibration.Status
	Result() (calibration.Result, bool)
	SendSignal(sig calibration.Signal) error
}

type Server struct {
	session Session
	hub     *events.EventHub
	router  *gin.Engine

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a server for sess. hub may be nil, in which case /events
// streams nothing.
func New(sess Session, hub *events.EventHub) *Server {
	s := &Server{
		session: sess,
		hub:     hub,
		done:    make(chan struct{}),
	}
	s.router = s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/status", s.getStatus)
	router.GET("/result", s.getResult)
	router.PUT("/signal", s.setSignal)
	router.GET("/events", s.getEvents)
	router.GET("/version", getVersion)

	return router
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on socketPath until ctx is cancelled. A stale socket file
// left by a previous run is removed first.
func (s *Server) Serve(ctx context.Context, socketPath string) error {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to remove stale socket %s", socketPath)
	}

	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", socketPath)
	}
	defer func() {
		if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).Warn("failed to remove socket")
		}
	}()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		errc <- srv.Serve(l)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logrus.Info("shutting down http server")
	s.doneOnce.Do(func() { close(s.done) })
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return pkgerrors.Wrapf(err, "failed to shutdown http server")
	}
	return nil
}

func (s *Server) getStatus(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.session.Status())
}

func (s *Server) getResult(c *gin.Context) {
	res, ok := s.session.Result()
	if !ok {
		c.IndentedJSON(http.StatusNotFound, "session is not calibrated yet")
		return
	}
	c.IndentedJSON(http.StatusOK, res)
}

func (s *Server) setSignal(c *gin.Context) {
	var raw string
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.Error(err)
		return
	}

	sig, err := calibration.ParseSignal(raw)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.Error(err)
		return
	}

	if err := s.session.SendSignal(sig); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, session.ErrSignalQueueFull) {
			code = http.StatusServiceUnavailable
		}
		c.IndentedJSON(code, err.Error())
		_ = c.Error(err)
		return
	}

	logrus.WithField("signal", sig).Info("remote signal queued")
	c.IndentedJSON(http.StatusOK, "ok")
}

func (s *Server) getEvents(c *gin.Context) {
	if s.hub == nil {
		c.Status(http.StatusNoContent)
		return
	}

	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	// Let clients see the headers before the first event.
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-c.Request.Context().Done():
			return false
		case <-s.done:
			return false
		}
	})
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
