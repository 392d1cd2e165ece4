package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/w-h-a/rag/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type httpServer struct {
	options  server.Options
	srv      *http.Server
	listener net.Listener
	mtx      sync.RWMutex
}

func (s *httpServer) Start() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.listener != nil {
		return errors.New("http server already started")
	}

	listener, err := net.Listen("tcp", s.options.Address)
	if err != nil {
		return err
	}

	s.listener = listener

	go func() {
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(s.options.Context, "http server stopped", "error", err)
		}
	}()

	slog.InfoContext(s.options.Context, "http server listening", "address", listener.Addr().String())

	return nil
}

func (s *httpServer) Stop(ctx context.Context) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.listener == nil {
		return nil
	}

	s.listener = nil

	return s.srv.Shutdown(ctx)
}

func (s *httpServer) Address() string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}

	return s.options.Address
}

func NewServer(opts ...server.Option) server.Server {
	options := server.NewOptions(opts...)

	handler, ok := HandlerFrom(options.Context)
	if !ok {
		handler = http.NotFoundHandler()
	}

	if ms, ok := MiddlewareFrom(options.Context); ok {
		// first middleware is outermost
		for i := len(ms) - 1; i >= 0; i-- {
			handler = ms[i](handler)
		}
	}

	return &httpServer{
		options: options,
		srv: &http.Server{
			Handler:           otelhttp.NewHandler(handler, "rag.http"),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}
