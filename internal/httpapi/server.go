package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/fmueller/voxrelay/internal/history"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Relay is the part of relay.Service the handlers depend on.
type Relay interface {
	Upload(ctx context.Context, body io.Reader) (history.Record, error)
	Message(ctx context.Context, text string) history.Record
	History() []history.Record
	HistoryLen() int
}

type Options struct {
	Addr      string
	IndexFile string
	UploadDir string
	Relay     Relay
	Logger    *zap.Logger

	// ModelName and GeneratorName are reported by /health.
	ModelName     string
	GeneratorName string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type Server struct {
	relay         Relay
	logger        *zap.Logger
	indexFile     string
	uploads       fs.FS
	modelName     string
	generatorName string

	handler    http.Handler
	httpServer *http.Server
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		relay:         opts.Relay,
		logger:        logger,
		indexFile:     opts.IndexFile,
		uploads:       os.DirFS(opts.UploadDir),
		modelName:     opts.ModelName,
		generatorName: opts.GeneratorName,
	}
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/message", s.handleMessage).Methods(http.MethodPost)
	r.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/uploads/{filename}", s.handleUploadedFile).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// CORS wraps the router so preflight requests never reach method matching.
	s.handler = withCORS(withAccessLog(logger, r))

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.handler,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. In-flight requests get shutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", zap.Error(err))
		if err := s.httpServer.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	return nil
}
