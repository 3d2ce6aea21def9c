package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	pkgerrors "github.com/matzehuels/pkgindex/pkg/errors"
	"github.com/matzehuels/pkgindex/pkg/packages"
	"github.com/matzehuels/pkgindex/pkg/store"
)

// ShutdownTimeout bounds graceful shutdown in ListenAndServe.
const ShutdownTimeout = 10 * time.Second

// Server is the package API. It is an http.Handler.
type Server struct {
	store  store.Store
	logger *log.Logger
	router chi.Router
}

// New creates a server reading from s. If logger is nil, log.Default() is used.
func New(s store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	srv := &Server{store: s, logger: logger}
	srv.router = srv.routes()
	return srv
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(withRequestID)
	r.Use(logRequests(s.logger))
	r.Use(recoverPanics(s.logger))
	r.Use(cors)

	r.Get("/healthz", s.handle(s.health))
	r.Get("/packages", s.handle(s.listPackages))
	r.Get("/packages/{source}/{owner}/{repo}", s.handle(s.getByOwnerRepo))
	r.Get("/packages/{source}/{identifier}", s.handle(s.getByIdentifier))

	r.NotFound(forbidden)
	r.MethodNotAllowed(forbidden)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()
	s.logger.Info("server is running", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handlerFunc is an http handler that reports failures by returning them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, r, s.logger, err)
		}
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) error {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("store ping failed", "err", err)
		return pkgerrors.NewHTTPError(http.StatusServiceUnavailable, "store unavailable")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

func (s *Server) listPackages(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	opts := store.ListOptions{Query: q.Get("q")}

	if raw := q.Get("source"); raw != "" {
		src, err := packages.ParseSource(raw)
		if err != nil {
			return pkgerrors.NewHTTPError(http.StatusBadRequest, "invalid source")
		}
		opts.Source = src
	}
	if err := pkgerrors.ValidateQuery(opts.Query); err != nil {
		return err
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return pkgerrors.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		opts.Limit = min(n, store.MaxLimit)
	}

	res, err := s.store.List(r.Context(), opts)
	if err != nil {
		return err
	}
	writeData(w, res)
	return nil
}

func (s *Server) getByOwnerRepo(w http.ResponseWriter, r *http.Request) error {
	owner, err := pathParam(r, "owner")
	if err != nil {
		return err
	}
	repo, err := pathParam(r, "repo")
	if err != nil {
		return err
	}
	return s.getPackage(w, r, packages.JoinIdentifier(owner, repo))
}

func (s *Server) getByIdentifier(w http.ResponseWriter, r *http.Request) error {
	id, err := pathParam(r, "identifier")
	if err != nil {
		return err
	}
	return s.getPackage(w, r, id)
}

func (s *Server) getPackage(w http.ResponseWriter, r *http.Request, identifier string) error {
	src, err := pathParam(r, "source")
	if err != nil {
		return err
	}
	if err := pkgerrors.ValidateIdentifier(identifier); err != nil {
		return err
	}

	p, err := s.store.Get(r.Context(), packages.Source(src), identifier)
	if err != nil {
		return err
	}
	writeData(w, p)
	return nil
}

// pathParam returns a decoded URL parameter. chi routes on the raw path
// when the request carries escapes such as %2F, leaving parameters encoded.
func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}
	dec, err := url.PathUnescape(v)
	if err != nil {
		return "", pkgerrors.NewHTTPError(http.StatusBadRequest, "malformed path")
	}
	return dec, nil
}
