package transport

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"go.viam.com/stereorepeater/logging"
)

// TopicPrefix is the URL path under which topics are mounted.
const TopicPrefix = "/topics/"

// Server exposes websocket topics over HTTP. GET /topics lists the mounted topic names and
// /topics/<name> upgrades to a websocket stream of that topic.
type Server struct {
	logger logging.Logger
	mux    *http.ServeMux

	mu     sync.Mutex
	topics map[string]http.Handler
}

// NewServer returns a server with no topics.
func NewServer(logger logging.Logger) *Server {
	s := &Server{
		logger: logger,
		mux:    http.NewServeMux(),
		topics: map[string]http.Handler{},
	}
	s.mux.HandleFunc("/topics", s.listTopics)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return s
}

// Mount serves handler under the topic name. Names may contain slashes, e.g. "left/image_raw".
func (s *Server) Mount(name string, handler http.Handler) error {
	name = strings.Trim(name, "/")
	if name == "" {
		return errors.New("topic name is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.topics[name]; ok {
		return errors.Errorf("topic %q already mounted", name)
	}
	s.topics[name] = handler
	s.mux.Handle(TopicPrefix+name, handler)
	return nil
}

// Topics returns the mounted topic names, sorted.
func (s *Server) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := lo.Keys(s.topics)
	sort.Strings(names)
	return names
}

func (s *Server) listTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Topics()); err != nil {
		s.logger.Debugw("error writing topic list", "error", err)
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve serves on listener until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		errCh <- httpServer.Serve(listener)
	})
	s.logger.Infow("serving topics", "address", listener.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// hijacked websocket connections are not tracked by Shutdown; their topics close them.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "error listening on %q", address)
	}
	return s.Serve(ctx, listener)
}
