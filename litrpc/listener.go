package litrpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"github.com/mit-dci/litnode/logging"
	"github.com/mit-dci/litnode/node"
)

/*
Remote Procedure Calls
RPCs are how people tell the lit node what to do.  Clients open a websocket
to /ws and speak JSON-RPC over it; every exported LitRPC method is callable
as "LitRPC.<Method>".
*/

// A LitRPC is the user I/O interface; it wraps a Node and answers RPCs.
// Sending on OffButton asks the daemon to exit.
type LitRPC struct {
	Node      *node.Node
	OffButton chan bool

	log *logging.Logger
}

func NewLitRPC(n *node.Node, log *logging.Logger) *LitRPC {
	return &LitRPC{
		Node:      n,
		OffButton: make(chan bool, 1),
		log:       log,
	}
}

// Server serves a LitRPC over HTTP.  Websocket connections are hijacked
// from the HTTP server so it tracks them itself to close them on shutdown.
type Server struct {
	rpcl   *LitRPC
	rpc    *rpc.Server
	router chi.Router

	mtx   sync.Mutex
	conns map[*websocket.Conn]struct{}
	wg    sync.WaitGroup
}

func NewServer(rpcl *LitRPC) (*Server, error) {
	s := &Server{
		rpcl:  rpcl,
		rpc:   rpc.NewServer(),
		conns: make(map[*websocket.Conn]struct{}),
	}
	if err := s.rpc.Register(rpcl); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/ws", websocket.Handler(s.serveWS))
	r.Handle("/metrics", promhttp.Handler())
	s.router = r
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) serveWS(ws *websocket.Conn) {
	s.mtx.Lock()
	if s.conns == nil {
		s.mtx.Unlock()
		ws.Close()
		return
	}
	s.conns[ws] = struct{}{}
	s.wg.Add(1)
	s.mtx.Unlock()

	defer func() {
		s.mtx.Lock()
		delete(s.conns, ws)
		s.mtx.Unlock()
		s.wg.Done()
	}()

	s.rpcl.log.Debugf("rpc client %s connected", ws.Request().RemoteAddr)
	s.rpc.ServeCodec(jsonrpc.NewServerCodec(ws))
	s.rpcl.log.Debugf("rpc client %s gone", ws.Request().RemoteAddr)
}

// closeConns drops every websocket client and waits for their handlers.
// No new clients are accepted afterwards.
func (s *Server) closeConns() {
	s.mtx.Lock()
	for ws := range s.conns {
		ws.Close()
	}
	s.conns = nil
	s.mtx.Unlock()
	s.wg.Wait()
}

// Serve answers on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.rpcl.log.Infof("rpc listening on %s", ln.Addr())

	select {
	case <-ctx.Done():
	case err := <-errc:
		s.closeConns()
		return err
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(sctx)
	s.closeConns()
	if serr := <-errc; !errors.Is(serr, http.ErrServerClosed) && err == nil {
		err = serr
	}
	return err
}

// RPCListen serves rpcl on addr until ctx is done.
func RPCListen(ctx context.Context, rpcl *LitRPC, addr string) error {
	s, err := NewServer(rpcl)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
