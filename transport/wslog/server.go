package wslog

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"sync"

	"github.com/jupyterlab-contrib/jupyterlab-js-logs/adapter"
	"github.com/jupyterlab-contrib/jupyterlab-js-logs/common/listener"
	C "github.com/jupyterlab-contrib/jupyterlab-js-logs/constant"
	"github.com/sagernet/sing/common"
	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/sing/common/logger"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gofrs/uuid/v5"
	"github.com/sagernet/cors"
)

type ServerOptions struct {
	Context context.Context
	Logger  logger.ContextLogger
	Listen  string
	Store   adapter.LineStore
	// AllowedOrigins restricts websocket and CORS origins. Empty allows
	// every origin.
	AllowedOrigins []string
	// MaxMessageSize bounds a single line in bytes. Zero means 10 MiB.
	MaxMessageSize int64
}

// Server accepts log channels on /logger/{id} and appends every text
// message to the client's log in its LineStore. The server owns the store.
type Server struct {
	ctx            context.Context
	cancel         context.CancelFunc
	logger         logger.ContextLogger
	listen         string
	store          adapter.LineStore
	allowedOrigins []string
	maxMessageSize int64
	handler        http.Handler
	httpServer     *http.Server
	listener       net.Listener
	connections    sync.WaitGroup

	access  sync.Mutex
	clients map[string]*ClientStatus
}

type ClientStatus struct {
	ID          string `json:"id"`
	Connections int    `json:"connections"`
	Lines       int    `json:"lines"`
}

func NewServer(options ServerOptions) (*Server, error) {
	if options.Store == nil {
		return nil, E.New("missing line store")
	}
	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	server := &Server{
		ctx:            ctx,
		cancel:         cancel,
		logger:         options.Logger,
		listen:         options.Listen,
		store:          options.Store,
		allowedOrigins: options.AllowedOrigins,
		maxMessageSize: options.MaxMessageSize,
		clients:        make(map[string]*ClientStatus),
	}
	if server.logger == nil {
		server.logger = logger.NOP()
	}
	if server.maxMessageSize <= 0 {
		server.maxMessageSize = C.DefaultMessageSize
	}
	allowedOrigins := options.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router := chi.NewRouter()
	router.Use(cors.New(cors.Options{
		AllowedOrigins:      allowedOrigins,
		AllowedMethods:      []string{http.MethodGet},
		AllowPrivateNetwork: true,
		MaxAge:              300,
	}).Handler)
	router.Get("/status", server.handleStatus)
	router.Get("/"+C.LoggerPath, server.handleLogger)
	router.Get("/"+C.LoggerPath+"/{id}", server.handleLogger)
	server.handler = router
	server.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: C.DefaultDialTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	return server, nil
}

// Handler exposes the router, for embedding or httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	tcpListener, err := listener.ListenTCP(s.ctx, s.listen, 0, 0)
	if err != nil {
		return err
	}
	s.listener = tcpListener
	s.logger.InfoContext(s.ctx, "relay server started at ", tcpListener.Addr())
	go func() {
		err := s.httpServer.Serve(tcpListener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.ErrorContext(s.ctx, E.Cause(err, "serve relay"))
		}
	}()
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Close() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), C.StopTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)
	s.connections.Wait()
	return E.Errors(err, common.Close(s.store))
}

// Clients returns the connected clients ordered by id.
func (s *Server) Clients() []ClientStatus {
	s.access.Lock()
	defer s.access.Unlock()
	clients := make([]ClientStatus, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, *client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].ID < clients[j].ID
	})
	return clients
}

func (s *Server) handleStatus(writer http.ResponseWriter, request *http.Request) {
	render.JSON(writer, request, render.M{
		"clients": s.Clients(),
	})
}

func (s *Server) handleLogger(writer http.ResponseWriter, request *http.Request) {
	id := chi.URLParam(request, "id")
	if id == "" {
		id = uuid.Must(uuid.NewV4()).String()
	}
	conn, err := websocket.Accept(writer, request, &websocket.AcceptOptions{
		InsecureSkipVerify: len(s.allowedOrigins) == 0,
		OriginPatterns:     s.allowedOrigins,
	})
	if err != nil {
		s.logger.DebugContext(s.ctx, E.Cause(err, "accept log channel from ", request.RemoteAddr))
		return
	}
	s.connections.Add(1)
	defer s.connections.Done()
	defer conn.CloseNow()
	conn.SetReadLimit(s.maxMessageSize)

	lines, err := s.store.Open(id)
	if err != nil {
		s.logger.ErrorContext(s.ctx, err)
		conn.Close(websocket.StatusInternalError, "open log")
		return
	}
	s.attach(id, lines)
	defer s.detach(id)
	s.logger.InfoContext(s.ctx, "client ", id, " connected from ", request.RemoteAddr, ", ", lines, " lines stored")

	for {
		messageType, content, err := conn.Read(s.ctx)
		if err != nil {
			s.logger.DebugContext(s.ctx, "client ", id, " disconnected: ", err)
			return
		}
		if messageType != websocket.MessageText {
			continue
		}
		line := string(content)
		err = s.store.Append(id, line)
		if err != nil {
			s.logger.ErrorContext(s.ctx, err)
			conn.Close(websocket.StatusInternalError, "append log")
			return
		}
		s.countLine(id)
		s.logger.DebugContext(s.ctx, "[", id, "] ", line)
	}
}

func (s *Server) attach(id string, lines int) {
	s.access.Lock()
	defer s.access.Unlock()
	client, loaded := s.clients[id]
	if !loaded {
		client = &ClientStatus{ID: id, Lines: lines}
		s.clients[id] = client
	}
	client.Connections++
}

func (s *Server) detach(id string) {
	s.access.Lock()
	client, loaded := s.clients[id]
	if !loaded {
		s.access.Unlock()
		return
	}
	client.Connections--
	last := client.Connections == 0
	if last {
		delete(s.clients, id)
	}
	s.access.Unlock()
	if last {
		err := s.store.Release(id)
		if err != nil {
			s.logger.WarnContext(s.ctx, E.Cause(err, "release log for ", id))
		}
	}
}

func (s *Server) countLine(id string) {
	s.access.Lock()
	defer s.access.Unlock()
	if client, loaded := s.clients[id]; loaded {
		client.Lines++
	}
}
