package rpc

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"parity-league/internal/middleware"
	"parity-league/internal/protocol"
	"parity-league/models"
)

// HandlerFunc serves one JSON-RPC method. The envelope has already been
// validated and authenticated when it is invoked.
type HandlerFunc func(ctx context.Context, env *models.Envelope) (interface{}, error)

// AuthFunc checks the envelope credential for a method. Returning an error
// rejects the call; registration methods are never passed through it.
type AuthFunc func(method string, env *models.Envelope) error

// ServerConfig configures a JSON-RPC endpoint for one agent.
type ServerConfig struct {
	// Role tags log lines, e.g. "LM", "REFEREE", "PLAYER".
	Role string
	// Protocols lists accepted protocol tags. Defaults to league.v1+v2.
	Protocols map[string]bool
	// Auth guards non-registration methods. Nil means open access.
	Auth AuthFunc
	// RateLimiter, when set, is mounted in front of /mcp.
	RateLimiter *middleware.RateLimiter
	// Debug keeps gin in its default mode instead of release.
	Debug bool
}

// Server hosts the agent's POST /mcp endpoint plus GET /healthz. Extra
// routes (event streams, read-only mirrors) hang off Engine().
type Server struct {
	cfg     ServerConfig
	engine  *gin.Engine
	methods map[string]HandlerFunc
}

// NewServer builds the gin engine and mounts the shared routes.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Protocols == nil {
		cfg.Protocols = protocol.DefaultProtocols()
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Accept", "Origin"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400 * time.Second,
	}
	engine.Use(cors.New(corsConfig))

	s := &Server{
		cfg:     cfg,
		engine:  engine,
		methods: make(map[string]HandlerFunc),
	}

	mcp := engine.Group("/")
	if cfg.RateLimiter != nil {
		mcp.Use(cfg.RateLimiter.Middleware())
	}
	mcp.POST("/mcp", s.handleMCP)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "role": cfg.Role})
	})

	return s
}

// Register binds a method name to its handler. Panics on duplicates so a
// bad wiring fails at startup, not mid-tournament.
func (s *Server) Register(method string, h HandlerFunc) {
	if _, exists := s.methods[method]; exists {
		log.Panicf("[RPC_SERVER] method %s registered twice", method)
	}
	s.methods[method] = h
}

// Engine exposes the underlying gin engine for additional routes.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler returns the server as an http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run blocks serving on addr until the listener fails.
func (s *Server) Run(addr string) error {
	log.Printf("[RPC_SERVER] %s listening on %s", s.cfg.Role, addr)
	return s.engine.Run(addr)
}

func (s *Server) handleMCP(c *gin.Context) {
	var req models.RPCRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		s.writeError(c, "", &models.RPCError{
			Code:    protocol.CodeParseError,
			Message: "parse error: " + err.Error(),
			Data:    &models.RPCErrorData{Kind: string(protocol.KindMalformedMessage)},
		})
		return
	}
	if req.JSONRPC != models.JSONRPCVersion || req.Method == "" {
		s.writeError(c, req.ID, &models.RPCError{
			Code:    protocol.CodeInvalidRequest,
			Message: "invalid json-rpc request",
			Data:    &models.RPCErrorData{Kind: string(protocol.KindMalformedMessage)},
		})
		return
	}

	handler, known := s.methods[req.Method]
	if !known {
		s.writeError(c, req.ID, &models.RPCError{
			Code:    protocol.CodeMethodNotFound,
			Message: "method not found: " + req.Method,
			Data:    &models.RPCErrorData{Kind: string(protocol.KindMalformedMessage)},
		})
		return
	}

	env := &req.Params
	if perr := protocol.ValidateEnvelope(env, s.cfg.Protocols); perr != nil {
		log.Printf("[RPC_SERVER] %s rejected %s: %v", s.cfg.Role, req.Method, perr)
		s.writeError(c, req.ID, protocol.ToRPCError(perr))
		return
	}

	if s.cfg.Auth != nil && !protocol.IsRegistration(req.Method) {
		if err := s.cfg.Auth(req.Method, env); err != nil {
			log.Printf("[RPC_SERVER] %s auth failed for %s from %s: %v", s.cfg.Role, req.Method, env.Sender, err)
			s.writeError(c, req.ID, protocol.ToRPCError(err))
			return
		}
	}

	result, err := handler(c.Request.Context(), env)
	if err != nil {
		log.Printf("[RPC_SERVER] %s %s from %s failed: %v", s.cfg.Role, req.Method, env.Sender, err)
		s.writeError(c, req.ID, protocol.ToRPCError(err))
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		s.writeError(c, req.ID, protocol.ToRPCError(
			protocol.Errorf(protocol.KindInternal, "encode %s result: %v", req.Method, err)))
		return
	}

	c.JSON(http.StatusOK, models.RPCResponse{
		JSONRPC: models.JSONRPCVersion,
		ID:      req.ID,
		Result:  raw,
	})
}

// writeError always answers HTTP 200; failures travel in the JSON-RPC error
// member so callers get a machine-readable kind.
func (s *Server) writeError(c *gin.Context, id string, rpcErr *models.RPCError) {
	c.JSON(http.StatusOK, models.RPCResponse{
		JSONRPC: models.JSONRPCVersion,
		ID:      id,
		Error:   rpcErr,
	})
}
