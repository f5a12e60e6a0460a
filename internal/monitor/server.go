package monitor

import (
	"fmt"
	"net/http"
	"os/exec"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"digital.vasic.lnmtl/internal/config"
	"digital.vasic.lnmtl/internal/logging"
	"digital.vasic.lnmtl/internal/orchestrator"
	"digital.vasic.lnmtl/internal/security"
	"digital.vasic.lnmtl/internal/storage"
)

// Server is the monitor dashboard's HTTP+WS surface. Grounded on the
// teacher's cmd/monitor-server/main.go (gin + gorilla/websocket), with
// the event-bus-fed hub replaced by one that polls the orchestrator
// directly, and auth/rate-limiting/run-history layered in from
// internal/security and internal/storage.
type Server struct {
	cfg   *config.MonitorConfig
	sec   *config.SecurityConfig
	log   logging.Logger
	orch  *orchestrator.Orchestrator
	auth  *security.AuthService
	limit *security.RateLimiter
	keys  *security.APIKeyStore
	users *security.UserStore
	store storage.Storage
	hub   *Hub
	router *gin.Engine

	translateBin string // path to the translate CLI binary, for the retry action
}

// NewServer wires a dashboard server around a running orchestrator.
func NewServer(cfg *config.Config, log logging.Logger, orch *orchestrator.Orchestrator, store storage.Storage, translateBin string) *Server {
	s := &Server{
		cfg:          &cfg.Monitor,
		sec:          &cfg.Security,
		log:          log,
		orch:         orch,
		store:        store,
		hub:          NewHub(orch, time.Second),
		translateBin: translateBin,
	}

	if cfg.Security.EnableAuth {
		s.auth = security.NewAuthService(cfg.Security.JWTSecret, 24*time.Hour)
		s.users = security.NewUserStore()
		for _, u := range cfg.Security.Users {
			if err := s.users.CreateWithHash(u.ID, u.Username, u.PasswordHash, u.Roles); err != nil {
				log.Warn("monitor: skipping invalid dashboard user", map[string]interface{}{"username": u.Username, "error": err.Error()})
			}
		}
	}
	if cfg.Security.RateLimitRPS > 0 {
		s.limit = security.NewRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
	}

	s.keys = security.NewAPIKeyStore()
	for _, key := range cfg.Security.CIAPIKeys {
		s.keys.AddKey(key, security.APIKeyInfo{Key: key, Name: "ci", CreatedAt: time.Now(), Active: true})
	}

	s.router = s.buildRouter()
	return s
}

// Run starts the hub's poll loop and blocks serving HTTP.
func (s *Server) Run() error {
	go s.hub.Run()
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.log.Info("monitor: listening", map[string]interface{}{"addr": addr})
	return s.router.Run(addr)
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/ws", s.handleWebSocket)
	router.GET("/health", s.handleHealth)

	api := router.Group("/api/v1")
	api.Use(s.rateLimitMiddleware())
	{
		api.GET("/status", s.handleStatus)
		api.GET("/runs", s.authMiddleware("viewer"), s.handleListRuns)
		api.GET("/runs/:id", s.authMiddleware("viewer"), s.handleGetRun)
		api.POST("/login", s.handleLogin)
		api.POST("/retry/:volume_id", s.authMiddleware("operator"), s.handleRetryVolume)
	}

	return router
}

func (s *Server) handleWebSocket(c *gin.Context) {
	upgrader := gorillaws.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := &Client{
		ID:   c.Query("client_id"),
		Conn: conn,
		Send: make(chan []byte, 256),
		Hub:  s.hub,
	}
	s.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"component":        "translation-monitor",
		"websocket_clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	tracker := s.orch.Progress()
	if tracker == nil {
		c.JSON(http.StatusOK, gin.H{"status": "idle"})
		return
	}
	c.JSON(http.StatusOK, tracker.Snapshot())
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history storage not configured"})
		return
	}
	runs, err := s.store.ListRuns(c.Request.Context(), 50, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history storage not configured"})
		return
	}
	run, err := s.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleLogin(c *gin.Context) {
	if s.auth == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "authentication disabled"})
		return
	}
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := s.auth.GenerateToken(user.ID, user.Username, user.Roles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// handleRetryVolume is the dashboard's only mutating action: it shells
// out to the translate CLI the same way an operator would from a
// terminal, rather than reaching into orchestrator internals.
func (s *Server) handleRetryVolume(c *gin.Context) {
	volumeID := c.Param("volume_id")
	volumeDir := c.Query("volume_dir")
	if volumeDir == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volume_dir query parameter is required"})
		return
	}

	cmd := exec.CommandContext(c.Request.Context(), s.translateBin, volumeID, volumeDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		s.log.Error("monitor: retry_volume failed", map[string]interface{}{"volume_id": volumeID, "error": err.Error(), "output": string(output)})
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "output": string(output)})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"volume_id": volumeID, "output": string(output)})
}

func (s *Server) authMiddleware(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.auth == nil {
			c.Next()
			return
		}
		// Service-to-service polling (spec MONITOR DASHBOARD section's CI
		// use case) authenticates via a pre-issued API key instead of a JWT
		// login. Keys only ever satisfy "viewer": the mutating retry action
		// still requires an operator-role JWT.
		if apiKey := c.GetHeader("X-API-Key"); apiKey != "" {
			if _, ok := s.keys.ValidateKey(apiKey); ok && requiredRole == "viewer" {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}
		token := c.GetHeader("Authorization")
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}
		claims, err := s.auth.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}
		if requiredRole == "operator" && !hasRole(claims.Roles, "operator") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "operator role required"})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limit == nil {
			c.Next()
			return
		}
		if !s.limit.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
