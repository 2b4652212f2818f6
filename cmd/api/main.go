package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"fliplytics/analytics"
	"fliplytics/internal/types"
	"fliplytics/paginate"
	"fliplytics/store"
	"fliplytics/utils"
)

// syncStatus is the dashboard-facing view of the current or last run.
type syncStatus struct {
	Running bool   `json:"running"`
	Count   int    `json:"count"`
	Page    int    `json:"page"`
	Total   int    `json:"total"`
	Error   string `json:"error,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// Server serves aggregated order analytics to the dashboard and controls
// sync runs. Runs are serialized: a sync request while one is in flight
// is refused, the same way the dashboard disables its sync button.
type Server struct {
	logger *logrus.Logger
	cfg    *types.Config
	orders store.OrderStore

	mu     sync.Mutex
	status syncStatus
}

func NewServer(cfg *types.Config, orders store.OrderStore, logger *logrus.Logger) *Server {
	return &Server{logger: logger, cfg: cfg, orders: orders}
}

// Router wires up the API routes.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.GET("/health", s.handleHealth)
	r.GET("/analytics", s.handleAnalytics) // ?filter=last-month&q=shoe
	r.GET("/orders", s.handleOrders)       // ?q=shoe
	r.POST("/sync", s.handleSync)
	r.GET("/sync/status", s.handleSyncStatus)
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleAnalytics(c *gin.Context) {
	filter, err := analytics.ParseFilter(c.DefaultQuery("filter", "all"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	all, err := s.orders.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := analytics.Aggregate(all, filter, c.Query("q"), time.Now())
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) handleOrders(c *gin.Context) {
	all, err := s.orders.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if q := c.Query("q"); q != "" {
		all = analytics.Search(all, q)
	}
	c.JSON(http.StatusOK, gin.H{"data": all, "count": len(all)})
}

func (s *Server) handleSync(c *gin.Context) {
	s.mu.Lock()
	if s.status.Running {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "a sync is already in flight"})
		return
	}
	s.status = syncStatus{Running: true}
	s.mu.Unlock()

	go s.runSync()
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) handleSyncStatus(c *gin.Context) {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()
	c.JSON(http.StatusOK, status)
}

func (s *Server) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client := utils.NewClient(s.cfg, s.logger)
	defer client.Close()

	runner := paginate.NewFetchRunner(s.cfg, client, s.orders, s, s.logger)
	_, err := runner.Run(ctx)
	if err == nil {
		return
	}

	s.logger.Warnf("Sync failed: %v", err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = false
	s.status.Error = err.Error()
	var authErr *types.AuthRequiredError
	if errors.As(err, &authErr) {
		s.status.Hint = "Open the order page in a browser and log in, then sync again"
	}
}

// RunObserver: the server relays engine events into the status the
// dashboard polls.
func (s *Server) ScrapeStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = syncStatus{Running: true}
}

func (s *Server) ScrapeProgress(count, page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Count = count
	s.status.Page = page
}

func (s *Server) ScrapeComplete(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = false
	s.status.Total = total
}

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	}

	cfg := types.DefaultConfig()
	if cookie := os.Getenv("SESSION_COOKIE"); cookie != "" {
		cfg.SessionCookie = cookie
	}
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}

	orders, err := store.OpenPebble(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open order database: %v", err)
	}
	defer orders.Close()

	port := "8080"
	if envPort := os.Getenv("API_PORT"); envPort != "" {
		port = envPort
	}

	server := NewServer(cfg, orders, logger)
	logger.Infof("Starting API server on port %s", port)
	log.Fatal(server.Router().Run(":" + port))
}
