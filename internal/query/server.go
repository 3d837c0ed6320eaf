package query

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler implements the read-only HTTP surface spec.md §6 requires of
// the health contract: GET /healthz reports database_ready, GET
// /progress streams materializer status. The remaining aggregation
// endpoints expose the §4.13 query shapes directly; the full dashboard
// UI built on top of them is out of scope.
type Handler struct {
	store *Store
	hub   *Hub
}

// NewHandler binds a query Handler to a store and progress hub.
func NewHandler(store *Store, hub *Hub) *Handler {
	return &Handler{store: store, hub: hub}
}

// SetupRouter registers every route on a fresh gin.Engine, grounded on
// leanlp-BTC-coinjoin/internal/api/routes.go's SetupRouter shape.
func (h *Handler) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", h.handleHealthz)
	r.GET("/progress", h.hub.Subscribe)
	r.GET("/summary", h.handleSummary)
	r.GET("/players/top", h.handleTopPlayers)
	r.GET("/segments", h.handleSegments)
	r.GET("/players/:id/hands", h.handleRecentHands)
	r.GET("/scatter", h.handleScatter)

	return r
}

func (h *Handler) handleHealthz(c *gin.Context) {
	ready, err := h.store.IsReady(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"database_ready": ready})
}

func (h *Handler) handleSummary(c *gin.Context) {
	s, err := h.store.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) handleTopPlayers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	rows, err := h.store.TopPlayers(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) handleSegments(c *gin.Context) {
	minJ, _ := strconv.ParseFloat(c.Query("min_j_score"), 64)
	maxJ, _ := strconv.ParseFloat(c.Query("max_j_score"), 64)
	rows, err := h.store.SegmentedAggregates(c.Request.Context(), SegmentFilter{
		Street:      c.Query("street"),
		ActionLabel: c.Query("action_label"),
		Position:    c.Query("position"),
		MinJScore:   minJ,
		MaxJScore:   maxJ,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) handleRecentHands(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := h.store.RecentHandsForPlayer(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) handleScatter(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5000"))
	rows, err := h.store.SizeVsStrength(c.Request.Context(), c.Query("street"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}
