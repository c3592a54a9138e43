// Package handler is the operator HTTP API: health, Prometheus metrics and
// token-protected equivalents of the operator bot commands.
package handler

import (
	"anonrelay/backend/internal/ledger"
	"anonrelay/backend/internal/relay"
	"anonrelay/backend/internal/storage"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const operatorKey = "operator_id"

// Handler holds what the operator API reads and changes.
type Handler struct {
	Ledger    *ledger.Ledger
	Gate      *relay.Gate
	Operators relay.Operators
	Auth      *Auth
}

func NewHandler(l *ledger.Ledger, g *relay.Gate, ops relay.Operators, auth *Auth) *Handler {
	return &Handler{Ledger: l, Gate: g, Operators: ops, Auth: auth}
}

// Register mounts every route on r. Without an Auth the /api/v1 group is
// not mounted at all.
func (h *Handler) Register(r *gin.Engine, gatherer prometheus.Gatherer) {
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if h.Auth == nil {
		log.Println("WARN: JWT_SECRET not set, operator API disabled")
		return
	}
	api := r.Group("/api/v1", h.RequireOperator())
	api.GET("/log", h.ExportLog)
	api.DELETE("/log", h.ClearLog)
	api.GET("/maintenance", h.GetMaintenance)
	api.PUT("/maintenance", h.SetMaintenance)
	api.GET("/usage/:id", h.GetUsage)
}

func errorJSON(c *gin.Context, status int, code relay.ErrorCode) {
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}

// RequireOperator accepts only bearer tokens issued to a configured operator.
func (h *Handler) RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok {
			errorJSON(c, http.StatusUnauthorized, relay.CodeUnauthorized)
			return
		}
		operatorID, err := h.Auth.ParseToken(raw)
		if err != nil || !h.Operators.Has(operatorID) {
			errorJSON(c, http.StatusUnauthorized, relay.CodeUnauthorized)
			return
		}
		c.Set(operatorKey, operatorID)
		c.Next()
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ExportLog returns the rendered log as a text attachment.
func (h *Handler) ExportLog(c *gin.Context) {
	data, err := h.Ledger.Export(c.Request.Context())
	if errors.Is(err, storage.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, relay.CodeEmptyLog)
		return
	}
	if err != nil {
		log.Printf("ERROR: Log export failed: %v", err)
		errorJSON(c, http.StatusInternalServerError, relay.CodeInternal)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+ledger.ExportFileName+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

func (h *Handler) ClearLog(c *gin.Context) {
	if err := h.Ledger.Clear(c.Request.Context()); err != nil {
		log.Printf("ERROR: Log clear failed: %v", err)
		errorJSON(c, http.StatusInternalServerError, relay.CodeInternal)
		return
	}
	log.Printf("INFO: Log cleared through the API by operator %d", c.GetInt64(operatorKey))
	c.Status(http.StatusNoContent)
}

type maintenanceBody struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *Handler) GetMaintenance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"active": h.Gate.IsActive()})
}

func (h *Handler) SetMaintenance(c *gin.Context) {
	var body maintenanceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Gate.SetActive(c.Request.Context(), *body.Active); err != nil {
		log.Printf("ERROR: Maintenance switch failed: %v", err)
		errorJSON(c, http.StatusInternalServerError, relay.CodeInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": *body.Active})
}

func (h *Handler) GetUsage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid participant id"})
		return
	}
	count, err := h.Ledger.Usage(c.Request.Context(), id)
	if err != nil {
		log.Printf("ERROR: Usage lookup for %d failed: %v", id, err)
		errorJSON(c, http.StatusInternalServerError, relay.CodeInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant_id": id, "count": count})
}
