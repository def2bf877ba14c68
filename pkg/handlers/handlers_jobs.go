package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/boxwatch/boxwatch-api/pkg/apperr"
	"github.com/gin-gonic/gin"
)

// SearchSuggestions prefix-matches suggestions for the provisioning form
func (h *Handler) SearchSuggestions(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.respondError(c, apperr.New(apperr.InvalidArgument, "limit must be a number."))
			return
		}
		limit = n
	}

	list, err := h.Suggestions.Search(c.Request.Context(), callerFrom(c), c.Query("q"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": list})
}

// SyncSuggestions runs the spreadsheet sync for an authorized volunteer
func (h *Handler) SyncSuggestions(c *gin.Context) {
	res, err := h.Suggestions.RunAuthorized(c.Request.Context(), callerFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RefreshLocations rebuilds the cache for an authorized volunteer
func (h *Handler) RefreshLocations(c *gin.Context) {
	res, err := h.Locations.RefreshAuthorized(c.Request.Context(), callerFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetLocations serves the raw cache blob to any origin
func (h *Handler) GetLocations(c *gin.Context) {
	data, err := h.Locations.Read(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Cache-Control", h.Locations.CacheControl())
	c.Data(http.StatusOK, "application/json", data)
}

// TriggerSync runs the sync after an optional delaySeconds, capped at five minutes
func (h *Handler) TriggerSync(c *gin.Context) {
	delay := time.Duration(0)
	if raw := c.Query("delaySeconds"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(c, apperr.New(apperr.InvalidArgument, "delaySeconds must be a non-negative number."))
			return
		}
		delay = time.Duration(n) * time.Second
	}

	res, err := h.Suggestions.RunAfter(c.Request.Context(), delay)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// TriggerRefresh rebuilds the locations cache
func (h *Handler) TriggerRefresh(c *gin.Context) {
	res, err := h.Locations.Refresh(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
