package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/boxwatch/boxwatch-api/internal/boxes"
	"github.com/boxwatch/boxwatch-api/internal/locations"
	"github.com/boxwatch/boxwatch-api/internal/provision"
	"github.com/boxwatch/boxwatch-api/internal/reports"
	"github.com/boxwatch/boxwatch-api/internal/suggestions"
	"github.com/boxwatch/boxwatch-api/pkg/apperr"
	"github.com/boxwatch/boxwatch-api/pkg/auth"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const callerKey = "caller"

// Version is reported by the banner route
const Version = "1.0.0"

// Handler contains dependencies for the route handlers
type Handler struct {
	Verifier    auth.IdentityVerifier
	Gate        *auth.Gate
	Provision   *provision.Service
	Reports     *reports.Service
	Boxes       *boxes.Service
	Suggestions *suggestions.Syncer
	Locations   *locations.Builder
	Log         logrus.FieldLogger
}

// Register mounts every route on r
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.Banner)

	api := r.Group("/api")
	api.Use(h.IdentityMiddleware())
	{
		api.GET("/auth/status", h.AuthStatus)
		api.POST("/auth/passcode", h.RedeemPasscode)

		api.POST("/boxes", h.ProvisionBox)
		api.GET("/boxes/:id", h.BoxHistory)
		api.DELETE("/boxes/:id", h.DeactivateBox)

		api.POST("/reports", h.SubmitReport)
		api.POST("/reports/:id/clear", h.ClearReport)

		api.GET("/suggestions", h.SearchSuggestions)
		api.POST("/suggestions/sync", h.SyncSuggestions)

		api.POST("/locations/refresh", h.RefreshLocations)
		api.GET("/locations", h.GetLocations)
	}

	// Unauthenticated operator triggers
	triggers := r.Group("/triggers")
	{
		triggers.GET("/sync-suggestions", h.TriggerSync)
		triggers.POST("/sync-suggestions", h.TriggerSync)
		triggers.GET("/refresh-locations", h.TriggerRefresh)
		triggers.POST("/refresh-locations", h.TriggerRefresh)
	}
}

// Banner identifies the service
func (h *Handler) Banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "BoxWatch API",
		"version": Version,
	})
}

// IdentityMiddleware resolves the bearer token into a caller. Requests with
// no token, or a token that fails verification, continue anonymously and are
// rejected by the services that need a caller.
func (h *Handler) IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" || h.Verifier == nil {
			c.Next()
			return
		}

		// Strip "Bearer " if present
		if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
			token = token[7:]
		}

		caller, err := h.Verifier.Verify(c.Request.Context(), token)
		if err != nil {
			h.Log.WithError(err).Debug("rejected identity token")
			c.Next()
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// callerFrom returns the verified caller or nil
func callerFrom(c *gin.Context) *auth.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	caller, _ := v.(*auth.Caller)
	return caller
}

// respondError writes the public error body for err and logs internal causes
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		h.Log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), gin.H{
		"error": apperr.PublicMessage(err),
		"code":  kind,
	})
}

// AuthStatus reports whether the caller is an authorized volunteer
func (h *Handler) AuthStatus(c *gin.Context) {
	st, err := h.Gate.IsAuthorized(c.Request.Context(), callerFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// RedeemPasscode authorizes the caller with the shared passcode
func (h *Handler) RedeemPasscode(c *gin.Context) {
	// An empty body is an empty code; the gate decides what it needs.
	var input models.PasscodeRequest
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(c, bindError(err))
		return
	}

	v, err := h.Gate.AuthorizeVolunteer(c.Request.Context(), callerFrom(c), input.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Welcome, " + v.DisplayName + ". You are now an authorized volunteer.",
	})
}

// ProvisionBox registers a new box
func (h *Handler) ProvisionBox(c *gin.Context) {
	var input models.ProvisionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	resp, err := h.Provision.Provision(c.Request.Context(), callerFrom(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// BoxHistory returns a box and its reports
func (h *Handler) BoxHistory(c *gin.Context) {
	hist, err := h.Boxes.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}

// DeactivateBox soft-deletes a box
func (h *Handler) DeactivateBox(c *gin.Context) {
	box, err := h.Boxes.Deactivate(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "boxId": box.BoxID, "status": box.Status})
}

// SubmitReport stores a public report
func (h *Handler) SubmitReport(c *gin.Context) {
	var input models.ReportRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	resp, err := h.Reports.Submit(c.Request.Context(), callerFrom(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ClearReport marks a report handled
func (h *Handler) ClearReport(c *gin.Context) {
	r, err := h.Reports.Clear(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
