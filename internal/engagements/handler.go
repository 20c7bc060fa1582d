package engagements

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"milestone-portal/portal-backend/internal/auth"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	projects := rg.Group("/projects")
	{
		projects.GET("/:id", h.GetProject)
		projects.GET("/:id/claims/outstanding", h.ListOutstandingClaims)
	}

	stages := rg.Group("/stages")
	{
		stages.GET("/:id", h.GetStage)
		stages.POST("/:id/deliver", h.Deliver)
		stages.POST("/:id/approve", h.Approve)
		stages.POST("/:id/revisions", h.RequestRevision)
		stages.POST("/:id/manual-revisions", h.LogManualRevision)
		stages.POST("/:id/claims", h.SubmitPaymentClaim)
		stages.POST("/:id/extension-claims", h.SubmitExtensionClaim)
	}

	claims := rg.Group("/claims")
	{
		claims.POST("/:id/verify", h.VerifyPaymentClaim)
		claims.POST("/:id/reject", h.RejectPaymentClaim)
	}

	extensions := rg.Group("/extension-claims")
	{
		extensions.POST("/:id/verify", h.VerifyExtensionClaim)
		extensions.POST("/:id/reject", h.RejectExtensionClaim)
	}
}

func (h *Handler) actorAndID(c *gin.Context) (auth.Actor, uuid.UUID, bool) {
	actor, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return auth.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return auth.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

// respondError maps business errors onto HTTP statuses. Every error also
// carries a stable machine-readable code.
func (h *Handler) respondError(c *gin.Context, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, ErrUnauthorized):
		status, code = http.StatusForbidden, "unauthorized"
	case errors.Is(err, ErrInvalidState):
		status, code = http.StatusConflict, "invalid_state"
	case errors.Is(err, ErrNoCreditsAvailable):
		status, code = http.StatusConflict, "no_credits_available"
	case errors.Is(err, ErrDuplicateClaim):
		status, code = http.StatusConflict, "duplicate_claim"
	case errors.Is(err, ErrAlreadyVerified):
		status, code = http.StatusConflict, "already_verified"
	case errors.Is(err, ErrAlreadyRejected):
		status, code = http.StatusConflict, "already_rejected"
	case errors.Is(err, ErrConflict):
		status, code = http.StatusConflict, "conflict"
	default:
		h.logger.Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func (h *Handler) GetProject(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	overview, err := h.service.GetProjectOverview(c.Request.Context(), actor, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *Handler) ListOutstandingClaims(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	claims, err := h.service.ListOutstandingClaims(c.Request.Context(), actor, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claims)
}

func (h *Handler) GetStage(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	detail, err := h.service.GetStageDetail(c.Request.Context(), actor, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) Deliver(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req struct {
		Deliverables []struct {
			URL   string `json:"url" binding:"required"`
			Title string `json:"title"`
		} `json:"deliverables"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inputs := make([]DeliverableInput, 0, len(req.Deliverables))
	for _, d := range req.Deliverables {
		inputs = append(inputs, DeliverableInput{URL: d.URL, Title: d.Title})
	}
	stage, err := h.service.DeliverStage(c.Request.Context(), actor, id, inputs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stage)
}

func (h *Handler) Approve(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	stage, err := h.service.ApproveStage(c.Request.Context(), actor, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stage)
}

func (h *Handler) RequestRevision(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req struct {
		Feedback string `json:"feedback" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stage, err := h.service.RequestRevision(c.Request.Context(), actor, id, req.Feedback)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stage)
}

func (h *Handler) LogManualRevision(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	// Body is optional for manual revisions.
	_ = c.ShouldBindJSON(&req)
	stage, err := h.service.LogManualRevision(c.Request.Context(), actor, id, req.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stage)
}

func (h *Handler) SubmitPaymentClaim(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req struct {
		Amount  int64  `json:"amount" binding:"required,gt=0"`
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claim, err := h.service.SubmitPaymentClaim(c.Request.Context(), actor, id, req.Amount, req.Channel)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, claim)
}

func (h *Handler) SubmitExtensionClaim(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req struct {
		Amount int64 `json:"amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claim, err := h.service.SubmitExtensionClaim(c.Request.Context(), actor, id, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, claim)
}

func (h *Handler) VerifyPaymentClaim(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	result, err := h.service.VerifyPaymentClaim(c.Request.Context(), actor, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) RejectPaymentClaim(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claim, err := h.service.RejectPaymentClaim(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (h *Handler) VerifyExtensionClaim(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	stage, err := h.service.VerifyExtensionClaim(c.Request.Context(), actor, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stage)
}

func (h *Handler) RejectExtensionClaim(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claim, err := h.service.RejectExtensionClaim(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}
