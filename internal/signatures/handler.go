package signatures

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"clinic-portal/signature-backend/internal/auth"
	"clinic-portal/signature-backend/pkg/pdf"
	"clinic-portal/signature-backend/pkg/security"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	sigs := rg.Group("/signatures")
	{
		sigs.POST("", h.Create)
		sigs.POST("/sign", h.Sign)
		sigs.GET("", h.List)
		sigs.GET("/:id", h.Get)
		sigs.GET("/:id/stamp", h.Stamp)
		sigs.POST("/verify", h.Verify)
		sigs.POST("/:id/revoke", h.Revoke)
	}
}

func (h *Handler) Create(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record, err := h.service.Create(c.Request.Context(), identity, req, auditFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *Handler) Sign(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}

	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record, err := h.service.Sign(c.Request.Context(), identity, req, auditFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *Handler) Get(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	record, err := h.service.Get(c.Request.Context(), identity, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) List(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}

	var filters Filters
	if kindStr := c.Query("document_kind"); kindStr != "" {
		kind := DocumentKind(kindStr)
		filters.DocumentKind = &kind
	}
	if docID := c.Query("document_id"); docID != "" {
		filters.DocumentID = &docID
	}
	if signerID := c.Query("signer_id"); signerID != "" {
		filters.SignerID = &signerID
	}

	records, err := h.service.List(c.Request.Context(), identity, filters)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *Handler) Verify(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.service.Verify(c.Request.Context(), identity, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Revoke(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record, err := h.service.Revoke(c.Request.Context(), identity, id, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// Stamp renders a human-readable signature appendix page for a record.
func (h *Handler) Stamp(c *gin.Context) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	record, err := h.service.Get(c.Request.Context(), identity, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	signerName := c.Query("signer_name")
	if signerName == "" {
		signerName = record.SignerID
	}

	data := pdf.StampData{
		SignerName:          signerName,
		LicenseNumber:       record.LicenseNumber,
		LicenseJurisdiction: record.LicenseJurisdiction,
		DocumentDigest:      record.DocumentDigest,
		Algorithm:           record.SignatureAlgorithm,
		SignedAt:            record.SignedAt,
	}
	if record.CertificateSerial != nil {
		data.CertificateSerial = *record.CertificateSerial
	}
	if record.CertificateIssuer != nil {
		data.CertificateIssuer = *record.CertificateIssuer
	}

	content, err := pdf.RenderStamp(data)
	if err != nil {
		h.logger.Error("stamp rendering failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rendering failed"})
		return
	}

	c.Data(http.StatusOK, "application/pdf", content)
}

// respondError maps service error kinds to transport statuses. NotFound and
// key-material misses share the same generic denial so record existence is
// never confirmed across tenant boundaries.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, security.ErrKeyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "signature not found"})
	case errors.Is(err, ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, security.ErrMalformedKey),
		errors.Is(err, security.ErrMalformedCert),
		errors.Is(err, security.ErrPassphraseMismatch),
		errors.Is(err, security.ErrUnsupportedKeySize),
		errors.Is(err, security.ErrSignatureDecode):
		// Crypto failures surface without key material or internal paths.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func auditFrom(c *gin.Context) AuditInfo {
	return AuditInfo{
		ClientIP:        c.ClientIP(),
		ClientUserAgent: c.Request.UserAgent(),
	}
}
