package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"qrverify/internal/middleware"
	"qrverify/internal/repository"
	"qrverify/internal/services"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListAccessLogs(c *gin.Context) {
	qrID := c.Query("qr_id")
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", services.DefaultPerPage)

	result, err := h.reporting.AccessLogs(c.Request.Context(), qrID, page, perPage)
	if err != nil {
		h.adminError(c, "access logs", err)
		return
	}
	h.respond(c, "access_logs.html", result)
}

func (h *Handler) ShowAccessStats(c *gin.Context) {
	stats, err := h.reporting.Stats(c.Request.Context())
	if err != nil {
		h.adminError(c, "access stats", err)
		return
	}
	h.respond(c, "access_stats.html", stats)
}

func (h *Handler) ListQRCodes(c *gin.Context) {
	codes, err := h.reporting.QRCodes(c.Request.Context())
	if err != nil {
		h.adminError(c, "qr codes", err)
		return
	}
	h.respond(c, "qr_codes.html", gin.H{
		"qr_codes": codes,
		"count":    len(codes),
	})
}

// RenderQRCode returns the printable image for a registered id. format is png
// (default) or svg.
func (h *Handler) RenderQRCode(c *gin.Context) {
	qrID := c.Param("qr_id")
	if _, err := h.registry.Lookup(c.Request.Context(), qrID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "QR code not found"})
			return
		}
		h.adminError(c, "qr image", err)
		return
	}

	opts := services.QROptions{
		Content: h.qrService.VerificationURL(qrID),
		Size:    queryInt(c, "size", services.DefaultQRSize),
		FgColor: c.Query("fg"),
		BgColor: c.Query("bg"),
	}

	if c.DefaultQuery("format", "png") == "svg" {
		svg, err := h.qrService.GenerateQRCodeSVG(opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to render QR code"})
			return
		}
		c.Data(http.StatusOK, "image/svg+xml", []byte(svg))
		return
	}

	_, png, err := h.qrService.GenerateQRCode(opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to render QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// respond writes JSON unless the client prefers HTML.
func (h *Handler) respond(c *gin.Context, tmpl string, data any) {
	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
		c.HTML(http.StatusOK, tmpl, data)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) adminError(c *gin.Context, what string, err error) {
	h.logger.Error("Admin query failed", "query", what, "admin_user", c.GetString(middleware.AdminUserKey), "error", err)
	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
		c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{"Message": "Database connection failed"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database connection failed"})
}

// queryInt parses an integer query parameter. Missing or non-numeric values
// give def.
func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
