package handlers

import (
	"net/http"

	"qrverify/internal/services"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ShowIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

// ShowVerification renders the scanner-facing page. Unknown ids are a normal
// page with an INVALID badge, not a 404.
func (h *Handler) ShowVerification(c *gin.Context) {
	res := h.verify(c)
	qrID := c.Param("qr_id")

	switch res.Outcome {
	case services.OutcomeFound:
		c.HTML(http.StatusOK, "verification.html", gin.H{
			"QRID":        qrID,
			"Status":      "VALID",
			"Description": res.Record.Description,
			"CreatedAt":   res.Record.CreatedAt.Format(timeLayout),
		})
	case services.OutcomeNotFound:
		c.HTML(http.StatusOK, "verification.html", gin.H{
			"QRID":        qrID,
			"Status":      "INVALID",
			"Description": "QR code not found",
		})
	default:
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"Message": "Database connection failed",
		})
	}
}

func (h *Handler) VerifyQRCode(c *gin.Context) {
	res := h.verify(c)
	qrID := c.Param("qr_id")

	switch res.Outcome {
	case services.OutcomeFound:
		c.JSON(http.StatusOK, gin.H{
			"status":      "success",
			"qr_id":       qrID,
			"description": res.Record.Description,
			"created_at":  res.Record.CreatedAt.Format(timeLayout),
			"valid":       true,
		})
	case services.OutcomeNotFound:
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"message": "QR code not found",
			"valid":   false,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
	}
}

func (h *Handler) verify(c *gin.Context) services.VerifyResult {
	return h.verification.Verify(c.Request.Context(), services.VerifyRequest{
		QRID:     c.Param("qr_id"),
		Endpoint: c.Request.URL.Path,
		Method:   c.Request.Method,
		Client:   services.ExtractClientInfo(c.Request.Header, c.Request.RemoteAddr),
	})
}
