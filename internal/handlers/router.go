package handlers

import (
	"html/template"
	"net/http"
	"time"

	"qrverify/internal/config"
	"qrverify/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const timeLayout = "2006-01-02 15:04:05"

func (h *Handler) SetupRouter(adminUsers config.AdminUsers, templatePath string, staticPath string) *gin.Engine {
	r := gin.Default()

	r.SetFuncMap(template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format(timeLayout)
		},
		"add": func(a, b int) int { return a + b },
	})

	if templatePath != "" {
		r.LoadHTMLGlob(templatePath)
	}
	if staticPath != "" {
		r.Static("/static", staticPath)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Public Routes
	r.GET("/", h.ShowIndex)
	r.GET("/verify/:qr_id", h.ShowVerification)
	r.GET("/api/verify/:qr_id", h.VerifyQRCode)
	r.GET("/api/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "API is working!"})
	})

	// Admin Routes
	admin := r.Group("/")
	admin.Use(middleware.AdminAuth(adminUsers, h.logger))
	{
		admin.GET("/api/access_logs", h.ListAccessLogs)
		admin.GET("/api/access_stats", h.ShowAccessStats)
		admin.GET("/api/qr_codes", h.ListQRCodes)
		admin.GET("/api/qr_codes/:qr_id/qr", h.RenderQRCode)
		admin.GET("/api/admin/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Admin access granted!"})
		})
		admin.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	r.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"Message": "Page not found"})
	})

	return r
}
