package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows any origin, mirroring the permissive policy the web
// frontend expects.
func CORS() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowCredentials = false
	cfg.AllowHeaders = []string{"*"}
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	return cors.New(cfg)
}
