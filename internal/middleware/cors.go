package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS 允许前端开发服务器跨域访问 API
var CORS = cors.Handler(cors.Options{
	AllowedOrigins:   []string{"https://*", "http://*"},
	AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
	AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
	ExposedHeaders:   []string{"Content-Disposition"},
	AllowCredentials: false,
	MaxAge:           300,
})
