// Package api exposes the menu REST endpoints and the admin pages over gin.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"menu-admin/config"
)

func corsConfig(cfg config.HTTPConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.Env == "development" || len(cfg.CORSOrigins) == 0 {
		c.AllowOriginFunc = func(string) bool { return true }
	} else {
		c.AllowOrigins = cfg.CORSOrigins
	}
	return c
}

// NewRouter wires middleware, the REST surface and the admin pages.
func NewRouter(cfg config.HTTPConfig, menu MenuRepository, auth *Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(), cors.New(corsConfig(cfg)))
	r.SetHTMLTemplate(loadTemplates())

	h := &menuHandler{menu: menu}
	r.GET("/healthz", h.health)
	r.GET("/categories", h.listCategories)
	r.GET("/menu-items", h.listItems)
	r.POST("/menu-items", auth.RequireSession(), h.createItem)
	r.PUT("/menu-items/:id", auth.RequireSession(), h.updateItem)
	r.PUT("/menu-items/:id/availability", auth.RequireSession(), h.setAvailability)

	r.POST("/auth/login", auth.login)
	r.GET("/auth/signin", auth.signInPage)
	r.POST("/auth/signin", auth.signInForm)
	r.POST("/auth/signout", auth.signOut)

	pages := &adminPages{menu: menu}
	admin := r.Group("/admin", auth.RequireAdminPage())
	admin.GET("", func(c *gin.Context) { c.Redirect(http.StatusFound, "/admin/menu") })
	admin.GET("/menu", pages.menuPage)
	admin.POST("/menu/:id/availability", pages.setAvailability)

	return r
}
