package app

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Router builds the gin engine with every route and middleware registered.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(a.Log), Recovery(a.Log))

	origins := a.Config.AllowedOrigins()
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// OAuth2 callback (must be outside admin auth)
	r.GET("/oauth2/linkedin/callback", a.LinkedInCallbackHandler)

	api := r.Group("/api")
	{
		cal := api.Group("/calendar")
		{
			cal.GET("/availability", a.AvailabilityHandler)
			cal.POST("/book", RateLimit(a.Config.RateLimitPerMin, a.Log), a.BookHandler)
		}
		api.GET("/attribution", a.AttributionHandler)

		blog := api.Group("/blog")
		{
			blog.GET("/posts", a.ListPostsHandler)
			blog.GET("/posts/:slug", a.GetPostHandler)
			blog.GET("/posts/:slug/image", a.PostImageHandler)
			// signed links from the review mail authenticate themselves
			blog.GET("/review", a.ReviewLinkHandler)

			admin := blog.Group("", AdminAuth(a.Config.JWTSecret, a.Config.Tokens()))
			admin.POST("/generate", a.GenerateHandler)
			admin.GET("/drafts", a.ListDraftsHandler)
			admin.POST("/review", a.ReviewHandler)
		}

		api.GET("/linkedin/auth", AdminAuth(a.Config.JWTSecret, a.Config.Tokens()), a.LinkedInAuthHandler)
	}
	return r
}
