package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hostelhub/hostelchat/internal/api/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(chatController *ChatController, jwtSecret string) *gin.Engine {
	router := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
	config.AllowCredentials = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(middleware.Auth(jwtSecret))

	if chatController != nil {
		rooms := api.Group("/rooms")
		rooms.POST("", chatController.ProvisionRoom)
		rooms.GET("/:roomKey/history", chatController.History)
		rooms.GET("/:roomKey/state", chatController.RoomState)
		rooms.GET("/:roomKey/ws", chatController.JoinRoom)
	}

	return router
}
