package approuters

import (
	"Relay/internal/configuration"
	"Relay/internal/handler"

	"github.com/gin-gonic/gin"
)

// RealtimeRouters wires the pull-based resync API. Everything here requires
// a valid bearer token; realtime state itself flows over the socket server.
func RealtimeRouters(router *gin.Engine, container *configuration.Container) {
	api := router.Group("/rl/api")
	api.Use(handler.AuthMiddleware(container.Validator))
	{
		api.GET("/scopes/:scopeKey/messages", container.Handler.GetScopeMessages)
		api.GET("/messages/:messageId/status", container.Handler.GetDeliveryStatus)
		api.GET("/presence", container.Handler.GetPresence)
		api.GET("/unread-count", container.Handler.GetUnreadCount)
	}
}
