package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterMessageRoutes 注册消息相关路由（需要认证）
func (rt *Router) RegisterMessageRoutes(rg *gin.RouterGroup) {
	messageGroup := rg.Group("/message")
	{
		messageGroup.POST("/send", rt.handlers.Message.Send)       // 发送消息
		messageGroup.POST("/forward", rt.handlers.Message.Forward) // 转发到多个会话
		messageGroup.POST("/seen", rt.handlers.Message.Seen)       // 批量已读
		messageGroup.GET("/get", rt.handlers.Message.Get)
	}
}
