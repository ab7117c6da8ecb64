package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterConversationRoutes 注册会话相关路由（需要认证）
func (rt *Router) RegisterConversationRoutes(rg *gin.RouterGroup) {
	conversationGroup := rg.Group("/conversation")
	{
		conversationGroup.POST("/private", rt.handlers.Conversation.CreatePrivate)
		conversationGroup.POST("/group", rt.handlers.Conversation.CreateGroup)
		conversationGroup.GET("/get", rt.handlers.Conversation.Get)
		conversationGroup.POST("/settings", rt.handlers.Conversation.UpdateSettings) // 静音 / 屏蔽 / 移入回收站
	}
}
