package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterFollowRoutes 注册关注相关路由（需要认证）
func (rt *Router) RegisterFollowRoutes(rg *gin.RouterGroup) {
	followGroup := rg.Group("/follow")
	{
		followGroup.POST("/add", rt.handlers.Follow.Follow)
		followGroup.POST("/accept", rt.handlers.Follow.Accept)
		followGroup.GET("/status", rt.handlers.Follow.Status)
		followGroup.GET("/list", rt.handlers.Follow.List)
	}
}

// RegisterPresenceRoutes 注册在线状态路由（需要认证）
func (rt *Router) RegisterPresenceRoutes(rg *gin.RouterGroup) {
	rg.GET("/presence/online", rt.handlers.Presence.Online)
}
