// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"gated_chat_server/internal/handler"

	"github.com/gin-gonic/gin"
)

// Router 持有 Handler 聚合对象
type Router struct {
	handlers *handler.Handlers
}

func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由
// auth 为认证中间件，WebSocket 入口自行校验 token
func (rt *Router) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	rt.RegisterWebSocketRoutes(r.Group(""))

	private := r.Group("", auth)
	rt.RegisterConversationRoutes(private)
	rt.RegisterMessageRoutes(private)
	rt.RegisterRelationshipRoutes(private)
	rt.RegisterFollowRoutes(private)
	rt.RegisterPresenceRoutes(private)
}
