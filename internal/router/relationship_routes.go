package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterRelationshipRoutes 注册关系状态机路由（需要认证）
func (rt *Router) RegisterRelationshipRoutes(rg *gin.RouterGroup) {
	relationshipGroup := rg.Group("/relationship")
	{
		relationshipGroup.POST("/request", rt.handlers.Relationship.Request)
		relationshipGroup.POST("/accept", rt.handlers.Relationship.Accept)
		relationshipGroup.POST("/block", rt.handlers.Relationship.Block)
		relationshipGroup.POST("/delete", rt.handlers.Relationship.Delete)
		relationshipGroup.GET("/get", rt.handlers.Relationship.Get)
	}
}
