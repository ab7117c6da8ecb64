// Package https_server 提供 HTTP/HTTPS 服务器的初始化和配置
// 负责创建 Gin 引擎实例并配置中间件和路由
package https_server

import (
	"gated_chat_server/internal/config"
	"gated_chat_server/internal/handler"
	"gated_chat_server/internal/infrastructure/identity"
	"gated_chat_server/internal/infrastructure/logger"
	"gated_chat_server/internal/infrastructure/middleware"
	"gated_chat_server/internal/router"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Init 创建 Gin 引擎并注册中间件和路由
func Init(handlers *handler.Handlers, verifier identity.TokenVerifier, cfg *config.MainConfig) *gin.Engine {
	// 不使用 gin.Default() 以便完全控制中间件
	engine := gin.New()
	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // 生产环境应指定具体域名
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	// SSL 由 Nginx 终止时保持关闭
	if cfg.TLSRedirect {
		engine.Use(middleware.TlsHandler(cfg.TLSHost))
	}

	rt := router.NewRouter(handlers)
	rt.RegisterRoutes(engine, middleware.JWTAuth(verifier))
	return engine
}
