package app

import (
	"formpulse_backend/docs"
	"formpulse_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)

		// 问卷管理
		questionnaires := api.Group("/questionnaires")
		{
			questionnaires.POST("", c.questionnaire.Create)
			questionnaires.GET("", c.questionnaire.List)
			questionnaires.GET("/:id", c.questionnaire.Get)
			questionnaires.PUT("/:id", c.questionnaire.Update)
			questionnaires.DELETE("/:id", c.questionnaire.Delete)
			questionnaires.POST("/:id/publish", c.questionnaire.Publish)
			questionnaires.POST("/:id/close", c.questionnaire.Close)

			// 作答入口（公开，已发布问卷才接受）
			questionnaires.POST("/:id/responses", c.response.Start)
			questionnaires.GET("/:id/responses", c.response.List)

			// 分析
			questionnaires.GET("/:id/analytics", c.analytics.Report)
			questionnaires.GET("/:id/analytics/insights", c.analytics.Insights)
		}

		// 作答会话
		responses := api.Group("/responses")
		{
			responses.GET("/:id", c.response.Get)
			responses.PUT("/:id/answers", c.response.Answer)
			responses.POST("/:id/files", c.response.UploadFile)
			responses.POST("/:id/submit", c.response.Submit)
			responses.POST("/:id/abandon", c.response.Abandon)
			responses.POST("/:id/quality", c.response.ReassessQuality)
		}
	}
}
