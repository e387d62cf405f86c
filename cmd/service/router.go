package service

import (
	"github.com/gin-gonic/gin"

	"github.com/brainhub/brain-ingest/app/core"
	v1 "github.com/brainhub/brain-ingest/app/logic/v1"
	"github.com/brainhub/brain-ingest/app/response"
	"github.com/brainhub/brain-ingest/cmd/service/handler"
	"github.com/brainhub/brain-ingest/cmd/service/middleware"
	"github.com/brainhub/brain-ingest/pkg/metrics"
)

func serve(core *core.Core) error {
	httpSrv := &handler.HttpSrv{
		Core:   core,
		Engine: core.HttpEngine(),
	}
	setupHttpRouter(httpSrv)

	return core.HttpEngine().Run(core.Cfg().Addr)
}

func GetIPLimitBuilder(limiters *middleware.KeyedLimiter) middleware.LimiterFunc {
	return func(key string, opts ...middleware.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(limiters, func(c *gin.Context) string {
			return key + ":" + c.ClientIP()
		}, opts...)
	}
}

func GetUserLimitBuilder(limiters *middleware.KeyedLimiter) middleware.LimiterFunc {
	return func(key string, opts ...middleware.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(limiters, func(c *gin.Context) string {
			token, _ := v1.InjectTokenClaim(c)
			return key + ":" + token.User
		}, opts...)
	}
}

func GetBrainLimitBuilder(limiters *middleware.KeyedLimiter) middleware.LimiterFunc {
	return func(key string, opts ...middleware.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(limiters, func(c *gin.Context) string {
			brainID, _ := c.Params.Get("brainid")
			return key + ":" + brainID
		}, opts...)
	}
}

func setupHttpRouter(s *handler.HttpSrv) {
	limiters := middleware.NewKeyedLimiter()
	ipLimit := GetIPLimitBuilder(limiters)
	userLimit := GetUserLimitBuilder(limiters)
	brainLimit := GetBrainLimitBuilder(limiters)

	s.Engine.GET("/metrics", metrics.DefaultExportHandler())

	s.Engine.Use(middleware.Metrics(s.Core.Metrics()), middleware.I18n(), response.NewResponse())
	s.Engine.Use(middleware.Cors)
	s.Engine.Use(middleware.AcceptLanguage(), middleware.SetAppid())
	apiV1 := s.Engine.Group("/api/v1")
	{
		apiV1.GET("/healthz", ipLimit("healthz"), func(c *gin.Context) {
			response.APISuccess(c, "ok")
		})

		authed := apiV1.Group("")
		authed.Use(middleware.Authorization(s.Core))

		authed.GET("/notifications/:id", s.GetNotification)

		brain := authed.Group("/brains/:brainid")
		brain.Use(middleware.SetBrainID)
		{
			uploadLimit := middleware.WithLimit(s.Core.Cfg().RateLimit.UploadPerMinute)
			brain.POST("/upload", userLimit("upload", uploadLimit), brainLimit("upload", middleware.WithLimit(s.Core.Cfg().RateLimit.UploadPerMinute*10)), s.UploadFile)
			brain.GET("/files", s.ListBrainFiles)

			knowledge := brain.Group("/knowledge")
			{
				knowledge.GET("/list", s.ListKnowledge)
				knowledge.GET("/:id", s.GetKnowledge)
				knowledge.DELETE("/:id", userLimit("modify_knowledge"), s.DeleteKnowledge)
			}
		}
	}
}
