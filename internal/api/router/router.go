// Package router 注册API路由与中间件。
package router

import (
	"context"

	"hr-agent-go/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// RegisterRoutes 注册API路由。authToken非空时，除健康检查外的所有
// 路由都要求 Authorization: Bearer <token>。
func RegisterRoutes(h *server.Hertz,
	authToken string,
	resumeHandler *handler.ResumeHandler,
	candidateHandler *handler.CandidateHandler,
	chatHandler *handler.ChatHandler,
	settingHandler *handler.SettingHandler,
) {
	// 健康检查不鉴权
	h.GET("/api/v1/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api := h.Group("/api/v1")
	if authToken != "" {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return key == authToken, nil
			}),
		))
	}

	// 简历抽取
	api.POST("/resumes", resumeHandler.HandleSubmit)
	api.GET("/resumes/:uuid", resumeHandler.HandleGetResume)

	// 候选人与岗位读取
	api.GET("/candidates", candidateHandler.HandleListCandidates)
	api.GET("/candidates/:id", candidateHandler.HandleGetCandidate)
	api.GET("/jobs", candidateHandler.HandleListOpenJobs)

	// 会话查询
	api.POST("/chat", chatHandler.HandleChat)
	api.DELETE("/chat/sessions/:id", chatHandler.HandleClearSession)

	// 运行时设置
	api.GET("/settings/:key", settingHandler.HandleGetSetting)
	api.PUT("/settings/:key", settingHandler.HandleUpsertSetting)
}
