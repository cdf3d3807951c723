package handler

import (
	"context"
	"encoding/json"
	"strings"

	"hr-agent-go/internal/chat"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// ChatHandler 会话查询入口
type ChatHandler struct {
	engine *chat.Engine
}

// NewChatHandler 创建会话处理器
func NewChatHandler(engine *chat.Engine) *ChatHandler {
	return &ChatHandler{engine: engine}
}

// ChatSubmitRequest 会话查询请求体
type ChatSubmitRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Query     string `json:"query"`
}

// HandleChat 处理一轮会话查询。
// 个人模型密钥通过 X-Api-Key 请求头传入，不落入请求体与日志。
func (h *ChatHandler) HandleChat(c context.Context, ctx *app.RequestContext) {
	var req ChatSubmitRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法JSON"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "查询内容不能为空"})
		return
	}

	reply, err := h.engine.Answer(c, &chat.ChatRequest{
		SessionID:      req.SessionID,
		UserID:         req.UserID,
		Query:          req.Query,
		PersonalAPIKey: string(ctx.GetHeader("X-Api-Key")),
	})
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	ctx.JSON(consts.StatusOK, reply)
}

// HandleClearSession 清空会话历史
func (h *ChatHandler) HandleClearSession(c context.Context, ctx *app.RequestContext) {
	sessionID := ctx.Param("id")
	if sessionID == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "缺少会话ID"})
		return
	}
	if err := h.engine.ClearSession(c, sessionID); err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"status": "cleared"})
}
