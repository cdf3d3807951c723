package handler

import (
	"context"
	"encoding/json"
	"strings"

	"hr-agent-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// SettingHandler 运行时设置项的读写入口，
// 运维通过它调整人设文案、回答准则、共享模型密钥等。
type SettingHandler struct {
	store *storage.Storage
}

// NewSettingHandler 创建设置处理器
func NewSettingHandler(store *storage.Storage) *SettingHandler {
	return &SettingHandler{store: store}
}

// SettingUpsertRequest 设置项写入请求体
type SettingUpsertRequest struct {
	Value string `json:"value"`
}

// HandleUpsertSetting 写入或更新设置项并刷新缓存
func (h *SettingHandler) HandleUpsertSetting(c context.Context, ctx *app.RequestContext) {
	key := strings.TrimSpace(ctx.Param("key"))
	if key == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "缺少设置键"})
		return
	}

	var req SettingUpsertRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法JSON"})
		return
	}

	if err := h.store.SetSetting(c, key, req.Value); err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"key": key, "status": "updated"})
}

// HandleGetSetting 读取设置项，不存在时返回空值
func (h *SettingHandler) HandleGetSetting(c context.Context, ctx *app.RequestContext) {
	key := strings.TrimSpace(ctx.Param("key"))
	if key == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "缺少设置键"})
		return
	}
	value := h.store.GetSetting(c, key, "")
	ctx.JSON(consts.StatusOK, utils.H{"key": key, "value": value})
}
