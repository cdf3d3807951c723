package handler

import (
	"context"

	"hr-agent-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// CandidateHandler 候选人读取入口
type CandidateHandler struct {
	mysql *storage.MySQL
}

// NewCandidateHandler 创建候选人处理器
func NewCandidateHandler(mysql *storage.MySQL) *CandidateHandler {
	return &CandidateHandler{mysql: mysql}
}

// HandleGetCandidate 读取候选人完整图
func (h *CandidateHandler) HandleGetCandidate(c context.Context, ctx *app.RequestContext) {
	candidateID := ctx.Param("id")
	if candidateID == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "缺少候选人ID"})
		return
	}

	graph, err := h.mysql.GetCandidateGraph(c, candidateID)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	if graph == nil {
		ctx.JSON(consts.StatusNotFound, utils.H{"error": "候选人不存在"})
		return
	}
	ctx.JSON(consts.StatusOK, graph)
}

// HandleListCandidates 列出候选人只读视图
func (h *CandidateHandler) HandleListCandidates(c context.Context, ctx *app.RequestContext) {
	views, err := h.mysql.ListCandidateViews(c)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"candidates": views, "total": len(views)})
}

// HandleListOpenJobs 列出开放岗位
func (h *CandidateHandler) HandleListOpenJobs(c context.Context, ctx *app.RequestContext) {
	jobs, err := h.mysql.ListOpenJobs(c)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"jobs": jobs, "total": len(jobs)})
}
