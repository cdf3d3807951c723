// Package handler 实现HTTP入口层，负责请求解析、错误映射与响应编码。
package handler

import (
	"context"
	"encoding/json"
	"errors"

	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/processor"
	"hr-agent-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// ResumeHandler 简历提交入口
type ResumeHandler struct {
	extractor *processor.Extractor
	mysql     *storage.MySQL
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(extractor *processor.Extractor, mysql *storage.MySQL) *ResumeHandler {
	return &ResumeHandler{
		extractor: extractor,
		mysql:     mysql,
	}
}

// ResumeSubmitRequest 简历提交请求体
type ResumeSubmitRequest struct {
	RawText string `json:"raw_text"`
	// TargetCandidateID 可选，指定后强制合并到该候选人
	TargetCandidateID string `json:"target_candidate_id"`
}

// ResumeSubmitResponse 简历提交响应
type ResumeSubmitResponse struct {
	SubmissionUUID string `json:"submission_uuid"`
	CandidateID    string `json:"candidate_id"`
	Status         string `json:"status"`
	Merged         bool   `json:"merged"`
	Duplicate      bool   `json:"duplicate"`
}

// HandleSubmit 处理简历提交：原文进入抽取流水线，同步返回抽取结果
func (h *ResumeHandler) HandleSubmit(c context.Context, ctx *app.RequestContext) {
	var req ResumeSubmitRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法JSON"})
		return
	}

	result, err := h.extractor.ExtractResume(c, &processor.ExtractRequest{
		RawText:           req.RawText,
		TargetCandidateID: req.TargetCandidateID,
	})
	if err != nil {
		status, body := mapExtractionError(err)
		ctx.JSON(status, body)
		return
	}

	ctx.JSON(consts.StatusOK, &ResumeSubmitResponse{
		SubmissionUUID: result.SubmissionUUID,
		CandidateID:    result.CandidateID,
		Status:         "COMPLETED",
		Merged:         result.Merged,
		Duplicate:      result.Duplicate,
	})
}

// mapExtractionError 将流水线错误映射为HTTP状态码。
// 响应中带上 submission_uuid，失败的提交可据此排查与重试。
func mapExtractionError(err error) (int, utils.H) {
	var extractionErr *processor.ExtractionError
	body := utils.H{"error": err.Error()}
	if errors.As(err, &extractionErr) && extractionErr.SubmissionUUID != "" {
		body["submission_uuid"] = extractionErr.SubmissionUUID
	}

	switch {
	case errors.Is(err, processor.ErrEmptyRawText):
		return consts.StatusBadRequest, body
	case errors.Is(err, processor.ErrPayloadInvalid):
		return consts.StatusUnprocessableEntity, body
	case errors.Is(err, processor.ErrGatewayFailed):
		return consts.StatusBadGateway, body
	default:
		logger.Error().Err(err).Msg("简历提交处理失败")
		return consts.StatusInternalServerError, body
	}
}

// HandleGetResume 查询简历提交状态
func (h *ResumeHandler) HandleGetResume(c context.Context, ctx *app.RequestContext) {
	submissionUUID := ctx.Param("uuid")
	if submissionUUID == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "缺少提交UUID"})
		return
	}

	resume, err := h.mysql.GetResume(c, submissionUUID)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	if resume == nil {
		ctx.JSON(consts.StatusNotFound, utils.H{"error": "提交记录不存在"})
		return
	}

	resp := utils.H{
		"submission_uuid":   resume.SubmissionUUID,
		"processing_status": resume.ProcessingStatus,
		"created_at":        resume.CreatedAt,
		"updated_at":        resume.UpdatedAt,
	}
	if resume.CandidateID != nil {
		resp["candidate_id"] = *resume.CandidateID
	}
	if resume.ErrorMessage != "" {
		resp["error_message"] = resume.ErrorMessage
	}
	ctx.JSON(consts.StatusOK, resp)
}
