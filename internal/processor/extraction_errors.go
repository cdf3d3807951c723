package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrEmptyRawText     = errors.New("简历原文为空")
	ErrGatewayFailed    = errors.New("调用模型网关失败")
	ErrPayloadInvalid   = errors.New("模型返回载荷无效")
	ErrArchiveFailed    = errors.New("归档简历原文失败")
	ErrStoreGraphFailed = errors.New("候选人图落库失败")
	ErrDatabaseFailed   = errors.New("数据库操作失败")
)

// ExtractionError 包含详细错误信息的自定义错误
type ExtractionError struct {
	SubmissionUUID string
	Op             string
	BaseErr        error
	Detail         string
}

func (e *ExtractionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, UUID:%s): %s", e.BaseErr, e.Op, e.SubmissionUUID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, UUID:%s)", e.BaseErr, e.Op, e.SubmissionUUID)
}

func (e *ExtractionError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewGatewayError(uuid, detail string) error {
	return &ExtractionError{
		SubmissionUUID: uuid,
		Op:             "invoke_model",
		BaseErr:        ErrGatewayFailed,
		Detail:         detail,
	}
}

func NewPayloadError(uuid, detail string) error {
	return &ExtractionError{
		SubmissionUUID: uuid,
		Op:             "parse_payload",
		BaseErr:        ErrPayloadInvalid,
		Detail:         detail,
	}
}

func NewArchiveError(uuid, detail string) error {
	return &ExtractionError{
		SubmissionUUID: uuid,
		Op:             "archive_raw_text",
		BaseErr:        ErrArchiveFailed,
		Detail:         detail,
	}
}

func NewStoreGraphError(uuid, detail string) error {
	return &ExtractionError{
		SubmissionUUID: uuid,
		Op:             "commit_graph",
		BaseErr:        ErrStoreGraphFailed,
		Detail:         detail,
	}
}

func NewDatabaseError(uuid, detail string) error {
	return &ExtractionError{
		SubmissionUUID: uuid,
		Op:             "database",
		BaseErr:        ErrDatabaseFailed,
		Detail:         detail,
	}
}
