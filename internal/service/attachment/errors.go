package attachment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hannanlabs/socrates/internal/service/knowledgebase"
)

// 挂载流程的错误分类
// 第一个出错的步骤决定返回给调用方的错误，补偿阶段的错误只记日志
var (
	ErrValidation    = errors.New("invalid attachment request")
	ErrStorageWrite  = errors.New("blob storage write failed")
	ErrStorageDelete = errors.New("blob storage delete failed")
	ErrKBCreate      = errors.New("knowledge base document creation failed")
	ErrKBRead        = errors.New("knowledge base agent config read failed")
	ErrKBUpdate      = errors.New("knowledge base agent config update failed")
	ErrKBDelete      = errors.New("knowledge base document delete failed")
	ErrMetadataWrite = errors.New("document metadata write failed")
)

// Error 挂载失败，记录出错的步骤、分类与原始原因
type Error struct {
	Kind  error  // 上面的分类哨兵之一
	Step  string // 出错的状态机步骤
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Step, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Step, e.Kind, e.Cause)
}

// Unwrap 同时暴露分类哨兵与原始原因
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newError(kind error, step string, cause error) *Error {
	return &Error{Kind: kind, Step: step, Cause: cause}
}

// HTTPStatus 将挂载错误映射为对外的 HTTP 状态码
// 远端服务带回的状态码优先，其余按分类映射，默认 500
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	var statusErr *knowledgebase.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return http.StatusInternalServerError
}

// UserMessage 提取适合展示给用户的单条错误信息
// 内部步骤与清理细节留在服务端日志里
func UserMessage(err error) string {
	var statusErr *knowledgebase.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Detail
	}
	var attachErr *Error
	if errors.As(err, &attachErr) {
		if attachErr.Cause != nil && errors.Is(attachErr.Kind, ErrValidation) {
			return attachErr.Cause.Error()
		}
		return attachErr.Kind.Error()
	}
	return err.Error()
}
