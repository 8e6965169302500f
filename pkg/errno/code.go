package errno

import "errors"

// code=0 请求成功
// code=4xx 客户端请求错误
// code=5xx 服务器端错误
// code=2xxxx 业务处理错误码

type Errno struct {
	Code      int
	Message   string
	Retryable bool
}

// Error 实现error接口
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrUnauthorized = &Errno{Code: 401, Message: "Unauthorized"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrStorage        = &Errno{Code: 501, Message: "Storage error"}
	ErrUnknown        = &Errno{Code: 510, Message: "Unknown error", Retryable: true}

	// 业务错误码
	ErrMissingParam     = &Errno{Code: 20001, Message: "Missing required parameter"}
	ErrTaskNotFound     = &Errno{Code: 20002, Message: "Transcode task not found"}
	ErrTaskExists       = &Errno{Code: 20003, Message: "Transcode task already exists"}
	ErrInvalidStatus    = &Errno{Code: 20004, Message: "Invalid task status"}
	ErrDraftIDRequired  = &Errno{Code: 20005, Message: "Draft ID is required"}
	ErrInputURLRequired = &Errno{Code: 20006, Message: "Input URL is required"}
	ErrQualityRequired  = &Errno{Code: 20007, Message: "At least one output quality is required"}
	ErrInvalidQuality   = &Errno{Code: 20008, Message: "Invalid output quality"}
	ErrJobAlreadyActive = &Errno{Code: 20009, Message: "A job is already active for this task"}

	// 远程转码协议错误码
	ErrDiscoveryTimeout    = &Errno{Code: 21001, Message: "Worker discovery timed out", Retryable: true}
	ErrNoWorkerFound       = &Errno{Code: 21002, Message: "No transcode worker found", Retryable: true}
	ErrSigningFailed       = &Errno{Code: 21003, Message: "Failed to sign job request"}
	ErrPublishFailed       = &Errno{Code: 21004, Message: "Failed to publish job request", Retryable: true}
	ErrWorkerReported      = &Errno{Code: 21005, Message: "Worker reported an error"}
	ErrResultTimeout       = &Errno{Code: 21006, Message: "Timed out waiting for transcode result", Retryable: true}
	ErrResumeExpired       = &Errno{Code: 21007, Message: "Task is too old to resume"}
	ErrCancelled           = &Errno{Code: 21008, Message: "Task was cancelled"}
	ErrMirrorFailed        = &Errno{Code: 21009, Message: "Failed to mirror artifact", Retryable: true}
	ErrMalformedResult     = &Errno{Code: 21010, Message: "Worker result payload is malformed"}
	ErrRelayUnavailable    = &Errno{Code: 21011, Message: "No relay connection available", Retryable: true}
	ErrIdentityUnavailable = &Errno{Code: 21012, Message: "Signing identity is not configured"}
)

// BizError 在基础错误码上附带底层原因
type BizError struct {
	*Errno
	cause error
}

// NewBizError 包装业务错误
func NewBizError(base *Errno, cause error) *BizError {
	return &BizError{Errno: base, cause: cause}
}

// WithMessage 复制错误码并替换消息文本
func (e *Errno) WithMessage(msg string) *Errno {
	return &Errno{Code: e.Code, Message: msg, Retryable: e.Retryable}
}

func (e *BizError) Error() string {
	if e.cause == nil {
		return e.Errno.Message
	}
	return e.Errno.Message + ": " + e.cause.Error()
}

func (e *BizError) Unwrap() error {
	return e.cause
}

// Is 让errors.Is可以按错误码匹配
func (e *BizError) Is(target error) bool {
	t, ok := target.(*Errno)
	return ok && t.Code == e.Errno.Code
}

// CodeOf 提取错误码，未知错误按ErrUnknown处理
func CodeOf(err error) *Errno {
	var biz *BizError
	if errors.As(err, &biz) {
		return biz.Errno
	}
	var e *Errno
	if errors.As(err, &e) {
		return e
	}
	return ErrUnknown
}

// IsRetryable 判断错误是否可由用户重试；未知错误默认可重试
func IsRetryable(err error) bool {
	return CodeOf(err).Retryable
}
