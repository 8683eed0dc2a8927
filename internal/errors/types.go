package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"txdecoder/pkg/models"
)

// ErrorType 错误类型
type ErrorType int

const (
	// 致命错误，终止整个解码
	ErrorTypeNotFound ErrorType = iota
	ErrorTypeTransport

	// 局部错误，只影响单个字段
	ErrorTypeDecodeMismatch
	ErrorTypeMetadataUnavailable
	ErrorTypePricingUnavailable

	// 输入与配置错误
	ErrorTypeValidation
	ErrorTypeConfig
)

// ErrorSeverity 错误严重级别
type ErrorSeverity int

const (
	SeverityLow ErrorSeverity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// DecodeError 解码过程中的错误
type DecodeError struct {
	Type      ErrorType              `json:"type"`
	Severity  ErrorSeverity          `json:"severity"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"`
	Retryable bool                   `json:"retryable"`
	TxHash    *string                `json:"tx_hash,omitempty"`
}

// Error 实现error接口
func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Unwrap
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// IsRetryable 判断是否可重试
func (e *DecodeError) IsRetryable() bool {
	return e.Retryable
}

// WithContext 添加上下文信息，返回副本以免修改预定义错误
func (e *DecodeError) WithContext(key string, value interface{}) *DecodeError {
	cp := *e
	cp.Context = make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	cp.Context[key] = value
	return &cp
}

// WithTxHash 添加交易哈希
func (e *DecodeError) WithTxHash(txHash string) *DecodeError {
	cp := *e
	cp.TxHash = &txHash
	return &cp
}

// NewDecodeError 创建新的错误
func NewDecodeError(errorType ErrorType, severity ErrorSeverity, code, message string) *DecodeError {
	return &DecodeError{
		Type:      errorType,
		Severity:  severity,
		Code:      code,
		Message:   message,
		Retryable: determineRetryable(errorType),
	}
}

// WrapError 包装现有错误
func WrapError(err error, errorType ErrorType, severity ErrorSeverity, code, message string) *DecodeError {
	return &DecodeError{
		Type:      errorType,
		Severity:  severity,
		Code:      code,
		Message:   message,
		Cause:     err,
		Retryable: determineRetryable(errorType),
	}
}

// determineRetryable 只有传输层错误值得重试
func determineRetryable(errorType ErrorType) bool {
	return errorType == ErrorTypeTransport
}

// 预定义错误
var (
	ErrTransactionNotFound = NewDecodeError(
		ErrorTypeNotFound,
		SeverityMedium,
		"TRANSACTION_NOT_FOUND",
		"Transaction not found",
	)

	ErrReceiptNotFound = NewDecodeError(
		ErrorTypeNotFound,
		SeverityMedium,
		"RECEIPT_NOT_FOUND",
		"Transaction not found",
	)

	ErrBlockNotFound = NewDecodeError(
		ErrorTypeNotFound,
		SeverityLow,
		"BLOCK_NOT_FOUND",
		"Block not found",
	)

	ErrInvalidHash = NewDecodeError(
		ErrorTypeValidation,
		SeverityLow,
		"INVALID_TX_HASH",
		"Invalid transaction hash",
	)

	ErrUnsupportedChain = NewDecodeError(
		ErrorTypeValidation,
		SeverityLow,
		"UNSUPPORTED_CHAIN",
		"Unsupported chain",
	)

	ErrNoMatch = NewDecodeError(
		ErrorTypeDecodeMismatch,
		SeverityLow,
		"DECODE_NO_MATCH",
		"Payload does not match any known signature",
	)
)

// NewTransportError 包装协作方的网络错误
func NewTransportError(operation string, err error) *DecodeError {
	return WrapError(err, ErrorTypeTransport, SeverityHigh, "TRANSPORT_FAILURE", operation)
}

// IsType 判断错误链中是否包含指定类型的 DecodeError
func IsType(err error, errorType ErrorType) bool {
	var de *DecodeError
	if stderrors.As(err, &de) {
		return de.Type == errorType
	}
	return false
}

// IsNotFound 是否为未找到错误
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsNoMatch 是否为签名不匹配
func IsNoMatch(err error) bool {
	return IsType(err, ErrorTypeDecodeMismatch)
}

// ToTransactionError 转换为对外的错误结构
func ToTransactionError(err error) *models.TransactionError {
	if err == nil {
		return nil
	}

	var de *DecodeError
	if stderrors.As(err, &de) {
		msg := de.Message
		if de.Type == ErrorTypeTransport && de.Cause != nil {
			// 透传协作方的原始信息
			msg = fmt.Sprintf("%s: %v", de.Message, de.Cause)
		}
		return &models.TransactionError{Message: msg, Code: de.Code}
	}

	return &models.TransactionError{Message: err.Error()}
}

// HTTPStatus 根据错误类型返回HTTP状态码
func HTTPStatus(err error) int {
	var de *DecodeError
	if !stderrors.As(err, &de) {
		return http.StatusInternalServerError
	}

	switch de.Type {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 错误类型字符串映射
var errorTypeNames = map[ErrorType]string{
	ErrorTypeNotFound:            "NotFound",
	ErrorTypeTransport:           "Transport",
	ErrorTypeDecodeMismatch:      "DecodeMismatch",
	ErrorTypeMetadataUnavailable: "MetadataUnavailable",
	ErrorTypePricingUnavailable:  "PricingUnavailable",
	ErrorTypeValidation:          "Validation",
	ErrorTypeConfig:              "Config",
}

// String 返回错误类型的字符串表示
func (et ErrorType) String() string {
	if name, exists := errorTypeNames[et]; exists {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", et)
}

// 严重级别字符串映射
var severityNames = map[ErrorSeverity]string{
	SeverityLow:      "Low",
	SeverityMedium:   "Medium",
	SeverityHigh:     "High",
	SeverityCritical: "Critical",
}

// String 返回严重级别的字符串表示
func (es ErrorSeverity) String() string {
	if name, exists := severityNames[es]; exists {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", es)
}
