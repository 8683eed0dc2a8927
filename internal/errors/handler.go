package errors

import (
	stderrors "errors"

	"github.com/sirupsen/logrus"
)

// Absorb 记录被就地消化的错误（字段缺省而不是终止解码）
// 根据严重级别选择日志级别，返回错误类型便于统计
func Absorb(entry *logrus.Entry, err error) ErrorType {
	var de *DecodeError
	if !stderrors.As(err, &de) {
		de = WrapError(err, ErrorTypeTransport, SeverityMedium, "UNKNOWN_ERROR", "未知错误")
	}

	fields := logrus.Fields{
		"error_type": de.Type.String(),
		"error_code": de.Code,
	}
	for k, v := range de.Context {
		fields[k] = v
	}
	logEntry := entry.WithFields(fields)
	if de.Cause != nil {
		logEntry = logEntry.WithError(de.Cause)
	}

	switch de.Severity {
	case SeverityLow:
		logEntry.Debug(de.Message)
	case SeverityMedium:
		logEntry.Info(de.Message)
	default:
		logEntry.Warn(de.Message)
	}

	return de.Type
}
