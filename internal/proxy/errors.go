package proxy

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// UnknownErrorCode 用于无法归类的错误。
const UnknownErrorCode = "UNKNOWN"

var errorDescriptions = map[string]string{
	"EADDRINUSE":    "The port is already in use by another application.",
	"ECONNABORTED":  "The connection was aborted.",
	"ECONNREFUSED":  "Connection refused by the target server.",
	"ETIMEDOUT":     "The request to the target server timed out.",
	"EHOSTUNREACH":  "The target server is unreachable.",
	"ENOTFOUND":     "DNS lookup failed. The target server could not be found.",
	"EACCES":        "Permission denied. Please check your privileges.",
	"EADDRNOTAVAIL": "The specified address is not available.",
	"ECONNRESET":    "Connection reset by peer.",
	"ENETUNREACH":   "Network is unreachable.",
	"EAI_AGAIN":     "DNS lookup timed out.",
	"EPIPE":         "Broken pipe.",
}

const unknownErrorDescription = "Unknown error occurred."

var errnoCodes = []struct {
	errno syscall.Errno
	code  string
}{
	{syscall.EADDRINUSE, "EADDRINUSE"},
	{syscall.ECONNABORTED, "ECONNABORTED"},
	{syscall.ECONNREFUSED, "ECONNREFUSED"},
	{syscall.ETIMEDOUT, "ETIMEDOUT"},
	{syscall.EHOSTUNREACH, "EHOSTUNREACH"},
	{syscall.EACCES, "EACCES"},
	{syscall.EADDRNOTAVAIL, "EADDRNOTAVAIL"},
	{syscall.ECONNRESET, "ECONNRESET"},
	{syscall.ENETUNREACH, "ENETUNREACH"},
	{syscall.EPIPE, "EPIPE"},
}

// DescribeError 把网络错误映射为错误码与英文描述，用于日志与连接被拒时的响应体。
func DescribeError(err error) (code, description string) {
	code = errorCode(err)
	if desc, ok := errorDescriptions[code]; ok {
		return code, desc
	}
	return code, unknownErrorDescription
}

// FormatError 返回 "<CODE>: <description>" 形式的文本。
func FormatError(err error) string {
	code, desc := DescribeError(err)
	return code + ": " + desc
}

func errorCode(err error) string {
	if err == nil {
		return UnknownErrorCode
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return "ENOTFOUND"
		}
		if dnsErr.IsTimeout || dnsErr.IsTemporary {
			return "EAI_AGAIN"
		}
		return "ENOTFOUND"
	}
	for _, candidate := range errnoCodes {
		if errors.Is(err, candidate.errno) {
			return candidate.code
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "ETIMEDOUT"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}
	return UnknownErrorCode
}
