package server

import (
	"net/http"
	"strings"
	"time"
)

// notModified 实现 If-Modified-Since 比较：HTTP 日期只精确到秒，
// 客户端缓存时间不早于归档修改时间即视为未修改。
func notModified(header string, modTime time.Time) bool {
	header = strings.TrimSpace(header)
	if header == "" || modTime.IsZero() {
		return false
	}
	since, err := http.ParseTime(header)
	if err != nil {
		return false
	}
	return !modTime.Truncate(time.Second).After(since)
}
