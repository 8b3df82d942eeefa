package archive

import (
	"errors"
	"io"
	"time"
)

// Store 描述路由层依赖的归档读取能力，测试中可替换为内存实现。
type Store interface {
	// Lookup 按归一化后的相对路径查找条目，不存在时返回 ErrNotFound。
	Lookup(name string) (*Entry, error)

	// ModTime 返回归档文件的修改时间，已截断到整秒，直接用作 Last-Modified。
	ModTime() time.Time
}

// Opener 返回条目内容的只读流，每次调用都会得到新的 Reader。
type Opener func() (io.ReadCloser, error)

// Entry 表示归档内的一个文件，加载后不再修改。
type Entry struct {
	Name string
	Size int64
	open Opener
}

// NewEntry 便于测试或其它 Store 实现构造条目。
func NewEntry(name string, size int64, open Opener) *Entry {
	return &Entry{Name: normalizeName(name), Size: size, open: open}
}

// ErrNotFound 表示归档文件或条目不存在。
var ErrNotFound = errors.New("archive entry not found")
