package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
)

// Index 是 package.nw 的内存索引，启动时构建一次，之后只读。
type Index struct {
	path    string
	modTime time.Time
	entries map[string]*Entry
}

// Load 读取整个归档到内存并建立条目索引；文件缺失或不可读时返回包装后的 ErrNotFound。
func Load(path string) (*Index, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open package archive %s: %w", path, err)
	}

	idx := &Index{
		path:    path,
		modTime: info.ModTime().UTC().Truncate(time.Second),
		entries: make(map[string]*Entry, len(reader.File)),
	}
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		name := normalizeName(file.Name)
		if name == "" {
			continue
		}
		f := file
		idx.entries[name] = &Entry{
			Name: name,
			Size: int64(f.UncompressedSize64),
			open: func() (io.ReadCloser, error) { return f.Open() },
		}
	}
	return idx, nil
}

// Lookup 实现 Store。
func (i *Index) Lookup(name string) (*Entry, error) {
	if i == nil {
		return nil, ErrNotFound
	}
	key := normalizeName(name)
	if key == "" {
		return nil, ErrNotFound
	}
	entry, ok := i.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// ModTime 实现 Store。
func (i *Index) ModTime() time.Time {
	return i.modTime
}

// Len 返回条目数量，用于启动日志。
func (i *Index) Len() int {
	return len(i.entries)
}

// Path 返回加载的归档路径。
func (i *Index) Path() string {
	return i.path
}

// Open 返回条目的原始字节流，调用方负责 Close。
func (e *Entry) Open() (io.ReadCloser, error) {
	if e == nil || e.open == nil {
		return nil, ErrNotFound
	}
	return e.open()
}

// ReadText 读取完整内容并按 UTF-8 解码，非法字节替换为 U+FFFD。
func (e *Entry) ReadText() (string, error) {
	rc, err := e.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", e.Name, err)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	for strings.HasPrefix(name, "./") {
		name = name[2:]
	}
	return strings.TrimLeft(name, "/")
}
