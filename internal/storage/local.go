// Package storage は公開ディレクトリ上の静的ファイルへのアクセスを提供します。
package storage

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrOutsideRoot はルートディレクトリの外を指すパスに対して返されます。
var ErrOutsideRoot = errors.New("storage: path escapes public root")

// Local はローカルディスク上の公開ディレクトリです。
type Local struct {
	root string
}

// NewLocal は root を公開ディレクトリとする Local を作成します。
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// Root は公開ディレクトリの絶対パスを返します。
func (l *Local) Root() string {
	return l.root
}

// Asset は解決済みの静的ファイルです。
type Asset struct {
	Path        string
	ContentType string
	Size        int64
}

// Lookup はリクエストパスに対応するファイルを探します。
// ディレクトリや存在しないファイルは fs.ErrNotExist を返します。
func (l *Local) Lookup(urlPath string) (*Asset, error) {
	if strings.Contains(urlPath, "\x00") {
		return nil, fs.ErrNotExist
	}
	for _, seg := range strings.Split(urlPath, "/") {
		if seg == ".." {
			return nil, ErrOutsideRoot
		}
	}

	cleaned := path.Clean("/" + urlPath)
	full := filepath.Join(l.root, filepath.FromSlash(cleaned))
	if full != l.root && !strings.HasPrefix(full, l.root+string(filepath.Separator)) {
		return nil, ErrOutsideRoot
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fs.ErrNotExist
	}

	return &Asset{
		Path:        full,
		ContentType: detectContentType(full),
		Size:        info.Size(),
	}, nil
}

// detectContentType は中身から MIME を推定します。
// テキスト系で中身から判別できない拡張子だけは拡張子で決めます。
func detectContentType(full string) string {
	if ct, ok := textTypes[strings.ToLower(filepath.Ext(full))]; ok {
		return ct
	}
	mt, err := mimetype.DetectFile(full)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}

var textTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".js":  "text/javascript; charset=utf-8",
	".svg": "image/svg+xml",
}
