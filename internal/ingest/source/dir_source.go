package source

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DirSource 本地目录来源，递归枚举可识别类型的文件
type DirSource struct {
	root string
}

// NewDirSource 创建目录来源
func NewDirSource(root string) (*DirSource, error) {
	if root == "" {
		return nil, fmt.Errorf("source directory is required")
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path %s is not a directory", root)
	}

	return &DirSource{root: root}, nil
}

// List 递归枚举目录下所有可识别类型的文件
func (s *DirSource) List(ctx context.Context) ([]Item, error) {
	var items []Item

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		ft, ok := DetectFileType(d.Name())
		if !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}

		items = append(items, Item{
			Key:  rel,
			Name: d.Name(),
			Type: ft,
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk source directory: %w", err)
	}

	return items, nil
}

// Open 打开一个文件
func (s *DirSource) Open(ctx context.Context, item Item) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.root, item.Key))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", item.Key, err)
	}
	return f, nil
}
