package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// GetProjectRoot 向上查找 go.mod 所在目录；找不到时以本文件位置推断
func GetProjectRoot() (string, error) {
	if wd, err := os.Getwd(); err == nil {
		if dir, ok := findUp(wd, "go.mod"); ok {
			return dir, nil
		}
	}

	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("无法获取当前文件路径")
	}
	if dir, ok := findUp(filepath.Dir(filename), "go.mod"); ok {
		return dir, nil
	}
	return "", fmt.Errorf("未找到go.mod文件")
}

// ResolvePath 相对路径按项目根目录展开，绝对路径原样返回
func ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if _, err := os.Stat(p); err == nil {
		return p
	}
	root, err := GetProjectRoot()
	if err != nil {
		return p
	}
	return filepath.Join(root, p)
}

func findUp(start, marker string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for {
		if fileExists(filepath.Join(dir, marker)) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
