package sandbox

import (
	"os"
)

// FileSystem defines an interface for file system operations
type FileSystem interface {
	MkdirAll(path string, perm os.FileMode) error
	WriteFile(filename string, data []byte, perm os.FileMode) error
	Remove(path string) error
	RemoveAll(path string) error
	FileExists(path string) (bool, error)
}

// RealFileSystem implements FileSystem using actual file system operations
type RealFileSystem struct{}

func (RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (RealFileSystem) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return os.WriteFile(filename, data, perm)
}

func (RealFileSystem) Remove(path string) error {
	return os.Remove(path)
}

func (RealFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (RealFileSystem) FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// LanguageName constants
const (
	LanguageJavaScript = "javascript"
	LanguagePython     = "python"
	LanguageNodeJS     = "nodejs"
	LanguageJava       = "java"
	LanguageCPP        = "cpp"
	LanguageGo         = "go"
)

// File permission constants
const (
	DirPermission  = 0700
	FilePermission = 0600
)
