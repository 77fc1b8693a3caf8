package testing

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// FileAssertions provides utilities for asserting file system state in tests.
type FileAssertions struct {
	t       *testing.T
	baseDir string
}

// NewFileAssertions creates a new file assertions helper.
func NewFileAssertions(t *testing.T, baseDir string) *FileAssertions {
	return &FileAssertions{
		t:       t,
		baseDir: baseDir,
	}
}

// WriteFiles creates the given files below baseDir, each containing its own name
// unless a content is given in contents.
func (fa *FileAssertions) WriteFiles(contents map[string]string, relativePaths ...string) *FileAssertions {
	fa.t.Helper()
	for _, rel := range relativePaths {
		content, ok := contents[rel]
		if !ok {
			content = rel + "\n"
		}
		fullPath := filepath.Join(fa.baseDir, rel)
		if err := os.MkdirAll(filepath.Dir(fullPath), testDirPermissions); err != nil {
			fa.t.Fatalf("Failed to create directory for %s: %v", fullPath, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), testFilePermissions); err != nil {
			fa.t.Fatalf("Failed to write %s: %v", fullPath, err)
		}
	}
	return fa
}

// AssertFileExists validates that a file exists.
func (fa *FileAssertions) AssertFileExists(relativePath string) *FileAssertions {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		fa.t.Errorf("Expected file to exist: %s", fullPath)
	}
	return fa
}

// AssertFileNotExists validates that a file does not exist.
func (fa *FileAssertions) AssertFileNotExists(relativePath string) *FileAssertions {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)
	if _, err := os.Stat(fullPath); err == nil {
		fa.t.Errorf("Expected file to not exist: %s", fullPath)
	}
	return fa
}

// AssertFileContains validates that a file contains expected content.
func (fa *FileAssertions) AssertFileContains(relativePath, expectedContent string) *FileAssertions {
	fa.t.Helper()
	content := fa.GetFileContent(relativePath)
	if !strings.Contains(content, expectedContent) {
		fa.t.Errorf("Expected file %s to contain %q\nActual content:\n%s",
			relativePath, expectedContent, content)
	}
	return fa
}

// Tree returns the slash separated paths of all regular files below baseDir, sorted.
func (fa *FileAssertions) Tree() []string {
	fa.t.Helper()
	var files []string
	err := filepath.WalkDir(fa.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, _ := filepath.Rel(fa.baseDir, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		fa.t.Fatalf("Failed to walk %s: %v", fa.baseDir, err)
	}
	sort.Strings(files)
	return files
}

// ListFiles returns the names of the regular files in a directory.
func (fa *FileAssertions) ListFiles(relativePath string) []string {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		fa.t.Logf("Failed to read directory %s: %v", fullPath, err)
		return nil
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	return files
}

// GetFileContent reads and returns the content of a file.
func (fa *FileAssertions) GetFileContent(relativePath string) string {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)

	content, err := os.ReadFile(fullPath)
	if err != nil {
		fa.t.Fatalf("Failed to read file %s: %v", fullPath, err)
	}
	return string(content)
}
