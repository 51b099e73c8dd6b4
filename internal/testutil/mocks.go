// Package testutil provides test doubles for the interfaces of the autoheader
// core library (pkg/autoheader and subpackages).
package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/stackvity/autoheader/pkg/autoheader"
	"github.com/stackvity/autoheader/pkg/autoheader/cache"
)

// MockCacheManager mocks cache.CacheManager.
type MockCacheManager struct {
	mock.Mock
}

// Load mocks the Load method.
func (m *MockCacheManager) Load(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

// Check mocks the Check method.
func (m *MockCacheManager) Check(filePath string, modTime time.Time, contentHash string, settingsHash string) bool {
	args := m.Called(filePath, modTime, contentHash, settingsHash)
	isHit, _ := args.Get(0).(bool)
	return isHit
}

// Update mocks the Update method.
func (m *MockCacheManager) Update(filePath string, entry cache.CacheEntry) error {
	args := m.Called(filePath, entry)
	return args.Error(0)
}

// Persist mocks the Persist method.
func (m *MockCacheManager) Persist(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

// MockLanguageDetector mocks language.LanguageDetector.
type MockLanguageDetector struct {
	mock.Mock
}

// Detect mocks the Detect method.
func (m *MockLanguageDetector) Detect(content []byte, filePath string) (lang string, confidence float64, err error) {
	args := m.Called(content, filePath)
	lang, _ = args.Get(0).(string)
	confidence, _ = args.Get(1).(float64)
	err = args.Error(2)
	return
}

// MockEncodingHandler mocks encoding.EncodingHandler.
type MockEncodingHandler struct {
	mock.Mock
}

// DetectAndDecode mocks the DetectAndDecode method.
func (m *MockEncodingHandler) DetectAndDecode(content []byte) (utf8Content []byte, detectedEncoding string, certainty bool, err error) {
	args := m.Called(content)
	utf8Content, _ = args.Get(0).([]byte)
	detectedEncoding, _ = args.Get(1).(string)
	certainty, _ = args.Get(2).(bool)
	err = args.Error(3)
	return
}

// Encode mocks the Encode method. The first return value may be a
// func([]byte, string) []byte to compute the output from the input.
func (m *MockEncodingHandler) Encode(utf8Content []byte, encodingName string) ([]byte, error) {
	args := m.Called(utf8Content, encodingName)
	if fn, ok := args.Get(0).(func([]byte, string) []byte); ok {
		return fn(utf8Content, encodingName), args.Error(1)
	}
	encoded, _ := args.Get(0).([]byte)
	return encoded, args.Error(1)
}

// IsBinary mocks the IsBinary method.
func (m *MockEncodingHandler) IsBinary(content []byte) bool {
	args := m.Called(content)
	isBinary, _ := args.Get(0).(bool)
	return isBinary
}

// MockGitClient mocks git.GitClient.
type MockGitClient struct {
	mock.Mock
}

// GetChangedFiles mocks the GetChangedFiles method.
func (m *MockGitClient) GetChangedFiles(repoPath string) (files []string, err error) {
	args := m.Called(repoPath)
	files, _ = args.Get(0).([]string)
	err = args.Error(1)
	return
}

// ResolveAuthor mocks the ResolveAuthor method.
func (m *MockGitClient) ResolveAuthor(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

// MockHooks mocks autoheader.Hooks. Hooks are called from several goroutines;
// testify's mock is safe for that, but state a test adds on top is not.
type MockHooks struct {
	mock.Mock
}

// OnFileDiscovered mocks the OnFileDiscovered method.
func (m *MockHooks) OnFileDiscovered(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

// OnFileStatusUpdate mocks the OnFileStatusUpdate method.
func (m *MockHooks) OnFileStatusUpdate(path string, status autoheader.Status, message string, duration time.Duration) error {
	args := m.Called(path, status, message, duration)
	return args.Error(0)
}

// OnRunComplete mocks the OnRunComplete method.
func (m *MockHooks) OnRunComplete(report autoheader.Report) error {
	args := m.Called(report)
	return args.Error(0)
}
