package processor

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"profile-insight-go/internal/parser"
	"profile-insight-go/internal/storage"
	"profile-insight-go/internal/storage/models"
	"profile-insight-go/internal/types"
)

type fakePDF struct {
	text  string
	meta  map[string]any
	err   error
	calls int
}

func (f *fakePDF) ExtractText(ctx context.Context, r io.Reader, uri string) (string, map[string]any, error) {
	f.calls++
	if _, err := io.ReadAll(r); err != nil {
		return "", nil, err
	}
	return f.text, f.meta, f.err
}

type fakeInspector struct {
	pages int
	err   error
}

func (f fakeInspector) Inspect(data []byte) (*parser.PDFInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &parser.PDFInfo{PageCount: f.pages}, nil
}

type fakeOCR struct {
	text   string
	err    error
	images []parser.ImageInput
}

func (f *fakeOCR) RecognizeImages(ctx context.Context, images []parser.ImageInput) (string, error) {
	f.images = images
	return f.text, f.err
}

type fakeScraper struct {
	text string
	err  error
}

func (f fakeScraper) Scrape(ctx context.Context, url string) (string, error) {
	return f.text, f.err
}

type fakeAnalyzer struct {
	result *types.AnalysisResult
	err    error
	calls  int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, record types.ProfileRecord, targetRole string) (*types.AnalysisResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := *f.result
	return &out, nil
}

type memoryCache struct {
	mu       sync.Mutex
	parsed   map[string]types.ProfileRecord
	analyses map[string]*types.AnalysisResult
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		parsed:   map[string]types.ProfileRecord{},
		analyses: map[string]*types.AnalysisResult{},
	}
}

func (c *memoryCache) GetParsedProfile(ctx context.Context, textMD5 string) (*types.ProfileRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.parsed[textMD5]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (c *memoryCache) SetParsedProfile(ctx context.Context, textMD5 string, record types.ProfileRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parsed[textMD5] = record
	return nil
}

func (c *memoryCache) GetAnalysis(ctx context.Context, record types.ProfileRecord, targetRole string) (*types.AnalysisResult, error) {
	key, err := storage.AnalysisResultKey(record, targetRole)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analyses[key], nil
}

func (c *memoryCache) SetAnalysis(ctx context.Context, record types.ProfileRecord, targetRole string, result *types.AnalysisResult) error {
	if result.Fallback {
		return nil
	}
	key, err := storage.AnalysisResultKey(record, targetRole)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analyses[key] = result
	return nil
}

type memoryStore struct {
	mu          sync.Mutex
	submissions map[string]*models.ProfileSubmission
	analyses    []*models.ProfileAnalysis
	outbox      []*models.OutboxMessage
	statuses    map[string]string
	getErr      error
	saveErr     error
	createErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		submissions: map[string]*models.ProfileSubmission{},
		statuses:    map[string]string{},
	}
}

func (m *memoryStore) CreateSubmissionWithEvent(ctx context.Context, sub *models.ProfileSubmission, event *models.OutboxMessage) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub.CreatedAt = time.Now()
	m.submissions[sub.SubmissionID] = sub
	m.statuses[sub.SubmissionID] = sub.Status
	if event != nil {
		m.outbox = append(m.outbox, event)
	}
	return nil
}

func (m *memoryStore) GetSubmission(ctx context.Context, id string) (*models.ProfileSubmission, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return nil, storage.ErrSubmissionNotFound
	}
	return sub, nil
}

func (m *memoryStore) GetLatestAnalysis(ctx context.Context, id string) (*models.ProfileAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.analyses) - 1; i >= 0; i-- {
		if m.analyses[i].SubmissionID == id {
			return m.analyses[i], nil
		}
	}
	return nil, nil
}

func (m *memoryStore) SaveAnalysis(ctx context.Context, a *models.ProfileAnalysis) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses = append(m.analyses, a)
	m.statuses[a.SubmissionID] = models.StatusAnalyzed
	return nil
}

func (m *memoryStore) RequestAnalysis(ctx context.Context, id string, event *models.OutboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.submissions[id]; !ok {
		return storage.ErrSubmissionNotFound
	}
	m.statuses[id] = models.StatusAnalyzing
	m.outbox = append(m.outbox, event)
	return nil
}

func (m *memoryStore) UpdateSubmissionStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = status
	return nil
}

type fakeOriginals struct {
	keys []string
	err  error
}

func (f *fakeOriginals) UploadOriginal(ctx context.Context, submissionID, ext string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	key := storage.OriginalObjectKey(submissionID, ext)
	f.keys = append(f.keys, key)
	return key, nil
}

type fakeLocker struct {
	held     bool
	err      error
	released int
}

func (f *fakeLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.held {
		return "", nil
	}
	return "token", nil
}

func (f *fakeLocker) ReleaseLock(ctx context.Context, key, token string) (bool, error) {
	f.released++
	return true, nil
}

var errTransient = errors.New("connection reset")
