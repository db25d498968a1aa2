// Package attachment 挂载编排器单元测试
package attachment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hannanlabs/socrates/internal/model"
	"github.com/hannanlabs/socrates/internal/service/knowledgebase"
	"github.com/hannanlabs/socrates/internal/service/storage"
)

// mockBlobStore Mock Blob 存储
type mockBlobStore struct {
	saveCalls   int
	deleteCalls []string
	storageKey  string
	publicURL   string
	saveError   error
	deleteError error
	cleanupLog  *[]string // 共享的补偿动作顺序记录
}

func (m *mockBlobStore) Save(ctx context.Context, req *storage.SaveRequest) (string, error) {
	m.saveCalls++
	if m.saveError != nil {
		return "", m.saveError
	}
	if m.storageKey != "" {
		return m.storageKey, nil
	}
	return req.OwnerID + "/" + req.FileName, nil
}

func (m *mockBlobStore) Delete(ctx context.Context, storageKey string) error {
	m.deleteCalls = append(m.deleteCalls, storageKey)
	if m.cleanupLog != nil {
		*m.cleanupLog = append(*m.cleanupLog, "delete_blob")
	}
	return m.deleteError
}

func (m *mockBlobStore) GetURL(storageKey string) string {
	return m.publicURL
}

// mockKnowledgeBase Mock 知识库适配器
type mockKnowledgeBase struct {
	createCalls   int
	deleteCalls   []string
	updatedConfig *knowledgebase.AgentKnowledgeConfig
	getCalls      int

	docID       string
	config      *knowledgebase.AgentKnowledgeConfig
	createError error
	getError    error
	updateError error
	deleteError map[string]error
	cleanupLog  *[]string
}

func (m *mockKnowledgeBase) CreateDocument(ctx context.Context, content []byte, contentType, name string) (string, error) {
	m.createCalls++
	if m.createError != nil {
		return "", m.createError
	}
	return m.docID, nil
}

func (m *mockKnowledgeBase) GetAgentConfig(ctx context.Context, agentID string) (*knowledgebase.AgentKnowledgeConfig, error) {
	m.getCalls++
	if m.getError != nil {
		return nil, m.getError
	}
	return m.config, nil
}

func (m *mockKnowledgeBase) UpdateAgentConfig(ctx context.Context, agentID string, cfg *knowledgebase.AgentKnowledgeConfig) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.updatedConfig = cfg
	return nil
}

func (m *mockKnowledgeBase) DeleteDocument(ctx context.Context, documentID string) error {
	m.deleteCalls = append(m.deleteCalls, documentID)
	if m.cleanupLog != nil {
		*m.cleanupLog = append(*m.cleanupLog, "delete_kb_document")
	}
	if m.deleteError != nil {
		return m.deleteError[documentID]
	}
	return nil
}

// mockMetadataStore Mock 元数据仓库
type mockMetadataStore struct {
	createCalls int
	deleteCalls int
	created     []*model.Document
	createError error
}

func (m *mockMetadataStore) Create(doc *model.Document) error {
	m.createCalls++
	if m.createError != nil {
		return m.createError
	}
	m.created = append(m.created, doc)
	return nil
}

func (m *mockMetadataStore) Delete(id string) error {
	m.deleteCalls++
	return nil
}

// newTestService 构造接入 mock 的编排器
func newTestService(blob *mockBlobStore, kb *mockKnowledgeBase, meta *mockMetadataStore) *Service {
	return NewService(blob, func(apiKey string) KnowledgeBase { return kb }, meta)
}

func validRequest() *Request {
	chatID := "chat-42"
	return &Request{
		FileName:    "notes.txt",
		ContentType: "text/plain",
		Content:     []byte("hello, world"),
		AgentID:     "agent-1",
		APIKey:      "key-abc",
		OwnerID:     "owner",
		ChatID:      &chatID,
	}
}

func emptyPromptConfig() *knowledgebase.AgentKnowledgeConfig {
	return &knowledgebase.AgentKnowledgeConfig{Schema: knowledgebase.SchemaPromptScoped}
}

func TestAttachHappyPath(t *testing.T) {
	blob := &mockBlobStore{
		storageKey: "owner/notes.txt-123",
		publicURL:  "https://files.example.com/owner/notes.txt-123",
	}
	kb := &mockKnowledgeBase{docID: "kb-9", config: emptyPromptConfig()}
	meta := &mockMetadataStore{}
	svc := newTestService(blob, kb, meta)

	result, err := svc.Attach(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.KBDocumentID != "kb-9" {
		t.Errorf("expected kb document id kb-9, got %s", result.KBDocumentID)
	}
	if result.StorageKey != "owner/notes.txt-123" {
		t.Errorf("expected storage key owner/notes.txt-123, got %s", result.StorageKey)
	}
	if result.PublicURL != "https://files.example.com/owner/notes.txt-123" {
		t.Errorf("unexpected public url: %s", result.PublicURL)
	}
	if result.DocumentID == "" {
		t.Error("expected repository-assigned document id")
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", result.Warnings)
	}

	// 代理配置中应恰好出现一条 kb-9 引用
	if kb.updatedConfig == nil {
		t.Fatal("agent config was never written")
	}
	if len(kb.updatedConfig.Documents) != 1 || kb.updatedConfig.Documents[0].ID != "kb-9" {
		t.Errorf("expected exactly one entry kb-9, got %+v", kb.updatedConfig.Documents)
	}
	if kb.updatedConfig.Documents[0].Type != "file" || kb.updatedConfig.Documents[0].UsageMode != "prompt" {
		t.Errorf("unexpected document ref shape: %+v", kb.updatedConfig.Documents[0])
	}

	// 元数据行在所有远端步骤之后写入
	if meta.createCalls != 1 {
		t.Errorf("expected 1 metadata insert, got %d", meta.createCalls)
	}
	doc := meta.created[0]
	if doc.OwnerID != "owner" || doc.KBDocumentID != "kb-9" || doc.StorageKey != "owner/notes.txt-123" {
		t.Errorf("unexpected metadata row: %+v", doc)
	}
	if doc.ChatID == nil || *doc.ChatID != "chat-42" {
		t.Errorf("expected chat id chat-42, got %v", doc.ChatID)
	}

	// 成功路径不应有任何删除
	if len(blob.deleteCalls) != 0 || len(kb.deleteCalls) != 0 {
		t.Errorf("unexpected cleanup on success: blob=%v kb=%v", blob.deleteCalls, kb.deleteCalls)
	}
}

func TestValidationFailsClosed(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Request)
	}{
		{"empty file", func(r *Request) { r.Content = nil }},
		{"missing file name", func(r *Request) { r.FileName = "" }},
		{"missing agent id", func(r *Request) { r.AgentID = "" }},
		{"missing api key", func(r *Request) { r.APIKey = "" }},
		{"missing owner id", func(r *Request) { r.OwnerID = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			blob := &mockBlobStore{}
			kb := &mockKnowledgeBase{docID: "kb-9", config: emptyPromptConfig()}
			meta := &mockMetadataStore{}
			svc := newTestService(blob, kb, meta)

			req := validRequest()
			tc.mutate(req)

			_, err := svc.Attach(context.Background(), req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}

			// 校验失败时不触碰任何适配器
			if blob.saveCalls != 0 || kb.createCalls != 0 || kb.getCalls != 0 || meta.createCalls != 0 {
				t.Errorf("adapters were called despite validation failure: blob=%d kbCreate=%d kbGet=%d meta=%d",
					blob.saveCalls, kb.createCalls, kb.getCalls, meta.createCalls)
			}
		})
	}
}

func TestStorageWriteFailureNeedsNoCompensation(t *testing.T) {
	blob := &mockBlobStore{saveError: fmt.Errorf("disk full")}
	kb := &mockKnowledgeBase{docID: "kb-9", config: emptyPromptConfig()}
	meta := &mockMetadataStore{}
	svc := newTestService(blob, kb, meta)

	_, err := svc.Attach(context.Background(), validRequest())
	if !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}
	if len(blob.deleteCalls) != 0 || len(kb.deleteCalls) != 0 || meta.createCalls != 0 {
		t.Error("nothing was created, nothing should be compensated")
	}
}

func TestKBCreateFailureCompensatesBlob(t *testing.T) {
	blob := &mockBlobStore{storageKey: "owner/doc-1"}
	kb := &mockKnowledgeBase{createError: fmt.Errorf("service unavailable"), config: emptyPromptConfig()}
	meta := &mockMetadataStore{}
	svc := newTestService(blob, kb, meta)

	_, err := svc.Attach(context.Background(), validRequest())
	if !errors.Is(err, ErrKBCreate) {
		t.Fatalf("expected ErrKBCreate, got %v", err)
	}

	if len(blob.deleteCalls) != 1 || blob.deleteCalls[0] != "owner/doc-1" {
		t.Errorf("expected blob owner/doc-1 to be deleted, got %v", blob.deleteCalls)
	}
	if len(kb.deleteCalls) != 0 {
		t.Errorf("no kb document was created, none should be deleted: %v", kb.deleteCalls)
	}
	if meta.createCalls != 0 {
		t.Error("metadata must never be inserted on failure")
	}
}

func TestConfigWriteFailureCompensatesInReverseOrder(t *testing.T) {
	var cleanupLog []string
	blob := &mockBlobStore{storageKey: "owner/doc-1", cleanupLog: &cleanupLog}
	kb := &mockKnowledgeBase{
		docID:       "kb-9",
		config:      emptyPromptConfig(),
		updateError: fmt.Errorf("config rejected"),
		cleanupLog:  &cleanupLog,
	}
	meta := &mockMetadataStore{}
	svc := newTestService(blob, kb, meta)

	_, err := svc.Attach(context.Background(), validRequest())
	if !errors.Is(err, ErrKBUpdate) {
		t.Fatalf("expected ErrKBUpdate, got %v", err)
	}

	// 按创建的逆序补偿：先删知识库文档，再删 Blob
	want := []string{"delete_kb_document", "delete_blob"}
	if len(cleanupLog) != len(want) {
		t.Fatalf("expected cleanup %v, got %v", want, cleanupLog)
	}
	for i := range want {
		if cleanupLog[i] != want[i] {
			t.Fatalf("expected cleanup %v, got %v", want, cleanupLog)
		}
	}
	if kb.deleteCalls[0] != "kb-9" {
		t.Errorf("expected kb-9 to be deleted, got %v", kb.deleteCalls)
	}
	if meta.createCalls != 0 {
		t.Error("metadata must never be inserted when config write fails")
	}
}

func TestConfigReadFailureCompensates(t *testing.T) {
	blob := &mockBlobStore{storageKey: "owner/doc-1"}
	kb := &mockKnowledgeBase{docID: "kb-9", getError: fmt.Errorf("agent not found")}
	meta := &mockMetadataStore{}
	svc := newTestService(blob, kb, meta)

	_, err := svc.Attach(context.Background(), validRequest())
	if !errors.Is(err, ErrKBRead) {
		t.Fatalf("expected ErrKBRead, got %v", err)
	}
	if len(kb.deleteCalls) != 1 || kb.deleteCalls[0] != "kb-9" {
		t.Errorf("expected kb document cleanup, got %v", kb.deleteCalls)
	}
	if len(blob.deleteCalls) != 1 {
		t.Errorf("expected blob cleanup, got %v", blob.deleteCalls)
	}
	if meta.createCalls != 0 {
		t.Error("metadata must never be inserted on failure")
	}
}

func TestMetadataFailureCompensatesRemoteResources(t *testing.T) {
	blob := &mockBlobStore{storageKey: "owner/doc-1"}
	kb := &mockKnowledgeBase{docID: "kb-9", config: emptyPromptConfig()}
	meta := &mockMetadataStore{createError: fmt.Errorf("unique violation")}
	svc := newTestService(blob, kb, meta)

	_, err := svc.Attach(context.Background(), validRequest())
	if !errors.Is(err, ErrMetadataWrite) {
		t.Fatalf("expected ErrMetadataWrite, got %v", err)
	}
	if len(kb.deleteCalls) != 1 || kb.deleteCalls[0] != "kb-9" {
		t.Errorf("expected kb document cleanup, got %v", kb.deleteCalls)
	}
	if len(blob.deleteCalls) != 1 {
		t.Errorf("expected blob cleanup, got %v", blob.deleteCalls)
	}
}

func TestCleanupFailureDoesNotMaskOriginalError(t *testing.T) {
	blob := &mockBlobStore{
		storageKey:  "owner/doc-1",
		deleteError: fmt.Errorf("delete rejected"),
	}
	kb := &mockKnowledgeBase{createError: fmt.Errorf("quota exceeded"), config: emptyPromptConfig()}
	meta := &mockMetadataStore{}
	svc := newTestService(blob, kb, meta)

	_, err := svc.Attach(context.Background(), validRequest())
	if !errors.Is(err, ErrKBCreate) {
		t.Fatalf("error must remain attributable to kb creation, got %v", err)
	}
	if errors.Is(err, ErrStorageDelete) {
		t.Error("cleanup failure leaked into the returned error")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("original cause missing from error: %v", err)
	}
}

func TestReplaceSemanticsCleanup(t *testing.T) {
	blob := &mockBlobStore{
		storageKey: "owner/doc-1",
		publicURL:  "https://files.example.com/owner/doc-1",
	}
	kb := &mockKnowledgeBase{
		docID: "kb-new",
		config: &knowledgebase.AgentKnowledgeConfig{
			Schema: knowledgebase.SchemaFlatIDs,
			IDs:    []string{"kb-old-1", "kb-old-2"},
		},
	}
	meta := &mockMetadataStore{}
	svc := newTestService(blob, kb, meta)

	result, err := svc.Attach(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 配置整体替换为新ID
	if kb.updatedConfig == nil {
		t.Fatal("agent config was never written")
	}
	if len(kb.updatedConfig.IDs) != 1 || kb.updatedConfig.IDs[0] != "kb-new" {
		t.Errorf("expected config to be exactly [kb-new], got %v", kb.updatedConfig.IDs)
	}

	// 每个旧ID恰好删除一次，新ID绝不删除
	deleted := map[string]int{}
	for _, id := range kb.deleteCalls {
		deleted[id]++
	}
	if deleted["kb-old-1"] != 1 || deleted["kb-old-2"] != 1 {
		t.Errorf("expected each superseded id deleted exactly once, got %v", deleted)
	}
	if deleted["kb-new"] != 0 {
		t.Error("new document must never be deleted on success")
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", result.Warnings)
	}
}

func TestReplaceSemanticsCleanupFailureIsWarning(t *testing.T) {
	blob := &mockBlobStore{
		storageKey: "owner/doc-1",
		publicURL:  "https://files.example.com/owner/doc-1",
	}
	kb := &mockKnowledgeBase{
		docID: "kb-new",
		config: &knowledgebase.AgentKnowledgeConfig{
			Schema: knowledgebase.SchemaFlatIDs,
			IDs:    []string{"kb-old-1"},
		},
		deleteError: map[string]error{"kb-old-1": fmt.Errorf("gone already")},
	}
	meta := &mockMetadataStore{}
	svc := newTestService(blob, kb, meta)

	result, err := svc.Attach(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("superseded cleanup failure must not fail the attach: %v", err)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "kb-old-1") {
		t.Errorf("expected a warning naming kb-old-1, got %v", result.Warnings)
	}
	if meta.createCalls != 1 {
		t.Error("metadata row must still be written")
	}
}

func TestIdempotentMergeLeavesConfigUnchanged(t *testing.T) {
	cfg := emptyPromptConfig()
	cfg.Merge("kb-9", "notes.txt")

	blob := &mockBlobStore{storageKey: "owner/doc-1"}
	kb := &mockKnowledgeBase{docID: "kb-9", config: cfg}
	meta := &mockMetadataStore{}
	svc := newTestService(blob, kb, meta)

	_, err := svc.Attach(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kb.updatedConfig.Documents) != 1 {
		t.Errorf("duplicate id must not be appended, got %+v", kb.updatedConfig.Documents)
	}
}

func TestMissingPublicURLIsWarning(t *testing.T) {
	blob := &mockBlobStore{storageKey: "owner/doc-1", publicURL: ""}
	kb := &mockKnowledgeBase{docID: "kb-9", config: emptyPromptConfig()}
	meta := &mockMetadataStore{}
	svc := newTestService(blob, kb, meta)

	result, err := svc.Attach(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("missing public URL must not fail the attach: %v", err)
	}
	if result.PublicURL != "" {
		t.Errorf("expected empty public url, got %s", result.PublicURL)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected a single warning, got %v", result.Warnings)
	}
}

func TestConcurrentAttachesToSameAgentSerialize(t *testing.T) {
	// 两个并发挂载读到的配置必须包含对方的写入结果
	cfg := emptyPromptConfig()
	kb := &serializingKB{config: cfg}
	blob := &mockBlobStore{storageKey: "owner/doc-1"}
	meta := &mockMetadataStore{}
	svc := NewService(blob, func(string) KnowledgeBase { return kb }, meta)

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			req := validRequest()
			_, err := svc.Attach(context.Background(), req)
			done <- err
		}(i)
	}
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if kb.maxInFlight > 1 {
		t.Errorf("attaches to the same agent overlapped: max in-flight %d", kb.maxInFlight)
	}
}

// serializingKB 记录并发窗口的 mock，用于验证按代理串行化
type serializingKB struct {
	config      *knowledgebase.AgentKnowledgeConfig
	inFlight    int
	maxInFlight int
	seq         int
}

func (m *serializingKB) CreateDocument(ctx context.Context, content []byte, contentType, name string) (string, error) {
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.seq++
	return fmt.Sprintf("kb-%d", m.seq), nil
}

func (m *serializingKB) GetAgentConfig(ctx context.Context, agentID string) (*knowledgebase.AgentKnowledgeConfig, error) {
	return m.config, nil
}

func (m *serializingKB) UpdateAgentConfig(ctx context.Context, agentID string, cfg *knowledgebase.AgentKnowledgeConfig) error {
	m.config = cfg
	m.inFlight--
	return nil
}

func (m *serializingKB) DeleteDocument(ctx context.Context, documentID string) error {
	return nil
}
