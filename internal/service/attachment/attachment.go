// Package attachment 实现文档挂载编排：
// 文件先后经过 Blob 存储、知识库服务和元数据库，三个系统之间没有事务，
// 靠严格的步骤顺序和逆序补偿保证一致性。
package attachment

import (
	"bytes"
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hannanlabs/socrates/internal/metrics"
	"github.com/hannanlabs/socrates/internal/model"
	"github.com/hannanlabs/socrates/internal/service/knowledgebase"
	"github.com/hannanlabs/socrates/internal/service/storage"
)

// 状态机步骤，严格按序执行，任何步骤都不自动重试
const (
	stepValidate        = "validate"
	stepUploadingBlob   = "uploading_blob"
	stepCreatingKBDoc   = "creating_kb_document"
	stepReadingAgentCfg = "reading_agent_config"
	stepWritingAgentCfg = "writing_agent_config"
	stepPersistingMeta  = "persisting_metadata"
)

// BlobStore Blob 存储适配器契约
type BlobStore interface {
	Save(ctx context.Context, req *storage.SaveRequest) (string, error)
	Delete(ctx context.Context, storageKey string) error
	GetURL(storageKey string) string
}

// KnowledgeBase 知识库适配器契约
type KnowledgeBase interface {
	CreateDocument(ctx context.Context, content []byte, contentType, name string) (string, error)
	GetAgentConfig(ctx context.Context, agentID string) (*knowledgebase.AgentKnowledgeConfig, error)
	UpdateAgentConfig(ctx context.Context, agentID string, cfg *knowledgebase.AgentKnowledgeConfig) error
	DeleteDocument(ctx context.Context, documentID string) error
}

// KnowledgeBaseFactory 按请求携带的凭证构造知识库客户端
type KnowledgeBaseFactory func(apiKey string) KnowledgeBase

// MetadataStore 文档元数据仓库契约
type MetadataStore interface {
	Create(doc *model.Document) error
	Delete(id string) error
}

// Request 一次挂载请求
type Request struct {
	FileName    string
	ContentType string
	Content     []byte
	AgentID     string
	APIKey      string
	OwnerID     string
	ChatID      *string
}

// Result 挂载成功的统一返回
type Result struct {
	DocumentID   string // 元数据行ID
	KBDocumentID string // 知识库服务分配的文档ID
	StorageKey   string
	PublicURL    string   // 可能为空，空时附带警告
	PageCount    *int     // 仅 PDF
	Warnings     []string // 非致命问题：URL 缺失、旧文档清理失败等
}

// Service 挂载编排器，无持久状态的协调者
type Service struct {
	blob      BlobStore
	newKB     KnowledgeBaseFactory
	meta      MetadataStore
	locks     *agentLocks
	lease     *redisLease
	serialize bool
}

// Option 编排器选项
type Option func(*Service)

// WithRedisLease 叠加 Redis 租约，多实例部署时跨进程串行化同一代理的挂载
func WithRedisLease(client *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		if client != nil {
			s.lease = &redisLease{client: client, ttl: ttl}
		}
	}
}

// WithoutAgentSerialization 关闭按代理串行化，仅适用于单用户单代理部署
func WithoutAgentSerialization() Option {
	return func(s *Service) {
		s.serialize = false
	}
}

// NewService 创建挂载编排器
func NewService(blob BlobStore, newKB KnowledgeBaseFactory, meta MetadataStore, opts ...Option) *Service {
	s := &Service{
		blob:      blob,
		newKB:     newKB,
		meta:      meta,
		locks:     newAgentLocks(),
		serialize: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// undo 补偿动作，资源创建成功后入栈，失败时逆序回放
type undo struct {
	action string
	fn     func(ctx context.Context) error
}

// Attach 单一入口：上传 Blob → 创建知识库文档 → 读取代理配置 →
// 合并写回 → 写入元数据。任何失败触发对已成功步骤的逆序补偿。
func (s *Service) Attach(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	result, err := s.attach(ctx, req)
	if err != nil {
		metrics.RecordAttachment("failed", time.Since(start))
	} else {
		metrics.RecordAttachment("success", time.Since(start))
	}
	return result, err
}

func (s *Service) attach(ctx context.Context, req *Request) (*Result, error) {
	// 校验失败直接终止，此时没有任何副作用需要补偿
	if err := validate(req); err != nil {
		metrics.RecordAttachmentStepError(stepValidate)
		return nil, newError(ErrValidation, stepValidate, err)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// 代理配置的 read-modify-write 必须串行，否则并发挂载互相丢失更新
	if s.serialize {
		unlock := s.locks.acquire(req.AgentID)
		defer unlock()
	}
	if s.lease != nil {
		release := s.lease.acquire(ctx, req.AgentID)
		defer release()
	}

	kb := s.newKB(req.APIKey)

	var undos []undo
	var warnings []string

	// UploadingBlob
	storageKey, err := s.blob.Save(ctx, &storage.SaveRequest{
		OwnerID:     req.OwnerID,
		FileName:    req.FileName,
		ContentType: contentType,
		Size:        int64(len(req.Content)),
		Reader:      bytes.NewReader(req.Content),
	})
	if err != nil {
		return nil, s.fail(ErrStorageWrite, stepUploadingBlob, err, undos)
	}
	undos = append(undos, undo{
		action: "delete_blob",
		fn: func(ctx context.Context) error {
			return s.blob.Delete(ctx, storageKey)
		},
	})

	publicURL := s.blob.GetURL(storageKey)
	if publicURL == "" {
		warnings = append(warnings, "public URL is unavailable for the stored file")
	}

	// CreatingKBDocument
	kbDocID, err := kb.CreateDocument(ctx, req.Content, contentType, req.FileName)
	if err != nil {
		return nil, s.fail(ErrKBCreate, stepCreatingKBDoc, err, undos)
	}
	undos = append(undos, undo{
		action: "delete_kb_document",
		fn: func(ctx context.Context) error {
			return kb.DeleteDocument(ctx, kbDocID)
		},
	})

	// ReadingAgentConfig：写之前总是重新读取，不跨调用缓存
	cfg, err := kb.GetAgentConfig(ctx, req.AgentID)
	if err != nil {
		return nil, s.fail(ErrKBRead, stepReadingAgentCfg, err, undos)
	}

	// WritingAgentConfig
	var superseded []string
	switch cfg.Schema {
	case knowledgebase.SchemaFlatIDs:
		superseded = cfg.Replace(kbDocID)
	default:
		if !cfg.Merge(kbDocID, req.FileName) {
			log.Printf("document %s already referenced by agent %s, config unchanged", kbDocID, req.AgentID)
		}
	}
	if err := kb.UpdateAgentConfig(ctx, req.AgentID, cfg); err != nil {
		return nil, s.fail(ErrKBUpdate, stepWritingAgentCfg, err, undos)
	}

	// PersistingMetadata
	doc := &model.Document{
		ID:           uuid.New().String(),
		OwnerID:      req.OwnerID,
		ChatID:       req.ChatID,
		FileName:     req.FileName,
		FileSize:     int64(len(req.Content)),
		ContentType:  contentType,
		StorageKey:   storageKey,
		KBDocumentID: kbDocID,
		PageCount:    pdfPageCount(req.Content, contentType, req.FileName),
	}
	if err := s.meta.Create(doc); err != nil {
		// 回滚代理配置的写入本身不是原子操作，这里不尝试；
		// 配置中会留下一个指向已删除文档的引用，属于罕见的需人工修正的不一致
		log.Printf("ERROR: metadata insert failed after agent %s config was updated; "+
			"config now references kb document %s which will be deleted by compensation, "+
			"manual correction required", req.AgentID, kbDocID)
		return nil, s.fail(ErrMetadataWrite, stepPersistingMeta, err, undos)
	}

	// 扁平ID形态是替换语义：新文档挂载并落库成功后，清理被替换掉的旧文档
	// 清理失败不影响本次挂载结果，只降级为警告
	for _, oldID := range superseded {
		if err := kb.DeleteDocument(ctx, oldID); err != nil {
			log.Printf("failed to delete superseded kb document %s: %v", oldID, err)
			metrics.RecordCompensation("delete_superseded_document", "failed")
			warnings = append(warnings, "failed to delete superseded document "+oldID)
			continue
		}
		metrics.RecordCompensation("delete_superseded_document", "ok")
	}

	return &Result{
		DocumentID:   doc.ID,
		KBDocumentID: kbDocID,
		StorageKey:   storageKey,
		PublicURL:    publicURL,
		PageCount:    doc.PageCount,
		Warnings:     warnings,
	}, nil
}

// fail 记录失败步骤、回放补偿栈并构造返回给调用方的错误
// 补偿动作各自独立、best-effort，其错误只记日志，绝不覆盖原始错误
func (s *Service) fail(kind error, step string, cause error, undos []undo) error {
	metrics.RecordAttachmentStepError(step)

	if len(undos) > 0 {
		log.Printf("attachment failed at %s, compensating %d prior actions: %v", step, len(undos), cause)
	}
	for i := len(undos) - 1; i >= 0; i-- {
		u := undos[i]
		// 调用方的 ctx 可能已经取消，补偿用独立的超时上下文
		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := u.fn(cctx)
		cancel()
		if err != nil {
			log.Printf("compensation %s failed: %v", u.action, err)
			metrics.RecordCompensation(u.action, "failed")
			continue
		}
		metrics.RecordCompensation(u.action, "ok")
	}

	return newError(kind, step, cause)
}

// validate 校验请求，缺任何必填项都直接失败，不触碰任何适配器
func validate(req *Request) error {
	switch {
	case req == nil:
		return errors.New("request is required")
	case len(req.Content) == 0:
		return errors.New("file content is required")
	case req.FileName == "":
		return errors.New("file name is required")
	case req.AgentID == "":
		return errors.New("agent id is required")
	case req.APIKey == "":
		return errors.New("api key is required")
	case req.OwnerID == "":
		return errors.New("owner id is required")
	}
	return nil
}
