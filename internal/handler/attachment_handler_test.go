package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/hannanlabs/socrates/internal/middleware"
	"github.com/hannanlabs/socrates/internal/service/attachment"
	"github.com/hannanlabs/socrates/internal/service/knowledgebase"
)

// mockAttacher Mock 挂载编排器
type mockAttacher struct {
	lastRequest *attachment.Request
	result      *attachment.Result
	err         error
}

func (m *mockAttacher) Attach(ctx context.Context, req *attachment.Request) (*attachment.Result, error) {
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func newAttachRouter(svc *mockAttacher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/agent/documents", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "user-1")
		NewAttachmentHandler(svc).AttachDocument(c)
	})
	return r
}

func multipartBody(t *testing.T, fields map[string]string, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("failed to build form: %v", err)
		}
		fw.Write([]byte(fileContent))
	}
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()
	return &body, w.FormDataContentType()
}

func TestAttachDocumentSuccess(t *testing.T) {
	pageCount := 3
	svc := &mockAttacher{result: &attachment.Result{
		DocumentID:   "doc-1",
		KBDocumentID: "kb-9",
		StorageKey:   "user-1/abc-report.pdf",
		PublicURL:    "https://files.example.com/user-1/abc-report.pdf",
		PageCount:    &pageCount,
	}}
	router := newAttachRouter(svc)

	body, contentType := multipartBody(t, map[string]string{
		"api_key":  "key-abc",
		"agent_id": "agent-1",
		"chat_id":  "chat-42",
	}, "report.pdf", "%PDF-1.4 ...")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/agent/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["newDocumentId"] != "kb-9" || resp["documentId"] != "doc-1" {
		t.Errorf("unexpected response: %v", resp)
	}
	if resp["pageCount"] != float64(3) {
		t.Errorf("expected pageCount 3, got %v", resp["pageCount"])
	}
	if _, ok := resp["warnings"]; ok {
		t.Error("warnings key must be omitted when empty")
	}

	// 请求字段透传到编排器，OwnerID 来自认证上下文
	got := svc.lastRequest
	if got.FileName != "report.pdf" || got.AgentID != "agent-1" || got.APIKey != "key-abc" {
		t.Errorf("unexpected orchestrator request: %+v", got)
	}
	if got.OwnerID != "user-1" {
		t.Errorf("owner must come from the authenticated user, got %s", got.OwnerID)
	}
	if got.ChatID == nil || *got.ChatID != "chat-42" {
		t.Errorf("chat id not forwarded: %v", got.ChatID)
	}
}

func TestAttachDocumentMissingFile(t *testing.T) {
	svc := &mockAttacher{}
	router := newAttachRouter(svc)

	body, contentType := multipartBody(t, map[string]string{"api_key": "k", "agent_id": "a"}, "", "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/agent/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.lastRequest != nil {
		t.Error("orchestrator must not be called without a file")
	}
}

func TestAttachDocumentValidationErrorMapsTo400(t *testing.T) {
	svc := &mockAttacher{err: &attachment.Error{
		Kind:  attachment.ErrValidation,
		Step:  "validate",
		Cause: fmt.Errorf("agent id is required"),
	}}
	router := newAttachRouter(svc)

	body, contentType := multipartBody(t, map[string]string{"api_key": "k"}, "a.txt", "x")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/agent/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error"] != "agent id is required" {
		t.Errorf("unexpected error message: %q", resp["error"])
	}
}

func TestAttachDocumentCarriesRemoteStatus(t *testing.T) {
	svc := &mockAttacher{err: &attachment.Error{
		Kind: attachment.ErrKBCreate,
		Step: "creating_kb_document",
		Cause: &knowledgebase.StatusError{
			StatusCode: http.StatusUnauthorized,
			Detail:     "invalid api key",
		},
	}}
	router := newAttachRouter(svc)

	body, contentType := multipartBody(t, map[string]string{"api_key": "bad", "agent_id": "a"}, "a.txt", "x")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/agent/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 carried from the remote service, got %d", rec.Code)
	}

	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error"] != "invalid api key" {
		t.Errorf("unexpected error message: %q", resp["error"])
	}
}

func TestAttachDocumentInternalErrorMapsTo500(t *testing.T) {
	svc := &mockAttacher{err: errors.New("boom")}
	router := newAttachRouter(svc)

	body, contentType := multipartBody(t, map[string]string{"api_key": "k", "agent_id": "a"}, "a.txt", "x")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/agent/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
