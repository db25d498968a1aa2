package attachment

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/hannanlabs/socrates/internal/service/knowledgebase"
)

func TestErrorUnwrapExposesKindAndCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := newError(ErrKBCreate, stepCreatingKBDoc, cause)

	if !errors.Is(err, ErrKBCreate) {
		t.Error("errors.Is must match the kind sentinel")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is must match the original cause")
	}
	if errors.Is(err, ErrStorageWrite) {
		t.Error("errors.Is must not match an unrelated sentinel")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", newError(ErrValidation, stepValidate, fmt.Errorf("missing agent id")), http.StatusBadRequest},
		{"remote status carried", newError(ErrKBCreate, stepCreatingKBDoc,
			&knowledgebase.StatusError{StatusCode: http.StatusPaymentRequired, Detail: "quota exceeded"}), http.StatusPaymentRequired},
		{"internal", newError(ErrMetadataWrite, stepPersistingMeta, fmt.Errorf("db down")), http.StatusInternalServerError},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HTTPStatus(tc.err); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	validation := newError(ErrValidation, stepValidate, fmt.Errorf("agent id is required"))
	if got := UserMessage(validation); got != "agent id is required" {
		t.Errorf("validation message must surface the cause, got %q", got)
	}

	remote := newError(ErrKBUpdate, stepWritingAgentCfg,
		&knowledgebase.StatusError{StatusCode: 422, Detail: "invalid agent config"})
	if got := UserMessage(remote); got != "invalid agent config" {
		t.Errorf("remote detail must be surfaced, got %q", got)
	}

	internal := newError(ErrMetadataWrite, stepPersistingMeta, fmt.Errorf("pq: unique violation on documents_storage_key"))
	if got := UserMessage(internal); got != ErrMetadataWrite.Error() {
		t.Errorf("internal details must not leak to the user, got %q", got)
	}
}
