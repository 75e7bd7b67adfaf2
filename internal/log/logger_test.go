package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogger_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Output: &buf, Component: ComponentLedger})

	logger.InfoContext(context.Background(), "Transaction added", FieldUserID, 7)

	out := buf.String()
	if !strings.Contains(out, "component=ledger") {
		t.Errorf("missing component in %q", out)
	}
	if !strings.Contains(out, "user_id=7") {
		t.Errorf("missing user_id in %q", out)
	}
	if strings.Count(out, "component=") != 1 {
		t.Errorf("component logged more than once: %q", out)
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf})

	base.WithComponent(ComponentAuth).WarnContext(context.Background(), "Login failed")

	if !strings.Contains(buf.String(), "component=auth") {
		t.Errorf("expected auth component, got %q", buf.String())
	}
	buf.Reset()
	base.InfoContext(context.Background(), "Started")
	if !strings.Contains(buf.String(), "component=app") {
		t.Errorf("base component changed: %q", buf.String())
	}
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithError(errors.New("boom"), "InternalError").
		WithUser(0).
		WithOperation(OpCreate)

	if fields[FieldError] != "boom" || fields[FieldErrorKind] != "InternalError" {
		t.Errorf("unexpected error fields: %v", fields)
	}
	if _, ok := fields[FieldUserID]; ok {
		t.Error("anonymous user should not be logged")
	}
	if len(fields.ToSlice()) != 2*len(fields) {
		t.Errorf("ToSlice length = %d, want %d", len(fields.ToSlice()), 2*len(fields))
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})

	type key struct{}
	handler := Middleware(logger)(RequestIDMiddleware(func(ctx context.Context) string {
		id, _ := ctx.Value(key{}).(string)
		return id
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "handled")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), key{}, "req_abc"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "request_id=req_abc") {
		t.Errorf("expected request id in %q", buf.String())
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext returned nil")
	}
}
