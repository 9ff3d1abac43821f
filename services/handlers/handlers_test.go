package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Calstins/teensha/dto"
	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
	"github.com/gofiber/fiber/v2"
)

type stubEngine struct {
	EngineInterface
	submitted *engine.SubmitInput
}

func (s *stubEngine) SubmitTask(_ context.Context, in engine.SubmitInput) (*model.Submission, error) {
	s.submitted = &in
	return &model.Submission{ID: "sub-1", TaskID: in.TaskID, TeenID: in.TeenID, Status: model.SubmissionApproved}, nil
}

type stubWebhook struct {
	outcome *engine.PaymentOutcome
	err     error
	body    []byte
	sig     string
}

func (s *stubWebhook) HandlePaymentWebhook(_ context.Context, body []byte, signature string) (*engine.PaymentOutcome, error) {
	s.body = body
	s.sig = signature
	return s.outcome, s.err
}

type stubAuth struct {
	AuthServiceInterface
	registered int
}

func (s *stubAuth) RegisterTeen(context.Context, dto.RegisterTeenRequest) (*dto.LoginResponse, error) {
	s.registered++
	return &dto.LoginResponse{}, nil
}

func newTestApp(userID string) *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder:  shared.JSONMarshal,
		JSONDecoder:  shared.JSONUnmarshal,
		ErrorHandler: shared.ResponseError,
	})
	app.Use(func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals(shared.UserID, userID)
			c.Locals(shared.UserRole, shared.RoleTeen)
		}
		return c.Next()
	})
	return app
}

func decodeResponse(t *testing.T, resp *http.Response) shared.Response {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out shared.Response
	if err := shared.JSONUnmarshal(raw, &out); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return out
}

func TestWebhookResponses(t *testing.T) {
	tests := []struct {
		name     string
		outcome  *engine.PaymentOutcome
		err      error
		wantCode int
		wantMsg  string
	}{
		{"bad signature", nil, shared.NewUnauthorizedError(nil, "invalid webhook signature"), http.StatusUnauthorized, "invalid webhook signature"},
		{"unknown reference", nil, shared.NewNotFoundError(nil, "transaction not found"), http.StatusOK, "ignored"},
		{"applied", &engine.PaymentOutcome{Applied: true}, nil, http.StatusOK, "processed"},
		{"duplicate", &engine.PaymentOutcome{Applied: false}, nil, http.StatusOK, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			webhook := &stubWebhook{outcome: tt.outcome, err: tt.err}
			app := newTestApp("")
			app.Post("/payments/webhook", NewPaymentHandler(&stubEngine{}, webhook, nil).Webhook)

			body := `{"order_id":"BDG-1","transaction_status":"settlement"}`
			req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			req.Header.Set(SignatureHeader, "abc123")

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if got := decodeResponse(t, resp); got.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", got.Message, tt.wantMsg)
			}
			if string(webhook.body) != body || webhook.sig != "abc123" {
				t.Errorf("webhook got body %q signature %q", webhook.body, webhook.sig)
			}
		})
	}
}

func TestRegisterRejectsInvalidBody(t *testing.T) {
	auth := &stubAuth{}
	app := newTestApp("")
	app.Post("/register", NewAuthHandler(auth, nil).RegisterTeen)

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"email":"not-an-email","name":"A","password":"weak","age":25}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if auth.registered != 0 {
		t.Error("service called for an invalid request")
	}
}

func TestSubmitTaskMultipart(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("payload", `{"text":"I saved 20% of my allowance"}`); err != nil {
		t.Fatal(err)
	}
	part, err := w.CreateFormFile("files", "receipt.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("\x89PNG\r\n\x1a\nfake")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	eng := &stubEngine{}
	app := newTestApp("teen-1")
	app.Post("/tasks/:taskId/submissions", NewSubmissionHandler(eng, nil).SubmitTask)

	req := httptest.NewRequest(http.MethodPost, "/tasks/task-9/submissions", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	in := eng.submitted
	if in == nil {
		t.Fatal("engine not called")
	}
	if in.TeenID != "teen-1" || in.TaskID != "task-9" {
		t.Errorf("submitted for teen %q task %q", in.TeenID, in.TaskID)
	}
	if in.Payload != `{"text":"I saved 20% of my allowance"}` {
		t.Errorf("payload = %q", in.Payload)
	}
	if len(in.Files) != 1 || in.Files[0].Name != "receipt.png" || in.Files[0].Size != 12 {
		t.Errorf("files = %+v", in.Files)
	}
}

func TestSubmitTaskRequiresPayload(t *testing.T) {
	eng := &stubEngine{}
	app := newTestApp("teen-1")
	app.Post("/tasks/:taskId/submissions", NewSubmissionHandler(eng, nil).SubmitTask)

	req := httptest.NewRequest(http.MethodPost, "/tasks/task-9/submissions", strings.NewReader(`{}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if eng.submitted != nil {
		t.Error("engine called without a payload")
	}
}

func TestRaffleStatusRejectsBadYear(t *testing.T) {
	app := newTestApp("teen-1")
	app.Get("/raffle/me/:year", NewProgressHandler(&stubEngine{}, nil).RaffleStatus)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/raffle/me/next", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
