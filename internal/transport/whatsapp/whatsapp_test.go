package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	kit "remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

func testConfig() Config {
	return Config{
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+14155238886",
	}
}

func TestWebhookEmitsUpdate(t *testing.T) {
	t.Parallel()
	a, err := New(testConfig(), logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out := make(chan kit.Update, 1)
	var outSend chan<- kit.Update = out
	a.out.Store(outSend)

	form := url.Values{}
	form.Set("From", "whatsapp:+15551234567")
	form.Set("Body", "remind me to call mom in 2 hours")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.handleWebhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/xml" {
		t.Fatalf("content type = %q, want text/xml", ct)
	}
	if !strings.Contains(rec.Body.String(), "<Response>") {
		t.Fatalf("expected TwiML body, got %q", rec.Body.String())
	}

	select {
	case up := <-out:
		if up.From != "whatsapp:+15551234567" {
			t.Fatalf("From = %q", up.From)
		}
		if up.Text != "remind me to call mom in 2 hours" {
			t.Fatalf("Text = %q", up.Text)
		}
	default:
		t.Fatal("no update emitted")
	}
}

func TestWebhookIgnoresNonWhatsAppSender(t *testing.T) {
	t.Parallel()
	a, err := New(testConfig(), logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := make(chan kit.Update, 1)
	var outSend chan<- kit.Update = out
	a.out.Store(outSend)

	form := url.Values{}
	form.Set("From", "sms:+15551234567")
	form.Set("Body", "hello")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.handleWebhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	select {
	case up := <-out:
		t.Fatalf("unexpected update: %+v", up)
	default:
	}
}

func TestSendTextPostsTwilioForm(t *testing.T) {
	t.Parallel()
	var gotPath, gotTo, gotFrom, gotBody, gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		_ = r.ParseForm()
		gotTo = r.PostFormValue("To")
		gotFrom = r.PostFormValue("From")
		gotBody = r.PostFormValue("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.APIBase = srv.URL
	a, err := New(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := a.SendText(context.Background(), "whatsapp:+15551234567", "⏰ REMINDER: call mom"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	if gotPath != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotUser != "AC123" || gotPass != "secret" {
		t.Fatalf("basic auth = %q:%q", gotUser, gotPass)
	}
	if gotTo != "whatsapp:+15551234567" {
		t.Fatalf("To = %q", gotTo)
	}
	if gotFrom != "whatsapp:+14155238886" {
		t.Fatalf("From = %q", gotFrom)
	}
	if gotBody != "⏰ REMINDER: call mom" {
		t.Fatalf("Body = %q", gotBody)
	}
}

func TestSendTextFailureSurfacesError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"unreachable"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.APIBase = srv.URL
	a, err := New(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := a.SendText(context.Background(), "whatsapp:+15551234567", "hi"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if err := a.SendText(context.Background(), "telegram:123", "hi"); err == nil {
		t.Fatal("expected error for wrong-channel recipient")
	}
}
