// Package whatsapp is the WhatsApp transport, backed by the Twilio
// messaging API. Outbound messages POST the REST API; inbound messages
// arrive on a small webhook HTTP server and are acknowledged with an
// empty TwiML response (replies go out through the REST API like any
// other send).
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	rtsup "remindbot/internal/runtime/supervisor"
	kit "remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

const defaultAPIBase = "https://api.twilio.com"

// Empty TwiML acknowledgment for inbound webhooks.
const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

type Config struct {
	AccountSID string
	AuthToken  string

	// FromNumber is the sending WhatsApp number in E.164 form ("+14155238886").
	FromNumber string

	// WebhookAddr is the listen address for inbound message webhooks.
	// Prefer binding to localhost behind a reverse proxy.
	WebhookAddr string

	// APIBase overrides the Twilio API base URL (tests).
	APIBase string
}

type Adapter struct {
	cfg  Config
	log  logx.Logger
	http *http.Client

	out atomic.Value // stores (chan<- kit.Update)

	runMu   sync.Mutex
	running bool
	srv     *http.Server
	sup     *rtsup.Supervisor
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" || strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, errors.New("whatsapp account sid and auth token are required")
	}
	if strings.TrimSpace(cfg.FromNumber) == "" {
		return nil, errors.New("whatsapp from number is required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{
		cfg:  cfg,
		log:  log,
		http: &http.Client{Timeout: 10 * time.Second},
	}
	var nilOut chan<- kit.Update
	a.out.Store(nilOut)
	return a, nil
}

func (a *Adapter) Channel() string { return kit.ChannelWhatsApp }

func (a *Adapter) Start(ctx context.Context, out chan<- kit.Update) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		return nil
	}
	a.running = true
	a.out.Store(out)

	if strings.TrimSpace(a.cfg.WebhookAddr) == "" {
		// Send-only mode: no inbound webhook configured.
		a.log.Info("whatsapp webhook disabled (no listen address)")
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", a.handleWebhook)

	a.srv = &http.Server{
		Addr:         a.cfg.WebhookAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "whatsapp.adapter"))),
		rtsup.WithCancelOnError(false),
	)
	srv := a.srv
	a.sup.Go("webhook.serve", func(c context.Context) error {
		a.log.Info("webhook listening", logx.String("addr", srv.Addr))
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	a.sup.Go0("webhook.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	})

	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	srv := a.srv
	a.sup = nil
	a.srv = nil
	wasRunning := a.running
	a.running = false
	var nilOut chan<- kit.Update
	a.out.Store(nilOut)
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if srv != nil {
		_ = srv.Shutdown(ctx)
	}
	if sup != nil {
		sup.Cancel()
		return sup.Wait(ctx)
	}
	return nil
}

// handleWebhook accepts Twilio's form-encoded inbound message callbacks.
// Twilio's From field ("whatsapp:+15551234567") is already in our
// channel-prefixed address format and is used verbatim.
func (a *Adapter) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	from := strings.TrimSpace(r.PostFormValue("From"))
	body := strings.TrimSpace(r.PostFormValue("Body"))

	if channel, _, ok := kit.SplitAddress(from); ok && channel == kit.ChannelWhatsApp && body != "" {
		v := a.out.Load()
		if out, _ := v.(chan<- kit.Update); out != nil {
			select {
			case out <- kit.Update{From: from, Text: body}:
			default:
				a.log.Warn("inbound whatsapp message dropped (channel full)")
			}
		}
	} else {
		a.log.Debug("ignoring webhook payload", logx.String("from", from))
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, emptyTwiML)
}

func (a *Adapter) SendText(ctx context.Context, recipient, text string) error {
	channel, _, ok := kit.SplitAddress(recipient)
	if !ok || channel != kit.ChannelWhatsApp {
		return kit.ErrUnknownChannel
	}

	form := url.Values{}
	form.Set("To", recipient)
	form.Set("From", kit.JoinAddress(kit.ChannelWhatsApp, a.cfg.FromNumber))
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", a.cfg.APIBase, a.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.cfg.AccountSID, a.cfg.AuthToken)

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp send failed: http=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}
