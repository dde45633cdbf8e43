// Package dispatch turns engine decisions into delivered messages: template
// rendering, per-channel rate limiting, suppression rules and transport
// timeouts live here. Transports themselves (SMTP, Telegram) are collaborators
// behind small interfaces.
package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"reminderbot/internal/engine"
	logx "reminderbot/pkg/logx"
)

// EmailSender delivers one rendered email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ChatSender delivers one rendered message to a group chat.
type ChatSender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Options tunes a dispatcher.
type Options struct {
	RatePerSec  int           // token bucket; default 3
	SendTimeout time.Duration // per-send bound; default 30s
	// SuppressDomains lists recipient domains treated as sent without a real
	// delivery (internal test rosters). Email only.
	SuppressDomains []string
}

func (o Options) limiter() *rate.Limiter {
	rps := o.RatePerSec
	if rps <= 0 {
		rps = 3
	}
	// Burst = rate per sec, so short spikes don't block too hard.
	return rate.NewLimiter(rate.Limit(rps), rps)
}

func (o Options) timeout() time.Duration {
	if o.SendTimeout > 0 {
		return o.SendTimeout
	}
	return 30 * time.Second
}

// ---- Email ----

type EmailDispatcher struct {
	sender  EmailSender
	log     logx.Logger
	limiter *rate.Limiter
	timeout time.Duration

	mu         sync.Mutex
	suppressed map[string]bool
}

func NewEmail(sender EmailSender, opt Options, log logx.Logger) *EmailDispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &EmailDispatcher{
		sender:  sender,
		log:     log,
		limiter: opt.limiter(),
		timeout: opt.timeout(),
	}
	d.SetSuppressedDomains(opt.SuppressDomains)
	return d
}

// SetSuppressedDomains swaps the suppression list (config reload).
func (d *EmailDispatcher) SetSuppressedDomains(domains []string) {
	m := make(map[string]bool, len(domains))
	for _, dom := range domains {
		dom = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(dom, "@")))
		if dom != "" {
			m[dom] = true
		}
	}
	d.mu.Lock()
	d.suppressed = m
	d.mu.Unlock()
}

func (d *EmailDispatcher) Dispatch(ctx context.Context, dec engine.Decision) error {
	addr := dec.Recipient.Destination
	if d.isSuppressed(addr) {
		// Contractually "sent": the key gets marked and the address is never
		// retried.
		d.log.Debug("recipient suppressed", logx.String("to", addr))
		return nil
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return d.sender.Send(sendCtx, addr, EmailSubject(dec), EmailBody(dec))
}

func (d *EmailDispatcher) isSuppressed(addr string) bool {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return false
	}
	dom := strings.ToLower(addr[at+1:])
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suppressed[dom]
}

// ---- Chat ----

type ChatDispatcher struct {
	sender  ChatSender
	log     logx.Logger
	limiter *rate.Limiter
	timeout time.Duration
}

func NewChat(sender ChatSender, opt Options, log logx.Logger) *ChatDispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &ChatDispatcher{
		sender:  sender,
		log:     log,
		limiter: opt.limiter(),
		timeout: opt.timeout(),
	}
}

func (d *ChatDispatcher) Dispatch(ctx context.Context, dec engine.Decision) error {
	chatID, err := strconv.ParseInt(dec.Recipient.Destination, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat destination %q: %w", dec.Recipient.Destination, err)
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return d.sender.Send(sendCtx, chatID, ChatBody(dec))
}
