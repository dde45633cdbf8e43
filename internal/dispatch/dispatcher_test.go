package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"reminderbot/internal/engine"
	"reminderbot/internal/event"
	logx "reminderbot/pkg/logx"
)

type fakeEmailSender struct {
	sent []string // recipient addresses
	err  error
}

func (f *fakeEmailSender) Send(ctx context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeChatSender struct {
	chatIDs []int64
	texts   []string
}

func (f *fakeChatSender) Send(ctx context.Context, chatID int64, text string) error {
	f.chatIDs = append(f.chatIDs, chatID)
	f.texts = append(f.texts, text)
	return nil
}

func classDecision(dest, label string) engine.Decision {
	return engine.Decision{
		Key: "class|Intro to SQL-2026-09-01|" + label + "|" + dest,
		Event: event.Event{
			Kind: event.KindClass, Course: "data science", Batch: "B7",
			Year: "2025", Mode: "offline", Title: "Intro to SQL",
			At:      time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC),
			RawTime: "18:00",
		},
		Window:    engine.Window{Label: label},
		Recipient: engine.Recipient{Channel: engine.ChannelEmail, Destination: dest, DisplayName: "Asha"},
	}
}

func TestEmailDispatcherSends(t *testing.T) {
	t.Parallel()
	sender := &fakeEmailSender{}
	d := NewEmail(sender, Options{RatePerSec: 100}, logx.Nop())

	if err := d.Dispatch(context.Background(), classDecision("asha@uni.org", "30")); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "asha@uni.org" {
		t.Fatalf("sender.sent = %v", sender.sent)
	}
}

func TestEmailDispatcherSuppressedDomainCountsAsSent(t *testing.T) {
	t.Parallel()
	sender := &fakeEmailSender{}
	d := NewEmail(sender, Options{RatePerSec: 100, SuppressDomains: []string{"@Example.com"}}, logx.Nop())

	// nil error means the engine will mark the key; no delivery happens.
	if err := d.Dispatch(context.Background(), classDecision("test@example.com", "30")); err != nil {
		t.Fatalf("Dispatch suppressed: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("suppressed address was delivered: %v", sender.sent)
	}

	// Other domains still go out.
	if err := d.Dispatch(context.Background(), classDecision("asha@uni.org", "30")); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sender.sent = %v", sender.sent)
	}
}

func TestEmailDispatcherPropagatesSendError(t *testing.T) {
	t.Parallel()
	sender := &fakeEmailSender{err: errors.New("smtp 451")}
	d := NewEmail(sender, Options{RatePerSec: 100}, logx.Nop())

	if err := d.Dispatch(context.Background(), classDecision("asha@uni.org", "30")); err == nil {
		t.Fatal("expected send error to propagate")
	}
}

func TestChatDispatcherParsesDestination(t *testing.T) {
	t.Parallel()
	sender := &fakeChatSender{}
	d := NewChat(sender, Options{RatePerSec: 100}, logx.Nop())

	dec := classDecision("-1001234", "30")
	dec.Recipient.Channel = engine.ChannelChat
	if err := d.Dispatch(context.Background(), dec); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(sender.chatIDs) != 1 || sender.chatIDs[0] != -1001234 {
		t.Fatalf("chatIDs = %v", sender.chatIDs)
	}

	bad := classDecision("not-a-chat-id", "30")
	if err := d.Dispatch(context.Background(), bad); err == nil {
		t.Fatal("expected error for non-numeric destination")
	}
}

func TestEmailTemplates(t *testing.T) {
	t.Parallel()
	dec := classDecision("asha@uni.org", "30")
	if got := EmailSubject(dec); got != "Class Reminder: Intro to SQL" {
		t.Fatalf("EmailSubject = %q", got)
	}
	body := EmailBody(dec)
	for _, want := range []string{"Hi Asha,", "Intro to SQL", "Starts in 30 minutes", "B7 (offline)"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}

	dec.Event.Kind = event.KindAssignment
	if got := EmailSubject(dec); got != "Assignment Reminder: Intro to SQL" {
		t.Fatalf("EmailSubject = %q", got)
	}
	if !strings.Contains(EmailBody(dec), "Due in 30 minutes") {
		t.Fatalf("assignment body missing due line:\n%s", EmailBody(dec))
	}

	// Missing roster name falls back to a neutral greeting.
	anon := classDecision("x@uni.org", "30")
	anon.Recipient.DisplayName = ""
	if !strings.Contains(EmailBody(anon), "Hi there,") {
		t.Fatalf("fallback greeting missing:\n%s", EmailBody(anon))
	}
}

func TestChatTemplates(t *testing.T) {
	t.Parallel()
	long := classDecision("-1", "30")
	body := ChatBody(long)
	for _, want := range []string{"Class Reminder (30 minutes left)", "Intro to SQL", "Starts at 18:00"} {
		if !strings.Contains(body, want) {
			t.Fatalf("chat body missing %q:\n%s", want, body)
		}
	}

	// The final notice switches to the join-now variant.
	soon := classDecision("-1", "2")
	body = ChatBody(soon)
	if !strings.Contains(body, "Class Starting Soon") || !strings.Contains(body, "Join now!") {
		t.Fatalf("final notice body:\n%s", body)
	}

	assign := classDecision("-1", "60")
	assign.Event.Kind = event.KindAssignment
	if !strings.Contains(ChatBody(assign), "60 minutes remaining") {
		t.Fatalf("assignment chat body:\n%s", ChatBody(assign))
	}
}
