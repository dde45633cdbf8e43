package engine

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"reminderbot/internal/event"
	"reminderbot/internal/roster"
	"reminderbot/internal/source"
	logx "reminderbot/pkg/logx"
)

// Channel names a notification transport.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
)

// Recipient is one resolved destination for an event notification.
type Recipient struct {
	Channel     Channel
	Destination string // email address, or chat ID in decimal
	DisplayName string
}

// Resolver maps an event to the destinations that should hear about it.
//
// Prepare runs once per poll cycle, before any Resolve call, and loads
// whatever per-cycle state the resolver needs (the roster snapshot). Resolve
// itself is synchronous and does no I/O.
type Resolver interface {
	Prepare(ctx context.Context) error
	Resolve(ev event.Event) []Recipient
}

// ---- Email ----

// EmailResolver matches the student roster against the event's cohort:
// course, batch and mode exactly (all normalized), year by set membership.
type EmailResolver struct {
	src source.Store

	mu       sync.Mutex
	students []roster.Student
}

func NewEmailResolver(src source.Store) *EmailResolver {
	return &EmailResolver{src: src}
}

func (r *EmailResolver) Prepare(ctx context.Context) error {
	students, err := r.src.Students(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.students = students
	r.mu.Unlock()
	return nil
}

func (r *EmailResolver) Resolve(ev event.Event) []Recipient {
	r.mu.Lock()
	students := r.students
	r.mu.Unlock()

	var out []Recipient
	for _, st := range students {
		if st.Email == "" {
			continue
		}
		if st.Course != ev.Course || st.Batch != ev.Batch || st.Mode != ev.Mode {
			continue
		}
		if !st.InYear(ev.Year) {
			continue
		}
		out = append(out, Recipient{
			Channel:     ChannelEmail,
			Destination: st.Email,
			DisplayName: st.Name,
		})
	}
	return out
}

// ---- Chat ----

// ChatResolver maps an event's cohort to a single group chat. The mapping
// table is injected configuration (config file, hot-reloadable), keyed by
// ChannelKey. A cohort without a mapping is simply un-notifiable on chat: no
// recipients, no key, and the event stays eligible once a mapping appears.
type ChatResolver struct {
	log logx.Logger

	mu       sync.Mutex
	channels map[string]int64
}

func NewChatResolver(channels map[string]int64, log logx.Logger) *ChatResolver {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &ChatResolver{channels: channels, log: log}
}

// SetChannels swaps the mapping table (config reload).
func (r *ChatResolver) SetChannels(channels map[string]int64) {
	r.mu.Lock()
	r.channels = channels
	r.mu.Unlock()
}

func (r *ChatResolver) Prepare(ctx context.Context) error { return nil }

func (r *ChatResolver) Resolve(ev event.Event) []Recipient {
	key := ChannelKey(ev)

	r.mu.Lock()
	chatID, ok := r.channels[key]
	r.mu.Unlock()

	if !ok {
		r.log.Debug("no chat channel mapped for cohort", logx.String("channel_key", key))
		return nil
	}
	return []Recipient{{
		Channel:     ChannelChat,
		Destination: strconv.FormatInt(chatID, 10),
		DisplayName: key,
	}}
}

// ChannelKey derives the mapping key for an event's cohort:
// COURSE_BATCH_YEAR_MODE, uppercased, inner whitespace as underscores.
func ChannelKey(ev event.Event) string {
	parts := []string{ev.Course, ev.Batch, ev.Year, ev.Mode}
	for i, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		parts[i] = strings.Join(strings.Fields(p), "_")
	}
	return strings.Join(parts, "_")
}
