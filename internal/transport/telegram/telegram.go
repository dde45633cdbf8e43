// Package telegram is the send-only chat transport. The bot never polls for
// updates; it only pushes reminders into mapped group chats.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "reminderbot/pkg/logx"
)

type Config struct {
	Token string
	// Timeout bounds one Bot API call. Default 30s.
	Timeout time.Duration
}

type Sender struct {
	bot *tele.Bot
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Sender, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(botSettings(cfg))
	if err != nil {
		return nil, err
	}
	return &Sender{bot: b, log: log}, nil
}

// botSettings builds an outbound-only bot: no Poller, and an explicit client
// timeout bounding each Bot API call since telebot's Send takes no context.
func botSettings(cfg Config) tele.Settings {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return tele.Settings{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: timeout},
	}
}

func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chat := &tele.Chat{ID: chatID}
	_, err := s.bot.Send(chat, text, &tele.SendOptions{DisableWebPagePreview: true})
	return err
}
