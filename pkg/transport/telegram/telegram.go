// Package telegram delivers the campaign over Telegram private chats.
// Participants are addressed as "tg:<chat id>".
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/advent-agent/pkg/app/errors"
	"github.com/chainsafe/advent-agent/pkg/config"
	"github.com/chainsafe/advent-agent/pkg/transport"
)

// AddressPrefix marks participant addresses owned by this transport.
const AddressPrefix = "tg:"

const inboundBuffer = 64

// Bot is the subset of *tgbotapi.BotAPI the adapter uses.
type Bot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Adapter implements transport.Transport over the Bot API.
type Adapter struct {
	bot         Bot
	pollTimeout int
	logger      *zap.Logger
}

var _ transport.Transport = (*Adapter)(nil)

// New authorises the bot token and creates an adapter.
func New(cfg *config.TelegramConfig, logger *zap.Logger) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorise telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug
	logger.Info("Telegram bot authorised", zap.String("username", bot.Self.UserName))
	return NewWithBot(bot, cfg.PollTimeout, logger), nil
}

// NewWithBot creates an adapter over an existing bot.
func NewWithBot(bot Bot, pollTimeout int, logger *zap.Logger) *Adapter {
	return &Adapter{
		bot:         bot,
		pollTimeout: pollTimeout,
		logger:      logger.With(zap.String("component", "telegram")),
	}
}

// Listen long-polls for updates. The first event is always agent-started;
// the channel is closed once ctx is cancelled.
func (a *Adapter) Listen(ctx context.Context) (<-chan transport.Inbound, error) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.pollTimeout
	updates := a.bot.GetUpdatesChan(u)

	out := make(chan transport.Inbound, inboundBuffer)
	go func() {
		defer close(out)
		defer a.bot.StopReceivingUpdates()

		started := transport.Inbound{
			ID:         "tg:started",
			Kind:       transport.KindAgentStarted,
			ReceivedAt: time.Now(),
		}
		if !deliver(ctx, out, started) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					a.logger.Warn("Telegram update channel closed")
					return
				}
				in, ok := toInbound(update)
				if !ok {
					continue
				}
				if !deliver(ctx, out, in) {
					return
				}
			}
		}
	}()
	return out, nil
}

func deliver(ctx context.Context, out chan<- transport.Inbound, in transport.Inbound) bool {
	select {
	case out <- in:
		return true
	case <-ctx.Done():
		return false
	}
}

// Send delivers msg to the participant's private chat.
func (a *Adapter) Send(ctx context.Context, address string, msg transport.Outbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := ChatID(address)
	if err != nil {
		return err
	}

	text := render(msg)
	if text == "" {
		return nil
	}

	if _, err := a.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 403 {
			return apperrors.ForbiddenError(err, "participant blocked the bot")
		}
		return apperrors.DependencyFailureError(err, "failed to send telegram message")
	}
	return nil
}

// ChatID extracts the chat id from a "tg:<id>" address.
func ChatID(address string) (int64, error) {
	raw, ok := strings.CutPrefix(address, AddressPrefix)
	if !ok {
		return 0, apperrors.BadRequestError(nil, "not a telegram address: "+address)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.BadRequestError(err, "invalid telegram chat id: "+raw)
	}
	return id, nil
}

// Address returns the participant address of a chat.
func Address(chatID int64) string {
	return AddressPrefix + strconv.FormatInt(chatID, 10)
}

// toInbound maps an update to an inbound event. Updates that are not
// private-chat messages are dropped.
func toInbound(update tgbotapi.Update) (transport.Inbound, bool) {
	m := update.Message
	if m == nil || m.Chat == nil || !m.Chat.IsPrivate() {
		return transport.Inbound{}, false
	}

	in := transport.Inbound{
		ID:         fmt.Sprintf("tg:%d:%d", m.Chat.ID, m.MessageID),
		Address:    Address(m.Chat.ID),
		ReceivedAt: time.Unix(int64(m.Date), 0).UTC(),
	}

	switch {
	case m.Text == "":
		in.Kind = transport.KindUnsupported
	case m.IsCommand():
		// drop the @botname suffix Telegram appends to commands
		in.Kind = transport.KindText
		in.Text = "/" + m.Command()
		if args := m.CommandArguments(); args != "" {
			in.Text += " " + args
		}
	default:
		in.Kind = transport.KindText
		in.Text = m.Text
	}
	return in, true
}

// render flattens an outbound message into chat text. Payment requests
// become an EIP-681 transfer link.
func render(msg transport.Outbound) string {
	if msg.Payment == nil {
		return msg.Text
	}
	block := paymentBlock(msg.Payment)
	if msg.Text == "" {
		return block
	}
	return msg.Text + "\n\n" + block
}

func paymentBlock(p *transport.PaymentRequest) string {
	return fmt.Sprintf("💳 Pay %s %s on %s:\n%s\n\nRecipient: %s",
		p.Amount.String(), p.Asset, p.Network, PaymentLink(p), p.Recipient)
}

// PaymentLink builds the EIP-681 URI for an ERC-20 transfer.
func PaymentLink(p *transport.PaymentRequest) string {
	units := p.Amount.Shift(p.Decimals).Truncate(0)
	return fmt.Sprintf("ethereum:%s@%d/transfer?address=%s&uint256=%s",
		p.Token, p.ChainID, p.Recipient, units.String())
}
