package notify

import (
	"encoding/json"
	"fmt"

	"lendit/internal/config"
	"lendit/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramNotifier pushes booking lifecycle updates to Telegram chats. Chat
// routing comes from configuration; users without a mapped chat are skipped.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chats  map[int64]int64
	logger zerolog.Logger
}

func NewTelegramNotifier(cfg config.TelegramConfig, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug

	notifierLogger := zerolog.Nop()
	if logger != nil {
		notifierLogger = logger.With().Str("component", "notify").Logger()
	}

	return &TelegramNotifier{
		bot:    bot,
		chats:  cfg.OwnerChats,
		logger: notifierLogger,
	}, nil
}

// SubscribeAll wires the notifier into the event bus. Nil receivers are
// accepted so callers can skip the config checks.
func (n *TelegramNotifier) SubscribeAll(bus *events.EventBus) {
	if n == nil || bus == nil {
		return
	}
	bus.Subscribe(events.EventBookingCreated, n.onBookingCreated)
	bus.Subscribe(events.EventBookingApproved, n.onBookingDecided)
	bus.Subscribe(events.EventBookingRejected, n.onBookingDecided)
}

func (n *TelegramNotifier) onBookingCreated(event *events.Event) error {
	payload, err := decodeBooking(event)
	if err != nil {
		return err
	}

	// Owners get pinged about new requests awaiting their decision.
	text := fmt.Sprintf(
		"New booking request #%d for item %d\n%s .. %s",
		payload.BookingID,
		payload.ItemID,
		payload.StartTime.Format("2006-01-02 15:04"),
		payload.EndTime.Format("2006-01-02 15:04"),
	)
	return n.send(payload.OwnerID, text)
}

func (n *TelegramNotifier) onBookingDecided(event *events.Event) error {
	payload, err := decodeBooking(event)
	if err != nil {
		return err
	}

	verdict := "approved"
	if event.Type == events.EventBookingRejected {
		verdict = "rejected"
	}
	text := fmt.Sprintf("Your booking #%d for item %d was %s", payload.BookingID, payload.ItemID, verdict)
	return n.send(payload.BookerID, text)
}

func (n *TelegramNotifier) send(userID int64, text string) error {
	chatID, ok := n.chats[userID]
	if !ok {
		return nil
	}

	if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		n.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to send telegram notification")
		return err
	}
	return nil
}

func decodeBooking(event *events.Event) (events.BookingEventPayload, error) {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to decode event payload: %w", err)
	}
	return payload, nil
}
