package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"labelops/internal/chatdefaults"
	"labelops/internal/routing"
)

func (s *Service) status(b *gotgbot.Bot, ctx *ext.Context) error {
	chatID, ok := s.allowedChat(ctx)
	if !ok {
		return nil
	}
	st, err := s.pipeline.Status(context.Background(), chatID)
	if err != nil {
		s.logger.Error().Err(err).Int64("chat_id", chatID).Msg("status: load chat defaults failed")
	}
	return s.reply(ctx, b, statusText(st, err))
}

func (s *Service) clients(b *gotgbot.Bot, ctx *ext.Context) error {
	if _, ok := s.allowedChat(ctx); !ok {
		return nil
	}
	return s.reply(ctx, b, clientsText(s.pipeline.Clients()))
}

func (s *Service) setClient(b *gotgbot.Bot, ctx *ext.Context) error {
	chatID, ok := s.allowedChat(ctx)
	if !ok {
		return nil
	}
	msg := ctx.EffectiveMessage
	if msg == nil {
		return nil
	}
	requested, _ := splitFirstWord(commandRemainder(msg.GetText()))
	if requested == "" {
		return s.reply(ctx, b, setClientUsage)
	}

	clientID, err := s.pipeline.SetClient(context.Background(), chatID, userID(ctx), requested)
	switch {
	case err == nil:
		return s.reply(ctx, b, fmt.Sprintf("Default client set to %s for this chat.", clientID))
	case errors.Is(err, routing.ErrInvalidClientID):
		return s.reply(ctx, b, fmt.Sprintf("Unknown client '%s'. Use /clients to list available clients.", clientID))
	case errors.Is(err, chatdefaults.ErrCorruptState):
		s.logger.Error().Err(err).Int64("chat_id", chatID).Msg("setclient refused: chat defaults are corrupt")
		return s.reply(ctx, b, corruptStateText)
	default:
		s.logger.Error().Err(err).Int64("chat_id", chatID).Msg("setclient failed")
		return s.reply(ctx, b, "Failed to save the chat default. Check the bot logs.")
	}
}

func (s *Service) help(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.reply(ctx, b, helpText)
}

func (s *Service) chatID(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.reply(ctx, b, chatIDText(ctx.EffectiveChat))
}

func (s *Service) ingest(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil || ctx.EffectiveChat == nil || msg.Text == "" {
		return nil
	}
	in := routing.Inbound{
		ChatID:   ctx.EffectiveChat.Id,
		UserID:   userID(ctx),
		Username: username(ctx),
		Text:     msg.Text,
	}
	if s.pipeline.Allowed(in.ChatID, in.Username) {
		if _, err := b.SendChatAction(in.ChatID, "typing", nil); err != nil {
			s.logger.Debug().Err(err).Int64("chat_id", in.ChatID).Msg("typing indicator failed")
		}
	}
	// Failures are logged and counted by the pipeline; the sender gets no reply.
	_, _ = s.pipeline.Ingest(context.Background(), in)
	return nil
}

// allowedChat gates operator commands. Non-allowlisted chats get silence.
func (s *Service) allowedChat(ctx *ext.Context) (int64, bool) {
	if ctx.EffectiveChat == nil {
		return 0, false
	}
	chatID := ctx.EffectiveChat.Id
	if !s.pipeline.Allowed(chatID, username(ctx)) {
		s.logger.Info().Int64("chat_id", chatID).Msg("ignored command from non-allowlisted chat")
		return 0, false
	}
	return chatID, true
}

func (s *Service) reply(ctx *ext.Context, b *gotgbot.Bot, text string) error {
	if ctx.EffectiveChat == nil {
		return nil
	}
	_, err := b.SendMessage(ctx.EffectiveChat.Id, text, nil)
	return err
}

// commandRemainder drops the leading /command token. Any whitespace separates
// it from the arguments, so "/setclient\nclient_02" works like a space.
func commandRemainder(text string) string {
	text = strings.TrimSpace(text)
	idx := strings.IndexFunc(text, unicode.IsSpace)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(text[idx:])
}

func splitFirstWord(s string) (first string, rest string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}

func userID(ctx *ext.Context) int64 {
	if ctx.EffectiveUser == nil {
		return 0
	}
	return ctx.EffectiveUser.Id
}

func username(ctx *ext.Context) string {
	if ctx.EffectiveUser == nil {
		return ""
	}
	return ctx.EffectiveUser.Username
}
