package telegram

import (
	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
	"github.com/rs/zerolog"

	"labelops/internal/routing"
)

type Service struct {
	pipeline *routing.Pipeline
	logger   zerolog.Logger
}

type Config struct {
	Pipeline *routing.Pipeline
	Logger   zerolog.Logger
}

func NewService(cfg Config) *Service {
	return &Service{
		pipeline: cfg.Pipeline,
		logger:   cfg.Logger.With().Str("component", "telegram").Logger(),
	}
}

func (s *Service) Register(d *ext.Dispatcher) {
	d.AddHandler(handlers.NewCommand("status", s.status))
	d.AddHandler(handlers.NewCommand("clients", s.clients))
	d.AddHandler(handlers.NewCommand("setclient", s.setClient))
	d.AddHandler(handlers.NewCommand("help", s.help))
	d.AddHandler(handlers.NewCommand("chatid", s.chatID))
	d.AddHandler(handlers.NewMessage(func(msg *gotgbot.Message) bool {
		return message.Text(msg) && !isCommand(msg)
	}, s.ingest))
}

// isCommand reports whether msg opens with a bot command entity. Unknown
// commands are swallowed rather than ingested as order text.
func isCommand(msg *gotgbot.Message) bool {
	for _, e := range msg.Entities {
		if e.Type == "bot_command" && e.Offset == 0 {
			return true
		}
	}
	return false
}
