package alerts

import (
	"github.com/liamashdown/edgescan/internal/config"
	"github.com/sirupsen/logrus"
)

// BuildSender assembles the senders named in ALERT_MODE. Modes whose
// credentials are missing are skipped. Returns nil when nothing is usable.
func BuildSender(cfg *config.Config, log *logrus.Logger) Sender {
	var senders []Sender
	seen := make(map[string]bool)

	for _, mode := range cfg.AlertModes() {
		if seen[mode] {
			continue
		}
		seen[mode] = true

		switch mode {
		case "log":
			senders = append(senders, NewLogSender(log))
		case "telegram":
			if !cfg.TelegramEnabled() {
				log.WithField("mode", mode).Info("Alert mode skipped, credentials not configured")
				continue
			}
			senders = append(senders, NewTelegramSender(cfg.TelegramBotToken, cfg.TelegramChatID))
		case "discord":
			if !cfg.DiscordEnabled() {
				log.WithField("mode", mode).Info("Alert mode skipped, credentials not configured")
				continue
			}
			senders = append(senders, NewDiscordSender(cfg.DiscordWebhookURL))
		case "smtp":
			if !cfg.SMTPEnabled() {
				log.WithField("mode", mode).Info("Alert mode skipped, credentials not configured")
				continue
			}
			senders = append(senders, NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom, cfg.SMTPTo))
		}
	}

	if len(senders) == 0 {
		return nil
	}
	return NewMultiSender(senders...)
}
