package mailer

import (
	"github.com/sells-group/feedback-cli/internal/config"
)

func smtpTestConfig() config.SMTPConfig {
	return config.SMTPConfig{
		Host:      "smtp.example.com",
		Port:      587,
		User:      "care@example.com",
		Password:  "secret",
		FromEmail: "care@example.com",
		FromName:  "Customer Care",
	}
}
