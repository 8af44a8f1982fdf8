package services

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"

	"github.com/polychat/backend/internal/models"
)

// EmailNotifier emails the operator when a visitor message arrives. It is a
// fire-and-forget collaborator: callers run Notify in a goroutine and a failed
// send is only logged.
type EmailNotifier struct {
	addr    string // host:port of the SMTP server
	from    string
	to      string
	auth    smtp.Auth
	enabled bool
}

// NewEmailNotifier configures the notifier from NOTIFY_SMTP_ADDR, NOTIFY_FROM
// and NOTIFY_TO. Missing config disables it silently.
func NewEmailNotifier() *EmailNotifier {
	n := &EmailNotifier{
		addr: os.Getenv("NOTIFY_SMTP_ADDR"),
		from: os.Getenv("NOTIFY_FROM"),
		to:   os.Getenv("NOTIFY_TO"),
	}
	n.enabled = n.addr != "" && n.from != "" && n.to != ""

	if user := os.Getenv("NOTIFY_SMTP_USER"); user != "" {
		host := n.addr
		if i := strings.Index(host, ":"); i >= 0 {
			host = host[:i]
		}
		n.auth = smtp.PlainAuth("", user, os.Getenv("NOTIFY_SMTP_PASS"), host)
	}

	if n.enabled {
		log.Printf("Email notifier: enabled (to=%s)", n.to)
	} else {
		log.Println("Email notifier: disabled (NOTIFY_SMTP_ADDR/NOTIFY_FROM/NOTIFY_TO not set)")
	}
	return n
}

// Notify sends a new-message notification. Errors are logged, never returned.
func (n *EmailNotifier) Notify(conv *models.Conversation, text string) {
	if !n.enabled {
		return
	}

	name := conv.UserName
	if name == "" {
		name = "Visitor"
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: New chat message from %s\r\n\r\n%s\r\n\r\nConversation: %s\r\n",
		n.from, n.to, name, text, conv.ID)

	if err := smtp.SendMail(n.addr, n.auth, n.from, []string{n.to}, []byte(msg)); err != nil {
		log.Printf("Email notifier: send failed: %v", err)
	}
}
