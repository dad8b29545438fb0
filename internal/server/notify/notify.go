// Package notify renders templated account emails and hands them to a Sender.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/dmitrijs2005/clientkeeper/internal/logging"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Kind selects the message template.
type Kind int

const (
	KindDefault Kind = iota
	KindEmailConfirmation
	KindAccountUpdate
	KindAccountDeletion
	KindChangedPassword
	// KindConfirmAccountCreation is the page shown after a confirmation link
	// is followed. It is rendered, never sent.
	KindConfirmAccountCreation
)

var kindInfo = map[Kind]struct {
	file    string
	subject string
}{
	KindDefault:                {"default.html", "ClientKeeper"},
	KindEmailConfirmation:      {"email_confirmation.html", "Confirm your account"},
	KindAccountUpdate:          {"account_update.html", "Your account was updated"},
	KindAccountDeletion:        {"account_deletion.html", "Your account was deleted"},
	KindChangedPassword:        {"changed_password.html", "Your password was changed"},
	KindConfirmAccountCreation: {"confirm_account_creation.html", "Account confirmed"},
}

func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.file[:len(info.file)-len(".html")]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Message is a rendered email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier is what the account service depends on.
type Notifier interface {
	SendTemplatedMessage(ctx context.Context, client *models.Client, kind Kind, extra string) error
}

type TemplateNotifier struct {
	templates *template.Template
	sender    Sender
	from      string
	baseURL   string
}

// NewTemplateNotifier parses the embedded templates. baseURL is the public
// address of the API, used to build confirmation links.
func NewTemplateNotifier(sender Sender, from, baseURL string) (*TemplateNotifier, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &TemplateNotifier{templates: t, sender: sender, from: from, baseURL: baseURL}, nil
}

type pageData struct {
	FirstName string
	Email     string
	Link      string
	Extra     string
}

// Render returns the HTML body of kind for client. For
// KindEmailConfirmation extra is the confirmation token.
func (n *TemplateNotifier) Render(client *models.Client, kind Kind, extra string) (string, error) {
	info, ok := kindInfo[kind]
	if !ok {
		return "", fmt.Errorf("unknown template kind %d", int(kind))
	}

	data := pageData{FirstName: client.FirstName, Email: client.Email, Extra: extra}
	if kind == KindEmailConfirmation {
		data.Link = n.baseURL + "/api/confirm/" + extra
		data.Extra = ""
	}

	var buf bytes.Buffer
	if err := n.templates.ExecuteTemplate(&buf, info.file, data); err != nil {
		return "", fmt.Errorf("render %s: %w", kind, err)
	}
	return buf.String(), nil
}

func (n *TemplateNotifier) SendTemplatedMessage(ctx context.Context, client *models.Client, kind Kind, extra string) error {
	if kind == KindConfirmAccountCreation {
		return fmt.Errorf("%s is a page, not a message", kind)
	}

	body, err := n.Render(client, kind, extra)
	if err != nil {
		return err
	}

	return n.sender.Send(ctx, Message{
		From:    n.from,
		To:      client.Email,
		Subject: kindInfo[kind].subject,
		HTML:    body,
	})
}

// LogSender records messages in the log instead of delivering them.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info(ctx, "email queued", "to", msg.To, "subject", msg.Subject, "bytes", len(msg.HTML))
	return nil
}
