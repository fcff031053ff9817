package mail

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/MY-Final/napcat-plugin-email/pkg/config"
	"github.com/MY-Final/napcat-plugin-email/pkg/metrics"
)

// Attachment is one message attachment, given either as an inline payload
// (Content, base64 over JSON) or as a filesystem path resolved at send time.
type Attachment struct {
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Content     []byte `json:"content,omitempty"`
	Path        string `json:"path,omitempty"`
}

// SendRequest is the payload of one outgoing mail. To is a comma-separated
// recipient list. When AccountID is empty the default account is used.
type SendRequest struct {
	AccountID   string       `json:"accountId,omitempty"`
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	Text        string       `json:"text,omitempty"`
	HTML        string       `json:"html,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Result is the outcome of a send or verify call. The dispatcher always
// produces a decision; it never panics past this boundary.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AccountResolver looks up SMTP accounts by id. config.Config implements it.
type AccountResolver interface {
	Account(id string) (config.MailAccount, bool)
	DefaultAccount() (config.MailAccount, bool)
}

// TransportFactory builds a Transport for a resolved account. Tests swap it
// for a fake to avoid network traffic.
type TransportFactory func(acct config.MailAccount, log *zap.SugaredLogger) Transport

// Dispatcher resolves accounts and delivers messages through a Transport.
type Dispatcher struct {
	resolver     AccountResolver
	log          *zap.SugaredLogger
	newTransport TransportFactory
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithTransportFactory overrides the SMTP transport constructor.
func WithTransportFactory(f TransportFactory) Option {
	return func(d *Dispatcher) { d.newTransport = f }
}

// NewDispatcher creates a mail dispatcher on top of the given account store.
func NewDispatcher(resolver AccountResolver, log *zap.SugaredLogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver:     resolver,
		log:          log.Named("mail"),
		newTransport: NewSMTPTransport,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Send resolves the account, verifies the transport and delivers the
// message. Failures come back as Result{Success: false} with a diagnostic
// message; nothing is thrown past this boundary.
func (d *Dispatcher) Send(req SendRequest) Result {
	acct, res := d.resolveAndValidate(req.AccountID)
	if !res.Success {
		return res
	}

	msg, err := d.compose(acct, req)
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}

	transport := d.newTransport(acct, d.log)

	// Verify first so auth and network problems get a distinct message
	// from send-time failures.
	if err := transport.Verify(); err != nil {
		d.log.Warnw("SMTP connection verification failed",
			"accountId", acct.ID,
			"host", acct.Host,
			"error", err)
		metrics.MailSendFailure.WithLabelValues(acct.Host).Inc()
		return Result{Success: false, Message: fmt.Sprintf("SMTP connection failed: %v", err)}
	}

	if err := transport.Send(msg); err != nil {
		d.log.Errorw("Mail send failed",
			"accountId", acct.ID,
			"host", acct.Host,
			"to", req.To,
			"error", err)
		metrics.MailSendFailure.WithLabelValues(acct.Host).Inc()
		return Result{Success: false, Message: fmt.Sprintf("failed to send mail: %v", err)}
	}

	d.log.Infow("Mail sent",
		"accountId", acct.ID,
		"host", acct.Host,
		"to", req.To,
		"subject", req.Subject,
		"attachments", len(req.Attachments))
	metrics.MailSendSuccess.WithLabelValues(acct.Host).Inc()
	return Result{Success: true, Message: "mail sent"}
}

// VerifyConnection checks SMTP connectivity for an account without sending.
func (d *Dispatcher) VerifyConnection(accountID string) Result {
	acct, res := d.resolveAndValidate(accountID)
	if !res.Success {
		return res
	}

	transport := d.newTransport(acct, d.log)
	if err := transport.Verify(); err != nil {
		metrics.MailVerifyFailure.WithLabelValues(acct.Host).Inc()
		return Result{Success: false, Message: fmt.Sprintf("SMTP connection failed: %v", err)}
	}
	metrics.MailVerifySuccess.WithLabelValues(acct.Host).Inc()
	return Result{Success: true, Message: fmt.Sprintf("connected to %s:%d", acct.Host, acct.Port)}
}

func (d *Dispatcher) resolveAndValidate(accountID string) (config.MailAccount, Result) {
	var acct config.MailAccount
	var ok bool
	if accountID != "" {
		acct, ok = d.resolver.Account(accountID)
		if !ok {
			return acct, Result{Success: false, Message: fmt.Sprintf("mail account not found: %s", accountID)}
		}
	} else {
		acct, ok = d.resolver.DefaultAccount()
		if !ok {
			return acct, Result{Success: false, Message: "no mail account configured"}
		}
	}

	if err := validateAccount(acct); err != nil {
		return acct, Result{Success: false, Message: err.Error()}
	}
	return acct, Result{Success: true}
}

func validateAccount(a config.MailAccount) error {
	if strings.TrimSpace(a.Host) == "" {
		return fmt.Errorf("mail account %s: host is not configured", a.ID)
	}
	if a.Port < 1 || a.Port > 65535 {
		return fmt.Errorf("mail account %s: port %d is out of range", a.ID, a.Port)
	}
	if strings.TrimSpace(a.Username) == "" {
		return fmt.Errorf("mail account %s: username is not configured", a.ID)
	}
	if a.Password == "" {
		return fmt.Errorf("mail account %s: password is not configured", a.ID)
	}
	return nil
}

// SplitRecipients parses a comma-separated recipient list, dropping empty
// entries.
func SplitRecipients(to string) []string {
	parts := strings.Split(to, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (d *Dispatcher) compose(acct config.MailAccount, req SendRequest) (*gomail.Message, error) {
	recipients := SplitRecipients(req.To)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients given")
	}

	if req.Text == "" && req.HTML == "" {
		return nil, fmt.Errorf("either text or html body is required")
	}

	m := gomail.NewMessage()
	if acct.SenderName != "" {
		m.SetAddressHeader("From", acct.Username, acct.SenderName)
	} else {
		m.SetHeader("From", acct.Username)
	}
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", acct.SubjectPrefix+req.Subject)

	// Prefer the HTML body when present; synthesize a plain-text
	// alternative when the caller gave none.
	if req.HTML != "" {
		text := req.Text
		if text == "" {
			text = PlainTextFallback(req.HTML)
		}
		m.SetBody("text/plain", text)
		m.AddAlternative("text/html", req.HTML)
	} else {
		m.SetBody("text/plain", req.Text)
	}

	for i, att := range req.Attachments {
		name, contentType, data, err := resolveAttachment(i, att)
		if err != nil {
			return nil, err
		}
		m.Attach(name,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, werr := w.Write(data)
				return werr
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {contentType}}),
		)
	}
	return m, nil
}

func resolveAttachment(index int, att Attachment) (name, contentType string, data []byte, err error) {
	switch {
	case att.Path != "":
		data, err = os.ReadFile(att.Path)
		if err != nil {
			return "", "", nil, fmt.Errorf("reading attachment %s: %v", att.Path, err)
		}
		name = att.Filename
		if name == "" {
			name = filepath.Base(att.Path)
		}
	case len(att.Content) > 0:
		data = att.Content
		name = att.Filename
		if name == "" {
			name = fmt.Sprintf("attachment-%d", index+1)
		}
	default:
		return "", "", nil, fmt.Errorf("attachment %d has neither content nor path", index+1)
	}

	contentType = att.ContentType
	if contentType == "" {
		contentType = ContentTypeByExtension(name)
	}
	return name, contentType, data, nil
}
