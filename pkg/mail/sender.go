package mail

import (
	"crypto/tls"
	"math"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/MY-Final/napcat-plugin-email/pkg/config"
)

// Transport is one SMTP connection target. Verify probes connectivity and
// authentication without sending; Send delivers a composed message.
type Transport interface {
	Verify() error
	Send(m *gomail.Message) error
	Host() string
}

type smtpTransport struct {
	dialer         *gomail.Dialer
	log            *zap.SugaredLogger
	retryCount     int
	retryBackoffMs int
}

// NewSMTPTransport builds a gomail-backed transport for the given account.
func NewSMTPTransport(acct config.MailAccount, log *zap.SugaredLogger) Transport {
	d := gomail.NewDialer(acct.Host, acct.Port, acct.Username, acct.Password)
	d.SSL = acct.Secure
	if acct.InsecureSkipVerify {
		log.Warnw("InsecureSkipVerify is enabled for mail TLS connection", "host", acct.Host)
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &smtpTransport{
		dialer:         d,
		log:            log,
		retryCount:     2,
		retryBackoffMs: 100,
	}
}

func (s *smtpTransport) Verify() error {
	conn, err := s.dialer.Dial()
	if err != nil {
		return err
	}
	return conn.Close()
}

func (s *smtpTransport) Send(m *gomail.Message) error {
	var lastErr error
	backoffMs := s.retryBackoffMs

	for attempt := 0; attempt <= s.retryCount; attempt++ {
		err := s.dialer.DialAndSend(m)
		if err == nil {
			if attempt > 0 {
				s.log.Infow("Mail sent after retry", "host", s.dialer.Host, "attempt", attempt+1)
			}
			return nil
		}

		lastErr = err
		if attempt < s.retryCount {
			s.log.Warnw("Send attempt failed, retrying",
				"host", s.dialer.Host,
				"attempt", attempt+1,
				"error", err,
				"backoffMs", backoffMs)
			time.Sleep(time.Duration(backoffMs) * time.Millisecond)
			backoffMs = int(math.Min(float64(backoffMs)*2, 32000))
		}
	}
	return lastErr
}

func (s *smtpTransport) Host() string {
	return s.dialer.Host
}
