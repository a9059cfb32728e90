// Package notify fans out order notifications over mail and webhook.
// Deliveries run on a bounded worker pool so a slow SMTP server never
// blocks the write path.
package notify

import (
	"crypto/tls"
	"time"

	"github.com/guonaihong/gout"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/glosspoint/glosspoint/config"
)

const workerPoolSize = 8

type Notifier struct {
	cfg  config.NotifyConfig
	pool *ants.Pool
}

func NewNotifier(cfg config.NotifyConfig) (*Notifier, error) {
	pool, err := ants.NewPool(workerPoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Notifier{cfg: cfg, pool: pool}, nil
}

func (n *Notifier) Release() {
	n.pool.Release()
}

// Message is the payload sent to both channels.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	To      string `json:"to"`
}

// Send schedules the delivery; it never blocks and never returns delivery
// errors to the caller, those only go to the log.
func (n *Notifier) Send(msg Message) {
	if n.cfg.MailEnable && msg.To != "" {
		m := msg
		if err := n.pool.Submit(func() { n.sendMail(m) }); err != nil {
			zap.S().Warnf("notify pool rejected mail job: %s", err)
		}
	}
	if n.cfg.WebhookURL != "" {
		m := msg
		if err := n.pool.Submit(func() { n.sendWebhook(m) }); err != nil {
			zap.S().Warnf("notify pool rejected webhook job: %s", err)
		}
	}
}

func (n *Notifier) sendMail(msg Message) {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.MailFrom)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	d := gomail.NewDialer(n.cfg.SmtpHost, n.cfg.SmtpPort, n.cfg.SmtpUser, n.cfg.SmtpPasswd)
	d.TLSConfig = &tls.Config{ServerName: n.cfg.SmtpHost}
	if err := d.DialAndSend(m); err != nil {
		zap.S().Errorf("send mail to %s failed: %s", msg.To, err)
		return
	}
	zap.L().Info("notification mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
}

func (n *Notifier) sendWebhook(msg Message) {
	var code int
	err := gout.POST(n.cfg.WebhookURL).
		SetJSON(msg).
		SetTimeout(10 * time.Second).
		Code(&code).
		Do()
	if err != nil {
		zap.S().Errorf("webhook post failed: %s", err)
		return
	}
	if code >= 300 {
		zap.S().Warnf("webhook post returned %d", code)
		return
	}
	zap.L().Info("webhook notification sent", zap.String("url", n.cfg.WebhookURL))
}
