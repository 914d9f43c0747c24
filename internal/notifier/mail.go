package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
)

const mailQueueCapacity = 32

type mailJob struct {
	cfg     config.Config
	subject string
	body    string
}

// Mailer runs a single worker draining a bounded queue, so a slow or broken
// SMTP server can never stall the polling loop. Enqueue never blocks: when
// the queue is full the message is dropped and logged.
type Mailer struct {
	queue    chan mailJob
	stop     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	stopOnce sync.Once
	log      zerolog.Logger

	// send is swapped out in tests.
	send func(job mailJob) error
}

func NewMailer(log zerolog.Logger) *Mailer {
	m := &Mailer{
		queue: make(chan mailJob, mailQueueCapacity),
		stop:  make(chan struct{}),
		log:   log,
	}
	m.send = m.sendNow
	return m
}

// Start launches the queue worker. Safe to call more than once.
func (m *Mailer) Start() {
	m.once.Do(func() {
		m.wg.Add(1)
		go m.worker()
	})
}

// Stop drains nothing further and waits for the worker to exit. Safe to
// call more than once and from concurrent callers.
func (m *Mailer) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	m.wg.Wait()
}

func (m *Mailer) worker() {
	defer m.wg.Done()
	m.log.Debug().Msg("mail worker started")
	for {
		select {
		case job := <-m.queue:
			if err := m.send(job); err != nil {
				m.log.Warn().Err(err).Str("subject", job.subject).Msg("mail send failed")
			} else {
				m.log.Info().Str("subject", job.subject).Msg("mail sent")
			}
		case <-m.stop:
			m.log.Debug().Msg("mail worker stopped")
			return
		}
	}
}

// Enqueue queues one message with a config snapshot, non-blocking.
func (m *Mailer) Enqueue(cfg config.Config, subject, body string) {
	select {
	case m.queue <- mailJob{cfg: cfg.Clone(), subject: subject, body: body}:
	default:
		m.log.Warn().Str("subject", subject).Msg("mail queue full, message dropped")
	}
}

func (m *Mailer) sendNow(job mailJob) error {
	cfg := job.cfg
	addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))

	recipients := splitRecipients(cfg.EmailTo)
	if len(recipients) == 0 {
		return fmt.Errorf("no mail recipients configured")
	}

	var client *smtp.Client
	var err error
	if cfg.SMTPPort == 465 {
		// Implicit TLS.
		conn, dialErr := tls.DialWithDialer(&net.Dialer{Timeout: 20 * time.Second}, "tcp", addr, &tls.Config{ServerName: cfg.SMTPHost})
		if dialErr != nil {
			return fmt.Errorf("smtp tls dial failed: %w", dialErr)
		}
		client, err = smtp.NewClient(conn, cfg.SMTPHost)
		if err != nil {
			conn.Close()
			return fmt.Errorf("smtp handshake failed: %w", err)
		}
	} else {
		client, err = smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial failed: %w", err)
		}
		if cfg.SMTPTLS {
			if ok, _ := client.Extension("STARTTLS"); ok {
				if err := client.StartTLS(&tls.Config{ServerName: cfg.SMTPHost}); err != nil {
					client.Close()
					return fmt.Errorf("starttls failed: %w", err)
				}
			}
		}
	}
	defer client.Close()

	if cfg.SMTPUser != "" && cfg.SMTPPass != "" {
		auth := smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(cfg.EmailFrom); err != nil {
		return fmt.Errorf("smtp mail from failed: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s failed: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data failed: %w", err)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		cfg.EmailFrom, strings.Join(recipients, ", "), job.subject, job.body)
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close failed: %w", err)
	}
	return client.Quit()
}

func splitRecipients(to string) []string {
	var out []string
	for _, part := range strings.Split(to, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mailChannel adapts the shared Mailer to the Channel interface for one
// dispatcher's config snapshot.
type mailChannel struct {
	mailer *Mailer
	cfg    config.Config
}

func (c *mailChannel) Name() string { return "mail" }

func (c *mailChannel) Send(_ context.Context, intent Intent) error {
	c.mailer.Enqueue(c.cfg, intent.Subject, intent.Body)
	return nil
}
