package email

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"healthbrief/internal/config"
	"healthbrief/internal/ports"
)

// SMTPMailer implements ports.Mailer over plain SMTP with STARTTLS.
// Bodies arrive as sanitized markdown and are rendered to simple HTML
// before sending.
type SMTPMailer struct {
	host     string
	port     int
	from     string
	password string
	logger   *slog.Logger

	// send is swappable in tests.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

var _ ports.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer builds a mailer from configuration.
func NewSMTPMailer(cfg config.EmailConfig, log *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.From,
		password: cfg.Password,
		logger:   log,
		send:     smtp.SendMail,
	}
}

// Send renders the newsletter body to HTML and submits one message to all
// recipients.
func (m *SMTPMailer) Send(ctx context.Context, subject, body string, recipients []string) error {
	if m.host == "" || m.from == "" {
		return fmt.Errorf("smtp mailer misconfigured")
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(m.from, recipients, subject, RenderHTML(body))
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))

	var auth smtp.Auth
	if m.password != "" {
		auth = smtp.PlainAuth("", m.from, m.password, m.host)
	}

	if err := m.send(addr, auth, m.from, recipients, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	if m.logger != nil {
		m.logger.Info("email sent", "recipients", len(recipients), "subject", subject)
	}
	return nil
}

// headerLineBreaks folds CR and LF out of header values so a crafted
// subject cannot inject extra headers into the message.
var headerLineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", headerLineBreaks.Replace(subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// RenderHTML converts the small markdown subset used by newsletters
// (headings, bullets, bold, links) into HTML. Input is expected to be
// already sanitized, so raw tags never survive to this point.
func RenderHTML(markdown string) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")

	inList := false
	closeList := func() {
		if inList {
			b.WriteString("</ul>\n")
			inList = false
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			closeList()
		case strings.HasPrefix(trimmed, "## "):
			closeList()
			fmt.Fprintf(&b, "<h2>%s</h2>\n", renderInline(strings.TrimPrefix(trimmed, "## ")))
		case strings.HasPrefix(trimmed, "# "):
			closeList()
			fmt.Fprintf(&b, "<h1>%s</h1>\n", renderInline(strings.TrimPrefix(trimmed, "# ")))
		case strings.HasPrefix(trimmed, "- "):
			if !inList {
				b.WriteString("<ul>\n")
				inList = true
			}
			fmt.Fprintf(&b, "<li>%s</li>\n", renderInline(strings.TrimPrefix(trimmed, "- ")))
		default:
			closeList()
			fmt.Fprintf(&b, "<p>%s</p>\n", renderInline(trimmed))
		}
	}
	closeList()

	b.WriteString("</body></html>\n")
	return b.String()
}

func renderInline(s string) string {
	s = renderLinks(s)
	return renderPaired(s, "**", "<strong>", "</strong>")
}

// renderLinks rewrites [text](https://...) spans into anchors. Only http
// and https destinations qualify.
func renderLinks(s string) string {
	var b strings.Builder
	for {
		open := strings.Index(s, "[")
		if open < 0 {
			break
		}
		sep := strings.Index(s[open:], "](")
		if sep < 0 {
			break
		}
		sep += open
		end := strings.Index(s[sep:], ")")
		if end < 0 {
			break
		}
		end += sep

		text := s[open+1 : sep]
		href := s[sep+2 : end]
		if !strings.HasPrefix(href, "https://") && !strings.HasPrefix(href, "http://") {
			b.WriteString(s[:end+1])
			s = s[end+1:]
			continue
		}

		b.WriteString(s[:open])
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, href, text)
		s = s[end+1:]
	}
	b.WriteString(s)
	return b.String()
}

func renderPaired(s, marker, openTag, closeTag string) string {
	var b strings.Builder
	open := false
	for {
		idx := strings.Index(s, marker)
		if idx < 0 {
			break
		}
		b.WriteString(s[:idx])
		if open {
			b.WriteString(closeTag)
		} else {
			b.WriteString(openTag)
		}
		open = !open
		s = s[idx+len(marker):]
	}
	// An unterminated marker stays literal.
	if open {
		out := b.String()
		if pos := strings.LastIndex(out, openTag); pos >= 0 {
			out = out[:pos] + marker + out[pos+len(openTag):]
		}
		return out + s
	}
	b.WriteString(s)
	return b.String()
}
