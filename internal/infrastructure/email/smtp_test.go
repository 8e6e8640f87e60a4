package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"healthbrief/internal/config"
)

func TestSendBuildsMessage(t *testing.T) {
	t.Parallel()

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)

	mailer := NewSMTPMailer(config.EmailConfig{
		SMTPHost: "smtp.example.org",
		SMTPPort: 587,
		From:     "news@example.org",
		Password: "secret",
	}, nil)
	mailer.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := mailer.Send(context.Background(), "Weekly Brief", "# Heading\n\n- **Item one**", []string{"a@example.org", "b@example.org"})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if gotAddr != "smtp.example.org:587" {
		t.Errorf("addr = %s", gotAddr)
	}
	if gotFrom != "news@example.org" {
		t.Errorf("from = %s", gotFrom)
	}
	if len(gotTo) != 2 {
		t.Errorf("to = %v", gotTo)
	}

	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Weekly Brief\r\n") {
		t.Errorf("missing subject header:\n%s", msg)
	}
	if !strings.Contains(msg, `Content-Type: text/html; charset="UTF-8"`) {
		t.Errorf("missing content type:\n%s", msg)
	}
	if !strings.Contains(msg, "<h1>Heading</h1>") || !strings.Contains(msg, "<li><strong>Item one</strong></li>") {
		t.Errorf("body not rendered:\n%s", msg)
	}
}

func TestSendFoldsLineBreaksOutOfSubject(t *testing.T) {
	t.Parallel()

	var gotMsg []byte
	mailer := NewSMTPMailer(config.EmailConfig{
		SMTPHost: "smtp.example.org",
		SMTPPort: 587,
		From:     "news@example.org",
	}, nil)
	mailer.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotMsg = msg
		return nil
	}

	subject := "Weekly Brief\r\nBcc: sneak@example.org"
	if err := mailer.Send(context.Background(), subject, "body", []string{"a@example.org"}); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Weekly Brief  Bcc: sneak@example.org\r\n") {
		t.Errorf("subject not folded to one line:\n%s", msg)
	}
	if strings.Contains(msg, "\r\nBcc:") {
		t.Errorf("injected header survived:\n%s", msg)
	}
}

func TestSendRequiresRecipients(t *testing.T) {
	t.Parallel()

	mailer := NewSMTPMailer(config.EmailConfig{
		SMTPHost: "smtp.example.org",
		SMTPPort: 587,
		From:     "news@example.org",
	}, nil)

	if err := mailer.Send(context.Background(), "s", "b", nil); err == nil {
		t.Fatal("expected an error without recipients")
	}
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	// Input arrives pre-sanitized, entities included.
	in := strings.Join([]string{
		"# Healthcare Weekly: Payer &amp; Innovation Report",
		"",
		"**Week of August 24, 2026**",
		"",
		"## Payer News",
		"",
		"- **Medicare update** (Score: 6)",
		"  [Read more](https://example.org/a)",
		"",
		"Plain closing line.",
	}, "\n")

	out := RenderHTML(in)

	checks := []string{
		"<h1>Healthcare Weekly: Payer &amp; Innovation Report</h1>",
		"<strong>Week of August 24, 2026</strong>",
		"<h2>Payer News</h2>",
		"<li><strong>Medicare update</strong> (Score: 6)</li>",
		`<a href="https://example.org/a">Read more</a>`,
		"<p>Plain closing line.</p>",
	}
	for _, want := range checks {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderHTMLIgnoresNonHTTPLinks(t *testing.T) {
	t.Parallel()

	out := RenderHTML("[click](javascript:alert(1))")
	if strings.Contains(out, "<a ") {
		t.Fatalf("dangerous link rendered: %s", out)
	}
}

func TestRenderHTMLUnterminatedBoldStaysLiteral(t *testing.T) {
	t.Parallel()

	out := RenderHTML("a **dangling marker")
	if !strings.Contains(out, "**dangling marker") {
		t.Fatalf("marker should stay literal: %s", out)
	}
}
