// Package email sends events as multipart plain/HTML mail over SMTP.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/charleschow/football-notify/internal/core/notify"
	"github.com/charleschow/football-notify/internal/events"
)

type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Title    string // optional subject prefix
}

type Notifier struct {
	name  string
	modes events.ModeSet
	opts  Options
}

func NewNotifier(name string, opts Options, modes events.ModeSet) *Notifier {
	if opts.Port == 0 {
		opts.Port = 587
	}
	return &Notifier{name: name, modes: modes, opts: opts}
}

func (n *Notifier) Name() string          { return n.name }
func (n *Notifier) Modes() events.ModeSet { return n.modes }

func (n *Notifier) Notify(ctx context.Context, evt events.Event) notify.Result {
	msg, err := n.Message(evt)
	if err != nil {
		return notify.Failed(n.name, err)
	}
	if err := n.send(ctx, msg); err != nil {
		return notify.Failed(n.name, err)
	}
	return notify.Delivered(n.name)
}

// Subject is "[title ]<prefix> <scoreline>".
func (n *Notifier) Subject(evt events.Event) string {
	var b strings.Builder
	if n.opts.Title != "" {
		b.WriteString(n.opts.Title)
		b.WriteByte(' ')
	}
	b.WriteString(evt.Title())
	b.WriteByte(' ')
	if m := evt.Snapshot.Match; m != nil {
		fmt.Fprintf(&b, "%s %d-%d %s", m.HomeTeam, m.HomeScore, m.AwayScore, m.AwayTeam)
	} else {
		b.WriteString(evt.Snapshot.EntityID)
	}
	return b.String()
}

var matchTemplate = template.Must(template.New("match").Parse(`<html><body>
<table width="100%">
<tbody>
<tr><td colspan="3" style="text-align: center;">{{.Status}}</td></tr>
{{range .Matches}}<tr>
<td width="40%" style="text-align: center;">{{.HomeTeam}}</td>
<td width="20%" style="text-align: center;">{{.HomeScore}}-{{.AwayScore}}</td>
<td width="40%" style="text-align: center;">{{.AwayTeam}}</td>
</tr>
<tr>
<td width="40%" style="text-align: center;">{{range .HomeScorers}}{{.}}<br />{{end}}</td>
<td width="20%" style="text-align: center;">{{.Minute}}</td>
<td width="40%" style="text-align: center;">{{range .AwayScorers}}{{.}}<br />{{end}}</td>
</tr>
{{end}}</tbody>
</table>
</body></html>`))

// Message builds the full RFC 5322 message with plain and HTML parts.
func (n *Notifier) Message(evt events.Event) ([]byte, error) {
	snap := evt.Snapshot
	view := struct {
		Status  string
		Matches any
	}{Status: evt.Title()}
	if snap.Match != nil {
		view.Matches = []any{*snap.Match}
	} else {
		view.Matches = snap.Matches
	}

	var html bytes.Buffer
	if err := matchTemplate.Execute(&html, view); err != nil {
		return nil, fmt.Errorf("render email: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct {
		ctype   string
		content string
	}{
		{"text/plain; charset=utf-8", snap.Summary()},
		{"text/html; charset=utf-8", html.String()},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.ctype}})
		if err != nil {
			return nil, fmt.Errorf("email part: %w", err)
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("email part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("email body: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "Subject: %s\r\n", n.Subject(evt))
	fmt.Fprintf(&msg, "From: %s\r\n", n.opts.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(n.opts.To, ", "))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func (n *Notifier) send(ctx context.Context, msg []byte) error {
	addr := net.JoinHostPort(n.opts.Host, fmt.Sprint(n.opts.Port))
	d := net.Dialer{Timeout: 10 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("email: dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, n.opts.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("email: smtp client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.opts.Host}); err != nil {
			return fmt.Errorf("email: starttls: %w", err)
		}
	}
	if n.opts.Username != "" {
		auth := smtp.PlainAuth("", n.opts.Username, n.opts.Password, n.opts.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("email: auth: %w", err)
		}
	}
	if err := client.Mail(n.opts.From); err != nil {
		return fmt.Errorf("email: mail from: %w", err)
	}
	for _, to := range n.opts.To {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("email: rcpt %s: %w", to, err)
		}
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("email: data: %w", err)
	}
	if _, err := wc.Write(msg); err != nil {
		return fmt.Errorf("email: write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("email: close data: %w", err)
	}
	return client.Quit()
}
