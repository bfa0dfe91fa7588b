package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// Message is one alert email: envelope subject plus the raw RFC822 bytes.
type Message struct {
	UID     imap.UID
	Subject string
	Date    time.Time
	Raw     []byte
}

// Mailbox is an opened, selected mailbox.
type Mailbox interface {
	Since(ctx context.Context, cutoff time.Time, max int) ([]Message, error)
	Close()
}

// Dialer opens a Mailbox.
type Dialer interface {
	Open(ctx context.Context) (Mailbox, error)
}

// IMAP dials an IMAPS server and selects Mailbox read-only, so alerts are
// never marked \Seen by a run.
type IMAP struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
}

func (d IMAP) addr() string {
	if strings.Contains(d.Host, ":") {
		return d.Host
	}
	port := d.Port
	if port == 0 {
		port = 993
	}
	return net.JoinHostPort(d.Host, fmt.Sprint(port))
}

func (d IMAP) Open(ctx context.Context) (Mailbox, error) {
	if d.Host == "" || d.Username == "" {
		return nil, errors.New("imap host/username is required")
	}
	if d.Password == "" {
		return nil, errors.New("imap password is required")
	}
	host, _, err := net.SplitHostPort(d.addr())
	if err != nil {
		return nil, fmt.Errorf("imap addr: %w", err)
	}

	c, err := imapclient.DialTLS(d.addr(), &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}

	// Best-effort close on context cancel.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	if err := c.Login(d.Username, d.Password).Wait(); err != nil {
		close(done)
		_ = c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}

	mailbox := d.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		close(done)
		logout(c)
		return nil, fmt.Errorf("imap select %q: %w", mailbox, err)
	}
	return &imapMailbox{c: c, done: done}, nil
}

type imapMailbox struct {
	c    *imapclient.Client
	done chan struct{}
}

// Since fetches up to max messages received on or after cutoff, newest first.
// Bodies are read with BODY.PEEK[] so flags are left alone.
func (m *imapMailbox) Since(ctx context.Context, cutoff time.Time, max int) ([]Message, error) {
	if max <= 0 {
		max = 200
	}
	searchData, err := m.c.UIDSearch(&imap.SearchCriteria{Since: cutoff}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > max {
		uids = uids[:max]
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	fetchCmd := m.c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]Message, 0, len(uids))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		msg := Message{UID: buf.UID}
		if buf.Envelope != nil {
			msg.Subject = buf.Envelope.Subject
			msg.Date = buf.Envelope.Date
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			msg.Raw = append([]byte(nil), b...)
		}
		out = append(out, msg)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}

func (m *imapMailbox) Close() {
	close(m.done)
	logout(m.c)
}

func logout(c *imapclient.Client) {
	if err := c.Logout().Wait(); err != nil {
		log.Printf("[email] imap logout: %v", err)
	}
	_ = c.Close()
}
