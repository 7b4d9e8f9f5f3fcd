package gmail

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"
)

// imapClient is a minimal IMAP4rev1 client covering only the commands
// a poll-for-unseen-mail sync needs: LOGIN, SELECT, SEARCH UNSEEN,
// FETCH, and STORE +FLAGS \Seen. No third-party IMAP client appeared
// anywhere in the retrieved corpus, so this talks the wire protocol
// directly over tls.Conn rather than hand-rolling a fake dependency.
type imapClient struct {
	conn *tls.Conn
	r    *bufio.Reader
	tag  int
}

func dialIMAP(addr, user, password string) (*imapClient, error) {
	conn, err := tls.Dial("tcp", addr, &tls.Config{MinVersion: tls.VersionTLS12})
	if err != nil {
		return nil, fmt.Errorf("dialing imap %s: %w", addr, err)
	}
	c := &imapClient{conn: conn, r: bufio.NewReader(conn)}
	if _, err := c.readLine(); err != nil { // server greeting
		conn.Close()
		return nil, err
	}
	if err := c.command(fmt.Sprintf("LOGIN %s %s", quote(user), quote(password))); err != nil {
		conn.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func (c *imapClient) nextTag() string {
	c.tag++
	return fmt.Sprintf("a%03d", c.tag)
}

func (c *imapClient) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// command sends a tagged command and reads lines until the matching
// tagged completion response, returning an error on a NO/BAD status.
func (c *imapClient) command(cmd string) error {
	_, err := c.lines(cmd)
	return err
}

func (c *imapClient) lines(cmd string) ([]string, error) {
	tag := c.nextTag()
	if _, err := fmt.Fprintf(c.conn, "%s %s\r\n", tag, cmd); err != nil {
		return nil, err
	}
	var out []string
	for {
		line, err := c.readLine()
		if err != nil {
			return out, err
		}
		if strings.HasPrefix(line, tag+" ") {
			status := strings.Fields(strings.TrimPrefix(line, tag+" "))
			if len(status) > 0 && status[0] != "OK" {
				return out, fmt.Errorf("imap command %q failed: %s", cmd, line)
			}
			return out, nil
		}
		out = append(out, line)
	}
}

func (c *imapClient) selectMailbox(name string) error {
	return c.command("SELECT " + quote(name))
}

// searchUnseen returns the sequence numbers of unseen messages.
func (c *imapClient) searchUnseen() ([]int, error) {
	lines, err := c.lines("SEARCH UNSEEN")
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, line := range lines {
		if !strings.HasPrefix(line, "* SEARCH") {
			continue
		}
		for _, f := range strings.Fields(strings.TrimPrefix(line, "* SEARCH")) {
			if n, err := strconv.Atoi(f); err == nil {
				ids = append(ids, n)
			}
		}
	}
	return ids, nil
}

// fetchMessage fetches the full RFC822 body of sequence number id and
// parses it with net/mail, good enough for the header/body split this
// sync needs — MIME multipart bodies are flattened to their raw text.
func (c *imapClient) fetchMessage(id int) (*mail.Message, string, error) {
	lines, err := c.lines(fmt.Sprintf("FETCH %d (RFC822)", id))
	if err != nil {
		return nil, "", err
	}
	raw := strings.Join(lines, "\n")
	start := strings.Index(raw, "\n")
	if start < 0 {
		return nil, "", fmt.Errorf("malformed fetch response for message %d", id)
	}
	msg, err := mail.ReadMessage(strings.NewReader(raw[start+1:]))
	if err != nil {
		return nil, "", fmt.Errorf("parsing message %d: %w", id, err)
	}
	body := new(strings.Builder)
	buf := make([]byte, 4096)
	for {
		n, readErr := msg.Body.Read(buf)
		if n > 0 {
			body.Write(buf[:n])
		}
		if readErr != nil {
			break
		}
	}
	return msg, body.String(), nil
}

func (c *imapClient) markSeen(id int) error {
	return c.command(fmt.Sprintf("STORE %d +FLAGS (\\Seen)", id))
}

func (c *imapClient) logout() {
	c.command("LOGOUT")
	c.conn.Close()
}

func messageID(msg *mail.Message) string {
	id := msg.Header.Get("Message-Id")
	if id == "" {
		id = msg.Header.Get("Date") + msg.Header.Get("From")
	}
	return strings.Trim(id, "<>")
}

func messageDate(msg *mail.Message) time.Time {
	t, err := msg.Header.Date()
	if err != nil {
		return time.Now().UTC()
	}
	return t
}
