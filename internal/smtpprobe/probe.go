// Package smtpprobe checks whether a mailbox plausibly exists by running a
// partial SMTP dialogue against a mail exchanger: banner, EHLO, MAIL FROM,
// RCPT TO, QUIT. No DATA command is ever issued, so nothing is delivered.
//
// A probe is a total function: every failure mode (refused connection,
// timeout, garbage reply, early close) resolves to an Outcome with a reason.
package smtpprobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"strings"
	"time"
)

// DefaultTimeout bounds a whole probe, dial included.
const DefaultTimeout = 10 * time.Second

const quitGrace = time.Second

// DefaultPort is the MX delivery port.
const DefaultPort = "25"

// State is a step of the probe dialogue.
type State string

const (
	StateBanner   State = "banner"
	StateEHLO     State = "ehlo"
	StateMailFrom State = "mailfrom"
	StateRcptTo   State = "rcptto"
	StateQuit     State = "quit"
)

// Outcome is the terminal classification of a probe.
type Outcome string

const (
	Passed     Outcome = "passed"
	Failed     Outcome = "failed"
	Greylisted Outcome = "greylisted"
	Blocked    Outcome = "blocked"
)

// Result is what a probe concluded and where the dialogue stopped.
type Result struct {
	Outcome  Outcome       `json:"outcome"`
	State    State         `json:"state"`
	Code     int           `json:"code,omitempty"`
	Response string        `json:"response,omitempty"`
	Reason   string        `json:"reason"`
	Duration time.Duration `json:"duration"`
}

// Dialer opens the TCP connection to the MX host.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client runs probes. It holds no per-probe state and is safe for
// concurrent use; every call owns its own connection.
type Client struct {
	dialer   Dialer
	hostname string
	port     string
	timeout  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the network dialer.
func WithDialer(d Dialer) Option { return func(c *Client) { c.dialer = d } }

// WithHostname sets the name announced in EHLO and used in MAIL FROM.
func WithHostname(h string) Option {
	return func(c *Client) {
		if h != "" {
			c.hostname = h
		}
	}
}

// WithPort overrides the MX port.
func WithPort(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.port = p
		}
	}
}

// WithTimeout overrides the per-probe deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a probe client. The hostname defaults to the machine's name.
func New(opts ...Option) *Client {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	c := &Client{
		dialer:   &net.Dialer{},
		hostname: host,
		port:     DefaultPort,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Hostname returns the EHLO name.
func (c *Client) Hostname() string { return c.hostname }

// Probe runs one dialogue against mxHost for email and returns exactly one
// Result. It returns only after the dialogue resolves or the deadline hits.
func (c *Client) Probe(ctx context.Context, mxHost, email string) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res := c.run(ctx, strings.TrimSuffix(mxHost, "."), email)
	res.Duration = time.Since(start)
	return res
}

func (c *Client) run(ctx context.Context, host, email string) Result {
	conn, err := c.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, c.port))
	if err != nil {
		return blocked(StateBanner, 0, "", fmt.Sprintf("connect to %s failed: %s", host, describe(err)))
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// Closing the socket is what unblocks a pending read on cancellation.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s := &session{raw: conn, conn: textproto.NewConn(conn), hostname: c.hostname}
	res := s.dialogue(email)
	if res.Reason == "" {
		res.Reason = defaultReason(res)
	}
	if ctx.Err() != nil && res.Outcome == Blocked && res.Code == 0 {
		res.Reason = fmt.Sprintf("%s: %s", res.State, describe(ctx.Err()))
	}
	return res
}

// session is one probe's protocol state machine.
type session struct {
	raw      net.Conn
	conn     *textproto.Conn
	hostname string
	state    State
	started  bool
}

func (s *session) dialogue(email string) Result {
	s.state = StateBanner
	for {
		res, done := s.step(email)
		if done {
			if s.started {
				s.quit()
			}
			return res
		}
	}
}

// step executes the current state and either advances or terminates.
func (s *session) step(email string) (Result, bool) {
	switch s.state {
	case StateBanner:
		code, msg, err := s.read()
		if err != nil {
			return blocked(s.state, 0, "", "no banner: "+describe(err)), true
		}
		s.started = true
		if code != 220 {
			return blocked(s.state, code, msg, ""), true
		}
		s.state = StateEHLO
	case StateEHLO:
		code, msg, err := s.cmd("EHLO %s", s.hostname)
		if err != nil {
			return blocked(s.state, 0, "", "EHLO: "+describe(err)), true
		}
		if code != 250 {
			return blocked(s.state, code, msg, ""), true
		}
		s.state = StateMailFrom
	case StateMailFrom:
		code, msg, err := s.cmd("MAIL FROM:<probe@%s>", s.hostname)
		if err != nil {
			return blocked(s.state, 0, "", "MAIL FROM: "+describe(err)), true
		}
		if code != 250 {
			return blocked(s.state, code, msg, ""), true
		}
		s.state = StateRcptTo
	case StateRcptTo:
		code, msg, err := s.cmd("RCPT TO:<%s>", email)
		if err != nil {
			return blocked(s.state, 0, "", "RCPT TO: "+describe(err)), true
		}
		return Result{Outcome: ClassifyRcpt(code), State: s.state, Code: code, Response: msg}, true
	default:
		return blocked(s.state, 0, "", "unexpected probe state"), true
	}
	return Result{}, false
}

func (s *session) cmd(format string, args ...interface{}) (int, string, error) {
	if err := s.conn.PrintfLine(format, args...); err != nil {
		return 0, "", err
	}
	return s.read()
}

// read returns one complete reply. textproto buffers "250-" continuation
// lines until the final "250 " line and joins their text with newlines.
func (s *session) read() (int, string, error) {
	code, msg, err := s.conn.ReadResponse(0)
	if err != nil {
		var perr textproto.ProtocolError
		if errors.As(err, &perr) {
			return 0, "", fmt.Errorf("malformed reply: %s", string(perr))
		}
		return 0, "", err
	}
	return code, msg, nil
}

// quit is sent whatever the outcome; its reply is not needed.
func (s *session) quit() {
	s.state = StateQuit
	_ = s.raw.SetWriteDeadline(time.Now().Add(quitGrace))
	_ = s.conn.PrintfLine("QUIT")
}

// ClassifyRcpt maps the RCPT TO reply code to an outcome.
func ClassifyRcpt(code int) Outcome {
	switch {
	case code == 250 || code == 251:
		return Passed
	case code >= 550 && code <= 559:
		return Failed
	case code >= 450 && code <= 459:
		return Greylisted
	case code == 421:
		return Blocked
	case code >= 500:
		return Failed
	default:
		return Greylisted
	}
}

func blocked(state State, code int, msg, reason string) Result {
	return Result{Outcome: Blocked, State: state, Code: code, Response: msg, Reason: reason}
}

func defaultReason(r Result) string {
	switch r.Outcome {
	case Passed:
		return "Mailbox accepted"
	case Failed:
		return fmt.Sprintf("Mailbox rejected (%d)", r.Code)
	case Greylisted:
		return fmt.Sprintf("Temporary rejection (%d), mailbox may exist", r.Code)
	default:
		if r.Code != 0 {
			return fmt.Sprintf("Server refused at %s (%d)", r.State, r.Code)
		}
		return fmt.Sprintf("Server refused at %s", r.State)
	}
}

func describe(err error) string {
	var nerr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &nerr) && nerr.Timeout():
		return "timed out"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		return "connection closed by server"
	default:
		return err.Error()
	}
}
