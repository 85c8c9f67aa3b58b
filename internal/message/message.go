// Package message emulates GreasySpoon's HttpMessage against a live URL.
//
// Open performs one GET without following redirects and snapshots the
// response headers into an ordered table. Header accessors work on that
// snapshot. Body and Type read from the live response.
package message

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// MessageType selects which side of the exchange a script sees.
// Only responses are emulated; Request is accepted and recorded.
type MessageType int

const (
	Response MessageType = iota
	Request
)

// ParseMessageType accepts "response" and "request" in any case.
func ParseMessageType(s string) (MessageType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "response":
		return Response, nil
	case "request":
		return Request, nil
	default:
		return Response, fmt.Errorf("unknown message type %q (must be request or response)", s)
	}
}

func (t MessageType) String() string {
	if t == Request {
		return "request"
	}
	return "response"
}

// Message is a snapshot of one HTTP response with a live body stream.
// It is not safe for concurrent use.
type Message struct {
	url        string
	msgType    MessageType
	headers    Headers
	mode       MatchMode
	status     int
	resp       *http.Response
	client     *http.Client
	ownsClient bool
	drained    bool
	closed     bool
	out        io.Writer
	log        *zap.Logger
	err        error
}

// Open fetches rawURL and returns the message. It never fails: errors are
// logged, kept for Err, and leave the message with no headers, an empty
// body and status "0".
func Open(ctx context.Context, rawURL string, mt MessageType, opts ...Option) *Message {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	m := &Message{
		url:     rawURL,
		msgType: mt,
		headers: Headers{},
		mode:    o.mode,
		out:     o.out,
		log:     o.logger.With(zap.String("url", rawURL)),
	}
	if mt == Request {
		m.log.Warn("request messages are not emulated, using the response")
	}

	resp, err := m.connect(ctx, o)
	if err != nil {
		m.err = err
		m.logError(err)
		return m
	}

	m.resp = resp
	m.status = resp.StatusCode
	m.headers = headersFrom(resp.Header)
	m.log.Debug("response received",
		zap.Int("status", resp.StatusCode),
		zap.Int("headers", len(m.headers)),
	)
	return m
}

func (m *Message) connect(ctx context.Context, o options) (*http.Response, error) {
	u, err := url.Parse(m.url)
	if err != nil {
		return nil, &Error{Kind: KindMalformedURL, Op: "parse", URL: m.url, Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &Error{Kind: KindMalformedURL, Op: "parse", URL: m.url, Err: errors.New("missing scheme or host")}
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, &Error{Kind: KindProtocol, Op: "set method", URL: m.url, Err: fmt.Errorf("GET is not supported for scheme %q", u.Scheme)}
	}

	if o.client != nil {
		c := *o.client
		c.CheckRedirect = newClient(0, nil).CheckRedirect
		if c.Timeout == 0 {
			c.Timeout = o.timeout
		}
		m.client = &c
	} else {
		transport, err := buildTransport(o.proxyURL, o.noProxy)
		if err != nil {
			return nil, &Error{Kind: KindConnection, Op: "configure transport", URL: m.url, Err: err}
		}
		m.client = newClient(o.timeout, transport)
		m.ownsClient = true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Kind: KindProtocol, Op: "set method", URL: m.url, Err: err}
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Op: "connect", URL: m.url, Err: err}
	}
	return resp, nil
}

func (m *Message) logError(err error) {
	fields := []zap.Field{zap.Error(err)}
	var me *Error
	if errors.As(err, &me) {
		fields = append(fields, zap.String("kind", me.Kind.String()), zap.String("op", me.Op))
	}
	m.log.Error("http message failure suppressed", fields...)
}

// URL returns the URL exactly as passed to Open.
func (m *Message) URL() string { return m.url }

func (m *Message) MessageType() MessageType { return m.msgType }

// Err returns the failure recorded by Open, if any.
func (m *Message) Err() error { return m.err }

// Headers returns a copy of the header table.
func (m *Message) Headers() Headers { return m.headers.Copy() }

// ResponseHeaders renders the table as "Name: Value" lines, each followed
// by LineSeparator.
func (m *Message) ResponseHeaders() string {
	return m.headers.Render(LineSeparator)
}

// ResponseHeader returns the value of the first entry whose name matches.
func (m *Message) ResponseHeader(name string) (string, bool) {
	i := m.headers.Index(name, m.mode)
	if i < 0 {
		return "", false
	}
	return m.headers[i].Value, true
}

// AddHeader appends an entry. Existing entries with the same name are kept.
func (m *Message) AddHeader(name, value string) {
	m.headers = append(m.headers, Header{Name: name, Value: value})
}

// DeleteHeader removes the first matching entry only.
func (m *Message) DeleteHeader(name string) {
	i := m.headers.Index(name, m.mode)
	if i < 0 {
		return
	}
	m.headers = append(m.headers[:i], m.headers[i+1:]...)
}

// RewriteHeader replaces the first matching entry in place. The stored name
// becomes name as given, not the original casing.
func (m *Message) RewriteHeader(name, value string) {
	i := m.headers.Index(name, m.mode)
	if i < 0 {
		return
	}
	m.headers[i] = Header{Name: name, Value: value}
}

// Body reads the remaining response body and returns its lines, each
// followed by LineSeparator. The stream is consumed: later calls return "".
// Error statuses (400 and above) have no readable body and yield "".
func (m *Message) Body() string {
	if m.resp == nil || m.closed {
		return ""
	}
	if m.drained {
		m.log.Debug("response body already consumed")
		return ""
	}
	if m.status >= http.StatusBadRequest {
		m.logError(&Error{Kind: KindIO, Op: "read body", URL: m.url, Err: fmt.Errorf("server returned status %d", m.status)})
		m.discardBody()
		return ""
	}

	var sb strings.Builder
	r := bufio.NewReader(m.resp.Body)
	for {
		line, err := readLine(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				m.logError(&Error{Kind: KindIO, Op: "read body", URL: m.url, Err: err})
			}
			break
		}
		sb.WriteString(line)
		sb.WriteString(LineSeparator)
	}

	m.drained = true
	if err := m.resp.Body.Close(); err != nil {
		m.logError(&Error{Kind: KindIO, Op: "close body", URL: m.url, Err: err})
	}
	return sb.String()
}

func (m *Message) discardBody() {
	_, _ = io.Copy(io.Discard, m.resp.Body)
	m.drained = true
	if err := m.resp.Body.Close(); err != nil {
		m.logError(&Error{Kind: KindIO, Op: "close body", URL: m.url, Err: err})
	}
}

// readLine returns the next line without its terminator. "\n", "\r\n" and
// a lone "\r" all end a line. A final unterminated line is returned with a
// nil error; io.EOF is reported only when nothing is left.
func readLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}
		switch b {
		case '\n':
			return sb.String(), nil
		case '\r':
			if next, err := r.Peek(1); err == nil && next[0] == '\n' {
				_, _ = r.ReadByte()
			}
			return sb.String(), nil
		}
		sb.WriteByte(b)
	}
}

// SetBody prints body to the message output. The response is not changed.
func (m *Message) SetBody(body string) {
	if _, err := fmt.Fprintln(m.out, body); err != nil {
		m.logError(&Error{Kind: KindIO, Op: "set body", URL: m.url, Err: err})
	}
}

// Type returns the response status code as a decimal string, "0" when no
// response was received.
func (m *Message) Type() string {
	return strconv.Itoa(m.status)
}

// Close releases the response body and idle connections. It is safe to
// call more than once.
func (m *Message) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var err error
	if m.resp != nil && !m.drained {
		err = m.resp.Body.Close()
	}
	if m.client != nil && m.ownsClient {
		m.client.CloseIdleConnections()
	}
	return err
}
