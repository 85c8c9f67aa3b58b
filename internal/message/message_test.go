package message

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// newTable returns a message with a fixed header table and no connection.
func newTable(hs ...Header) *Message {
	return &Message{url: "http://example.com", headers: append(Headers{}, hs...), log: zap.NewNop()}
}

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenSnapshotsHeaders(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.ContentLength > 0 {
			t.Errorf("request has a body of %d bytes", r.ContentLength)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Server", "Apache")
		w.Header().Add("Vary", "Accept")
		w.Header().Add("Vary", "Origin")
		w.Write([]byte("<html>\n</html>\n"))
	})

	m := Open(context.Background(), srv.URL+"/page", Response)
	defer m.Close()

	if m.Err() != nil {
		t.Fatalf("Err() = %v", m.Err())
	}
	if got := m.Type(); got != "200" {
		t.Fatalf("Type() = %q, want 200", got)
	}
	if v, ok := m.ResponseHeader("server"); !ok || v != "Apache" {
		t.Fatalf("ResponseHeader(server) = %q, %v", v, ok)
	}
	if v, _ := m.ResponseHeader("vary"); v != "Accept, Origin" {
		t.Fatalf("ResponseHeader(vary) = %q, want %q", v, "Accept, Origin")
	}
	if got, want := m.Body(), "<html>"+LineSeparator+"</html>"+LineSeparator; got != want {
		t.Fatalf("Body() = %q, want %q", got, want)
	}
}

func TestURLVerbatim(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	raw := srv.URL + "/a/../b?q=%7e"

	m := Open(context.Background(), raw, Response)
	defer m.Close()
	if m.URL() != raw {
		t.Fatalf("URL() = %q, want %q", m.URL(), raw)
	}

	bad := "::not a url"
	mb := Open(context.Background(), bad, Response)
	if mb.URL() != bad {
		t.Fatalf("URL() = %q, want %q", mb.URL(), bad)
	}
}

func TestOpenDoesNotFollowRedirects(t *testing.T) {
	var hits int
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		w.Write([]byte("end"))
	})

	m := Open(context.Background(), srv.URL+"/start", Response)
	defer m.Close()

	if got := m.Type(); got != "302" {
		t.Fatalf("Type() = %q, want 302", got)
	}
	if v, _ := m.ResponseHeader("Location"); v != "/end" {
		t.Fatalf("Location = %q, want /end", v)
	}
	if hits != 1 {
		t.Fatalf("server hits = %d, want 1", hits)
	}
}

func TestOpenWithClientStillDoesNotFollowRedirects(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusMovedPermanently)
		}
	})

	m := Open(context.Background(), srv.URL+"/start", Response, WithClient(srv.Client()))
	defer m.Close()
	if got := m.Type(); got != "301" {
		t.Fatalf("Type() = %q, want 301", got)
	}
}

func TestType404(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	m := Open(context.Background(), srv.URL, Response)
	defer m.Close()
	if got := m.Type(); got != "404" {
		t.Fatalf("Type() = %q, want 404", got)
	}
	if m.Err() != nil {
		t.Fatalf("Err() = %v, want nil for an HTTP error status", m.Err())
	}
}

func TestBodyErrorStatusIsEmpty(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not found page\n"))
	})

	core, logs := observer.New(zap.ErrorLevel)
	m := Open(context.Background(), srv.URL, Response, WithLogger(zap.New(core)))
	defer m.Close()

	if got := m.Body(); got != "" {
		t.Fatalf("Body() = %q, want empty for status 404", got)
	}
	if m.Type() != "404" || m.Err() != nil {
		t.Fatalf("Type() = %q, Err() = %v", m.Type(), m.Err())
	}
	if logs.Len() != 1 {
		t.Fatalf("logged %d errors, want 1", logs.Len())
	}
	fields := logs.All()[0].ContextMap()
	if fields["kind"] != KindIO.String() || fields["op"] != "read body" {
		t.Errorf("log fields = %v", fields)
	}
	if got := m.Body(); got != "" {
		t.Fatalf("second Body() = %q, want empty", got)
	}
}

func TestOpenHeaderValuesDropBrackets(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header()["x-lower"] = []string{"[a]", "b]"}
		w.Header().Set("Link", "<http://[::1]/>; rel=next")
	})

	m := Open(context.Background(), srv.URL, Response)
	defer m.Close()

	if got, _ := m.ResponseHeader("X-Lower"); got != "a, b" {
		t.Errorf("X-Lower = %q, want %q", got, "a, b")
	}
	if got, _ := m.ResponseHeader("Link"); got != "<http://::1/>; rel=next" {
		t.Errorf("Link = %q", got)
	}
	if !strings.Contains(m.ResponseHeaders(), "X-Lower: a, b"+LineSeparator) {
		t.Errorf("ResponseHeaders() = %q, want canonical X-Lower", m.ResponseHeaders())
	}
}

func TestOpenFailuresUseDefaults(t *testing.T) {
	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name string
		url  string
		kind ErrorKind
	}{
		{"no scheme", "example.com/page", KindMalformedURL},
		{"unparsable", "http://[::1", KindMalformedURL},
		{"empty", "", KindMalformedURL},
		{"unsupported scheme", "ftp://example.com/file", KindProtocol},
		{"connection refused", closedURL, KindConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.ErrorLevel)
			var out bytes.Buffer
			m := Open(context.Background(), tt.url, Response, WithLogger(zap.New(core)), WithOutput(&out))
			defer m.Close()

			var me *Error
			if !errors.As(m.Err(), &me) {
				t.Fatalf("Err() = %v, want *Error", m.Err())
			}
			if me.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s", me.Kind, tt.kind)
			}
			if logs.Len() != 1 {
				t.Fatalf("logged %d errors, want 1", logs.Len())
			}
			if got := logs.All()[0].ContextMap()["kind"]; got != tt.kind.String() {
				t.Fatalf("logged kind = %v, want %s", got, tt.kind)
			}
			if m.Type() != "0" {
				t.Errorf("Type() = %q, want 0", m.Type())
			}
			if m.Body() != "" {
				t.Errorf("Body() = %q, want empty", m.Body())
			}
			if m.ResponseHeaders() != "" {
				t.Errorf("ResponseHeaders() = %q, want empty", m.ResponseHeaders())
			}
			if m.URL() != tt.url {
				t.Errorf("URL() = %q, want %q", m.URL(), tt.url)
			}
		})
	}
}

func TestOpenTimeoutIsConnectionError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	m := Open(context.Background(), srv.URL, Response, WithTimeout(20*time.Millisecond))
	var me *Error
	if !errors.As(m.Err(), &me) || me.Kind != KindConnection {
		t.Fatalf("Err() = %v, want connection error", m.Err())
	}
}

func TestOpenWithClientUsesTimeout(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	c := &http.Client{}
	m := Open(context.Background(), srv.URL, Response, WithClient(c), WithTimeout(20*time.Millisecond))
	var me *Error
	if !errors.As(m.Err(), &me) || me.Kind != KindConnection {
		t.Fatalf("Err() = %v, want connection error", m.Err())
	}
	if c.Timeout != 0 {
		t.Errorf("supplied client Timeout changed to %v", c.Timeout)
	}

	own := &http.Client{Timeout: 5 * time.Second}
	m = Open(context.Background(), srv.URL, Response, WithClient(own), WithTimeout(20*time.Millisecond))
	defer m.Close()
	if m.Err() != nil || m.Type() != "200" {
		t.Fatalf("client Timeout should win: Err() = %v, Type() = %q", m.Err(), m.Type())
	}
}

func TestBodySecondCallIsEmpty(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("one\r\ntwo\rthree"))
	})

	m := Open(context.Background(), srv.URL, Response)
	defer m.Close()

	want := "one" + LineSeparator + "two" + LineSeparator + "three" + LineSeparator
	if got := m.Body(); got != want {
		t.Fatalf("first Body() = %q, want %q", got, want)
	}
	if got := m.Body(); got != "" {
		t.Fatalf("second Body() = %q, want empty", got)
	}
}

func TestBodyEmpty(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	m := Open(context.Background(), srv.URL, Response)
	defer m.Close()
	if got := m.Body(); got != "" {
		t.Fatalf("Body() = %q, want empty", got)
	}
}

func TestBodyAfterClose(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("content"))
	})

	m := Open(context.Background(), srv.URL, Response)
	if err := m.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
	if got := m.Body(); got != "" {
		t.Fatalf("Body() after Close = %q, want empty", got)
	}
	if got := m.Type(); got != "200" {
		t.Fatalf("Type() after Close = %q, want 200", got)
	}
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("a\nb\r\nc\r\rd"))
	var got []string
	for {
		line, err := readLine(r)
		if err != nil {
			break
		}
		got = append(got, line)
	}
	want := []string{"a", "b", "c", "", "d"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}

func TestSetBodyWritesOutputOnly(t *testing.T) {
	var out bytes.Buffer
	m := newTable(Header{"Content-Type", "text/html"})
	m.out = &out

	m.SetBody("<p>new</p>")

	if out.String() != "<p>new</p>\n" {
		t.Fatalf("output = %q, want %q", out.String(), "<p>new</p>\n")
	}
	if m.ResponseHeaders() != "Content-Type: text/html"+LineSeparator {
		t.Fatalf("headers changed: %q", m.ResponseHeaders())
	}
	if m.Body() != "" {
		t.Fatalf("Body() = %q, want empty", m.Body())
	}
}

func TestAddHeader(t *testing.T) {
	m := newTable(Header{"Server", "Apache"})

	m.AddHeader("X-Added", "1")
	m.AddHeader("Server", "nginx")

	if len(m.Headers()) != 3 {
		t.Fatalf("len = %d, want 3", len(m.Headers()))
	}
	for _, q := range []string{"X-Added", "x-added", "X-ADDED"} {
		if v, ok := m.ResponseHeader(q); !ok || v != "1" {
			t.Errorf("ResponseHeader(%q) = %q, %v", q, v, ok)
		}
	}
	// First match wins for duplicates.
	if v, _ := m.ResponseHeader("server"); v != "Apache" {
		t.Errorf("ResponseHeader(server) = %q, want Apache", v)
	}
}

func TestDeleteHeaderOnce(t *testing.T) {
	m := newTable(Header{"Set-Cookie", "a=1"}, Header{"Server", "Apache"}, Header{"set-cookie", "b=2"})

	m.DeleteHeader("SET-COOKIE")
	hs := m.Headers()
	if len(hs) != 2 || hs[0].Name != "Server" || hs[1].Value != "b=2" {
		t.Fatalf("after first delete = %v", hs)
	}

	m.DeleteHeader("set-cookie")
	m.DeleteHeader("set-cookie")
	if got := m.Headers(); len(got) != 1 || got[0].Name != "Server" {
		t.Fatalf("after deletes = %v", got)
	}
}

func TestRewriteHeaderKeepsPosition(t *testing.T) {
	m := newTable(
		Header{"Content-Type", "text/html"},
		Header{"Server", "Apache"},
		Header{"X-Powered-By", "PHP"},
	)

	m.RewriteHeader("server", "hidden")

	want := Headers{
		{"Content-Type", "text/html"},
		{"server", "hidden"},
		{"X-Powered-By", "PHP"},
	}
	got := m.Headers()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}

	m.RewriteHeader("X-Missing", "v")
	if len(m.Headers()) != 3 {
		t.Fatalf("rewrite of missing header changed length to %d", len(m.Headers()))
	}
}

func TestResponseHeadersRoundTrip(t *testing.T) {
	m := newTable(
		Header{"Content-Type", "text/html; charset=utf-8"},
		Header{"X-Note", "a: b"},
		Header{"Server", "Apache"},
	)

	out := strings.TrimSuffix(m.ResponseHeaders(), LineSeparator)
	lines := strings.Split(out, LineSeparator)
	hs := m.Headers()
	if len(lines) != len(hs) {
		t.Fatalf("lines = %d, want %d", len(lines), len(hs))
	}
	for i, line := range lines {
		name, value, ok := strings.Cut(line, ": ")
		if !ok || name != hs[i].Name || value != hs[i].Value {
			t.Errorf("line %d = %q, want %v", i, line, hs[i])
		}
	}
}

func TestScenarioContentTypeServer(t *testing.T) {
	m := newTable(Header{"Content-Type", "text/html"}, Header{"Server", "Apache"})

	if v, ok := m.ResponseHeader("server"); !ok || v != "Apache" {
		t.Fatalf("ResponseHeader(server) = %q, %v", v, ok)
	}
	a, _ := m.ResponseHeader("content-type")
	b, _ := m.ResponseHeader("Content-Type")
	if a != b {
		t.Fatalf("case-sensitive lookup: %q != %q", a, b)
	}

	m.DeleteHeader("content-type")
	if got, want := m.ResponseHeaders(), "Server: Apache"+LineSeparator; got != want {
		t.Fatalf("ResponseHeaders() = %q, want %q", got, want)
	}
}

func TestScenarioEmptyTable(t *testing.T) {
	m := newTable()

	if v, ok := m.ResponseHeader("X-Foo"); ok {
		t.Fatalf("ResponseHeader(X-Foo) = %q, want not found", v)
	}
	m.DeleteHeader("X-Foo")
	if len(m.Headers()) != 0 {
		t.Fatalf("table = %v, want empty", m.Headers())
	}
}

func TestRequestTypeIsRecorded(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m := Open(context.Background(), "bad", Request, WithLogger(zap.New(core)))
	if m.MessageType() != Request {
		t.Fatalf("MessageType() = %s, want request", m.MessageType())
	}
	if logs.FilterMessage("request messages are not emulated, using the response").Len() != 1 {
		t.Fatalf("missing request-type warning, got %v", logs.All())
	}
}

func TestParseMessageType(t *testing.T) {
	tests := []struct {
		in      string
		want    MessageType
		wantErr bool
	}{
		{"", Response, false},
		{"Response", Response, false},
		{"REQUEST", Request, false},
		{"reply", Response, true},
	}
	for _, tt := range tests {
		got, err := ParseMessageType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMessageType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMessageType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
