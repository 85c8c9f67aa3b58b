package message

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// newClient returns a client that never follows redirects.
func newClient(timeout time.Duration, transport http.RoundTripper) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// buildTransport creates an http.Transport routed through proxyURL when set.
func buildTransport(proxyURL, noProxy string) (*http.Transport, error) {
	transport := &http.Transport{
		MaxIdleConns:        1,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if proxyURL == "" {
		return transport, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL: %w", err)
	}

	switch parsed.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsed.User != nil {
			password, _ := parsed.User.Password()
			auth = &proxy.Auth{
				User:     parsed.User.Username(),
				Password: password,
			}
		}
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("creating SOCKS5 dialer: %w", err)
		}
		bypass := parseNoProxy(noProxy)
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, _ := net.SplitHostPort(addr)
			if shouldBypassProxy(host, bypass) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			}
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	case "http", "https":
		bypass := parseNoProxy(noProxy)
		transport.Proxy = func(r *http.Request) (*url.URL, error) {
			if shouldBypassProxy(r.URL.Hostname(), bypass) {
				return nil, nil
			}
			return parsed, nil
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", parsed.Scheme)
	}

	return transport, nil
}

func parseNoProxy(noProxy string) []string {
	parts := strings.Split(noProxy, ",")
	hosts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			hosts = append(hosts, strings.ToLower(p))
		}
	}
	return hosts
}

// shouldBypassProxy reports whether host is listed, either exactly or by a
// leading-dot suffix such as ".example.com".
func shouldBypassProxy(host string, noProxyHosts []string) bool {
	host = strings.ToLower(host)
	for _, h := range noProxyHosts {
		if h == host {
			return true
		}
		if strings.HasPrefix(h, ".") && strings.HasSuffix(host, h) {
			return true
		}
	}
	return false
}
