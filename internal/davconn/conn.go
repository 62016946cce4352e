// Package davconn builds the HTTP(S) connection a probe uses to talk to a
// DAV server and issues PROPFIND requests over it.
package davconn

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hamed0406/davprobe/internal/domain"
)

const MethodPropfind = "PROPFIND"

type Options struct {
	Timeout            time.Duration // client timeout and resolution bound; 0 means 10s
	InsecureSkipVerify bool
	// LookupHost resolves host names; nil means net.DefaultResolver.LookupHost.
	LookupHost func(ctx context.Context, host string) ([]string, error)
}

// Conn is an HTTP client bound to one DAV host. It is owned by a single
// prober and must be closed by it.
type Conn struct {
	host      string
	tls       bool
	client    *http.Client
	transport *http.Transport
}

// Dial builds a connection for address. An address starting with "https"
// is served over TLS to the host that follows the scheme; anything else is
// plain HTTP. The host name is resolved up front so that unknown hosts fail
// here rather than on the first request.
func Dial(ctx context.Context, address string, o Options) (*Conn, error) {
	host, secure, err := splitAddress(address)
	if err != nil {
		return nil, &domain.ProbeError{Kind: domain.ConnectionError, Op: "dial", Detail: address, Err: err}
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if err := resolve(ctx, o, host); err != nil {
		return nil, &domain.ProbeError{Kind: domain.ConnectionError, Op: "dial", Detail: host, Err: err}
	}

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: o.Timeout}).DialContext,
		TLSHandshakeTimeout: o.Timeout,
		MaxIdleConns:        1,
	}
	if secure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: o.InsecureSkipVerify}
	}
	return &Conn{
		host:      host,
		tls:       secure,
		transport: tr,
		client: &http.Client{
			Transport: tr,
			Timeout:   o.Timeout,
			// a probe must see the status the server sends, not a followed redirect
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}, nil
}

func splitAddress(address string) (host string, secure bool, err error) {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(address, "https") {
		secure = true
		host = strings.TrimPrefix(address, "https://")
	} else {
		host = strings.TrimPrefix(address, "http://")
	}
	host = strings.TrimRight(host, "/")
	if host == "" || strings.ContainsAny(host, "/?#@ ") {
		return "", false, errors.New("address must be [https://]host[:port]")
	}
	return host, secure, nil
}

func resolve(ctx context.Context, o Options, host string) error {
	u, err := url.Parse("//" + host)
	if err != nil {
		return err
	}
	name := u.Hostname()
	if name == "" {
		return errors.New("missing host name")
	}
	if net.ParseIP(name) != nil {
		return nil
	}
	lookup := o.LookupHost
	if lookup == nil {
		lookup = net.DefaultResolver.LookupHost
	}
	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	addrs, err := lookup(ctx, name)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		return errors.New("no addresses for " + name)
	}
	return nil
}

func (c *Conn) Host() string { return c.host }
func (c *Conn) TLS() bool    { return c.tls }

// URL returns the absolute URL of path on this connection's host.
func (c *Conn) URL(path string) string {
	scheme := "http"
	if c.tls {
		scheme = "https"
	}
	return scheme + "://" + c.host + path
}

// Close drops any kept-alive connection. It is safe to call more than once.
func (c *Conn) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Propfind sends one PROPFIND to path with the given body and headers and
// returns the response with its body fully read.
func (c *Conn) Propfind(ctx context.Context, path string, body []byte, header http.Header) (*Response, error) {
	op := "propfind " + path
	req, err := http.NewRequestWithContext(ctx, MethodPropfind, c.URL(path), bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ProbeError{Kind: domain.TransportException, Op: op, Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		kind := domain.TransportException
		var oe *net.OpError
		if errors.As(err, &oe) && oe.Op == "dial" {
			kind = domain.ConnectionError
		}
		return nil, &domain.ProbeError{Kind: kind, Op: op, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProbeError{Kind: domain.TransportException, Op: op, Err: err}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: b}, nil
}
