package request

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// HTTPProvider exposes a *http.Request as a Provider.
type HTTPProvider struct {
	req *http.Request
}

// NewHTTPProvider wraps req. It returns nil for a nil request.
func NewHTTPProvider(req *http.Request) *HTTPProvider {
	if req == nil {
		return nil
	}
	return &HTTPProvider{req: req}
}

// Request returns the wrapped request.
func (p *HTTPProvider) Request() *http.Request {
	return p.req
}

// URL returns the absolute request URL.
func (p *HTTPProvider) URL() string {
	u := *p.req.URL
	if u.Host == "" {
		u.Host = p.req.Host
	}
	if u.Scheme == "" {
		u.Scheme = p.scheme()
	}
	return u.String()
}

func (p *HTTPProvider) Method() string {
	return p.req.Method
}

func (p *HTTPProvider) QueryString() string {
	return p.req.URL.RawQuery
}

func (p *HTTPProvider) Headers() Collection {
	return Header(p.req.Header)
}

func (p *HTTPProvider) Cookies() Collection {
	return Cookies(p.req.Cookies())
}

// FormFields returns the posted form values. The body is never read here;
// only a form the handler already parsed is reported.
func (p *HTTPProvider) FormFields() Collection {
	if p.req.PostForm == nil {
		return nil
	}
	return Values(p.req.PostForm)
}

// ServerVariables returns CGI-style variables for the request. Every header
// also appears as an HTTP_ variable, and ALL_HTTP holds them all, as web
// servers report them.
func (p *HTTPProvider) ServerVariables() Collection {
	vars := Map{
		"REQUEST_METHOD":  p.req.Method,
		"REQUEST_URI":     p.req.RequestURI,
		"PATH_INFO":       p.req.URL.Path,
		"QUERY_STRING":    p.req.URL.RawQuery,
		"SERVER_PROTOCOL": p.req.Proto,
		"REMOTE_ADDR":     p.req.RemoteAddr,
		"HTTPS":           "off",
	}
	if p.scheme() == "https" {
		vars["HTTPS"] = "on"
	}

	host, port, err := net.SplitHostPort(p.req.Host)
	if err != nil {
		host = p.req.Host
	}
	vars["SERVER_NAME"] = host
	if port != "" {
		vars["SERVER_PORT"] = port
	}
	if ct := p.req.Header.Get("Content-Type"); ct != "" {
		vars["CONTENT_TYPE"] = ct
	}
	if p.req.ContentLength > 0 {
		vars["CONTENT_LENGTH"] = strconv.FormatInt(p.req.ContentLength, 10)
	}

	var all strings.Builder
	for _, key := range Header(p.req.Header).Keys() {
		name := key.(string)
		cgi := "HTTP_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		value := strings.Join(p.req.Header.Values(name), ", ")
		vars[cgi] = value
		all.WriteString(cgi + ":" + value + "\n")
	}
	vars["ALL_HTTP"] = all.String()
	return vars
}

// Principal returns the principal stored in the request context by
// WithPrincipal, or the basic-auth user name when there is none.
func (p *HTTPProvider) Principal() (Principal, error) {
	if principal, ok := PrincipalFromContext(p.req.Context()); ok {
		return principal, nil
	}
	if user, _, ok := p.req.BasicAuth(); ok {
		return BasicPrincipal{UserName: user}, nil
	}
	return nil, nil
}

// RemoteAddress returns the client IP, preferring the first X-Forwarded-For
// entry, then X-Real-IP, then the connection address.
func (p *HTTPProvider) RemoteAddress() (string, error) {
	if fwd := p.req.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip, nil
		}
	}
	if ip := strings.TrimSpace(p.req.Header.Get("X-Real-IP")); ip != "" {
		return ip, nil
	}
	if p.req.RemoteAddr == "" {
		return "", errors.New("request has no remote address")
	}
	host, _, err := net.SplitHostPort(p.req.RemoteAddr)
	if err != nil {
		return p.req.RemoteAddr, nil
	}
	return host, nil
}

func (p *HTTPProvider) scheme() string {
	if p.req.TLS != nil {
		return "https"
	}
	if proto := p.req.Header.Get("X-Forwarded-Proto"); proto != "" {
		return strings.ToLower(proto)
	}
	return "http"
}
