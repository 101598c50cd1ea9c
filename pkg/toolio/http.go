package toolio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alp-run/alp/pkg/alperr"
)

func (m *Manager) callHTTP(ctx context.Context, t *Tool, args map[string]any) (any, error) {
	rawURL := substitute(t.URL, args)
	host := hostOf(rawURL)
	if !m.gate.AllowHTTP(host) {
		return nil, alperr.New(alperr.KindCapability, "http tool %q: host %q denied by capability gate", t.Name, host)
	}

	method := t.Method
	headers := make(map[string]any, len(t.Headers))
	for k, v := range t.Headers {
		headers[k] = substitute(v, args)
	}
	body := ""
	if t.Body != "" {
		body = substitute(t.Body, args)
	}
	return doHTTP(ctx, t.Name, rawURL, method, headers, body, t.Timeout)
}

// CallInlineHTTP issues a one-shot request described entirely by its call
// site, for the bare "http" operation (as distinct from a tool_call against
// a declared Tool). The caller is responsible for the capability-gate
// check; this only performs the request.
func (m *Manager) CallInlineHTTP(ctx context.Context, rawURL, method string, headers map[string]any, body string) (any, error) {
	return doHTTP(ctx, rawURL, rawURL, method, headers, body, 0)
}

func doHTTP(ctx context.Context, label, rawURL, method string, headers map[string]any, body string, timeout time.Duration) (any, error) {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if method == "" {
		method = http.MethodGet
	}
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(timeoutCtx, method, rawURL, bodyReader)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindHTTP, err, "build request for %q", label)
	}
	for k, v := range headers {
		req.Header.Set(k, fmt.Sprint(v))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if isContextErr(timeoutCtx) {
			return nil, timeoutOrCancel(timeoutCtx, label)
		}
		return nil, alperr.Wrap(alperr.KindHTTP, err, "request for %q", label)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindHTTP, err, "read response for %q", label)
	}

	// Non-2xx status is surfaced to the caller, not raised, matching the
	// bare "http" operation's contract.
	return map[string]any{
		"status": float64(resp.StatusCode),
		"text":   string(data),
	}, nil
}

func hostOf(rawURL string) string {
	u := rawURL
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	if i := strings.IndexAny(u, "/?#"); i >= 0 {
		u = u[:i]
	}
	return u
}
