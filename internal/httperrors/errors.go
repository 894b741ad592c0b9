// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns backend and network failures into user-facing messages.
//
// Backend answers with status 520 carry a payload meant for custom display and
// are rendered as a detail box; every other backend failure shows its message.
// Failures that never reached the backend are classified (timeout, DNS,
// refused, TLS) and shown with troubleshooting hints.
package httperrors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"cortex/cli/internal/backend"
	cerrors "cortex/cli/internal/errors"
	"cortex/cli/internal/logging"

	"github.com/pterm/pterm"
)

// Reported marks an error whose message has already been shown to the user.
type Reported struct {
	Err error
}

func (r *Reported) Error() string { return r.Err.Error() }
func (r *Reported) Unwrap() error { return r.Err }

// IsReported reports whether err was already presented.
func IsReported(err error) bool {
	var r *Reported
	return errors.As(err, &r)
}

// Present writes a user-friendly description of err to w and returns it
// marked as reported. context describes what was being done, e.g. "logging in".
func Present(w io.Writer, context string, err error) error {
	if err == nil {
		return nil
	}
	if IsReported(err) {
		return err
	}

	var apiErr *backend.Error
	switch {
	case errors.As(err, &apiErr) && apiErr.Status == backend.StatusCustom:
		showCustomError(w, context, apiErr)
	case errors.As(err, &apiErr):
		showBackendError(w, context, apiErr)
	case cerrors.Is(err, cerrors.Configuration):
		pterm.Fprintln(w, pterm.Sprintf("❌ %s", logging.PresentError(context, err)))
	case cerrors.Is(err, cerrors.Storage):
		showStorageError(w, context, err)
	default:
		displayNetworkError(w, context, err)
	}
	return &Reported{Err: err}
}

// showCustomError renders a 520 answer: the backend message plus its payload.
func showCustomError(w io.Writer, context string, e *backend.Error) {
	var details strings.Builder
	details.WriteString(e.Message)
	if body := prettyData(e.Data); body != "" && body != fmt.Sprintf("%q", e.Message) {
		details.WriteString("\n\n")
		details.WriteString(logging.Mask(body))
	}
	title := pterm.Sprintf("Error %d while %s", e.Status, context)
	pterm.Fprintln(w, pterm.DefaultBox.
		WithTitle(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(title)).
		WithPadding(1).
		Sprint(details.String()))
}

func showBackendError(w io.Writer, context string, e *backend.Error) {
	pterm.Fprintln(w, pterm.Sprintf("❌ %s failed: %s", capitalize(context), logging.Mask(e.Message)))
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		pterm.Fprintln(w, "   Run 'cortex login' to start a new session.")
	case e.Status >= 500:
		pterm.Fprintln(w, "   The Cortex server reported an internal error. Please try again in a few minutes.")
	}
}

func showStorageError(w io.Writer, context string, err error) {
	pterm.Fprintln(w, pterm.Sprintf("🔐 Cannot access the OS keychain while %s", context))
	pterm.Fprintln(w, "   Your session will not be remembered between runs.")
	pterm.Fprintln(w, pterm.Sprintf("   %s", logging.Mask(err.Error())))
}

// prettyData indents a JSON payload for display.
func prettyData(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

// displayNetworkError shows a formatted message based on the failure type.
func displayNetworkError(w io.Writer, context string, err error) {
	switch {
	case isTimeoutError(err):
		showTimeoutError(w, context)
	case isDNSError(err):
		showDNSError(w, context)
	case isConnectionRefusedError(err):
		showConnectionRefusedError(w, context)
	case isSSLError(err):
		showSSLError(w, context)
	default:
		showGenericError(w, context, err.Error())
	}
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	if cerrors.Is(err, cerrors.Timeout) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// isSSLError checks if the error is an SSL/TLS error.
func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

func showTimeoutError(w io.Writer, context string) {
	pterm.Fprintln(w, pterm.Sprintf("⏱️  Connection timeout while %s", context))
	pterm.Fprintln(w)
	pterm.Fprintln(w, "The server took too long to respond. This could mean:")
	pterm.Fprintln(w, "  • Slow network connection")
	pterm.Fprintln(w, "  • Server is under heavy load")
	pterm.Fprintln(w, "  • A firewall is holding the connection open")
	pterm.Fprintln(w)
	pterm.Fprintln(w, "Try again, or raise the limit with --timeout.")
}

func showDNSError(w io.Writer, context string) {
	pterm.Fprintln(w, pterm.Sprintf("🌐 Cannot resolve server address while %s", context))
	pterm.Fprintln(w)
	pterm.Fprintln(w, "Please check:")
	pterm.Fprintln(w, "  • The server URL (--url or CORTEX_URL)")
	pterm.Fprintln(w, "  • Your DNS settings and VPN connection")
}

func showConnectionRefusedError(w io.Writer, context string) {
	pterm.Fprintln(w, pterm.Sprintf("🚫 Connection refused while %s", context))
	pterm.Fprintln(w)
	pterm.Fprintln(w, "The server is not accepting connections. This could mean:")
	pterm.Fprintln(w, "  • Cortex is not running")
	pterm.Fprintln(w, "  • Wrong server address or port")
	pterm.Fprintln(w, "  • A firewall is blocking the connection")
}

func showSSLError(w io.Writer, context string) {
	pterm.Fprintln(w, pterm.Sprintf("🔒 Secure connection failed while %s", context))
	pterm.Fprintln(w)
	pterm.Fprintln(w, "Cannot establish a secure HTTPS connection. Check:")
	pterm.Fprintln(w, "  • The server certificate is trusted by this machine")
	pterm.Fprintln(w, "  • No proxy is intercepting HTTPS")
	pterm.Fprintln(w, "  • Your system clock is correct")
}

func showGenericError(w io.Writer, context string, details string) {
	pterm.Fprintln(w, pterm.Sprintf("❌ Cannot reach Cortex while %s", context))
	if details != "" {
		pterm.Fprintln(w, pterm.Sprintf("   %s", logging.Excerpt(details, logging.MaxExcerpt)))
	}
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
