package api

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kalambet/tutorgw/internal/admission"
	"github.com/kalambet/tutorgw/internal/metrics"
	"github.com/kalambet/tutorgw/internal/tutor"
)

const requestIDHeader = "X-Request-ID"

// RequestID reuses a caller-supplied X-Request-ID or assigns a new one, echoes
// it on the response and stores it in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(tutor.WithRequestID(r.Context(), id)))
	})
}

// ClientKey identifies the caller for admission by the connection's remote
// host. X-Forwarded-For is read only when that peer is in trusted: hops are
// walked right to left and the first address outside trusted is the client.
func ClientKey(r *http.Request, trusted []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !isTrusted(host, trusted) {
		return host
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if _, err := netip.ParseAddr(hop); err != nil {
			// A forged or garbled entry ends the trusted chain.
			return host
		}
		if !isTrusted(hop, trusted) {
			return hop
		}
		host = hop
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Admit rejects callers that exceeded their request budget. trusted lists
// the proxies whose X-Forwarded-For is believed.
func Admit(c *admission.Controller, trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := c.Admit(ClientKey(r, trusted))
			metrics.RecordAdmission(d.Allowed)
			if !d.Allowed {
				secs := int(d.RetryAfter.Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				httpError(w, http.StatusTooManyRequests, tutor.CodeRateLimited,
					"too many requests, try again in %d seconds", secs)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
