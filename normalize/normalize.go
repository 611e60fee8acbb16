// Package normalize cleans up relay URLs and builds and recognises the
// machine readable prefixes of OK and CLOSED messages.
package normalize

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"longform.lol/log"
)

var schemes = []string{"ws://", "wss://", "http://", "https://"}

func hasScheme(u string) bool {
	for _, s := range schemes {
		if strings.HasPrefix(u, s) {
			return true
		}
	}
	return false
}

// URL normalizes a relay address:
//
// - Adds wss:// to addresses with no protocol prefix and no port, or port 443
// which is then dropped
//
// - Adds ws:// to addresses with any other port
//
// - Converts http/s to ws/s and removes trailing slashes from the path
//
// An address that cannot be parsed yields an empty string.
func URL(v string) (u string) {
	u = strings.ToLower(strings.TrimSpace(v))
	if u == "" {
		return
	}
	if !hasScheme(u) {
		host, port, err := net.SplitHostPort(strings.SplitN(u, "/", 2)[0])
		switch {
		case err != nil:
			u = "wss://" + u
		case port == "443":
			u = "wss://" + host + strings.TrimPrefix(u, host+":"+port)
		default:
			if p, perr := strconv.ParseUint(port, 10, 16); perr != nil || p == 0 {
				log.D.F("invalid port in relay address '%s'", v)
				return ""
			}
			u = "ws://" + u
		}
	}
	p, err := url.Parse(u)
	if err != nil || p.Host == "" {
		log.D.F("cannot normalize relay address '%s': %v", v, err)
		return ""
	}
	switch p.Scheme {
	case "https":
		p.Scheme = "wss"
	case "http":
		p.Scheme = "ws"
	}
	p.Path = strings.TrimRight(p.Path, "/")
	return p.String()
}

// Reason is the machine readable prefix of an OK or CLOSED message.
type Reason string

const (
	AuthRequired Reason = "auth-required"
	PoW          Reason = "pow"
	Duplicate    Reason = "duplicate"
	Blocked      Reason = "blocked"
	RateLimited  Reason = "rate-limited"
	Invalid      Reason = "invalid"
	Error        Reason = "error"
	Unsupported  Reason = "unsupported"
	Restricted   Reason = "restricted"
)

// Msg constructs a message with a machine-readable prefix.
func Msg(prefix Reason, format string, params ...any) string {
	if prefix == "" {
		prefix = Error
	}
	return string(prefix) + ": " + fmt.Sprintf(format, params...)
}

func (r Reason) S() string { return string(r) }

// IsPrefix reports whether msg carries this reason.
func (r Reason) IsPrefix(msg string) bool { return strings.HasPrefix(msg, string(r)+":") }

func (r Reason) F(format string, params ...any) string { return Msg(r, format, params...) }
