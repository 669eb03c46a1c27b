package rules

import (
	"strings"

	"github.com/SukkaW/tsurlfilter-sub001/internal/ufnet"
	"golang.org/x/net/publicsuffix"
)

// splitWithEscapeCharacter splits str by sep unless sep is preceded by esc.
// Empty tokens are dropped.
func splitWithEscapeCharacter(str string, sep, esc byte) (parts []string) {
	if str == "" {
		return nil
	}

	sb := &strings.Builder{}
	escaped := false
	for i := range len(str) {
		c := str[i]
		switch {
		case c == esc && !escaped:
			escaped = true
		case c == sep && !escaped:
			if sb.Len() > 0 {
				parts = append(parts, sb.String())
				sb.Reset()
			}
		default:
			if escaped && c != sep {
				sb.WriteByte(esc)
			}

			escaped = false
			sb.WriteByte(c)
		}
	}

	if escaped {
		sb.WriteByte(esc)
	}

	if sb.Len() > 0 {
		parts = append(parts, sb.String())
	}

	return parts
}

// isDomainOrSubdomainOfAny checks if domain is one of domains or a subdomain
// of any of them.  Wildcard entries like "example.*" match example under any
// public suffix.
func isDomainOrSubdomainOfAny(domain string, domains []string) (ok bool) {
	for _, d := range domains {
		if ufnet.IsWildcardDomain(d) {
			if matchWildcardDomain(domain, d[:len(d)-1]) {
				return true
			}
		} else if domain == d || (strings.HasSuffix(domain, d) &&
			domain[len(domain)-len(d)-1] == '.') {
			return true
		}
	}

	return false
}

// matchWildcardDomain returns true if domain is "<prefix><public suffix>" or
// its subdomain.  prefix includes the trailing dot, for example "example.".
func matchWildcardDomain(domain, prefix string) (ok bool) {
	suffix, icann := publicsuffix.PublicSuffix(domain)
	if suffix == "" || !icann {
		return false
	}

	base := prefix + suffix

	return domain == base || strings.HasSuffix(domain, "."+base)
}
