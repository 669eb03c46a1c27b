// Package ufnet contains utilities for hostname extraction and domain
// validation used by requests and rule modifiers.
package ufnet

import (
	"strings"

	"github.com/AdguardTeam/golibs/netutil"
)

// ExtractHostname quickly retrieves hostname from the given URL.
//
// NOTE: ExtractHostname is an optimized, best-effort function to retrieve a
// hostname from a URL-like string.  The result is not guaranteed to be correct
// for non-hierarchical URLs and IPv6 hostnames.
func ExtractHostname(url string) (hostname string) {
	start := strings.Index(url, "//")
	if start == -1 {
		// Non-hierarchical URLs like stun: or turn: have no authority part.
		return ""
	}

	start += len("//")

	// Skip the userinfo, if any.
	authEnd := strings.IndexAny(url[start:], "/?#")
	if authEnd == -1 {
		authEnd = len(url)
	} else {
		authEnd += start
	}

	if at := strings.LastIndexByte(url[start:authEnd], '@'); at != -1 {
		start += at + 1
	}

	end := strings.IndexAny(url[start:], "/:?#")
	if end == -1 {
		return url[start:]
	}

	return url[start : start+end]
}

// Subdomains returns hostname and all of its parent domains, longest first.
// For "a.b.example.org" it returns "a.b.example.org", "b.example.org",
// "example.org", and "org".  Subdomains returns nil for an empty hostname.
func Subdomains(hostname string) (subs []string) {
	if hostname == "" {
		return nil
	}

	subs = make([]string, 0, strings.Count(hostname, ".")+1)
	for sub := hostname; ; {
		subs = append(subs, sub)

		i := strings.IndexByte(sub, '.')
		if i == -1 {
			break
		}

		sub = sub[i+1:]
	}

	return subs
}

// IsDomainName returns true if name is a valid domain name.
func IsDomainName(name string) (ok bool) {
	return name != "" && netutil.ValidateDomainName(name) == nil
}

// IsWildcardDomain returns true if d is a domain pattern with a wildcard TLD,
// for example "example.*".
func IsWildcardDomain(d string) (ok bool) {
	return strings.HasSuffix(d, ".*")
}
