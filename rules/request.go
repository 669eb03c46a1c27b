package rules

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/SukkaW/tsurlfilter-sub001/internal/ufnet"
	"golang.org/x/net/publicsuffix"
)

// maxURLLength limits the URL length by 4 KiB.  It appears that there can be
// URLs longer than a megabyte, and it makes no sense to go through the whole
// URL.
const maxURLLength = 4 * 1024

// RequestType is the request types enumeration.
type RequestType uint32

const (
	// TypeDocument (main frame)
	TypeDocument RequestType = 1 << iota
	// TypeSubdocument (iframe) $subdocument
	TypeSubdocument
	// TypeScript (javascript, etc) $script
	TypeScript
	// TypeStylesheet (css) $stylesheet
	TypeStylesheet
	// TypeObject (flash, etc) $object
	TypeObject
	// TypeImage (any image) $image
	TypeImage
	// TypeXmlhttprequest (ajax/fetch) $xmlhttprequest
	TypeXmlhttprequest
	// TypeMedia (video/music) $media
	TypeMedia
	// TypeFont (any custom font) $font
	TypeFont
	// TypeWebsocket (a websocket connection) $websocket
	TypeWebsocket
	// TypePing (navigator.sendBeacon() or ping attribute on links) $ping
	TypePing
	// TypeOther - any other request type
	TypeOther
)

// TypeAll is the union of all request types.
const TypeAll = TypeDocument | TypeSubdocument | TypeScript | TypeStylesheet |
	TypeObject | TypeImage | TypeXmlhttprequest | TypeMedia | TypeFont |
	TypeWebsocket | TypePing | TypeOther

// Count returns the count of the enabled flags.
func (t RequestType) Count() int {
	return bits.OnesCount32(uint32(t))
}

// requestTypeNames maps the content-type modifier names to request types.
var requestTypeNames = map[string]RequestType{
	"document":       TypeDocument,
	"subdocument":    TypeSubdocument,
	"frame":          TypeSubdocument,
	"script":         TypeScript,
	"stylesheet":     TypeStylesheet,
	"css":            TypeStylesheet,
	"object":         TypeObject,
	"image":          TypeImage,
	"xmlhttprequest": TypeXmlhttprequest,
	"xhr":            TypeXmlhttprequest,
	"media":          TypeMedia,
	"font":           TypeFont,
	"websocket":      TypeWebsocket,
	"ping":           TypePing,
	"other":          TypeOther,
}

// ParseRequestType returns the request type with the content-type modifier
// name, like "script" or "xhr".
func ParseRequestType(name string) (t RequestType, err error) {
	t, ok := requestTypeNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: request type %q", errors.ErrBadEnumValue, name)
	}

	return t, nil
}

// Request represents a web filtering request with all its necessary
// properties.  It is constructed once per network event and must not be
// modified afterwards.
type Request struct {
	// URL is the full request URL.
	URL string

	// URLLowerCase is the full request URL in lower case.
	URLLowerCase string

	// Hostname is the hostname to filter.
	Hostname string

	// Domain is the effective top-level domain of the request with an
	// additional label.
	Domain string

	// SourceURL is the full URL of the source.
	SourceURL string

	// SourceHostname is the hostname of the source.
	SourceHostname string

	// SourceDomain is the effective top-level domain of the source with an
	// additional label.
	SourceDomain string

	// Subdomains are Hostname and its parent domains, longest first.
	Subdomains []string

	// SourceSubdomains are SourceHostname and its parent domains, longest
	// first.
	SourceSubdomains []string

	// RequestType is the type of the filtering request.
	RequestType RequestType

	// ThirdParty is true if the source domain is known and differs from the
	// request domain.
	ThirdParty bool
}

// NewRequest creates a new instance of "Request" and populates its fields.
func NewRequest(url, sourceURL string, requestType RequestType) (r *Request) {
	if len(url) > maxURLLength {
		url = url[:maxURLLength]
	}

	if len(sourceURL) > maxURLLength {
		sourceURL = sourceURL[:maxURLLength]
	}

	r = &Request{
		RequestType: requestType,

		URL:          url,
		URLLowerCase: strings.ToLower(url),
		Hostname:     strings.ToLower(ufnet.ExtractHostname(url)),

		SourceURL:      sourceURL,
		SourceHostname: strings.ToLower(ufnet.ExtractHostname(sourceURL)),
	}

	r.Subdomains = ufnet.Subdomains(r.Hostname)
	r.SourceSubdomains = ufnet.Subdomains(r.SourceHostname)
	r.Domain = domainOrHostname(r.Hostname)
	r.SourceDomain = domainOrHostname(r.SourceHostname)
	r.ThirdParty = r.SourceDomain != "" && r.SourceDomain != r.Domain

	return r
}

// domainOrHostname returns the eTLD+1 of hostname or hostname itself if there
// is none.
func domainOrHostname(hostname string) (domain string) {
	if domain = effectiveTLDPlusOne(hostname); domain != "" {
		return domain
	}

	return hostname
}

// effectiveTLDPlusOne is a faster version of publicsuffix.EffectiveTLDPlusOne
// that avoids using fmt.Errorf when the domain is less or equal the suffix.
func effectiveTLDPlusOne(hostname string) (domain string) {
	hostnameLen := len(hostname)
	if hostnameLen < 1 {
		return ""
	}

	if hostname[0] == '.' || hostname[hostnameLen-1] == '.' {
		return ""
	}

	suffix, _ := publicsuffix.PublicSuffix(hostname)

	i := hostnameLen - len(suffix) - 1
	if i < 0 || hostname[i] != '.' {
		return ""
	}

	return hostname[1+strings.LastIndex(hostname[:i], "."):]
}
