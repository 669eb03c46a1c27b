package lookup

import (
	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/internal/fasthash"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
	"github.com/bits-and-blooms/bloom/v3"
)

const (
	// bloomCapacity is the expected number of distinct permitted domains.  A
	// larger number only raises the false positive rate of the pre-filter.
	bloomCapacity = 1 << 16

	// bloomFalsePositiveRate is the desired false positive rate of the
	// pre-filter at bloomCapacity.
	bloomFalsePositiveRate = 0.01
)

// DomainsTable is a lookup table that uses domains from the $domain modifier
// to speed up the rules search.  Only the rules with a $domain modifier
// permitting some domains, none of them a wildcard one, are eligible for this
// lookup table.
type DomainsTable struct {
	// ruleStorage is the storage of the network filtering rules.
	ruleStorage *filterlist.RuleStorage

	// filter contains every indexed domain.  A negative answer means there
	// are no rules for the domain.
	filter *bloom.BloomFilter

	// lookupTable contains the rule indexes by the domain name hash.
	lookupTable map[uint32][]filterlist.RuleIdx

	count int
}

// type check
var _ Table = (*DomainsTable)(nil)

// NewDomainsTable creates a new instance of the DomainsTable.
func NewDomainsTable(rs *filterlist.RuleStorage) (d *DomainsTable) {
	return &DomainsTable{
		ruleStorage: rs,
		filter:      bloom.NewWithEstimates(bloomCapacity, bloomFalsePositiveRate),
		lookupTable: map[uint32][]filterlist.RuleIdx{},
	}
}

// TryAdd implements the [Table] interface for *DomainsTable.
func (d *DomainsTable) TryAdd(f *rules.NetworkRule, idx filterlist.RuleIdx) (ok bool) {
	permittedDomains := f.PermittedDomains()
	if len(permittedDomains) == 0 || f.HasWildcardPermittedDomain() {
		return false
	}

	for _, domain := range permittedDomains {
		hash := fasthash.String(domain)
		d.lookupTable[hash] = append(d.lookupTable[hash], idx)
		d.filter.AddString(domain)
	}

	d.count++

	return true
}

// MatchAll implements the [Table] interface for *DomainsTable.  The request
// hostname and its parent domains are looked up as well as the source ones,
// since the hostname is checked against $domain when there is no source.
func (d *DomainsTable) MatchAll(r *rules.Request) (result []*rules.NetworkRule) {
	result = d.matchDomains(result, r.Subdomains, r)
	if r.SourceHostname != "" && r.SourceHostname != r.Hostname {
		result = d.matchDomains(result, r.SourceSubdomains, r)
	}

	return result
}

// matchDomains appends the rules permitted on any of domains and matching r
// to result.
func (d *DomainsTable) matchDomains(
	result []*rules.NetworkRule,
	domains []string,
	r *rules.Request,
) (res []*rules.NetworkRule) {
	for _, domain := range domains {
		if !d.filter.TestString(domain) {
			continue
		}

		idxs, ok := d.lookupTable[fasthash.String(domain)]
		if ok {
			result = appendMatching(result, d.ruleStorage, idxs, r)
		}
	}

	return result
}

// RulesCount implements the [Table] interface for *DomainsTable.
func (d *DomainsTable) RulesCount() (n int) {
	return d.count
}
