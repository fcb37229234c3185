// Package exclusion decides which businesses are not worth prospecting: anything matching a
// user-supplied term, any national chain, and any government site.
package exclusion

import (
	"net/url"
	"strings"

	"leadfinder/internal/types"
)

// governmentMarker is matched anywhere in the bare domain (city.gov, tx.gov.us, ...).
const governmentMarker = ".gov"

// DefaultChainDomains are national chains and franchises that never need a local website.
// A domain matches when it equals one of these or is a subdomain of one.
var DefaultChainDomains = []string{
	"7-eleven.com",
	"att.com",
	"autozone.com",
	"bankofamerica.com",
	"burgerking.com",
	"chase.com",
	"chick-fil-a.com",
	"costco.com",
	"cvs.com",
	"dairyqueen.com",
	"dollargeneral.com",
	"dollartree.com",
	"dominos.com",
	"exxon.com",
	"familydollar.com",
	"fedex.com",
	"heb.com",
	"homedepot.com",
	"kroger.com",
	"lowes.com",
	"mcdonalds.com",
	"oreillyauto.com",
	"pizzahut.com",
	"samsclub.com",
	"shell.com",
	"sonicdrivein.com",
	"starbucks.com",
	"statefarm.com",
	"subway.com",
	"t-mobile.com",
	"tacobell.com",
	"target.com",
	"tractorsupply.com",
	"ups.com",
	"verizon.com",
	"walgreens.com",
	"walmart.com",
	"wellsfargo.com",
	"wendys.com",
	"whataburger.com",
}

// Reason says which rule excluded a business.
type Reason int

const (
	NotExcluded Reason = iota
	ByTerm
	ByChain
	ByGovernment
)

func (r Reason) String() string {
	switch r {
	case ByTerm:
		return "term"
	case ByChain:
		return "chain"
	case ByGovernment:
		return "government"
	default:
		return "none"
	}
}

// Rules is the exclusion configuration for one search. Build it once with NewRules or
// BuildRules; the zero value excludes nothing.
type Rules struct {
	terms                 []string
	chainDomains          []string
	governmentSuffixMatch bool
}

// NewRules returns rules with the user terms, the default chain list and government matching.
func NewRules(terms []string) Rules {
	return BuildRules(terms, DefaultChainDomains, true)
}

// BuildRules copies and lower-cases its inputs so later changes to the slices have no effect.
func BuildRules(terms, chainDomains []string, governmentSuffixMatch bool) Rules {
	return Rules{
		terms:                 normalizeList(terms),
		chainDomains:          normalizeList(chainDomains),
		governmentSuffixMatch: governmentSuffixMatch,
	}
}

// Terms returns a copy of the user-supplied terms.
func (r Rules) Terms() []string {
	return append([]string(nil), r.terms...)
}

// ChainDomains returns a copy of the chain list.
func (r Rules) ChainDomains() []string {
	return append([]string(nil), r.chainDomains...)
}

// GovernmentSuffixMatch reports whether government domains are excluded.
func (r Rules) GovernmentSuffixMatch() bool { return r.governmentSuffixMatch }

// ShouldExclude reports whether a business with this name and website domain is dropped.
func ShouldExclude(name, domain string, rules Rules) bool {
	return Explain(name, domain, rules) != NotExcluded
}

// Explain returns the first rule that matches, or NotExcluded.
func Explain(name, domain string, rules Rules) Reason {
	name = strings.ToLower(name)
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")

	for _, term := range rules.terms {
		if strings.Contains(name, term) || strings.Contains(domain, term) {
			return ByTerm
		}
	}
	if domain == "" {
		return NotExcluded
	}
	for _, chain := range rules.chainDomains {
		if domain == chain || strings.HasSuffix(domain, "."+chain) {
			return ByChain
		}
	}
	if rules.governmentSuffixMatch && strings.Contains(domain, governmentMarker) {
		return ByGovernment
	}
	return NotExcluded
}

// FilterLeads drops excluded leads and keeps the order of the rest.
func FilterLeads(leads []types.LeadRecord, rules Rules) []types.LeadRecord {
	kept := make([]types.LeadRecord, 0, len(leads))
	for _, l := range leads {
		if !ShouldExclude(l.Name, ExtractDomain(l.WebsiteURL()), rules) {
			kept = append(kept, l)
		}
	}
	return kept
}

// ExtractDomain returns the lower-cased host of a website URL without port or leading
// "www.". The scheme is optional. Unparsable input yields "".
func ExtractDomain(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "http://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	return strings.TrimPrefix(host, "www.")
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
