package declarative

// Source is the position of a text rule in the source filters.
type Source struct {
	// FilterID is the identifier of the filter.
	FilterID int `json:"filterId"`

	// Line is the zero-based index of the line in the filter.
	Line int `json:"line"`
}

// Limitation is a text rule that has not been converted because of a known
// restriction of the declarative format or of the conversion.
type Limitation struct {
	Text   string `json:"text"`
	Reason string `json:"reason"`
	Source Source `json:"source"`
}

// ConversionError is a text rule that could not be parsed or converted.
type ConversionError struct {
	Text    string `json:"text"`
	Message string `json:"message"`
	Source  Source `json:"source"`
}

// SourceMap maps the identifiers of the declarative rules to the positions of
// the text rules they are converted from.  Several declarative rules may share
// a source.
type SourceMap map[int]Source

// Counters are the statistics of a rule-set.
type Counters struct {
	// Total is the number of the declarative rules.
	Total int `json:"total"`

	// Regexp is the number of the declarative rules with a regexp filter.
	Regexp int `json:"regexp"`

	// Excluded is the number of the text rules disabled by $badfilter rules.
	Excluded int `json:"excluded"`
}

// RuleSet is the result of the conversion of filters into declarative rules.
type RuleSet struct {
	// SourceMap maps the identifiers of Rules to their sources.
	SourceMap SourceMap

	// ID is the identifier of the rule-set.
	ID string

	// Rules are the declarative rules.  Their identifiers are unique and
	// start from 1.
	Rules []*Rule

	// FilterIDs are the identifiers of the source filters.
	FilterIDs []int

	// ExcludedSources are the sources of the text rules disabled by
	// $badfilter rules.
	ExcludedSources []Source

	// Errors are the text rules that could not be converted.
	Errors []*ConversionError

	// Limitations are the text rules that have not been converted.
	Limitations []*Limitation

	// Counters are the statistics of the rule-set.
	Counters Counters
}

// Metadata is the part of a rule-set that is needed to load it.
//
// NOTE: Do not change fields of this structure without incrementing
// [MetadataVersion].
type Metadata struct {
	SourceMap       SourceMap `json:"sourceMap"`
	ID              string    `json:"id"`
	FilterIDs       []int     `json:"filterIds"`
	ExcludedSources []Source  `json:"excludedSources"`
	Counters        Counters  `json:"counters"`
	Version         int32     `json:"version"`
}

// MetadataVersion is the current version of the on-disk metadata.
const MetadataVersion int32 = 2

// LazyMetadata is the part of a rule-set that is only needed for debugging.
type LazyMetadata struct {
	Errors      []*ConversionError `json:"errors"`
	Limitations []*Limitation      `json:"limitations"`
}

// Metadata returns the metadata of the rule-set.
func (rs *RuleSet) Metadata() (m *Metadata) {
	return &Metadata{
		SourceMap:       rs.SourceMap,
		ID:              rs.ID,
		FilterIDs:       rs.FilterIDs,
		ExcludedSources: rs.ExcludedSources,
		Counters:        rs.Counters,
		Version:         MetadataVersion,
	}
}

// LazyMetadata returns the lazy metadata of the rule-set.
func (rs *RuleSet) LazyMetadata() (m *LazyMetadata) {
	return &LazyMetadata{
		Errors:      rs.Errors,
		Limitations: rs.Limitations,
	}
}

// Source returns the source of the declarative rule with the identifier id.
func (rs *RuleSet) Source(id int) (src Source, ok bool) {
	src, ok = rs.SourceMap[id]

	return src, ok
}
