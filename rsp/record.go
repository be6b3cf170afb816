package rsp

import (
	"strconv"
	"strings"
)

// Kind identifies the shape of one line of a response file.
type Kind int

const (
	// KindOther is any line that is not a field record and not inert,
	// blank lines included. It completes the pending triple.
	KindOther Kind = iota
	KindComment
	KindSection
	KindLength
	KindMessage
	KindDigest
)

// Line prefixes recognized at the start of a line. Matching is exact and
// case-sensitive; leading whitespace makes a line KindOther.
const (
	prefixComment = "#"
	prefixSection = "["
	prefixLength  = "Len"
	prefixMessage = "Msg"
	prefixDigest  = "MD"
)

var kindNames = [...]string{
	KindOther:   "other",
	KindComment: "comment",
	KindSection: "section",
	KindLength:  "length",
	KindMessage: "message",
	KindDigest:  "digest",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Record is the classification of a single line.
type Record struct {
	Kind Kind

	// Value is the trailing token of a field record: the hex text for
	// KindMessage and KindDigest, the raw number text for KindLength.
	Value string

	// Bits is the parsed length for KindLength. It is meaningful only
	// when Valid is true.
	Bits  int
	Valid bool
}

// Classify maps a line to its record kind. It never fails: a length record
// whose value is not a base-10 integer is returned with Valid unset.
func Classify(line string) Record {
	switch {
	case strings.HasPrefix(line, prefixComment):
		return Record{Kind: KindComment}
	case strings.HasPrefix(line, prefixSection):
		return Record{Kind: KindSection, Value: strings.TrimSpace(line)}
	case strings.HasPrefix(line, prefixLength):
		v := fieldValue(line, prefixLength)
		n, err := strconv.Atoi(v)
		return Record{Kind: KindLength, Value: v, Bits: n, Valid: err == nil}
	case strings.HasPrefix(line, prefixMessage):
		return Record{Kind: KindMessage, Value: fieldValue(line, prefixMessage)}
	case strings.HasPrefix(line, prefixDigest):
		return Record{Kind: KindDigest, Value: fieldValue(line, prefixDigest)}
	default:
		return Record{Kind: KindOther}
	}
}

// fieldValue returns the text after the first '=' of a "Key = value" record,
// or everything after the key when there is no '='.
func fieldValue(line, key string) string {
	rest := line[len(key):]
	if i := strings.IndexByte(rest, '='); i >= 0 {
		rest = rest[i+1:]
	}
	return strings.TrimSpace(rest)
}
