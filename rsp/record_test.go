package rsp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lattice-substrate/rsp-testgen/rsp"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		line string
		want rsp.Record
	}{
		{"length", "Len = 32", rsp.Record{Kind: rsp.KindLength, Value: "32", Bits: 32, Valid: true}},
		{"length_no_spaces", "Len=8", rsp.Record{Kind: rsp.KindLength, Value: "8", Bits: 8, Valid: true}},
		{"length_crlf", "Len = 512\r", rsp.Record{Kind: rsp.KindLength, Value: "512", Bits: 512, Valid: true}},
		{"length_garbage", "Len = x", rsp.Record{Kind: rsp.KindLength, Value: "x"}},
		{"message", "Msg = c2ff5c81", rsp.Record{Kind: rsp.KindMessage, Value: "c2ff5c81"}},
		{"message_empty", "Msg =", rsp.Record{Kind: rsp.KindMessage}},
		{"digest", "MD = f1f2", rsp.Record{Kind: rsp.KindDigest, Value: "f1f2"}},
		{"digest_without_equals", "MD f1f2", rsp.Record{Kind: rsp.KindDigest, Value: "f1f2"}},
		{"comment", "#  CAVS 11.0", rsp.Record{Kind: rsp.KindComment}},
		{"section", "[L = 32]", rsp.Record{Kind: rsp.KindSection, Value: "[L = 32]"}},
		{"blank", "", rsp.Record{Kind: rsp.KindOther}},
		{"carriage_return", "\r", rsp.Record{Kind: rsp.KindOther}},
		{"indented_record", "  Len = 8", rsp.Record{Kind: rsp.KindOther}},
		{"lowercase_key", "msg = ab", rsp.Record{Kind: rsp.KindOther}},
		{"count_line", "COUNT = 3", rsp.Record{Kind: rsp.KindOther}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, rsp.Classify(tc.line))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "length", rsp.KindLength.String())
	assert.Equal(t, "other", rsp.KindOther.String())
	assert.Equal(t, "Kind(99)", rsp.Kind(99).String())
}
