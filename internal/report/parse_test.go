package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"quoted fence", "\"```json\n{\"Answer\":\"yes\"}\n```\"", `{"Answer":"yes"}`},
		{"fence only", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}```", `{"a":1}`},
		{"quote json prefix", "\"json {\"a\":1}\"", `{"a":1}`},
		{"string literal", `"{\"Answer\":\"PARTIAL\"}"`, `{"Answer":"PARTIAL"}`},
		{"plain text kept", `The vendor said "maybe"`, `The vendor said "maybe"`},
		{"whitespace", "  {\"a\":1}\n", `{"a":1}`},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.raw))
		})
	}
}

func TestParse_Parsed(t *testing.T) {
	res := Parse("Here you go: {\"answer\": \"Yes\", \"Score\": 4} thanks")
	p, ok := res.(Parsed)
	require.True(t, ok)
	assert.Equal(t, "Yes", p.Get("Answer"))
	assert.Equal(t, "4", p.Get("score"))
	assert.Equal(t, "", p.Get("Missing"))
}

func TestParse_Fallback(t *testing.T) {
	for _, raw := range []string{"", "not json at all", "[1,2,3]", "{broken", "\"```json\n{\"Answer\":\n```\"", "}{"} {
		t.Run(raw, func(t *testing.T) {
			var res ParseResult
			assert.NotPanics(t, func() { res = Parse(raw) })
			f, ok := res.(Fallback)
			require.True(t, ok)
			assert.Error(t, f.Err)
		})
	}
}

func TestParsed_GetPrefersFirstKey(t *testing.T) {
	p := Parsed{Fields: map[string]any{"quality": "adequate", "Answer_Quality": ""}}
	assert.Equal(t, "adequate", p.Get("Answer_Quality", "Quality"))
}
