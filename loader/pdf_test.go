package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentStreamText(t *testing.T) {
	stream := `BT
/F1 12 Tf
72 720 Td
(Hello) Tj
( World) Tj
ET
BT
[(spa) -250 (ced)] TJ
ET`
	got := contentStreamText(stream)
	assert.Equal(t, "Hello  World spaced", got)
}

func TestContentStreamText_Empty(t *testing.T) {
	assert.Equal(t, "", contentStreamText(""))
	assert.Equal(t, "", contentStreamText("q 1 0 0 1 0 0 cm Q"))
}

func TestContentStreamText_EscapedParens(t *testing.T) {
	stream := `(clause \(a\)) Tj`
	assert.Equal(t, "clause (a)", contentStreamText(stream))
}

func TestDecodePDFString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`plain`, "plain"},
		{`line\nbreak`, "line\nbreak"},
		{`tab\there`, "tab\there"},
		{`esc\(paren\)`, "esc(paren)"},
		{`back\\slash`, `back\slash`},
		{`octal\101`, "octalA"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, decodePDFString(tc.in))
	}
}
