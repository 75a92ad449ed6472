package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"docquery/types"
)

// extractPDF pulls the decoded content stream of every page with pdfcpu and
// recovers the text-showing operator arguments from it. Pages with no text
// layer (scanned images) come back empty; the caller decides whether the
// document as a whole is empty.
func extractPDF(path string) ([]types.Page, error) {
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrSourceUnavailable, path, err)
	}

	outDir, err := os.MkdirTemp("", "docquery-pdf-")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrSourceUnavailable, path, err)
	}
	defer os.RemoveAll(outDir)

	conf := api.LoadConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrSourceUnavailable, path, err)
	}

	contents, err := readPageContents(outDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrSourceUnavailable, path, err)
	}

	pages := make([]types.Page, 0, pageCount)
	for n := 1; n <= pageCount; n++ {
		pages = append(pages, types.Page{
			Number: n,
			Text:   contentStreamText(contents[n]),
		})
	}
	return pages, nil
}

var pageNumberRe = regexp.MustCompile(`page_?(\d+)`)

// readPageContents maps page number to raw content stream, keyed off the
// page number embedded in pdfcpu's output file names.
func readPageContents(dir string) (map[int]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	contents := make(map[int]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pageNumberRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		contents[n] += string(data)
	}
	return contents, nil
}

var (
	tjRe      = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)\s*(?:Tj|')`)
	tjArrayRe = regexp.MustCompile(`\[((?:\\.|[^\]])*)\]\s*TJ`)
	strRe     = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)`)
)

// contentStreamText collects the string arguments of Tj/TJ/' operators in
// stream order and joins text lines with spaces.
func contentStreamText(stream string) string {
	if stream == "" {
		return ""
	}

	type frag struct {
		pos  int
		text string
	}
	var frags []frag

	for _, m := range tjRe.FindAllStringSubmatchIndex(stream, -1) {
		frags = append(frags, frag{pos: m[0], text: decodePDFString(stream[m[2]:m[3]])})
	}
	for _, m := range tjArrayRe.FindAllStringSubmatchIndex(stream, -1) {
		inner := stream[m[2]:m[3]]
		var sb strings.Builder
		for _, s := range strRe.FindAllStringSubmatch(inner, -1) {
			sb.WriteString(decodePDFString(s[1]))
		}
		frags = append(frags, frag{pos: m[0], text: sb.String()})
	}

	sort.Slice(frags, func(i, j int) bool { return frags[i].pos < frags[j].pos })

	var sb strings.Builder
	for _, f := range frags {
		if f.text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(f.text)
	}
	return sb.String()
}

// decodePDFString resolves the escape sequences of a PDF literal string.
func decodePDFString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
			// backspace/formfeed dropped
		case '(', ')', '\\':
			sb.WriteByte(s[i])
		case '0', '1', '2', '3', '4', '5', '6', '7':
			// octal escape, up to three digits
			end := i
			for end < len(s) && end < i+3 && s[end] >= '0' && s[end] <= '7' {
				end++
			}
			if v, err := strconv.ParseUint(s[i:end], 8, 16); err == nil && v > 0 && v < 256 {
				sb.WriteByte(byte(v))
			}
			i = end - 1
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
