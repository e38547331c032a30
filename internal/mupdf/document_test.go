package mupdf

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal PDF with one Helvetica text line per entry;
// an empty entry yields a page without text.
func buildPDF(pages []string) []byte {
	var objs []string
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, text := range pages {
		stream := ""
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestDocumentFragmentsAndRender(t *testing.T) {
	doc, err := Open(buildPDF([]string{"Embedded text long enough to count", ""}))
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, 2, doc.NumPage())

	frags, err := doc.Fragments(1)
	require.NoError(t, err)
	assert.Equal(t, "Embedded text long enough to count", strings.TrimSpace(strings.Join(frags, " ")))

	frags, err = doc.Fragments(2)
	require.NoError(t, err)
	assert.Empty(t, frags)

	img, err := doc.Render(2, 144)
	require.NoError(t, err)
	// 200pt at 144 DPI = 400px
	assert.InDelta(t, 400, img.Bounds().Dx(), 2)
}

func TestDocumentPageRange(t *testing.T) {
	doc, err := Open(buildPDF([]string{"only"}))
	require.NoError(t, err)
	defer doc.Close()

	_, err = doc.Fragments(0)
	assert.Error(t, err)
	_, err = doc.Render(2, 72)
	assert.Error(t, err)
}

func TestOpenRejectsEmptyInput(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)
}

func TestSplitLinesKeepsLineText(t *testing.T) {
	got := splitLines("Title\r\n    indented code\n\n   \nlast line  ")
	assert.Equal(t, []string{"Title", "    indented code", "last line  "}, got)
	assert.Empty(t, splitLines(" \n\t\n"))
}
