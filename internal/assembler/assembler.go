// Package assembler turns extracted pages into the downloadable text, JSON
// and HTML artifacts, one set per chunk.
package assembler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/ocrextractor/internal/model"
)

const (
	baseName = "saida"

	MediaText = "text/plain; charset=utf-8"
	MediaJSON = "application/json"
	MediaHTML = "text/html; charset=utf-8"
)

// BaseName is "saida" for a single chunk and "part<N>_saida" otherwise.
func BaseName(chunkIndex, totalChunks int) string {
	if totalChunks <= 1 {
		return baseName
	}
	return fmt.Sprintf("part%d_%s", chunkIndex, baseName)
}

// Assemble builds the .txt, .json and .html artifacts of every chunk, in chunk
// order. Every page of every chunk must have an ExtractedPage.
func Assemble(chunks []model.Chunk, pages []model.ExtractedPage) ([]model.Artifact, error) {
	byNumber := make(map[int]model.ExtractedPage, len(pages))
	for _, p := range pages {
		byNumber[p.PageNumber] = p
	}

	artifacts := make([]model.Artifact, 0, 3*len(chunks))
	for _, c := range chunks {
		chunkPages := make([]model.ExtractedPage, 0, len(c.Pages))
		for _, n := range c.Pages {
			p, ok := byNumber[n]
			if !ok {
				return nil, fmt.Errorf("chunk %d: page %d has no extracted text", c.Index, n)
			}
			chunkPages = append(chunkPages, p)
		}

		base := BaseName(c.Index, len(chunks))
		jsonBytes, err := JSON(chunkPages)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		htmlBytes, err := HTML(chunkPages, base)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		artifacts = append(artifacts,
			model.Artifact{Name: base + ".txt", MediaType: MediaText, Chunk: c.Index, Content: Text(chunkPages)},
			model.Artifact{Name: base + ".json", MediaType: MediaJSON, Chunk: c.Index, Content: jsonBytes},
			model.Artifact{Name: base + ".html", MediaType: MediaHTML, Chunk: c.Index, Content: htmlBytes},
		)
		log.Debug().Int("chunk", c.Index).Int("pages", len(chunkPages)).Str("base", base).Msg("assembled chunk artifacts")
	}
	return artifacts, nil
}

// Text writes "<n>\n<text>" per page, pages separated by a blank line.
func Text(pages []model.ExtractedPage) []byte {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strconv.Itoa(p.PageNumber))
		b.WriteByte('\n')
		b.WriteString(p.Text)
	}
	return []byte(b.String())
}

// JSON writes {"paginas": {"<n>": "<text>"}} indented by two spaces, keys in
// page order. HTML characters are kept literal.
func JSON(pages []model.ExtractedPage) ([]byte, error) {
	if len(pages) == 0 {
		return []byte("{\n  \"paginas\": {}\n}"), nil
	}
	var buf bytes.Buffer
	buf.WriteString("{\n  \"paginas\": {\n")
	for i, p := range pages {
		val, err := jsonString(p.Text)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "    \"%d\": %s", p.PageNumber, val)
		if i < len(pages)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("  }\n}")
	return buf.Bytes(), nil
}

func jsonString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode page text: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

var htmlTmpl = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Extracted Content - {{.Title}}</title>
    <style>
        body { font-family: sans-serif; line-height: 1.6; padding: 20px; max-width: 800px; margin: auto; background-color: #f9f9f9; color: #333; }
        article { background-color: #fff; border: 1px solid #ddd; border-radius: 8px; padding: 20px; margin-bottom: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.05); white-space: pre-wrap; word-wrap: break-word; }
        article::before { content: 'Page ' attr(data-pagina); display: block; font-weight: bold; color: #555; margin-bottom: 10px; border-bottom: 1px solid #eee; padding-bottom: 5px; }
    </style>
</head>
<body>
{{range .Pages}}<article data-pagina="{{.PageNumber}}">{{.Text}}</article>
{{end}}</body>
</html>
`))

// HTML renders one escaped <article data-pagina="n"> per page.
func HTML(pages []model.ExtractedPage, title string) ([]byte, error) {
	var buf bytes.Buffer
	err := htmlTmpl.Execute(&buf, struct {
		Title string
		Pages []model.ExtractedPage
	}{title, pages})
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}
