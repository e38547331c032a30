package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/ocrextractor/internal/ai"
	"github.com/local/ocrextractor/internal/dispatcher"
	"github.com/local/ocrextractor/internal/model"
)

var pdfBytes = []byte("%PDF-1.4\n% test document\n")

func newTestOrchestrator(src *fakeSource, rec ai.Client) *Orchestrator {
	return New(Dependencies{
		Recognizer: rec,
		Open: func(data []byte) (Document, error) {
			return src, nil
		},
		CountPages: func([]byte) (int, error) { return 0, errors.New("not a real pdf") },
	}, Options{})
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func artifactNames(res *Result) []string {
	var names []string
	for _, a := range res.Artifacts {
		names = append(names, a.Name)
	}
	return names
}

func TestRunHybridPDF(t *testing.T) {
	src := &fakeSource{pages: 3, fragments: map[int][]string{
		1: {"This page has plenty of embedded text."},
		3: {"Third page", "also has enough text"},
	}}
	rec := &fakeRecognizer{text: func(req ai.Request) (string, error) {
		return fmt.Sprintf("scanned page %d", req.PageID), nil
	}}
	obs := &Recorder{}

	res, err := newTestOrchestrator(src, rec).Run(context.Background(), "job-1", Input{Name: "doc.pdf", Data: pdfBytes}, obs)
	require.NoError(t, err)

	assert.Equal(t, 3, res.NumPages)
	assert.Equal(t, "application/pdf", res.MIMEType)
	assert.False(t, res.Degraded)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, 2, rec.calls[0].PageID)
	assert.Equal(t, "image/jpeg", rec.calls[0].ImageMIME)

	assert.Equal(t, []model.ExtractedPage{
		{PageNumber: 1, Text: "This page has plenty of embedded text.", Source: model.SourceText},
		{PageNumber: 2, Text: "scanned page 2", Source: model.SourceOCR},
		{PageNumber: 3, Text: "Third page also has enough text", Source: model.SourceText},
	}, res.Pages)

	assert.Equal(t, []string{"saida.txt", "saida.json", "saida.html"}, artifactNames(res))
	assert.Equal(t, "1\nThis page has plenty of embedded text.\n\n2\nscanned page 2\n\n3\nThird page also has enough text",
		string(res.Artifacts[0].Content))

	assert.Equal(t, []State{StateUploading, StateSplitting, StateExtracting, StateGenerating, StateDone}, obs.States())
	assert.Equal(t, 3, obs.Pages())
	logs := obs.Logs()
	require.NotEmpty(t, logs)
	assert.Equal(t, `Starting processing for "doc.pdf".`, logs[0].Message)
	assert.Equal(t, LogSuccess, logs[len(logs)-1].Type)
}

func TestRunLargePDFIsChunked(t *testing.T) {
	frags := map[int][]string{}
	for n := 1; n <= 20; n++ {
		frags[n] = []string{fmt.Sprintf("page %d text that is long enough", n)}
	}
	src := &fakeSource{pages: 20, fragments: frags}
	big := append(append([]byte{}, pdfBytes...), make([]byte, 20*mib)...)

	res, err := newTestOrchestrator(src, &fakeRecognizer{}).Run(context.Background(), "job", Input{Name: "big.pdf", Data: big}, nil)
	require.NoError(t, err)

	require.Len(t, res.Chunks, 2)
	assert.Equal(t, []string{
		"part1_saida.txt", "part1_saida.json", "part1_saida.html",
		"part2_saida.txt", "part2_saida.json", "part2_saida.html",
	}, artifactNames(res))
	assert.True(t, strings.HasPrefix(string(res.Artifacts[3].Content), "16\npage 16"))
	assert.True(t, src.closed)
}

func TestRunImageInput(t *testing.T) {
	rec := &fakeRecognizer{text: func(req ai.Request) (string, error) { return "", nil }}
	data := pngBytes(t)

	res, err := newTestOrchestrator(&fakeSource{}, rec).Run(context.Background(), "job", Input{Name: "scan.png", Data: data}, nil)
	require.NoError(t, err)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "image/png", rec.calls[0].ImageMIME)
	assert.Equal(t, data, rec.calls[0].Image)
	assert.Equal(t, []model.ExtractedPage{
		{PageNumber: 1, Text: dispatcher.NoTextPlaceholder, Source: model.SourcePlaceholder},
	}, res.Pages)
	assert.Equal(t, "1\n[No text found on this page]", string(res.Artifacts[0].Content))
}

func TestRunDegradedWithoutCredential(t *testing.T) {
	src := &fakeSource{pages: 2}
	orch := newTestOrchestrator(src, ai.NewGeminiClient(""))
	obs := &Recorder{}

	res, err := orch.Run(context.Background(), "job", Input{Name: "scan.pdf", Data: pdfBytes}, obs)
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	for _, p := range res.Pages {
		assert.True(t, p.Degraded)
		assert.Equal(t, model.SourceSimulated, p.Source)
	}
	assert.Equal(t, StateDone, obs.States()[len(obs.States())-1])

	var warned bool
	for _, l := range obs.Logs() {
		warned = warned || (l.Type == LogWarning && strings.Contains(l.Message, "not configured"))
	}
	assert.True(t, warned)
}

func TestRunRejectsUnsupportedBeforePlanning(t *testing.T) {
	opened := false
	orch := New(Dependencies{
		Recognizer: &fakeRecognizer{},
		Open: func([]byte) (Document, error) {
			opened = true
			return &fakeSource{}, nil
		},
	}, Options{})
	obs := &Recorder{}

	res, err := orch.Run(context.Background(), "job", Input{Name: "notes.txt", Data: []byte("hello world, plain text")}, obs)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, IsInputError(err))
	assert.False(t, opened)
	assert.Equal(t, []State{StateUploading, StateIdle}, obs.States())
	logs := obs.Logs()
	assert.Equal(t, LogWarning, logs[len(logs)-1].Type)
	assert.True(t, strings.HasPrefix(logs[len(logs)-1].Message, "Error: "))
}

func TestRunRecognitionFailureAborts(t *testing.T) {
	src := &fakeSource{pages: 2}
	rec := &fakeRecognizer{text: func(req ai.Request) (string, error) {
		return "", &ai.HTTPError{Provider: "fake", StatusCode: 401, Body: "bad key"}
	}}
	obs := &Recorder{}

	res, err := newTestOrchestrator(src, rec).Run(context.Background(), "job", Input{Name: "scan.pdf", Data: pdfBytes}, obs)
	assert.Nil(t, res)

	var runErr *Error
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, KindRecognition, runErr.Kind)
	assert.Contains(t, err.Error(), "bad key")
	var he *ai.HTTPError
	assert.True(t, errors.As(err, &he))
	assert.Equal(t, StateIdle, obs.States()[len(obs.States())-1])
}

func TestRunRenderFailureAborts(t *testing.T) {
	src := &fakeSource{pages: 2, renderErr: map[int]error{2: errBoom}}
	_, err := newTestOrchestrator(src, &fakeRecognizer{}).Run(context.Background(), "job", Input{Name: "scan.pdf", Data: pdfBytes}, nil)
	assert.Equal(t, KindRender, KindOf(err))
	assert.ErrorIs(t, err, errBoom)
}

func TestRunOpenFailureIsInputError(t *testing.T) {
	orch := New(Dependencies{Open: func([]byte) (Document, error) { return nil, errBoom }}, Options{})
	_, err := orch.Run(context.Background(), "job", Input{Name: "broken.pdf", Data: pdfBytes}, nil)
	assert.True(t, IsInputError(err))
}

func TestRunEmptyPDFIsInputError(t *testing.T) {
	_, err := newTestOrchestrator(&fakeSource{pages: 0}, nil).Run(context.Background(), "job", Input{Name: "empty.pdf", Data: pdfBytes}, nil)
	assert.True(t, IsInputError(err))
}
