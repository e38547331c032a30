// Package model holds the values passed between the extraction stages.
package model

// Kind tells how a page's text is obtained.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Page is one classified page. Kind is fixed at creation: Text pages carry
// Text, Image pages carry Image and MIMEType.
type Page struct {
	Number   int
	Kind     Kind
	Text     string
	Image    []byte
	MIMEType string
}

// TextPage builds a page whose embedded text is used as-is.
func TextPage(number int, text string) Page {
	return Page{Number: number, Kind: KindText, Text: text}
}

// ImagePage builds a page that needs recognition.
func ImagePage(number int, image []byte, mimeType string) Page {
	return Page{Number: number, Kind: KindImage, Image: image, MIMEType: mimeType}
}

// Source records where an ExtractedPage's text came from.
type Source string

const (
	SourceText        Source = "text"
	SourceOCR         Source = "ocr"
	SourcePlaceholder Source = "placeholder"
	SourceSimulated   Source = "simulated"
)

// ExtractedPage is the final text of one page. Text is never empty.
type ExtractedPage struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	Source     Source `json:"source"`
	Degraded   bool   `json:"degraded,omitempty"`
}

// Chunk is a contiguous, ascending run of 1-based page numbers.
type Chunk struct {
	Index int   `json:"index"` // 1-based
	Pages []int `json:"pages"`
}

// First returns the chunk's first page number.
func (c Chunk) First() int {
	if len(c.Pages) == 0 {
		return 0
	}
	return c.Pages[0]
}

// Last returns the chunk's last page number.
func (c Chunk) Last() int {
	if len(c.Pages) == 0 {
		return 0
	}
	return c.Pages[len(c.Pages)-1]
}

// Artifact is one downloadable output file.
type Artifact struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Chunk     int    `json:"chunk"`
	Content   []byte `json:"-"`
}
