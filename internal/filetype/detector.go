package filetype

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// ErrEmpty is returned for zero-byte input.
var ErrEmpty = errors.New("empty file")

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType    string
	Extension   string
	IsPDF       bool
	IsImage     bool
	Supported   bool
	Description string
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// DetectBytes detects the actual file type using magic bytes, not the filename.
// name is only used for logging.
func (d *Detector) DetectBytes(data []byte, name string) (*FileTypeInfo, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	mtype := mimetype.Detect(data)
	info := &FileTypeInfo{
		MIMEType:  baseMIME(mtype.String()),
		Extension: mtype.Extension(),
	}
	d.classify(info)

	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Str("file", name).Bool("supported", info.Supported).Msg("detected file type")
	return info, nil
}

// DetectFile is DetectBytes for a file on disk.
func (d *Detector) DetectFile(filePath string) (*FileTypeInfo, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}
	info := &FileTypeInfo{MIMEType: baseMIME(mtype.String()), Extension: mtype.Extension()}
	d.classify(info)
	return info, nil
}

// classify determines whether the pipeline accepts the type
func (d *Detector) classify(info *FileTypeInfo) {
	switch info.MIMEType {
	case "application/pdf":
		info.IsPDF = true
		info.Supported = true
		info.Description = "PDF document"

	// Image files - single page, OCR only
	case "image/png":
		info.IsImage = true
		info.Supported = true
		info.Description = "PNG image"
	case "image/jpeg":
		info.IsImage = true
		info.Supported = true
		info.Description = "JPEG image"
	case "image/webp":
		info.IsImage = true
		info.Supported = true
		info.Description = "WebP image"

	// Default: unsupported
	default:
		info.Supported = false
		info.Description = fmt.Sprintf("Unsupported file type: %s", info.MIMEType)
	}
}

// baseMIME strips parameters such as "; charset=utf-8".
func baseMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.TrimSpace(m)
}
