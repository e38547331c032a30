package orchestrator

import "github.com/local/ocrextractor/internal/model"

const (
    mib = 1024 * 1024

    // Files below this size are processed as one chunk.
    SplitThresholdBytes = 10 * mib
    // Files at or above this size are cut into fixed-size chunks.
    LargeFileThresholdBytes = 19 * mib
    // Pages per chunk for large files.
    LargeChunkPages = 15
)

// PlanChunks partitions pages 1..numPages into ordered, contiguous, non-empty
// chunks. Sizing depends only on the file size:
//   - below 10 MiB: one chunk
//   - below 19 MiB: two halves, the first holding ceil(n/2) pages
//   - otherwise: runs of 15 pages, the last one holding the remainder
func PlanChunks(numPages int, fileSizeBytes int64) []model.Chunk {
    if numPages <= 0 { return nil }

    var bounds [][2]int // inclusive [first, last]
    switch {
    case fileSizeBytes < SplitThresholdBytes:
        bounds = append(bounds, [2]int{1, numPages})
    case fileSizeBytes < LargeFileThresholdBytes:
        half := (numPages + 1) / 2
        bounds = append(bounds, [2]int{1, half})
        if half < numPages {
            bounds = append(bounds, [2]int{half + 1, numPages})
        }
    default:
        for first := 1; first <= numPages; first += LargeChunkPages {
            bounds = append(bounds, [2]int{first, min(first+LargeChunkPages-1, numPages)})
        }
    }

    chunks := make([]model.Chunk, 0, len(bounds))
    for i, b := range bounds {
        pages := make([]int, 0, b[1]-b[0]+1)
        for p := b[0]; p <= b[1]; p++ {
            pages = append(pages, p)
        }
        chunks = append(chunks, model.Chunk{Index: i + 1, Pages: pages})
    }
    return chunks
}
