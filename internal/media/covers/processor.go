// Package covers processes cover images extracted from EPUB files: bounded
// JPEG thumbnails for the managed cover file, BlurHash placeholders for
// instant library-grid paint, and data-URI encoding for inlining.
package covers

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/folioapp/folio-server/internal/storage"
)

const (
	// maxThumbnailEdge bounds the stored cover. Library grids never render
	// larger than this; full-size art stays inside the EPUB.
	maxThumbnailEdge = 480

	// blurHashSize is the target size for BlurHash computation. BlurHash is a
	// low-resolution placeholder, so a small thumbnail produces nearly
	// identical results at a fraction of the cost.
	blurHashSize = 64

	jpegQuality = 85
)

// Processor converts raw cover bytes into the managed cover file plus a
// BlurHash placeholder.
type Processor struct {
	files  *storage.Files
	logger *slog.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(files *storage.Files, logger *slog.Logger) *Processor {
	return &Processor{
		files:  files,
		logger: logger,
	}
}

// Process decodes raw cover bytes, writes a bounded JPEG thumbnail as the
// book's managed cover file, and returns a BlurHash placeholder string.
func (p *Processor) Process(bookID string, data []byte) (string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode cover: %w", err)
	}

	thumb := scaleDown(img, maxThumbnailEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode cover thumbnail: %w", err)
	}

	if err := p.files.WriteCover(bookID, buf.Bytes()); err != nil {
		return "", fmt.Errorf("store cover: %w", err)
	}

	// 4x3 components - sweet spot for book covers.
	hash, err := blurhash.Encode(4, 3, scaleDown(thumb, blurHashSize))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}

	p.logger.Debug("processed cover",
		"book_id", bookID,
		"source_format", format,
		"thumbnail_bytes", buf.Len(),
		"blurhash", hash,
	)

	return hash, nil
}

// DataURI encodes image bytes as a data URI for direct display.
func DataURI(data []byte, mediaType string) string {
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// scaleDown resizes img so its longest edge is at most maxEdge, preserving
// aspect ratio. Images already within bounds are returned unchanged.
func scaleDown(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	if srcWidth <= maxEdge && srcHeight <= maxEdge {
		return img
	}

	var dstWidth, dstHeight int
	if srcWidth > srcHeight {
		dstWidth = maxEdge
		dstHeight = max(1, (srcHeight*maxEdge)/srcWidth)
	} else {
		dstHeight = maxEdge
		dstWidth = max(1, (srcWidth*maxEdge)/srcHeight)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
