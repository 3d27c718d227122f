package covers

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"testing"

	"github.com/folioapp/folio-server/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newTestProcessor(t *testing.T) (*Processor, *storage.Files) {
	t.Helper()
	files, err := storage.NewFiles(t.TempDir())
	require.NoError(t, err)
	return NewProcessor(files, slog.New(slog.DiscardHandler)), files
}

func TestProcess_StoresThumbnailAndReturnsBlurhash(t *testing.T) {
	p, files := newTestProcessor(t)

	hash, err := p.Process("book-1", testJPEG(t, 100, 150))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	stored, err := files.ReadCover("book-1")
	require.NoError(t, err)
	assert.NotEmpty(t, stored)
}

func TestProcess_BoundsLargeImages(t *testing.T) {
	p, files := newTestProcessor(t)

	_, err := p.Process("book-1", testJPEG(t, 2000, 3000))
	require.NoError(t, err)

	stored, err := files.ReadCover("book-1")
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.LessOrEqual(t, cfg.Width, maxThumbnailEdge)
	assert.LessOrEqual(t, cfg.Height, maxThumbnailEdge)
}

func TestProcess_RejectsGarbage(t *testing.T) {
	p, _ := newTestProcessor(t)

	_, err := p.Process("book-1", []byte("not an image"))
	assert.Error(t, err)
}

func TestDataURI(t *testing.T) {
	uri := DataURI([]byte{1, 2, 3}, "image/png")
	assert.Equal(t, "data:image/png;base64,AQID", uri)

	// Defaults to JPEG.
	assert.Contains(t, DataURI([]byte{1}, ""), "data:image/jpeg;base64,")
}

func TestScaleDown_SmallImagesUntouched(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 60))
	assert.Equal(t, img.Bounds(), scaleDown(img, 480).Bounds())
}
