package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPreprocessForEmbeddingShapeAndRange(t *testing.T) {
	img := solidImage(320, 240, color.RGBA{R: 255, G: 0, B: 128, A: 255})

	data := preprocessForEmbedding(img, 160)
	require.Len(t, data, 3*160*160)

	// FaceNet normalization: (pixel - 127.5) / 128.
	assert.InDelta(t, (255.0-127.5)/128.0, data[0], 1e-4, "R channel")
	assert.InDelta(t, (0.0-127.5)/128.0, data[160*160], 1e-4, "G channel")
	assert.InDelta(t, (128.0-127.5)/128.0, data[2*160*160], 1e-4, "B channel")
}

func TestResizeImageDimensions(t *testing.T) {
	img := solidImage(37, 53, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	resized := resizeImage(img, 160, 160)
	bounds := resized.Bounds()
	assert.Equal(t, 160, bounds.Dx())
	assert.Equal(t, 160, bounds.Dy())
}

func TestDecodeImageJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solidImage(16, 16, color.RGBA{R: 200, G: 200, B: 200, A: 255}), nil))

	img, err := decodeImage(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
}

func TestDecodeImageGarbage(t *testing.T) {
	_, err := decodeImage([]byte("not an image"))
	require.Error(t, err)
}

func TestNormalizeUnitLength(t *testing.T) {
	v := []float32{3, 4}
	normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
}

func TestNormalizeZeroVectorUnchanged(t *testing.T) {
	v := []float32{0, 0, 0}
	normalize(v)
	assert.Equal(t, []float32{0, 0, 0}, v)
}
