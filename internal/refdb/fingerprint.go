package refdb

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/nfnt/resize"
)

// fingerprintSize is the side length of the downscaled grayscale grid used as
// an image embedding. 16x16 keeps vectors comparable across resolutions while
// staying cheap to match against every reference.
const fingerprintSize = 16

// ImageFingerprint reduces an image to a unit-normalized grayscale intensity
// vector suitable for cosine matching against reference vectors.
func ImageFingerprint(img image.Image) []float64 {
	small := resize.Resize(fingerprintSize, fingerprintSize, img, resize.Bilinear)
	vector := make([]float64, 0, fingerprintSize*fingerprintSize)
	bounds := small.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := small.At(x, y).RGBA()
			// Luma approximation over 16-bit channel values.
			gray := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
			vector = append(vector, gray/65535)
		}
	}
	return normalize(vector)
}

// FingerprintFile decodes an image file and fingerprints it.
func FingerprintFile(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return ImageFingerprint(img), nil
}

// Cosine computes the cosine similarity of two vectors. Vectors of differing
// length or zero norm yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func normalize(vector []float64) []float64 {
	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	if norm == 0 {
		return vector
	}
	norm = math.Sqrt(norm)
	for i := range vector {
		vector[i] /= norm
	}
	return vector
}
