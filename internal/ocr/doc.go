// Package ocr extracts candidate text fragments from sampled frames using
// Tesseract. Output is filtered aggressively: the downstream candidate
// generator would otherwise drown in subtitle noise and overlay artifacts.
package ocr
