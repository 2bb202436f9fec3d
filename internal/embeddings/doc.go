// Package embeddings provides the text-to-vector boundary used by the
// embedding index. The embedding model itself is treated as an external
// black box; this package only adapts it behind one interface.
//
// Two providers are supported: an in-process FastEmbed (ONNX) model, and
// an HTTP call to an external embedding service. Provider selection is a
// factory dispatch on configuration, with dimension detection for common
// models.
package embeddings
