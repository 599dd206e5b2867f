//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errNoCGO = errors.New("ONNX extractor requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXExtractor is unavailable without CGO (see onnx.go).
type ONNXExtractor struct{}

// NewONNXExtractor always fails when built without CGO.
func NewONNXExtractor(_ ONNXConfig) (*ONNXExtractor, error) {
	return nil, errNoCGO
}

func (e *ONNXExtractor) Extract(context.Context, []byte) ([]float32, error) { return nil, errNoCGO }
func (e *ONNXExtractor) Dimensions() int                                    { return 0 }
func (e *ONNXExtractor) Close() error                                       { return nil }
