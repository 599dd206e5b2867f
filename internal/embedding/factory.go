package embedding

import "fmt"

// Extractor types accepted by New.
const (
	TypeMock = "mock"
	TypeONNX = "onnx"
)

// New builds the configured extractor, wrapped in a cache when cacheSize > 0.
func New(typ string, cfg ONNXConfig, cacheSize int) (Extractor, error) {
	var (
		ext Extractor
		err error
	)
	switch typ {
	case TypeMock, "":
		ext = NewMockExtractor(cfg.Dimensions)
	case TypeONNX:
		ext, err = NewONNXExtractor(cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown extractor type: %s (supported: mock, onnx)", typ)
	}
	if cacheSize > 0 {
		return NewCachedExtractor(ext, cacheSize), nil
	}
	return ext, nil
}
