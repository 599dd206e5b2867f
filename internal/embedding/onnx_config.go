package embedding

// ONNXConfig describes a face recognition model with a single NCHW image
// input and a single embedding output.
type ONNXConfig struct {
	ModelPath   string
	Dimensions  int
	InputWidth  int
	InputHeight int
	InputName   string
	OutputName  string
}

func (c *ONNXConfig) applyDefaults() {
	if c.Dimensions <= 0 {
		c.Dimensions = 512
	}
	if c.InputWidth <= 0 {
		c.InputWidth = 112
	}
	if c.InputHeight <= 0 {
		c.InputHeight = 112
	}
	if c.InputName == "" {
		c.InputName = "input"
	}
	if c.OutputName == "" {
		c.OutputName = "output"
	}
}
