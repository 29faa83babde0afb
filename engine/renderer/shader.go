package renderer

type ShaderStage uint8

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	}
	return "unknown"
}

type ShaderStageCode struct {
	Stage      ShaderStage
	EntryPoint string
	// SPIR-V words
	Code []uint32
}

type ShaderProgram struct {
	Name   string
	Stages []ShaderStageCode
}

// ShaderProvider returns the compiled stages of a named program.
type ShaderProvider interface {
	LoadShaderProgram(name string) (*ShaderProgram, error)
}
