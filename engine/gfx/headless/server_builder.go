package headless

// ServerBuilderOption configures a headless server.
type ServerBuilderOption func(*server)

// WithDisplaySize sets the backbuffer size.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - ServerBuilderOption: a function that applies the size
func WithDisplaySize(width, height int) ServerBuilderOption {
	return func(s *server) {
		s.width = width
		s.height = height
	}
}

// WithStrict compiles every shader with naga when it is loaded.
//
// Parameters:
//   - strict: whether loads validate the WGSL source
//
// Returns:
//   - ServerBuilderOption: a function that applies the setting
func WithStrict(strict bool) ServerBuilderOption {
	return func(s *server) {
		s.strict = strict
	}
}

// WithShaderPasses makes the named shader report passes from Begin regardless of its source.
//
// Parameters:
//   - shaderName: the shader resource name
//   - passes: the pass count Begin returns
//
// Returns:
//   - ServerBuilderOption: a function that applies the override
func WithShaderPasses(shaderName string, passes int) ServerBuilderOption {
	return func(s *server) {
		s.passOverride[shaderName] = passes
	}
}
