package renderpath

import (
	"errors"
	"fmt"
)

// Content errors. A render path that produces one of these is malformed and cannot be opened.
var (
	ErrShaderAliasNotFound    = errors.New("shader alias not found")
	ErrRenderTargetNotFound   = errors.New("render target not found")
	ErrUnknownSortOrder       = errors.New("unknown sort order")
	ErrUnknownLightMode       = errors.New("unknown light mode")
	ErrUnknownShadowTechnique = errors.New("unknown shadow technique")
	ErrUnknownPixelFormat     = errors.New("unknown pixel format")
	ErrUnsupportedArgType     = errors.New("unsupported shader argument type")
	ErrMultiPassShader        = errors.New("shader must have exactly one pass")
	ErrGlobalVariableNotFound = errors.New("global variable not set")
	ErrInvalidAttribute       = errors.New("invalid attribute")
	ErrUnknownRoot            = errors.New("unknown root element")
	ErrDuplicateName          = errors.New("duplicate name")
	ErrUnexpectedElement      = errors.New("unexpected element")
)

// Resource errors. The content is well formed but a file or GPU resource is unavailable.
var (
	ErrShaderLoad   = errors.New("shader load failed")
	ErrTextureLoad  = errors.New("texture load failed")
	ErrRenderTarget = errors.New("render target creation failed")
	ErrFileRead     = errors.New("render path file unreadable")
)

// ContentError names the render path element an error originated from. It unwraps to one of
// the package sentinels, so errors.Is works on any error returned by Open or Validate.
type ContentError struct {
	// Element is the element kind, e.g. "Pass" or "Sequence".
	Element string
	// Name identifies the element instance, a name or alias.
	Name string
	Err  error
}

func (e *ContentError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("renderpath: %s: %v", e.Element, e.Err)
	}
	return fmt.Sprintf("renderpath: %s %q: %v", e.Element, e.Name, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

func contentErr(element, name string, err error) error {
	return &ContentError{Element: element, Name: name, Err: err}
}
