package camera

import (
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
)

// Names and codes of the globals a Publisher writes.
const (
	VarView           = "View"
	VarProjection     = "Projection"
	VarViewProjection = "ViewProjection"
	VarInvProjection  = "InvProjection"
	VarEyePos         = "EyePos"
	VarTime           = "Time"
	VarDisplaySize    = "DisplaySize"
)

var publishedCodes = [...]struct{ name, code string }{
	{VarView, "view"},
	{VarProjection, "proj"},
	{VarViewProjection, "vpro"},
	{VarInvProjection, "ipro"},
	{VarEyePos, "eyep"},
	{VarTime, "time"},
	{VarDisplaySize, "dsiz"},
}

// Publisher copies camera state into registry globals once per frame so render path
// parameters can bind to them by name.
type Publisher struct {
	registry variable.Registry
	server   gfx.Server

	view           variable.Handle
	projection     variable.Handle
	viewProjection variable.Handle
	invProjection  variable.Handle
	eyePos         variable.Handle
	time           variable.Handle
	displaySize    variable.Handle
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithTransformServer makes Publish also load the view and projection transforms of srv.
func WithTransformServer(srv gfx.Server) PublisherOption {
	return func(p *Publisher) {
		p.server = srv
	}
}

// NewPublisher declares the camera globals in reg.
//
// Parameters:
//   - reg: the registry to publish into
//   - options: functional options
//
// Returns:
//   - *Publisher: the publisher
func NewPublisher(reg variable.Registry, options ...PublisherOption) *Publisher {
	if reg == nil {
		panic("camera: a registry is required")
	}
	var h [len(publishedCodes)]variable.Handle
	for i, pc := range publishedCodes {
		h[i] = reg.DeclareVariable(pc.name, variable.MakeFourCC(pc.code))
	}
	p := &Publisher{
		registry:       reg,
		view:           h[0],
		projection:     h[1],
		viewProjection: h[2],
		invProjection:  h[3],
		eyePos:         h[4],
		time:           h[5],
		displaySize:    h[6],
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Publish writes the matrices and eye of c, the frame time and the display size.
// DisplaySize is (w, h, 1/w, 1/h); a zero dimension publishes a zero reciprocal.
//
// Parameters:
//   - c: the camera
//   - t: elapsed time in seconds
//   - w, h: display size in pixels
func (p *Publisher) Publish(c Camera, t float32, w, h int) {
	view := c.View()
	proj := c.Projection()
	eye := c.Eye()

	p.registry.SetMatrix(p.view, view)
	p.registry.SetMatrix(p.projection, proj)
	p.registry.SetMatrix(p.viewProjection, c.ViewProjection())
	p.registry.SetMatrix(p.invProjection, c.InverseProjection())
	p.registry.SetVector4(p.eyePos, [4]float32{eye[0], eye[1], eye[2], 1})
	p.registry.SetFloat(p.time, t)

	size := [4]float32{float32(w), float32(h), 0, 0}
	if w > 0 {
		size[2] = 1 / float32(w)
	}
	if h > 0 {
		size[3] = 1 / float32(h)
	}
	p.registry.SetFloat4(p.displaySize, size)

	if p.server != nil {
		p.server.SetTransform(gfx.View, view)
		p.server.SetTransform(gfx.Projection, proj)
	}
}
