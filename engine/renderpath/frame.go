package renderpath

// SceneRenderer draws the geometry of one sequence shader pass. The phase carries the sort
// order and light mode the renderer honours, the sequence the shader bucket and MVP policy.
type SceneRenderer interface {
	// RenderSequence draws everything that belongs to seq while shader pass shaderPass is active.
	//
	// Parameters:
	//   - pass: the active pass
	//   - phase: the active phase
	//   - seq: the active sequence
	//   - shaderPass: the active shader pass of the sequence shader
	RenderSequence(pass *Pass, phase *Phase, seq *Sequence, shaderPass int)
}

// ShadowRenderer is implemented by scene renderers that draw shadows. It is called once per
// pass with a shadow technique other than NoShadows, before the pass phases.
type ShadowRenderer interface {
	RenderShadows(pass *Pass, technique ShadowTechnique)
}

// OcclusionRenderer is implemented by scene renderers that run occlusion queries. It is called
// once per pass with occlusion queries enabled, before the pass phases.
type OcclusionRenderer interface {
	RenderOcclusion(pass *Pass)
}

// Render draws one frame of rp with scene. Every Begin is paired with its End, children of a
// node whose Begin returns 0 are skipped.
//
// Parameters:
//   - rp: an opened render path
//   - scene: the renderer drawing sequence geometry
//
// Returns:
//   - error: the first content error, all begun nodes are ended before it is returned
func Render(rp RenderPath, scene SceneRenderer) error {
	ns := rp.Begin()
	defer rp.End()
	for i := 0; i < ns; i++ {
		if err := renderSection(rp.Section(i), scene); err != nil {
			return err
		}
	}
	return nil
}

func renderSection(s *Section, scene SceneRenderer) error {
	np, err := s.Begin()
	if err != nil {
		return err
	}
	defer s.End()
	for i := 0; i < np; i++ {
		if err := renderPass(s.Pass(i), scene); err != nil {
			return err
		}
	}
	return nil
}

func renderPass(p *Pass, scene SceneRenderer) error {
	nph, err := p.Begin()
	if err != nil || !p.InBegin() {
		return err
	}
	defer p.End()

	if sr, ok := scene.(ShadowRenderer); ok && p.ShadowTechnique() != NoShadows {
		sr.RenderShadows(p, p.ShadowTechnique())
	}
	if oc, ok := scene.(OcclusionRenderer); ok && p.OcclusionQuery() {
		oc.RenderOcclusion(p)
	}
	for i := 0; i < nph; i++ {
		if err := renderPhase(p, p.Phase(i), scene); err != nil {
			return err
		}
	}
	return nil
}

func renderPhase(p *Pass, ph *Phase, scene SceneRenderer) error {
	nseq, err := ph.Begin()
	if err != nil || !ph.InBegin() {
		return err
	}
	defer ph.End()
	for i := 0; i < nseq; i++ {
		if err := renderSequence(p, ph, ph.Sequence(i), scene); err != nil {
			return err
		}
	}
	return nil
}

func renderSequence(p *Pass, ph *Phase, seq *Sequence, scene SceneRenderer) error {
	n, err := seq.Begin()
	if err != nil || !seq.InBegin() {
		return err
	}
	defer seq.End()
	for i := 0; i < n; i++ {
		seq.BeginPass(i)
		scene.RenderSequence(p, ph, seq, i)
		seq.EndPass()
	}
	return nil
}
