package scene

import (
	"cmp"
	"slices"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/game_object"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/light"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/renderpath"
)

// RenderSequence draws the objects bucketed under the sequence shader alias.
//
// Parameters:
//   - pass: the active pass
//   - phase: the active phase, consulted for sort order and light mode
//   - seq: the active sequence
//   - shaderPass: the active shader pass
func (s *scene) RenderSequence(pass *renderpath.Pass, phase *renderpath.Phase, seq *renderpath.Sequence, shaderPass int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := seq.Shader()
	if sh == nil || !s.active {
		return
	}

	vp := s.cam.ViewProjection()
	items := s.collect(seq.ShaderAlias(), vp, shaderPass == 0)
	sortItems(items, phase.SortOrder())

	mvpOnly := s.srv.Hint(gfx.HintMVPOnly)
	for _, it := range items {
		model := it.obj.ModelMatrix()
		s.srv.SetTransform(gfx.Model, model)

		var mvp [16]float32
		common.Mul4(mvp[:], vp[:], model[:])
		setMatrix(sh, ParamMVP, mvp)
		s.srv.SetMesh(it.obj.Mesh())

		if mvpOnly {
			s.draw(it.obj)
			continue
		}

		setMatrix(sh, ParamWorld, model)
		if c := it.obj.Character(); c != nil && sh.IsParameterUsed(ParamJointPalette) {
			sh.SetMatrixArray(ParamJointPalette, s.evaluator.Publish(c))
		}

		switch phase.LightMode() {
		case renderpath.LightOff:
			s.draw(it.obj)
		case renderpath.LightFFP:
			setFloat4(sh, ParamAmbient, s.ambient())
			if l := s.nearestLight(it.center, it.radius); l != nil {
				setFloat4(sh, ParamLightPos, l.ShaderPosition())
				setFloat4(sh, ParamLightColor, l.ShaderColor(1))
			} else {
				setFloat4(sh, ParamLightColor, [4]float32{})
			}
			s.draw(it.obj)
		case renderpath.LightShader:
			s.drawPerLight(sh, seq, it)
		}
	}
}

// drawPerLight issues one draw per light reaching the object. The first draw also carries
// the ambient term, later ones add light only. With firstLightAlpha the light color alpha is
// 1 for the first draw and 0 for the rest so only the first draw writes alpha.
func (s *scene) drawPerLight(sh gfx.Shader, seq *renderpath.Sequence, it drawItem) {
	setFloat4(sh, ParamAmbient, s.ambient())
	n := 0
	for _, l := range s.lights {
		if !l.Affects(it.center, it.radius) {
			continue
		}
		if n == 1 {
			setFloat4(sh, ParamAmbient, [4]float32{0, 0, 0, 1})
		}
		alpha := float32(1)
		if seq.FirstLightAlphaEnabled() && n > 0 {
			alpha = 0
		}
		setFloat4(sh, ParamLightPos, l.ShaderPosition())
		setFloat4(sh, ParamLightColor, l.ShaderColor(alpha))
		s.draw(it.obj)
		n++
	}
	if n == 0 {
		// unlit objects still get their ambient term
		setFloat4(sh, ParamLightColor, [4]float32{})
		s.draw(it.obj)
	}
}

// RenderShadows draws the shadow casters with the shader bound by the pass. Simple renders
// the first shadow casting light, MultiLight every one of them.
//
// Parameters:
//   - pass: the active shadow pass
//   - technique: the shadow technique of the pass
func (s *scene) RenderShadows(pass *renderpath.Pass, technique renderpath.ShadowTechnique) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := s.srv.Shader()
	if sh == nil || !s.active || technique == renderpath.NoShadows {
		return
	}

	casters := s.shadowLights()
	if technique == renderpath.ShadowSimple && len(casters) > 1 {
		casters = casters[:1]
	}
	center := s.cam.Target()
	for i, l := range casters {
		lvp := l.ShadowViewProjection(center, s.shadowHalfExtent, s.shadowNear, s.shadowFar)
		if i == 0 && s.registry != nil {
			s.registry.SetMatrix(s.shadowVarHandle, lvp)
		}
		setMatrix(sh, ParamLightViewProj, lvp)
		frustum := common.ExtractFrustumFromMatrix(lvp[:])

		for _, obj := range s.sortedObjects() {
			if !obj.Enabled() || !obj.CastsShadows() || obj.Mesh() == nil {
				continue
			}
			c, r := obj.WorldBounds()
			if !frustum.IntersectsSphere(c, r) {
				continue
			}
			model := obj.ModelMatrix()
			var mvp [16]float32
			common.Mul4(mvp[:], lvp[:], model[:])
			setMatrix(sh, ParamMVP, mvp)
			s.srv.SetMesh(obj.Mesh())
			s.srv.DrawIndexed(0, obj.Mesh().NumIndices())
			s.stats.ShadowDrawn++
		}
	}
}

// RenderOcclusion lays down depth for every visible object with the shader bound by the
// pass, mvp only, so later phases test against it.
//
// Parameters:
//   - pass: the active occlusion pass
func (s *scene) RenderOcclusion(pass *renderpath.Pass) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := s.srv.Shader()
	if sh == nil || !s.active {
		return
	}

	vp := s.cam.ViewProjection()
	frustum := common.ExtractFrustumFromMatrix(vp[:])
	for _, obj := range s.sortedObjects() {
		if !obj.Enabled() || obj.Mesh() == nil {
			continue
		}
		c, r := obj.WorldBounds()
		if !s.cullingDisabled && !frustum.IntersectsSphere(c, r) {
			continue
		}
		model := obj.ModelMatrix()
		var mvp [16]float32
		common.Mul4(mvp[:], vp[:], model[:])
		setMatrix(sh, ParamMVP, mvp)
		s.srv.SetMesh(obj.Mesh())
		s.srv.DrawIndexed(0, obj.Mesh().NumIndices())
		s.stats.Occluders++
	}
}

// collect gathers the visible objects drawn with alias. Culled objects are counted only when
// countCulled is set, once per sequence however many shader passes draw it. Caller must hold
// s.mu.
func (s *scene) collect(alias string, vp [16]float32, countCulled bool) []drawItem {
	frustum := common.ExtractFrustumFromMatrix(vp[:])
	eye := s.cam.Eye()
	s.bucket = s.bucket[:0]
	for _, obj := range s.sortedObjects() {
		if !obj.Enabled() || obj.Mesh() == nil || obj.ShaderAlias() != alias {
			continue
		}
		c, r := obj.WorldBounds()
		if !s.cullingDisabled && !frustum.IntersectsSphere(c, r) {
			if countCulled {
				s.stats.Culled++
			}
			continue
		}
		s.bucket = append(s.bucket, drawItem{obj: obj, center: c, radius: r, dist: common.Distance3(eye, c)})
	}
	return s.bucket
}

// sortedObjects returns the objects ordered by ID. Caller must hold s.mu.
func (s *scene) sortedObjects() []game_object.GameObject {
	out := make([]game_object.GameObject, 0, len(s.objects))
	for _, obj := range s.objects {
		out = append(out, obj)
	}
	slices.SortFunc(out, func(a, b game_object.GameObject) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return out
}

// sortItems orders items by distance to the eye. Ties and SortNone keep ID order.
func sortItems(items []drawItem, order renderpath.SortOrder) {
	switch order {
	case renderpath.SortFrontToBack:
		slices.SortStableFunc(items, func(a, b drawItem) int { return cmp.Compare(a.dist, b.dist) })
	case renderpath.SortBackToFront:
		slices.SortStableFunc(items, func(a, b drawItem) int { return cmp.Compare(b.dist, a.dist) })
	}
}

// nearestLight returns the enabled light closest to the sphere that reaches it. Directional
// lights count as infinitely far, so any reaching point or spot light wins over them.
func (s *scene) nearestLight(center [3]float32, radius float32) light.Light {
	var best light.Light
	bestDist := float32(-1)
	for _, l := range s.lights {
		if !l.Affects(center, radius) {
			continue
		}
		d := float32(1e30)
		if l.Type() != light.LightTypeDirectional {
			d = common.Distance3(l.Position(), center)
		}
		if best == nil || d < bestDist {
			best, bestDist = l, d
		}
	}
	return best
}

func (s *scene) shadowLights() []light.Light {
	var out []light.Light
	for _, l := range s.lights {
		if l.Enabled() && l.CastsShadows() {
			out = append(out, l)
		}
	}
	return out
}

func (s *scene) ambient() [4]float32 {
	return [4]float32{s.ambientColor[0], s.ambientColor[1], s.ambientColor[2], 1}
}

func (s *scene) draw(obj game_object.GameObject) {
	s.srv.DrawIndexed(0, obj.Mesh().NumIndices())
	s.stats.Drawn++
}

func setMatrix(sh gfx.Shader, name string, m [16]float32) {
	if sh.IsParameterUsed(name) {
		sh.SetMatrix(name, m)
	}
}

func setFloat4(sh gfx.Shader, name string, v [4]float32) {
	if sh.IsParameterUsed(name) {
		sh.SetFloat4(name, v)
	}
}
