package island

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/island/shaders"
)

// RendererModule draws the scene and HUD through WebGPU. It requires
// PlatformWindowModule, AssetsModule and HUDModule.
type RendererModule struct{}

type gpuMesh struct {
	vertices   *wgpu.Buffer
	indices    *wgpu.Buffer
	indexCount uint32
}

type RenderState struct {
	gpu *GpuState

	opaquePipeline      *wgpu.RenderPipeline
	transparentPipeline *wgpu.RenderPipeline
	textPipeline        *wgpu.RenderPipeline

	uniformBuffer *wgpu.Buffer
	// auto layouts are per pipeline, so each scene pipeline gets its own group
	opaqueBindGroup      *wgpu.BindGroup
	transparentBindGroup *wgpu.BindGroup

	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	meshes          map[meshKey]*gpuMesh
	instanceBuffers []*wgpu.Buffer

	atlasTexture  *wgpu.Texture
	atlasView     *wgpu.TextureView
	sampler       *wgpu.Sampler
	textBindGroup *wgpu.BindGroup
	textBuffer    *wgpu.Buffer
}

func (RendererModule) Install(app *App, cmd *Commands) {
	ws := Resource[WindowState](app)
	hud := Resource[HUD](app)
	if ws == nil || hud == nil {
		panic("RendererModule requires PlatformWindowModule and HUDModule")
	}

	rs, err := createRenderState(ws, hud.Text)
	if err != nil {
		panic(fmt.Errorf("renderer: %w", err))
	}
	cmd.AddResources(rs)
	cmd.Logger().Infof("renderer ready, surface format %v", rs.gpu.surfaceConfig.Format)

	app.UseSystem(
		System(rendererResizeSystem).
			InStage(PreRender).
			RunAlways(),
	)
	app.UseSystem(
		System(renderSystem).
			InStage(Render).
			RunAlways(),
	)
	if app.stateful {
		app.UseSystem(
			System(rendererReleaseSystem).
				InState(OnEnter(StateClosing)).
				InStage(PostRender),
		)
	}
}

func createRenderState(ws *WindowState, text *TextRenderer) (*RenderState, error) {
	specs := scenePassSpecs()
	for _, spec := range []pipelineSpec{specs.opaque, specs.transparent, specs.text} {
		if err := spec.checkPass(true); err != nil {
			return nil, err
		}
	}

	gpu, err := createGpuState(ws)
	if err != nil {
		return nil, err
	}
	rs := &RenderState{
		gpu:    gpu,
		meshes: make(map[meshKey]*gpuMesh),
	}

	if rs.opaquePipeline, err = createRenderPipeline(specs.opaque, gpu); err != nil {
		return nil, err
	}
	if rs.transparentPipeline, err = createRenderPipeline(specs.transparent, gpu); err != nil {
		return nil, err
	}
	if rs.textPipeline, err = createRenderPipeline(specs.text, gpu); err != nil {
		return nil, err
	}

	rs.uniformBuffer, err = createBuffer("Scene Uniforms", sceneUniforms{}, gpu,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	if rs.opaqueBindGroup, err = rs.uniformBindGroup(rs.opaquePipeline); err != nil {
		return nil, err
	}
	if rs.transparentBindGroup, err = rs.uniformBindGroup(rs.transparentPipeline); err != nil {
		return nil, err
	}

	if err := rs.createDepth(); err != nil {
		return nil, err
	}
	if err := rs.createTextAtlas(text); err != nil {
		return nil, err
	}
	return rs, nil
}

// scenePipelines are the pipelines drawn in the scene pass, which clears and tests
// against the depth buffer. The HUD is drawn last in the same pass.
type scenePipelines struct {
	opaque, transparent, text pipelineSpec
}

func scenePassSpecs() scenePipelines {
	sceneBuffers := []wgpu.VertexBufferLayout{
		createVertexBufferLayout(meshVertex{}, wgpu.VertexStepModeVertex),
		createVertexBufferLayout(instanceData{}, wgpu.VertexStepModeInstance),
	}
	return scenePipelines{
		opaque: pipelineSpec{
			name:    "Scene Opaque",
			shader:  shaders.SceneWGSL,
			buffers: sceneBuffers,
			depth:   depthTest(true),
		},
		transparent: pipelineSpec{
			name:    "Scene Transparent",
			shader:  shaders.SceneWGSL,
			buffers: sceneBuffers,
			blend:   alphaBlending,
			depth:   depthTest(false),
		},
		text: pipelineSpec{
			name:    "HUD Text",
			shader:  shaders.TextWGSL,
			buffers: []wgpu.VertexBufferLayout{createVertexBufferLayout(TextVertex{}, wgpu.VertexStepModeVertex)},
			blend:   alphaBlending,
			depth:   depthOverlay(),
		},
	}
}

func (rs *RenderState) uniformBindGroup(pipeline *wgpu.RenderPipeline) (*wgpu.BindGroup, error) {
	layout := pipeline.GetBindGroupLayout(0)
	defer layout.Release()
	return rs.gpu.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: rs.uniformBuffer, Size: wgpu.WholeSize},
		},
	})
}

func (rs *RenderState) createDepth() error {
	if rs.depthView != nil {
		rs.depthView.Release()
		rs.depthTexture.Release()
	}
	var err error
	rs.depthTexture, rs.depthView, err = createDepthTexture(rs.gpu)
	return err
}

func (rs *RenderState) createTextAtlas(text *TextRenderer) error {
	atlas := text.AtlasImage
	w, h := uint32(atlas.Bounds().Dx()), uint32(atlas.Bounds().Dy())
	extent := wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	var err error
	rs.atlasTexture, err = rs.gpu.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Text Atlas",
		Size:          extent,
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}
	err = rs.gpu.queue.WriteTexture(rs.atlasTexture.AsImageCopy(), atlas.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(atlas.Stride),
		RowsPerImage: h,
	}, &extent)
	if err != nil {
		return err
	}
	if rs.atlasView, err = rs.atlasTexture.CreateView(nil); err != nil {
		return err
	}

	rs.sampler, err = rs.gpu.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return err
	}

	layout := rs.textPipeline.GetBindGroupLayout(0)
	defer layout.Release()
	rs.textBindGroup, err = rs.gpu.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: rs.atlasView},
			{Binding: 1, Sampler: rs.sampler},
		},
	})
	return err
}

func (rs *RenderState) mesh(key meshKey) (*gpuMesh, error) {
	if m, ok := rs.meshes[key]; ok {
		return m, nil
	}
	data := buildMesh(key)
	vertices, err := rs.gpu.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Mesh Vertices",
		Contents: wgpu.ToBytes(data.Vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, err
	}
	indices, err := rs.gpu.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Mesh Indices",
		Contents: wgpu.ToBytes(data.Indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		vertices.Release()
		return nil, err
	}
	m := &gpuMesh{vertices: vertices, indices: indices, indexCount: uint32(len(data.Indices))}
	rs.meshes[key] = m
	return m, nil
}

func rendererResizeSystem(rs *RenderState, ws *WindowState, hud *HUD, cmd *Commands) {
	hud.Width, hud.Height = ws.WindowWidth, ws.WindowHeight
	if !ws.Resized {
		return
	}
	ws.Resized = false
	rs.gpu.resize(ws.WindowWidth, ws.WindowHeight)
	if err := rs.createDepth(); err != nil {
		cmd.Logger().Errorf("recreate depth buffer: %v", err)
		return
	}
	cmd.Logger().Debugf("surface resized to %dx%d", ws.WindowWidth, ws.WindowHeight)
}

func renderSystem(rs *RenderState, ws *WindowState, assets *AssetServer, hud *HUD, cmd *Commands) {
	if err := rs.render(cmd, ws.Aspect(), assets, hud); err != nil {
		cmd.Logger().Errorf("frame skipped: %v", err)
	}
}

type preparedBatch struct {
	batch     drawBatch
	mesh      *gpuMesh
	instances *wgpu.Buffer
}

func (rs *RenderState) render(cmd *Commands, aspect float32, assets *AssetServer, hud *HUD) error {
	uniforms, ok := buildSceneUniforms(cmd, aspect)
	if !ok {
		return nil
	}
	gpu := rs.gpu
	if err := gpu.queue.WriteBuffer(rs.uniformBuffer, 0, toBufferBytes(uniforms)); err != nil {
		return fmt.Errorf("write uniforms: %w", err)
	}

	batches := collectInstances(cmd, assets, uniforms.ViewProj)
	for len(rs.instanceBuffers) < len(batches) {
		rs.instanceBuffers = append(rs.instanceBuffers, nil)
	}
	prepared := make([]preparedBatch, 0, len(batches))
	for i, batch := range batches {
		mesh, err := rs.mesh(batch.Mesh)
		if err != nil {
			return fmt.Errorf("mesh upload: %w", err)
		}
		data := wgpu.ToBytes(batch.Instances)
		buf, err := ensureBuffer(gpu, rs.instanceBuffers[i], "Instances", uint64(len(data)), wgpu.BufferUsageVertex)
		if err != nil {
			return fmt.Errorf("instance buffer: %w", err)
		}
		rs.instanceBuffers[i] = buf
		if err := gpu.queue.WriteBuffer(buf, 0, data); err != nil {
			return fmt.Errorf("write instances: %w", err)
		}
		prepared = append(prepared, preparedBatch{batch: batch, mesh: mesh, instances: buf})
	}

	textVertices := hud.Text.BuildVertices(hud.Items, int(gpu.surfaceConfig.Width), int(gpu.surfaceConfig.Height))
	if len(textVertices) > 0 {
		data := wgpu.ToBytes(textVertices)
		buf, err := ensureBuffer(gpu, rs.textBuffer, "HUD Text", uint64(len(data)), wgpu.BufferUsageVertex)
		if err != nil {
			return fmt.Errorf("text buffer: %w", err)
		}
		rs.textBuffer = buf
		if err := gpu.queue.WriteBuffer(buf, 0, data); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
	}

	nextTexture, err := gpu.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	defer nextTexture.Release()
	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("surface view: %w", err)
	}
	defer view.Release()

	encoder, err := gpu.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command encoder: %w", err)
	}
	defer encoder.Release()

	sky := uniforms.Sky
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: float64(sky[0]), G: float64(sky[1]), B: float64(sky[2]), A: 1},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            rs.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	defer pass.Release()

	for _, p := range prepared {
		if p.batch.Transparent {
			pass.SetPipeline(rs.transparentPipeline)
			pass.SetBindGroup(0, rs.transparentBindGroup, nil)
		} else {
			pass.SetPipeline(rs.opaquePipeline)
			pass.SetBindGroup(0, rs.opaqueBindGroup, nil)
		}
		pass.SetVertexBuffer(0, p.mesh.vertices, 0, wgpu.WholeSize)
		pass.SetVertexBuffer(1, p.instances, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(p.mesh.indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(p.mesh.indexCount, uint32(len(p.batch.Instances)), 0, 0, 0)
	}

	if len(textVertices) > 0 {
		pass.SetPipeline(rs.textPipeline)
		pass.SetBindGroup(0, rs.textBindGroup, nil)
		pass.SetVertexBuffer(0, rs.textBuffer, 0, wgpu.WholeSize)
		pass.Draw(uint32(len(textVertices)), 1, 0, 0)
	}

	if err := pass.End(); err != nil {
		return fmt.Errorf("render pass: %w", err)
	}

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	defer cmdBuffer.Release()

	gpu.queue.Submit(cmdBuffer)
	gpu.surface.Present()
	return nil
}

func rendererReleaseSystem(rs *RenderState, cmd *Commands) {
	for _, m := range rs.meshes {
		m.vertices.Release()
		m.indices.Release()
	}
	for _, buf := range rs.instanceBuffers {
		if buf != nil {
			buf.Release()
		}
	}
	if rs.textBuffer != nil {
		rs.textBuffer.Release()
	}
	rs.textBindGroup.Release()
	rs.sampler.Release()
	rs.atlasView.Release()
	rs.atlasTexture.Release()
	rs.depthView.Release()
	rs.depthTexture.Release()
	rs.transparentBindGroup.Release()
	rs.opaqueBindGroup.Release()
	rs.uniformBuffer.Release()
	rs.textPipeline.Release()
	rs.transparentPipeline.Release()
	rs.opaquePipeline.Release()
	rs.gpu.release()
	cmd.Logger().Debugf("renderer released")
}
