package island

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/mathgl/mgl32"
)

const depthFormat = wgpu.TextureFormatDepth24Plus

type GpuState struct {
	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceConfig *wgpu.SurfaceConfiguration
}

func createGpuState(s *WindowState) (*GpuState, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	// wraps GLFW window into a wgpu surface.
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(s.windowGlfw))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Island Device",
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	queue := device.GetQueue()

	caps := surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		return nil, fmt.Errorf("surface reports no usable formats")
	}
	surfaceConfig := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(s.WindowWidth),
		Height:      uint32(s.WindowHeight),
		PresentMode: wgpu.PresentModeFifo, // vsync
		AlphaMode:   caps.AlphaModes[0],
	}

	surface.Configure(adapter, device, &surfaceConfig)

	return &GpuState{
		surface:       surface,
		adapter:       adapter,
		device:        device,
		queue:         queue,
		surfaceConfig: &surfaceConfig,
	}, nil
}

func (gs *GpuState) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	gs.surfaceConfig.Width = uint32(width)
	gs.surfaceConfig.Height = uint32(height)
	gs.surface.Configure(gs.adapter, gs.device, gs.surfaceConfig)
}

func (gs *GpuState) release() {
	gs.queue.Release()
	gs.device.Release()
	gs.adapter.Release()
	gs.surface.Release()
}

type pipelineSpec struct {
	name    string
	shader  string
	buffers []wgpu.VertexBufferLayout
	blend   *wgpu.BlendState
	depth   *wgpu.DepthStencilState
}

var alphaBlending = &wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

func depthTest(write bool) *wgpu.DepthStencilState {
	return &wgpu.DepthStencilState{
		Format:            depthFormat,
		DepthWriteEnabled: write,
		DepthCompare:      wgpu.CompareFunctionLess,
		StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
}

// depthOverlay passes the depth test everywhere and leaves the buffer untouched, for
// screen-space geometry drawn inside a pass that has a depth attachment.
func depthOverlay() *wgpu.DepthStencilState {
	return &wgpu.DepthStencilState{
		Format:            depthFormat,
		DepthWriteEnabled: false,
		DepthCompare:      wgpu.CompareFunctionAlways,
		StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
}

// checkPass reports whether the pipeline can be bound in a pass with or without a
// depth attachment of depthFormat.
func (spec pipelineSpec) checkPass(passDepth bool) error {
	switch {
	case passDepth && spec.depth == nil:
		return fmt.Errorf("%s pipeline: pass has a depth attachment but the pipeline has no depth state", spec.name)
	case !passDepth && spec.depth != nil:
		return fmt.Errorf("%s pipeline: depth state set for a pass without depth attachment", spec.name)
	case passDepth && spec.depth.Format != depthFormat:
		return fmt.Errorf("%s pipeline: depth format %v, pass uses %v", spec.name, spec.depth.Format, depthFormat)
	}
	return nil
}

func createRenderPipeline(spec pipelineSpec, gpuState *GpuState) (*wgpu.RenderPipeline, error) {
	shader, err := gpuState.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          spec.name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: spec.shader},
	})
	if err != nil {
		return nil, fmt.Errorf("%s shader: %w", spec.name, err)
	}
	defer shader.Release()

	pipeline, err := gpuState.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: spec.name,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers:    spec.buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    gpuState.surfaceConfig.Format,
					Blend:     spec.blend,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			// the sky dome is seen from inside
			CullMode: wgpu.CullModeNone,
		},
		DepthStencil: spec.depth,
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s pipeline: %w", spec.name, err)
	}
	return pipeline, nil
}

func createDepthTexture(gpuState *GpuState) (*wgpu.Texture, *wgpu.TextureView, error) {
	texture, err := gpuState.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth",
		Size: wgpu.Extent3D{
			Width:              gpuState.surfaceConfig.Width,
			Height:             gpuState.surfaceConfig.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, nil, err
	}
	return texture, view, nil
}

// ensureBuffer returns buf when it holds at least size bytes, otherwise a new buffer
// that replaces it.
func ensureBuffer(gpuState *GpuState, buf *wgpu.Buffer, label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	if buf != nil && buf.GetSize() >= size {
		return buf, nil
	}
	if buf != nil {
		buf.Release()
	}
	// round up to limit reallocations while the smoke count settles
	size = (size + 4095) &^ 4095
	return gpuState.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
}

func createBuffer(name string, data any, gpuState *GpuState, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	return gpuState.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    name,
		Contents: toBufferBytes(data),
		Usage:    usage,
	})
}

func toBufferBytes(data any) []byte {
	val := reflect.ValueOf(data)
	buf := new(bytes.Buffer)
	readUniformsBytes(val, buf)
	return buf.Bytes()
}

func readUniformsBytes(field reflect.Value, buf *bytes.Buffer) {
	switch field.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < field.Len(); i++ {
			elem := field.Index(i)
			if elem.Kind() == reflect.Ptr {
				elem = elem.Elem()
			}
			readUniformsBytes(elem, buf)
		}

	case reflect.Struct:
		for i := 0; i < field.NumField(); i++ {
			readUniformsBytes(field.Field(i), buf)
		}

	case reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Float32:
		if err := binary.Write(buf, binary.LittleEndian, field.Interface()); err != nil {
			panic(fmt.Errorf("failed to write scalar field: %w", err))
		}

	default:
		panic(fmt.Errorf("unsupported uniform type: %v", field.Type()))
	}
}

func parseFormat(name string) wgpu.VertexFormat {
	switch name {
	case "float2":
		return wgpu.VertexFormatFloat32x2
	case "float3":
		return wgpu.VertexFormatFloat32x3
	case "float4":
		return wgpu.VertexFormatFloat32x4
	default:
		panic("unsupported vertex layout format: " + name)
	}
}

// createVertexBufferLayout derives attributes from `gekko:"layout"` struct tags. A mat4
// field takes four consecutive float4 locations.
func createVertexBufferLayout(vertexType any, stepMode wgpu.VertexStepMode) wgpu.VertexBufferLayout {
	t := reflect.TypeOf(vertexType)
	if t.Kind() != reflect.Struct {
		panic("Vertex must be a struct")
	}

	var attributes []wgpu.VertexAttribute
	var offset uint64 = 0

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if "layout" == field.Tag.Get("gekko") {
			location, err := strconv.Atoi(field.Tag.Get("location"))
			if nil != err {
				panic(err)
			}

			if format := field.Tag.Get("format"); format == "mat4" {
				for col := 0; col < 4; col++ {
					attributes = append(attributes, wgpu.VertexAttribute{
						ShaderLocation: uint32(location + col),
						Offset:         offset + uint64(col*16),
						Format:         wgpu.VertexFormatFloat32x4,
					})
				}
			} else {
				attributes = append(attributes, wgpu.VertexAttribute{
					ShaderLocation: uint32(location),
					Offset:         offset,
					Format:         parseFormat(format),
				})
			}
		}

		offset += uint64(field.Type.Size())
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    stepMode,
		Attributes:  attributes,
	}
}

// aabbIntersectsFrustumClip is a conservative clip-space test: the box is culled only
// when all eight corners lie outside the same clip plane.
func aabbIntersectsFrustumClip(viewProj mgl32.Mat4, min, max mgl32.Vec3) bool {
	var clip [8]mgl32.Vec4
	for i := range clip {
		corner := mgl32.Vec4{min.X(), min.Y(), min.Z(), 1}
		if i&1 != 0 {
			corner[0] = max.X()
		}
		if i&2 != 0 {
			corner[1] = max.Y()
		}
		if i&4 != 0 {
			corner[2] = max.Z()
		}
		clip[i] = viewProj.Mul4x1(corner)
	}

	outside := func(test func(c mgl32.Vec4) bool) bool {
		for _, c := range clip {
			if !test(c) {
				return false
			}
		}
		return true
	}
	switch {
	case outside(func(c mgl32.Vec4) bool { return c.X() < -c.W() }),
		outside(func(c mgl32.Vec4) bool { return c.X() > c.W() }),
		outside(func(c mgl32.Vec4) bool { return c.Y() < -c.W() }),
		outside(func(c mgl32.Vec4) bool { return c.Y() > c.W() }),
		outside(func(c mgl32.Vec4) bool { return c.Z() < 0 }),
		outside(func(c mgl32.Vec4) bool { return c.Z() > c.W() }):
		return false
	}
	return true
}
