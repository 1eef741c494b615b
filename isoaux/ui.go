//go:build !tinygo && cgo

package isoaux

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/isosurf/march"
)

const meshVertexShader = `#version 460
in vec3 aPos;
in vec3 aNormal;
out vec3 vNormal;
out vec3 vPos;

uniform float uYaw;
uniform float uPitch;
uniform float uCamDist;
uniform float uAspect;
uniform vec3 uCenter;

mat4 perspective(float fovy, float aspect, float near, float far) {
	float f = 1.0 / tan(fovy / 2.0);
	return mat4(
		f/aspect, 0.0, 0.0, 0.0,
		0.0, f, 0.0, 0.0,
		0.0, 0.0, (far+near)/(near-far), -1.0,
		0.0, 0.0, 2.0*far*near/(near-far), 0.0
	);
}

mat4 lookAt(vec3 eye, vec3 center, vec3 up) {
	vec3 f = normalize(center - eye);
	vec3 s = normalize(cross(f, up));
	vec3 u = cross(s, f);
	return mat4(
		s.x, u.x, -f.x, 0.0,
		s.y, u.y, -f.y, 0.0,
		s.z, u.z, -f.z, 0.0,
		-dot(s, eye), -dot(u, eye), dot(f, eye), 1.0
	);
}

void main() {
	vec3 eye = uCenter + uCamDist*vec3(cos(uPitch)*sin(uYaw), sin(uPitch), cos(uPitch)*cos(uYaw));
	mat4 view = lookAt(eye, uCenter, vec3(0.0, 1.0, 0.0));
	mat4 proj = perspective(0.8, uAspect, 0.01*uCamDist, 10.0*uCamDist);
	vNormal = aNormal;
	vPos = aPos - eye;
	gl_Position = proj * view * vec4(aPos, 1.0);
}
` + "\x00"

const meshFragmentShader = `#version 460
in vec3 vNormal;
in vec3 vPos;
out vec4 fragColor;

void main() {
	vec3 col = vec3(0.9, 0.6, 0.3);
	float lenN = length(vNormal);
	if (lenN == 0.0) {
		// Degenerate triangle.
		fragColor = vec4(1.0, 0.0, 0.0, 1.0);
		return;
	}
	// Two sided lighting: surfaces are open at the walk boundary.
	float diff = abs(dot(vNormal/lenN, normalize(vPos)));
	fragColor = vec4(col*(0.2 + 0.8*diff), 1.0);
}
` + "\x00"

func ui(cubes *march.Cubes, cfg UIConfig, log *slog.Logger) error {
	bb := cubes.Config().Bounds
	diag := ms3.Norm(ms3.Sub(bb.Max, bb.Min))
	center := ms3.Scale(0.5, ms3.Add(bb.Min, bb.Max))
	window, term, err := startGLFW(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer term()
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   meshVertexShader,
		Fragment: meshFragmentShader,
	})
	if err != nil {
		return fmt.Errorf("compiling mesh program: %w", err)
	}
	prog.Bind()

	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	var vbos [2]uint32
	gl.GenBuffers(2, &vbos[0])

	posAttrib, err := prog.AttribLocation("aPos\x00")
	if err != nil {
		return err
	}
	normAttrib, err := prog.AttribLocation("aNormal\x00")
	if err != nil {
		return err
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, vbos[0])
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 3, gl.FLOAT, false, 0, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, vbos[1])
	gl.EnableVertexAttribArray(normAttrib)
	gl.VertexAttribPointer(normAttrib, 3, gl.FLOAT, false, 0, gl.PtrOffset(0))

	yawUniform, err := prog.UniformLocation("uYaw\x00")
	if err != nil {
		return err
	}
	pitchUniform, err := prog.UniformLocation("uPitch\x00")
	if err != nil {
		return err
	}
	camDistUniform, err := prog.UniformLocation("uCamDist\x00")
	if err != nil {
		return err
	}
	aspectUniform, err := prog.UniformLocation("uAspect\x00")
	if err != nil {
		return err
	}
	centerUniform, err := prog.UniformLocation("uCenter\x00")
	if err != nil {
		return err
	}
	gl.Enable(gl.DEPTH_TEST)

	minZoom := float64(diag * 0.001)
	maxZoom := float64(diag * 10)
	var (
		yaw              float64
		pitch            float64 = 0.4
		lastMouseX       float64
		lastMouseY       float64
		camDist          float64 = 1.5 * float64(diag)
		firstMouseMove           = true
		isMousePressed           = false
		yawSensitivity           = 0.005
		pitchSensitivity         = 0.005
	)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos float64, ypos float64) {
		if !isMousePressed {
			return
		}
		if firstMouseMove {
			lastMouseX = xpos
			lastMouseY = ypos
			firstMouseMove = false
		}
		yaw -= (xpos - lastMouseX) * yawSensitivity
		pitch += (ypos - lastMouseY) * pitchSensitivity
		maxPitch := math.Pi/2 - 0.01
		pitch = max(-maxPitch, min(maxPitch, pitch))
		lastMouseX = xpos
		lastMouseY = ypos
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		camDist -= yoff * (camDist*.1 + .01)
		camDist = max(minZoom, min(maxZoom, camDist))
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		if action == glfw.Press {
			isMousePressed = true
			firstMouseMove = true
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		} else if action == glfw.Release {
			isMousePressed = false
			window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})

	var (
		normals  []float32
		uploaded int
		st       = cubes.Start()
		watch    = stopwatch()
		ctx      = cfg.Context
	)
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		for i := 0; i < cfg.PlanesPerFrame && !st.IsFinished(); i++ {
			cubes.Generate(&st)
			if st.IsFinished() {
				log.Info("walk finished", slog.Int("planes", st.Plane), slog.Int("triangles", st.Triangles()), slog.Duration("elapsed", watch()))
			}
		}
		if len(st.Vertices) != uploaded {
			normals, err = march.AppendNormals(normals, st.Vertices, march.DegenerateZero)
			if err != nil {
				return err
			}
			uploaded = len(st.Vertices)
			gl.BindBuffer(gl.ARRAY_BUFFER, vbos[0])
			gl.BufferData(gl.ARRAY_BUFFER, 4*uploaded, gl.Ptr(st.Vertices), gl.DYNAMIC_DRAW)
			gl.BindBuffer(gl.ARRAY_BUFFER, vbos[1])
			gl.BufferData(gl.ARRAY_BUFFER, 4*uploaded, gl.Ptr(normals), gl.DYNAMIC_DRAW)
			log.Debug("uploaded mesh", slog.Int("plane", st.Plane), slog.Int("triangles", st.Triangles()))
		}
		width, height := window.GetSize()
		gl.ClearColor(0.05, 0.05, 0.08, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		prog.Bind()
		gl.Uniform1f(yawUniform, float32(yaw))
		gl.Uniform1f(pitchUniform, float32(pitch))
		gl.Uniform1f(camDistUniform, float32(camDist))
		gl.Uniform1f(aspectUniform, float32(width)/float32(max(height, 1)))
		gl.Uniform3f(centerUniform, center.X, center.Y, center.Z)
		if uploaded > 0 {
			gl.BindVertexArray(vao)
			gl.DrawArrays(gl.TRIANGLES, 0, int32(uploaded/3))
		}
		window.SwapBuffers()
		glfw.PollEvents()
		time.Sleep(time.Second / 60)
	}
	return nil
}

func startGLFW(width, height int) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err = glfw.CreateWindow(width, height, "isosurf marching cubes", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
