//go:build !nogpu

package wgpu

import _ "embed"

// Embedded WGSL shader sources, compiled through naga at init.

//go:embed shaders/stroke.wgsl
var strokeShaderSource string

//go:embed shaders/view.wgsl
var viewShaderSource string

//go:embed shaders/reproject.wgsl
var reprojectShaderSource string
