package shaders

import (
	_ "embed"
)

//go:embed scene.wgsl
var SceneWGSL string

//go:embed text.wgsl
var TextWGSL string
