// Package api defines the public contracts of the editor/engine mailbox.
package api

import (
	"strconv"
	"strings"
)

// Wire names of the recognized commands.
const (
	NameLoadTexture      = "load_texture"
	NameCompile          = "compile"
	NameUpdateUniform    = "update_uniform"
	NameLoadMaterialFile = "load_toml"
	NameMaterialSource   = "material_source"
)

// Command is one message crossing the mailbox. Fields returns the ordered field
// strings that follow the name on the wire.
type Command interface {
	Name() string
	Fields() []string
}

// LoadTexture asks the engine to load the texture at Path.
type LoadTexture struct {
	Path string
}

func (LoadTexture) Name() string       { return NameLoadTexture }
func (c LoadTexture) Fields() []string { return []string{c.Path} }

// Compile asks the engine to build a material from the editor's sources.
// UniformTypes and TextureDescs are TOML documents.
type Compile struct {
	UniformTypes    string
	TextureDescs    string
	WorldOffsetExpr string
	FragColorExpr   string
}

func (Compile) Name() string { return NameCompile }
func (c Compile) Fields() []string {
	return []string{c.UniformTypes, c.TextureDescs, c.WorldOffsetExpr, c.FragColorExpr}
}

// UpdateUniform pushes a new value for a named uniform.
type UpdateUniform struct {
	Uniform string
	Value   [4]float32
}

func (UpdateUniform) Name() string { return NameUpdateUniform }
func (c UpdateUniform) Fields() []string {
	return []string{c.Uniform, FormatVec4(c.Value)}
}

// LoadMaterialFile asks the engine to open a material description on disk.
type LoadMaterialFile struct {
	Path string
}

func (LoadMaterialFile) Name() string       { return NameLoadMaterialFile }
func (c LoadMaterialFile) Fields() []string { return []string{c.Path} }

// MaterialSource carries a material's shader expressions back to the editor.
type MaterialSource struct {
	WorldOffsetExpr string
	FragColorExpr   string
}

func (MaterialSource) Name() string { return NameMaterialSource }
func (c MaterialSource) Fields() []string {
	return []string{c.WorldOffsetExpr, c.FragColorExpr}
}

// Unknown is a command whose name this build does not recognize.
type Unknown struct {
	Command string
	Args    []string
}

func (c Unknown) Name() string     { return c.Command }
func (c Unknown) Fields() []string { return c.Args }

// FormatVec4 renders v as "r,g,b,a" using the shortest float32 representation.
func FormatVec4(v [4]float32) string {
	var b strings.Builder
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	return b.String()
}

// ParseVec4 parses "r,g,b,a". Components that are missing or fail to parse default
// to 1; components past the fourth are ignored.
func ParseVec4(s string) [4]float32 {
	v := [4]float32{1, 1, 1, 1}
	for i, part := range strings.Split(s, ",") {
		if i == len(v) {
			break
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			continue
		}
		v[i] = float32(f)
	}
	return v
}
