package editor

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/srediag/editor-mailbox/api"
	"github.com/srediag/editor-mailbox/internal/logging"
)

type captureSender struct {
	sent []api.Command
	err  error
}

func (c *captureSender) Send(cmd api.Command) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, cmd)
	return nil
}

type EditorTestSuite struct {
	suite.Suite
	sender *captureSender
	editor *Editor
}

func (s *EditorTestSuite) SetupTest() {
	s.sender = &captureSender{}
	s.editor = New(s.sender, logging.New("editor", io.Discard))
}

func (s *EditorTestSuite) TestCompileSendsDocument() {
	s.editor.SetDeclarations("U1=1", `T1="a"`)
	s.editor.SetSources("x", "y")
	s.Require().NoError(s.editor.Compile())
	s.Equal([]api.Command{api.Compile{UniformTypes: "U1=1", TextureDescs: `T1="a"`, WorldOffsetExpr: "x", FragColorExpr: "y"}}, s.sender.sent)
}

func (s *EditorTestSuite) TestOpenMaterialAndReply() {
	s.Require().NoError(s.editor.OpenMaterial("materials/water.toml"))
	s.Equal([]api.Command{api.LoadMaterialFile{Path: "materials/water.toml"}}, s.sender.sent)

	reply, err := s.editor.Handle(context.Background(), api.MaterialSource{WorldOffsetExpr: "vec3(0)", FragColorExpr: "vec4(1)"})
	s.Require().NoError(err)
	s.Nil(reply)
	doc := s.editor.Snapshot()
	s.Equal("materials/water.toml", doc.Path)
	s.Equal("vec3(0)", doc.WorldOffsetExpr)
	s.Equal("vec4(1)", doc.FragColorExpr)

	_, err = s.editor.Handle(context.Background(), api.LoadTexture{Path: "x"})
	s.NoError(err)
}

func (s *EditorTestSuite) TestSendFailureKeepsDocument() {
	s.sender.err = errors.New("frame too large")
	s.Error(s.editor.LoadTexture("a.png"))
	s.Error(s.editor.SetUniform("tint", [4]float32{1, 1, 1, 1}))
	doc := s.editor.Snapshot()
	s.Empty(doc.Textures)
	s.Empty(doc.Uniforms)
}

func (s *EditorTestSuite) TestExec() {
	for _, line := range []string{
		"",
		"texture textures/player_front.png",
		`uniforms tint = "vec4"\nspeed = "float"`,
		`textures albedo = "a.png"`,
		"world vec3(0.0, sin(time), 0.0)",
		"frag texture(albedo, uv) * tint",
		"uniform tint 1, 0.5, 0, 1",
		"compile",
		"open materials/water.toml",
	} {
		s.Require().NoError(s.editor.Exec(line), line)
	}
	s.Equal([]api.Command{
		api.LoadTexture{Path: "textures/player_front.png"},
		api.UpdateUniform{Uniform: "tint", Value: [4]float32{1, 0.5, 0, 1}},
		api.Compile{
			UniformTypes:    "tint = \"vec4\"\nspeed = \"float\"",
			TextureDescs:    `albedo = "a.png"`,
			WorldOffsetExpr: "vec3(0.0, sin(time), 0.0)",
			FragColorExpr:   "texture(albedo, uv) * tint",
		},
		api.LoadMaterialFile{Path: "materials/water.toml"},
	}, s.sender.sent)

	doc := s.editor.Snapshot()
	s.Equal([]string{"textures/player_front.png"}, doc.Textures)
	s.Equal([4]float32{1, 0.5, 0, 1}, doc.Uniforms["tint"])
}

func (s *EditorTestSuite) TestExecErrors() {
	s.ErrorIs(s.editor.Exec("spawn cube"), ErrUnknownAction)
	s.Error(s.editor.Exec("open"))
	s.Error(s.editor.Exec("uniform tint"))
	s.Empty(s.sender.sent)
}

func TestEditorTestSuite(t *testing.T) {
	suite.Run(t, new(EditorTestSuite))
}
