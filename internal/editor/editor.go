// Package editor is the authoring side of the mailbox. It keeps the document the user
// edits and turns user actions into commands for the engine.
package editor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"strings"
	"sync"

	"github.com/srediag/editor-mailbox/api"
	"github.com/srediag/editor-mailbox/internal/logging"
)

// ErrUnknownAction is returned by Exec for an unrecognized action word.
var ErrUnknownAction = errors.New("editor: unknown action")

// Document is the material being edited.
type Document struct {
	Path            string
	WorldOffsetExpr string
	FragColorExpr   string
	UniformTypes    string
	TextureDescs    string
	Uniforms        map[string][4]float32
	Textures        []string
}

// Editor owns a Document and forwards actions through an api.Sender.
type Editor struct {
	sender api.Sender
	logger *logging.Logger

	mu  sync.Mutex
	doc Document
}

// New returns an editor sending through sender. A nil logger logs to stdout.
func New(sender api.Sender, logger *logging.Logger) *Editor {
	if logger == nil {
		logger = logging.New("editor", os.Stdout)
	}
	return &Editor{
		sender: sender,
		logger: logger,
		doc:    Document{Uniforms: make(map[string][4]float32)},
	}
}

// OpenMaterial asks the engine for the material at path. The code panes are
// replaced when the engine answers with its sources.
func (e *Editor) OpenMaterial(path string) error {
	if err := e.sender.Send(api.LoadMaterialFile{Path: path}); err != nil {
		return err
	}
	e.mu.Lock()
	e.doc.Path = path
	e.mu.Unlock()
	return nil
}

// LoadTexture asks the engine to load the texture at path.
func (e *Editor) LoadTexture(path string) error {
	if err := e.sender.Send(api.LoadTexture{Path: path}); err != nil {
		return err
	}
	e.mu.Lock()
	e.doc.Textures = append(e.doc.Textures, path)
	e.mu.Unlock()
	return nil
}

// SetSources replaces the two shader expressions. Nothing is sent until Compile.
func (e *Editor) SetSources(worldOffset, fragColor string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc.WorldOffsetExpr = worldOffset
	e.doc.FragColorExpr = fragColor
}

// SetDeclarations replaces the uniform and texture declaration documents.
func (e *Editor) SetDeclarations(uniformTypes, textureDescs string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc.UniformTypes = uniformTypes
	e.doc.TextureDescs = textureDescs
}

// Compile sends the current document for compilation.
func (e *Editor) Compile() error {
	e.mu.Lock()
	cmd := api.Compile{
		UniformTypes:    e.doc.UniformTypes,
		TextureDescs:    e.doc.TextureDescs,
		WorldOffsetExpr: e.doc.WorldOffsetExpr,
		FragColorExpr:   e.doc.FragColorExpr,
	}
	e.mu.Unlock()
	return e.sender.Send(cmd)
}

// SetUniform records and sends a new uniform value.
func (e *Editor) SetUniform(name string, v [4]float32) error {
	if err := e.sender.Send(api.UpdateUniform{Uniform: name, Value: v}); err != nil {
		return err
	}
	e.mu.Lock()
	e.doc.Uniforms[name] = v
	e.mu.Unlock()
	return nil
}

// Handle implements api.Handler for commands coming back from the engine.
func (e *Editor) Handle(_ context.Context, cmd api.Command) (api.Command, error) {
	src, ok := cmd.(api.MaterialSource)
	if !ok {
		e.logger.Debugf("ignoring %s from engine", cmd.Name())
		return nil, nil
	}
	e.SetSources(src.WorldOffsetExpr, src.FragColorExpr)
	e.logger.Infof("material sources updated")
	return nil, nil
}

// Snapshot returns a copy of the document.
func (e *Editor) Snapshot() Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.doc
	d.Uniforms = maps.Clone(e.doc.Uniforms)
	d.Textures = append([]string(nil), e.doc.Textures...)
	return d
}

// Exec runs one action line of the form "<action> [argument]". A literal \n in the
// argument becomes a newline so TOML documents fit on one line.
//
//	open <path>            texture <path>
//	world <expr>           frag <expr>
//	uniforms <toml>        textures <toml>
//	uniform <name> <r,g,b,a>
//	compile
func (e *Editor) Exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	action, arg, _ := strings.Cut(line, " ")
	arg = strings.ReplaceAll(strings.TrimSpace(arg), `\n`, "\n")
	need := func() error {
		if arg == "" {
			return fmt.Errorf("editor: %s needs an argument", action)
		}
		return nil
	}

	switch action {
	case "open":
		if err := need(); err != nil {
			return err
		}
		return e.OpenMaterial(arg)
	case "texture":
		if err := need(); err != nil {
			return err
		}
		return e.LoadTexture(arg)
	case "world":
		e.mu.Lock()
		e.doc.WorldOffsetExpr = arg
		e.mu.Unlock()
	case "frag":
		e.mu.Lock()
		e.doc.FragColorExpr = arg
		e.mu.Unlock()
	case "uniforms":
		e.mu.Lock()
		e.doc.UniformTypes = arg
		e.mu.Unlock()
	case "textures":
		e.mu.Lock()
		e.doc.TextureDescs = arg
		e.mu.Unlock()
	case "uniform":
		name, value, ok := strings.Cut(arg, " ")
		if !ok || name == "" {
			return fmt.Errorf("editor: uniform needs a name and a value")
		}
		return e.SetUniform(name, api.ParseVec4(value))
	case "compile":
		return e.Compile()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return nil
}
