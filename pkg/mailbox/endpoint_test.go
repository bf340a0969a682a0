/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mailbox

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/srediag/editor-mailbox/api"
	"github.com/srediag/editor-mailbox/pkg/shm"
)

type recordingHandler struct {
	mu    sync.Mutex
	got   []api.Command
	reply api.Command
	err   error
}

func (h *recordingHandler) Handle(_ context.Context, cmd api.Command) (api.Command, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.got = append(h.got, cmd)
	return h.reply, h.err
}

func (h *recordingHandler) calls() []api.Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]api.Command(nil), h.got...)
}

type failingFlush struct {
	*shm.Region
}

func (failingFlush) Flush() error {
	return &shm.StorageError{Op: "flush", Path: "test", Err: errors.New("device gone")}
}

type EndpointTestSuite struct {
	suite.Suite
	ctx    context.Context
	path   string
	region *shm.Region
	// peer maps the same file and plays the other process
	peer *shm.Region
}

func (s *EndpointTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.path = filepath.Join(s.T().TempDir(), "shared_memory.bin")
	s.region = s.openRegion()
	s.peer = s.openRegion()
}

func (s *EndpointTestSuite) openRegion() *shm.Region {
	r, err := shm.Open(s.ctx, shm.OpenOptions{Path: s.path, Size: SmallCapacity, SkipSpaceCheck: true})
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = r.Close() })
	return r
}

func (s *EndpointTestSuite) config(role Role) *Config {
	return &Config{Role: role, Delimiter: DefaultDelimiter, Name: "test", LogOutput: io.Discard}
}

func (s *EndpointTestSuite) endpoint(region Storage, role Role, h api.Handler) *Endpoint {
	e, err := NewEndpoint(region, s.config(role), h)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = e.Close() })
	return e
}

// peerWrite leaves a frame in the payload and sets the flag the way the other process would.
func (s *EndpointTestSuite) peerWrite(flag byte, payload []byte) {
	s.Require().NoError(s.peer.Zero(0, SmallCapacity))
	s.Require().NoError(s.peer.WriteSlice(1, payload))
	s.Require().NoError(s.peer.WriteSlice(0, []byte{flag}))
	s.Require().NoError(s.peer.Flush())
}

func (s *EndpointTestSuite) flagByte() byte {
	b, err := s.peer.ReadSlice(0, 1)
	s.Require().NoError(err)
	return b[0]
}

func (s *EndpointTestSuite) payload() []byte {
	b, err := s.peer.ReadSlice(1, SmallCapacity)
	s.Require().NoError(err)
	return b
}

func (s *EndpointTestSuite) emptyPayload() []byte {
	return make([]byte, SmallCapacity-1)
}

func (s *EndpointTestSuite) TestNewEndpoint_Validation() {
	_, err := NewEndpoint(s.region, &Config{Role: RoleResponder}, nil)
	s.Error(err)

	small, err := shm.Open(s.ctx, shm.OpenOptions{
		Path: filepath.Join(s.T().TempDir(), "small.bin"), Size: MinCapacity - 1, SkipSpaceCheck: true,
	})
	s.Require().NoError(err)
	defer small.Close()
	_, err = NewEndpoint(small, s.config(RoleResponder), nil)
	s.ErrorIs(err, ErrRegionTooSmall)
}

func (s *EndpointTestSuite) TestPoll_NotMyTurnLeavesPayload() {
	h := &recordingHandler{}
	e := s.endpoint(s.region, RoleResponder, h)
	s.peerWrite(0, []byte("load_texture##DELIM##a.png"))

	res, err := e.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(NotMyTurn, res.Claim)
	s.Empty(h.calls())
	s.Equal(byte(0), s.flagByte())
	s.Equal("load_texture##DELIM##a.png", string(s.payload()[:26]))
	s.Equal(uint64(1), e.Stats().NotMyTurn)
}

func (s *EndpointTestSuite) TestPoll_DispatchesCompile() {
	h := &recordingHandler{}
	e := s.endpoint(s.region, RoleResponder, h)
	s.peerWrite(1, []byte("compile##DELIM##U1=1##DELIM##T1=\"a\"##DELIM##x##DELIM##y"))

	res, err := e.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(Claimed, res.Claim)
	want := api.Compile{UniformTypes: "U1=1", TextureDescs: "T1=\"a\"", WorldOffsetExpr: "x", FragColorExpr: "y"}
	s.Equal(want, res.Received)
	s.Equal([]api.Command{want}, h.calls())
	s.Nil(res.Sent)
	s.NoError(res.Dropped)
	s.Equal(byte(0), s.flagByte())
	s.Equal(s.emptyPayload(), s.payload())
	s.False(e.LastTurn().IsZero())
	s.Equal(StateIdle, e.State())
}

func (s *EndpointTestSuite) TestPoll_InvalidEncodingClearsAndFlips() {
	h := &recordingHandler{}
	e := s.endpoint(s.region, RoleResponder, h)
	s.peerWrite(1, []byte{0xff, 0xfe, 0xfd})

	res, err := e.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(Claimed, res.Claim)
	s.ErrorIs(res.Dropped, ErrInvalidEncoding)
	s.Empty(h.calls())
	s.Equal(byte(0), s.flagByte())
	s.Equal(s.emptyPayload(), s.payload())
	s.Equal(uint64(1), e.Stats().DecodeErrors)
}

func (s *EndpointTestSuite) TestPoll_MissingFieldFlipsWithoutDispatch() {
	h := &recordingHandler{}
	e := s.endpoint(s.region, RoleResponder, h)
	s.peerWrite(1, []byte("load_texture"))

	res, err := e.Poll(s.ctx)
	s.Require().NoError(err)
	s.ErrorIs(res.Dropped, ErrMissingField)
	s.Empty(h.calls())
	s.Equal(byte(0), s.flagByte())
}

func (s *EndpointTestSuite) TestPoll_NoDuplicateDispatch() {
	h := &recordingHandler{}
	e := s.endpoint(s.region, RoleResponder, h)
	s.peerWrite(1, []byte("load_texture##DELIM##a.png"))

	res, err := e.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(Claimed, res.Claim)
	res, err = e.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(NotMyTurn, res.Claim)
	s.Len(h.calls(), 1)
}

func (s *EndpointTestSuite) TestPoll_EmptyFrameStillFlips() {
	h := &recordingHandler{}
	e := s.endpoint(s.region, RoleResponder, h)
	s.peerWrite(1, nil)

	res, err := e.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(Claimed, res.Claim)
	s.Nil(res.Received)
	s.NoError(res.Dropped)
	s.Empty(h.calls())
	s.Equal(byte(0), s.flagByte())
}

func (s *EndpointTestSuite) TestPoll_UnknownCommandIgnored() {
	h := &recordingHandler{}
	e := s.endpoint(s.region, RoleResponder, h)
	s.peerWrite(1, []byte("spawn##DELIM##x"))

	res, err := e.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(api.Unknown{Command: "spawn", Args: []string{"x"}}, res.Received)
	s.Empty(h.calls())
	s.Equal(byte(0), s.flagByte())
}

func (s *EndpointTestSuite) TestPoll_HandlerErrorAbsorbed() {
	h := &recordingHandler{err: errors.New("bad toml"), reply: api.MaterialSource{}}
	e := s.endpoint(s.region, RoleResponder, h)
	s.peerWrite(1, []byte("compile##DELIM##=##DELIM##=##DELIM##x##DELIM##y"))

	res, err := e.Poll(s.ctx)
	s.Require().NoError(err)
	s.EqualError(res.Dropped, "bad toml")
	s.Nil(res.Sent)
	s.Equal(byte(0), s.flagByte())
	s.Equal(uint64(1), e.Stats().HandlerErrors)
}

func (s *EndpointTestSuite) TestPoll_ReplyWritten() {
	reply := api.MaterialSource{WorldOffsetExpr: "vec3(0)", FragColorExpr: "vec4(1)"}
	h := &recordingHandler{reply: reply}
	e := s.endpoint(s.region, RoleResponder, h)
	s.peerWrite(1, []byte("load_toml##DELIM##m.toml"))

	res, err := e.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(reply, res.Sent)
	s.Equal(byte(0), s.flagByte())
	cmd, err := NewCodec("").Decode(s.payload())
	s.Require().NoError(err)
	s.Equal(reply, cmd)
}

func (s *EndpointTestSuite) TestSend_LatestWins() {
	e := s.endpoint(s.region, RoleResponder, nil)
	s.Require().NoError(e.Send(api.LoadTexture{Path: "first.png"}))
	s.Require().NoError(e.Send(api.LoadTexture{Path: "second.png"}))
	s.True(e.Pending())

	s.peerWrite(1, nil)
	res, err := e.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(api.LoadTexture{Path: "second.png"}, res.Sent)
	s.False(e.Pending())

	stats := e.Stats()
	s.Equal(uint64(1), stats.Superseded)
	s.Equal(uint64(1), stats.Sent)
}

func (s *EndpointTestSuite) TestSend_ReplyTakesPrecedence() {
	reply := api.MaterialSource{WorldOffsetExpr: "a", FragColorExpr: "b"}
	e := s.endpoint(s.region, RoleResponder, &recordingHandler{reply: reply})
	s.Require().NoError(e.Send(api.UpdateUniform{Uniform: "tint", Value: [4]float32{1, 0, 0, 1}}))

	s.peerWrite(1, []byte("load_toml##DELIM##m.toml"))
	res, err := e.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(reply, res.Sent)
	s.True(e.Pending())

	s.peerWrite(1, nil)
	res, err = e.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(api.UpdateUniform{Uniform: "tint", Value: [4]float32{1, 0, 0, 1}}, res.Sent)
}

func (s *EndpointTestSuite) TestSend_Rejects() {
	e := s.endpoint(s.region, RoleResponder, nil)
	s.ErrorIs(e.Send(api.LoadTexture{Path: strings.Repeat("a", SmallCapacity)}), ErrFrameTooLarge)
	s.ErrorIs(e.Send(api.LoadTexture{Path: "a##DELIM##b"}), ErrInvalidField)
	s.Error(e.Send(nil))
	s.False(e.Pending())
	s.Equal(uint64(2), e.Stats().EncodeErrors)
}

func (s *EndpointTestSuite) TestExchange() {
	engine := &recordingHandler{reply: api.MaterialSource{WorldOffsetExpr: "vec3(0)", FragColorExpr: "vec4(uv, 0, 1)"}}
	editorGot := &recordingHandler{}
	editor := s.endpoint(s.peer, RoleInitiator, editorGot)
	responder := s.endpoint(s.region, RoleResponder, engine)

	// nothing waiting for the engine on a fresh file
	res, err := responder.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(NotMyTurn, res.Claim)

	s.Require().NoError(editor.Send(api.LoadMaterialFile{Path: "water.toml"}))
	res, err = editor.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(Claimed, res.Claim)
	s.Equal(api.LoadMaterialFile{Path: "water.toml"}, res.Sent)
	s.Equal(ReadyToConsume, editor.Flag().Load())

	res, err = editor.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(NotMyTurn, res.Claim)

	res, err = responder.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(api.LoadMaterialFile{Path: "water.toml"}, res.Received)
	s.Equal(Idle, responder.Flag().Load())

	res, err = editor.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(engine.reply, res.Received)
	s.Equal([]api.Command{engine.reply}, editorGot.calls())
}

func (s *EndpointTestSuite) TestBusyWhileTurnHeld() {
	e := s.endpoint(s.region, RoleResponder, nil)
	s.peerWrite(1, []byte("load_texture##DELIM##a.png"))

	turn, res := e.TryClaim()
	s.Require().Equal(Claimed, res)
	s.Equal(StateClaimed, e.State())

	pr, err := e.Poll(s.ctx)
	s.Require().NoError(err)
	s.Equal(Busy, pr.Claim)

	cmd, err := turn.Receive()
	s.Require().NoError(err)
	s.Equal(api.LoadTexture{Path: "a.png"}, cmd)
	s.Equal(StateDispatched, turn.State())
	_, err = turn.Receive()
	s.ErrorIs(err, ErrTurnState)

	sent, err := turn.Release(s.ctx, nil)
	s.Require().NoError(err)
	s.Nil(sent)
	s.Equal(StateReleased, turn.State())
	_, err = turn.Release(s.ctx, nil)
	s.ErrorIs(err, ErrTurnState)

	s.Equal(uint64(1), e.Stats().Busy)
	s.Equal(byte(0), s.flagByte())
}

func (s *EndpointTestSuite) TestFlushFailureKeepsFlag() {
	e := s.endpoint(failingFlush{s.region}, RoleResponder, nil)
	s.peerWrite(1, []byte("load_texture##DELIM##a.png"))

	_, err := e.Poll(s.ctx)
	var se *shm.StorageError
	s.Require().True(errors.As(err, &se))
	s.Equal("flush", se.Op)
	s.Equal(byte(1), s.flagByte())
	s.ErrorIs(e.Err(), err)

	// the endpoint stays failed, and a failed endpoint is not a busy one
	res, err := e.Poll(s.ctx)
	s.Error(err)
	s.Equal(NotMyTurn, res.Claim)
	_, claim := e.TryClaim()
	s.Equal(NotMyTurn, claim)
	s.Zero(e.Stats().Busy)
}

func (s *EndpointTestSuite) TestClose() {
	e := s.endpoint(s.region, RoleResponder, nil)
	s.Require().NoError(e.Send(api.LoadTexture{Path: "a.png"}))
	s.Require().NoError(e.Close())
	s.Require().NoError(e.Close())
	s.False(e.Pending())

	_, err := e.Poll(s.ctx)
	s.ErrorIs(err, ErrClosed)
	s.ErrorIs(e.Send(api.LoadTexture{Path: "b.png"}), ErrClosed)
	_, res := e.TryClaim()
	s.Equal(NotMyTurn, res)
	s.Zero(e.Stats().Busy)
}

func (s *EndpointTestSuite) TestDispatchSpan() {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(s.ctx) }()

	config := s.config(RoleResponder)
	config.Tracer = tp.Tracer("test")
	e, err := NewEndpoint(s.region, config, &recordingHandler{err: errors.New("boom")})
	s.Require().NoError(err)
	defer e.Close()

	s.peerWrite(1, []byte("load_texture##DELIM##a.png"))
	_, err = e.Poll(s.ctx)
	s.Require().NoError(err)

	spans := recorder.Ended()
	s.Require().Len(spans, 1)
	s.Equal("mailbox.dispatch", spans[0].Name())
	s.Equal(codes.Error, spans[0].Status().Code)
	s.Equal("boom", spans[0].Status().Description)
}

func TestEndpointTestSuite(t *testing.T) {
	suite.Run(t, new(EndpointTestSuite))
}
