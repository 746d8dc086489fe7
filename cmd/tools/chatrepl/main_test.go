package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-bots/backend/internal/config"
	"github.com/zhouzirui/z-bots/backend/internal/model/persona"
	"github.com/zhouzirui/z-bots/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/z-bots/backend/internal/service/chat"
	"github.com/zhouzirui/z-bots/backend/internal/testutils"
)

func newService(fake *testutils.FakeModel) *chatservice.Service {
	opts := chatservice.DefaultOptions()
	opts.ThinkingDelay = 0
	opts.RevealDelay = 0
	aiSvc := ai.NewServiceWithModel(fake, config.AIConfig{Model: "gemma3:latest", StreamResponse: true})
	return chatservice.NewService(persona.NewMemoryStore(persona.Seed()), aiSvc, nil, opts)
}

func TestTermSinkRendersFourWordReply(t *testing.T) {
	var out bytes.Buffer
	sink, err := newTermSink(&out, "▌", false, "")
	require.NoError(t, err)

	sink.Emit(chatservice.Event{Type: chatservice.EventStart, Content: "Mini Bot"})
	sink.Emit(chatservice.Event{Type: chatservice.EventThinking})
	sink.Emit(chatservice.Event{Type: chatservice.EventReasoning, Content: "weighing options"})
	sink.Emit(chatservice.Event{Type: chatservice.EventStage, Content: "Go"})
	sink.Emit(chatservice.Event{Type: chatservice.EventStage, Content: "Go team"})
	sink.Emit(chatservice.Event{Type: chatservice.EventMessage, Content: "Go team"})
	sink.Emit(chatservice.Event{Type: chatservice.EventEnd})

	text := out.String()
	assert.Contains(t, text, "Mini Bot:")
	assert.Contains(t, text, "Thinking Process")
	assert.Contains(t, text, "weighing options")
	assert.Contains(t, text, "\r\033[KGo team")
	assert.Equal(t, 1, strings.Count(text, "Go team\n"))
}

func TestTermSinkPrintsStreamedSuffixOnly(t *testing.T) {
	var out bytes.Buffer
	sink, err := newTermSink(&out, "▌", false, "")
	require.NoError(t, err)

	sink.Emit(chatservice.Event{Type: chatservice.EventDelta, Content: "Hel▌"})
	sink.Emit(chatservice.Event{Type: chatservice.EventDelta, Content: "Hello▌"})
	sink.Emit(chatservice.Event{Type: chatservice.EventDelta, Content: "Hello world▌"})
	sink.Emit(chatservice.Event{Type: chatservice.EventMessage, Content: "Hello world"})

	assert.Equal(t, "Hello world\n", out.String())
}

func TestTermSinkSavesAudio(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	sink, err := newTermSink(&out, "▌", false, dir)
	require.NoError(t, err)

	sink.Emit(chatservice.Event{Type: chatservice.EventAudio, SessionID: "s1", Audio: []byte("mp3"), Format: "mp3"})

	files, err := filepath.Glob(filepath.Join(dir, "s1-*.mp3"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "mp3", string(data))
}

func TestLoopHandlesCommands(t *testing.T) {
	svc := newService(&testutils.FakeModel{Reply: "<thought>\nok\n</thought>\nAll systems nominal today"})
	ctx := context.Background()
	session, err := svc.CreateSession(ctx, "mini-bot")
	require.NoError(t, err)

	var out bytes.Buffer
	sink, err := newTermSink(&out, "▌", false, "")
	require.NoError(t, err)

	in := strings.NewReader("hello\n/jargon on\n\n/reset\n/quit\nnever sent\n")
	require.NoError(t, loop(ctx, in, &out, svc, session.ID, sink))

	assert.Contains(t, out.String(), "All systems nominal today")
	assert.Contains(t, out.String(), "(jargon mode: true)")
	assert.Contains(t, out.String(), "(conversation cleared)")

	settings, err := svc.Settings(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, settings.JargonMode)

	visible, err := svc.Visible(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestInitialPatchOnlySetsChangedSliders(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--temperature", "0.2", "--jargon"}))

	flags := &replFlags{temperature: 0.2, jargon: true}
	patch := initialPatch(cmd, flags)
	require.NotNil(t, patch.Temperature)
	assert.InDelta(t, 0.2, *patch.Temperature, 1e-9)
	assert.Nil(t, patch.TopP)
	assert.True(t, *patch.JargonMode)
	assert.False(t, *patch.VoiceEnabled)
}
