package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	chatservice "github.com/zhouzirui/z-bots/backend/internal/service/chat"
)

var (
	nameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"})
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))
	thoughtBox  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
	thoughtHead = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
)

// termSink 把会话事件渲染到终端
type termSink struct {
	out      io.Writer
	cursor   string
	md       *glamour.TermRenderer // nil 时输出纯文本
	audioDir string

	streamed string
	staged   bool
}

func newTermSink(out io.Writer, cursor string, markdown bool, audioDir string) (*termSink, error) {
	s := &termSink{out: out, cursor: cursor, audioDir: audioDir}
	if !markdown {
		return s, nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	s.md = renderer
	return s, nil
}

func (s *termSink) Emit(e chatservice.Event) {
	switch e.Type {
	case chatservice.EventStart:
		s.streamed = ""
		s.staged = false
		fmt.Fprint(s.out, nameStyle.Render(e.Content+":")+" ")
	case chatservice.EventThinking:
		fmt.Fprint(s.out, mutedStyle.Render("Thinking..."))
	case chatservice.EventDelta:
		text := strings.TrimSuffix(e.Content, s.cursor)
		if strings.HasPrefix(text, s.streamed) {
			fmt.Fprint(s.out, text[len(s.streamed):])
		}
		s.streamed = text
	case chatservice.EventReasoning:
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, thoughtBox.Render(thoughtHead.Render("Thinking Process")+"\n"+e.Content))
	case chatservice.EventStage:
		// 逐词展示时覆盖同一行
		fmt.Fprint(s.out, "\r\033[K"+e.Content)
		s.staged = true
	case chatservice.EventMessage:
		s.renderMessage(e.Content)
	case chatservice.EventError:
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, errorStyle.Render(e.Error))
	case chatservice.EventAudio:
		s.saveAudio(e)
	case chatservice.EventSpeechError:
		fmt.Fprintln(s.out, mutedStyle.Render("(voice unavailable: "+e.Error+")"))
	case chatservice.EventEnd:
		fmt.Fprintln(s.out)
	}
}

func (s *termSink) renderMessage(content string) {
	switch {
	case s.staged:
		fmt.Fprintln(s.out)
	case s.streamed != "":
		fmt.Fprintln(s.out)
	case s.md != nil:
		rendered, err := s.md.Render(content)
		if err != nil {
			log.Debugf("[chatrepl] markdown render failed: %v", err)
			fmt.Fprintln(s.out, content)
			return
		}
		fmt.Fprint(s.out, "\n"+rendered)
	default:
		fmt.Fprintln(s.out, content)
	}
}

func (s *termSink) saveAudio(e chatservice.Event) {
	if s.audioDir == "" || len(e.Audio) == 0 {
		return
	}
	format := e.Format
	if format == "" {
		format = "mp3"
	}
	path := filepath.Join(s.audioDir, fmt.Sprintf("%s-%d.%s", e.SessionID, time.Now().UnixNano(), format))
	if err := os.WriteFile(path, e.Audio, 0o644); err != nil {
		log.Warnf("[chatrepl] failed to write audio: %v", err)
		return
	}
	fmt.Fprintln(s.out, mutedStyle.Render("♪ "+path))
}
