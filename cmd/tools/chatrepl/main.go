// Command chatrepl runs one bot session in the terminal against the
// configured model backend.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-bots/backend/internal/config"
	"github.com/zhouzirui/z-bots/backend/internal/logging"
	"github.com/zhouzirui/z-bots/backend/internal/model/chat"
	"github.com/zhouzirui/z-bots/backend/internal/model/persona"
	"github.com/zhouzirui/z-bots/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/z-bots/backend/internal/service/chat"
	"github.com/zhouzirui/z-bots/backend/internal/service/speech"
)

type replFlags struct {
	temperature float64
	topP        float64
	jargon      bool
	voice       bool
	audioDir    string
	plain       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &replFlags{}

	rootCmd := &cobra.Command{
		Use:   "chatrepl [persona-id]",
		Short: "Chat with a bot in the terminal",
		Long: `Start an interactive session with one of the configured bots.
Type /reset to clear the conversation, /jargon on|off to toggle jargon mode
and /quit to leave.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			personaID := "mini-bot"
			if len(args) == 1 {
				personaID = args[0]
			}
			return run(cmd.Context(), cmd, personaID, flags)
		},
	}

	rootCmd.Flags().Float64Var(&flags.temperature, "temperature", -1, "initial temperature (0.0-1.0)")
	rootCmd.Flags().Float64Var(&flags.topP, "top-p", -1, "initial top-p (0.0-1.0)")
	rootCmd.Flags().BoolVar(&flags.jargon, "jargon", false, "start with jargon mode on")
	rootCmd.Flags().BoolVar(&flags.voice, "voice", false, "synthesize persona replies")
	rootCmd.Flags().StringVar(&flags.audioDir, "audio-dir", os.TempDir(), "directory for synthesized audio")
	rootCmd.Flags().BoolVar(&flags.plain, "plain", false, "disable markdown rendering")

	return rootCmd
}

func run(ctx context.Context, cmd *cobra.Command, personaID string, flags *replFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Configure(cmd.ErrOrStderr(), cfg.Log.Level)

	items := persona.Seed()
	if cfg.Chat.PersonasFile != "" {
		if items, err = persona.LoadFile(cfg.Chat.PersonasFile); err != nil {
			return err
		}
	}

	aiSvc, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		return err
	}

	var synthesizer chatservice.Synthesizer
	if flags.voice && cfg.Speech.Enabled {
		speechSvc, err := speech.NewService(cfg.Speech.ServiceConfig())
		if err != nil {
			log.Warnf("[chatrepl] speech disabled: %v", err)
		} else {
			synthesizer = speechSvc
		}
	}

	opts := chatservice.Options{
		ThinkingDelay:   cfg.Chat.ThinkingDelay,
		RevealDelay:     cfg.Chat.RevealDelay,
		StrictWordCount: cfg.Chat.StrictWordCount,
		WordLimit:       cfg.Chat.WordLimit,
		CursorMarker:    cfg.Chat.CursorMarker,
		Defaults:        cfg.AI.DefaultSettings(),
	}
	svc := chatservice.NewService(persona.NewMemoryStore(items), aiSvc, synthesizer, opts)

	session, err := svc.CreateSession(ctx, personaID)
	if err != nil {
		return err
	}

	if _, err := svc.UpdateSettings(ctx, session.ID, initialPatch(cmd, flags)); err != nil {
		return err
	}

	sink, err := newTermSink(cmd.OutOrStdout(), opts.CursorMarker, !flags.plain, flags.audioDir)
	if err != nil {
		return err
	}

	return loop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), svc, session.ID, sink)
}

func initialPatch(cmd *cobra.Command, flags *replFlags) chat.SettingsPatch {
	var patch chat.SettingsPatch
	if cmd.Flags().Changed("temperature") {
		patch.Temperature = &flags.temperature
	}
	if cmd.Flags().Changed("top-p") {
		patch.TopP = &flags.topP
	}
	patch.JargonMode = &flags.jargon
	patch.VoiceEnabled = &flags.voice
	return patch
}

// loop 逐行读取输入，直到 /quit 或 EOF
func loop(ctx context.Context, in io.Reader, out io.Writer, svc *chatservice.Service, sessionID string, sink chatservice.Sink) error {
	p, err := svc.Persona(ctx, sessionID)
	if err != nil {
		return err
	}
	prompt := p.Placeholder
	if prompt == "" {
		prompt = "You:"
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt+" ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/reset":
			if err := svc.Reset(ctx, sessionID); err != nil {
				return err
			}
			fmt.Fprintln(out, mutedStyle.Render("(conversation cleared)"))
			continue
		case strings.HasPrefix(line, "/jargon"):
			on := strings.TrimSpace(strings.TrimPrefix(line, "/jargon")) != "off"
			if _, err := svc.UpdateSettings(ctx, sessionID, chat.SettingsPatch{JargonMode: &on}); err != nil {
				return err
			}
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("(jargon mode: %t)", on)))
			continue
		}

		if _, err := svc.Submit(ctx, sessionID, line, sink); err != nil {
			return err
		}
	}
}
