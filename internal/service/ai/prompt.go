package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-bots/backend/internal/model/chat"
	"github.com/zhouzirui/z-bots/backend/internal/model/persona"
)

// regeneratedTemplate prefixes the stored history with a directive that is
// recomputed on every request.
var regeneratedTemplate = prompt.FromMessages(
	schema.FString,
	schema.SystemMessage("{directive}"),
	schema.MessagesPlaceholder("history", true),
)

// Directive returns the system text for p under the given settings. For
// four-word bots it is the shared preamble finished by exactly one of the two
// fixed rules, chosen solely by the jargon toggle.
func Directive(p *persona.Persona, settings chat.GenerationSettings) string {
	if p.Variant != persona.VariantFourWord {
		return p.Directive
	}
	if settings.JargonMode {
		return p.Directive + p.JargonRule
	}
	return p.Directive + p.PlainRule
}

// InitialDirective returns what a fresh or reset transcript stores as its
// system turn. Bots that regenerate their directive still keep a snapshot so
// the transcript always opens with one system turn.
func InitialDirective(p *persona.Persona, settings chat.GenerationSettings) string {
	return Directive(p, settings)
}

// BuildMessages produces the ordered message list sent to the model.
// Sampling settings travel as call options, never inside the messages.
func BuildMessages(ctx context.Context, p *persona.Persona, turns []chat.Turn, settings chat.GenerationSettings) ([]*schema.Message, error) {
	if !p.RegeneratesDirective() {
		return toSchemaMessages(turns), nil
	}

	history := toSchemaMessages(withoutSystemTurns(turns))
	messages, err := regeneratedTemplate.Format(ctx, map[string]any{
		"directive": Directive(p, settings),
		"history":   history,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format prompt for persona %s: %w", p.ID, err)
	}
	return messages, nil
}

func withoutSystemTurns(turns []chat.Turn) []chat.Turn {
	filtered := make([]chat.Turn, 0, len(turns))
	for _, turn := range turns {
		if turn.Role != chat.RoleSystem {
			filtered = append(filtered, turn)
		}
	}
	return filtered
}

func toSchemaMessages(turns []chat.Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleSystem:
			messages = append(messages, schema.SystemMessage(turn.Content))
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return messages
}

// DescribeMessages renders a message list for debug logs.
func DescribeMessages(messages []*schema.Message) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, fmt.Sprintf("%s(%d)", msg.Role, len(msg.Content)))
	}
	return strings.Join(parts, " ")
}
