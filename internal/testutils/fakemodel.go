// Package testutils holds scripted collaborators shared by package tests.
package testutils

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ModelCall records one request received by FakeModel.
type ModelCall struct {
	Messages []*schema.Message
	Options  *model.Options
	Streamed bool
}

// FakeModel is a scripted model.BaseChatModel.
type FakeModel struct {
	// Reply is returned by Generate.
	Reply string
	// Fragments are emitted in order by Stream.
	Fragments []string
	// Err fails the call before any output.
	Err error
	// StreamErr is delivered after all fragments.
	StreamErr error

	mu    sync.Mutex
	calls []ModelCall
}

// Generate implements model.BaseChatModel.
func (f *FakeModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.record(input, opts, false)
	if f.Err != nil {
		return nil, f.Err
	}
	return schema.AssistantMessage(f.Reply, nil), nil
}

// Stream implements model.BaseChatModel.
func (f *FakeModel) Stream(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.record(input, opts, true)
	if f.Err != nil {
		return nil, f.Err
	}

	if f.StreamErr == nil {
		chunks := make([]*schema.Message, 0, len(f.Fragments))
		for _, fragment := range f.Fragments {
			chunks = append(chunks, schema.AssistantMessage(fragment, nil))
		}
		return schema.StreamReaderFromArray(chunks), nil
	}

	reader, writer := schema.Pipe[*schema.Message](len(f.Fragments) + 1)
	for _, fragment := range f.Fragments {
		writer.Send(schema.AssistantMessage(fragment, nil), nil)
	}
	writer.Send(nil, f.StreamErr)
	writer.Close()
	return reader, nil
}

// Calls returns the recorded requests.
func (f *FakeModel) Calls() []ModelCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ModelCall(nil), f.calls...)
}

func (f *FakeModel) record(input []*schema.Message, opts []model.Option, streamed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ModelCall{
		Messages: append([]*schema.Message(nil), input...),
		Options:  model.GetCommonOptions(&model.Options{}, opts...),
		Streamed: streamed,
	})
}
