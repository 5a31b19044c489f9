package fix

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

func TestBedrockComplete(t *testing.T) {
	m := &mockConverse{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: "use strncpy"},
				},
			},
		},
	}}
	b := NewBedrock(m, "")

	text, err := b.Complete(context.Background(), "sys", "prompt", CompletionOptions{Temperature: 0.2, MaxTokens: 100})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if text != "use strncpy" {
		t.Errorf("Complete() = %q", text)
	}
	if *m.input.ModelId != DefaultBedrockModel {
		t.Errorf("ModelId = %q", *m.input.ModelId)
	}
	if *m.input.InferenceConfig.MaxTokens != 100 {
		t.Errorf("MaxTokens = %d, want 100", *m.input.InferenceConfig.MaxTokens)
	}
	block, ok := m.input.Messages[0].Content[0].(*brtypes.ContentBlockMemberText)
	if !ok || block.Value != "prompt" {
		t.Errorf("user content = %+v", m.input.Messages[0].Content)
	}
}

func TestBedrockCompleteError(t *testing.T) {
	b := NewBedrock(&mockConverse{err: errors.New("AccessDeniedException")}, "m")
	_, err := b.Complete(context.Background(), "", "p", CompletionOptions{})

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("error = %v, want *BackendError", err)
	}
	if !strings.Contains(err.Error(), "AccessDeniedException") {
		t.Errorf("error = %v", err)
	}
}

func TestBedrockCompleteNoText(t *testing.T) {
	m := &mockConverse{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{}},
	}}
	if _, err := NewBedrock(m, "m").Complete(context.Background(), "", "p", CompletionOptions{}); err == nil {
		t.Error("Complete() should error on empty content")
	}
}
