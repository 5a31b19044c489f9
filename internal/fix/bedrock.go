package fix

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// DefaultBedrockModel is used when no model is configured.
const DefaultBedrockModel = "anthropic.claude-3-haiku-20240307-v1:0"

// ConverseAPI defines the subset of the Bedrock runtime API used by the backend.
type ConverseAPI interface {
	Converse(ctx context.Context, input *bedrockruntime.ConverseInput, opts ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// NewBedrockClient creates a Bedrock runtime client using the specified
// profile and region.
func NewBedrockClient(ctx context.Context, profile, region string) (ConverseAPI, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return nil, errors.New("no AWS region configured for bedrock; set fix.region or AWS_REGION")
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

// Bedrock completes prompts with the Converse API.
type Bedrock struct {
	client ConverseAPI
	model  string
}

// NewBedrock creates a backend for model. An empty model takes the default.
func NewBedrock(client ConverseAPI, model string) *Bedrock {
	if model == "" {
		model = DefaultBedrockModel
	}
	return &Bedrock{client: client, model: model}
}

// Name implements Backend.
func (b *Bedrock) Name() string { return BackendBedrock }

// Complete implements Backend.
func (b *Bedrock) Complete(ctx context.Context, system, prompt string, opts CompletionOptions) (string, error) {
	out, err := b.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.model),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: system},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			Temperature: aws.Float32(opts.Temperature),
			MaxTokens:   aws.Int32(int32(opts.MaxTokens)),
		},
	})
	if err != nil {
		return "", &BackendError{Backend: b.Name(), Err: fmt.Errorf("converse: %w", err)}
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", &BackendError{Backend: b.Name(), Err: errors.New("response has no message")}
	}

	var parts []string
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			parts = append(parts, text.Value)
		}
	}
	if len(parts) == 0 {
		return "", &BackendError{Backend: b.Name(), Err: errors.New("response has no text content")}
	}
	return strings.Join(parts, "\n"), nil
}
