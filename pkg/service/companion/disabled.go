package companion

import (
	"context"

	"github.com/hearth-archive/hearth/pkg/domain/model"
)

// Disabled is used when no LLM is configured. Every call fails.
type Disabled struct{}

var _ Service = Disabled{}

func (Disabled) Embed(ctx context.Context, text string) Result[[]float32] {
	return failed[[]float32](ErrDisabled)
}

func (Disabled) Chat(ctx context.Context, input ChatInput) Result[*model.Presentation] {
	return failed[*model.Presentation](ErrDisabled)
}
