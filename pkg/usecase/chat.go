package usecase

import (
	"context"
	"strings"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/model/config"
	"github.com/hearth-archive/hearth/pkg/service/companion"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// ChatRequest is a live conversational query
type ChatRequest struct {
	Query            string           `json:"query"`
	PersonIDs        []model.PersonID `json:"person_ids,omitempty"`
	PatientContext   string           `json:"patient_context,omitempty"`
	ConversationType string           `json:"conversation_type,omitempty"`
	Limit            int              `json:"limit,omitempty"`
}

// ChatResponse carries the context memories and the composed presentation.
// Degraded is true when the AI call did not produce one.
type ChatResponse struct {
	Memories     []*model.Memory     `json:"memories"`
	Presentation *model.Presentation `json:"presentation,omitempty"`
	Degraded     bool                `json:"degraded"`
	Status       companion.Status    `json:"status"`
}

type ChatUseCase struct {
	ranker    *RankerUseCase
	companion companion.Service
	cfg       *config.RankerConfig
}

func NewChatUseCase(ranker *RankerUseCase, companionSvc companion.Service, cfg *config.RankerConfig) *ChatUseCase {
	return &ChatUseCase{
		ranker:    ranker,
		companion: companionSvc,
		cfg:       cfg,
	}
}

// Ask selects context memories, from people when given and by similarity
// otherwise, and asks the AI for a presentation over them.
func (uc *ChatUseCase) Ask(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Query) == "" && len(req.PersonIDs) == 0 {
		return nil, goerr.Wrap(ErrInvalidRequest, "query or person IDs are required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = uc.cfg.TopN
	}

	var (
		memories []*model.Memory
		err      error
	)
	if len(req.PersonIDs) > 0 {
		memories, err = uc.ranker.RankByPeople(ctx, req.PersonIDs, limit)
	} else {
		memories, err = uc.ranker.rankByQuery(ctx, req.Query, limit)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to select context memories")
	}

	res := uc.companion.Chat(ctx, companion.ChatInput{
		Query:            req.Query,
		PatientContext:   req.PatientContext,
		ConversationType: req.ConversationType,
		Memories:         memories,
	})

	resp := &ChatResponse{
		Memories: memories,
		Status:   res.Status,
	}
	if !res.OK() {
		logging.From(ctx).Warn("chat presentation unavailable",
			"status", res.Status,
			"memory_ids", model.MemoryIDsOf(memories),
			"error", res.Err)
		resp.Degraded = true
		return resp, nil
	}
	resp.Presentation = res.Value
	return resp, nil
}
