package usecase

import (
	"context"
	"fmt"

	"github.com/hearth-archive/hearth/pkg/domain/interfaces"
	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/model/config"
	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/hearth-archive/hearth/pkg/service/companion"
	"github.com/hearth-archive/hearth/pkg/utils/errutil"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// ConversationTypeProactive is the conversation type sent when composing a trigger
const ConversationTypeProactive = "proactive"

// Scanner turns store queries into a candidate trigger for today.
// It returns nil when nothing qualifies.
type Scanner func(ctx context.Context, today model.Date) (*model.Trigger, error)

type TriggerUseCase struct {
	repo      interfaces.Repository
	companion companion.Service
	cfg       *config.ProactiveConfig
	clock     Clock
}

func NewTriggerUseCase(repo interfaces.Repository, companionSvc companion.Service, cfg *config.ProactiveConfig, clock Clock) *TriggerUseCase {
	return &TriggerUseCase{
		repo:      repo,
		companion: companionSvc,
		cfg:       cfg,
		clock:     clock,
	}
}

// Today returns the current calendar date in the configured time zone
func (uc *TriggerUseCase) Today() model.Date {
	return model.DateOf(uc.clock(), uc.cfg.TimeZone)
}

// Strategies returns the scanners in priority order
func (uc *TriggerUseCase) Strategies() []types.TriggerKind {
	return types.AllTriggerKinds()
}

func (uc *TriggerUseCase) scanner(kind types.TriggerKind) Scanner {
	switch kind {
	case types.TriggerKindAnniversary:
		return uc.ScanAnniversary
	case types.TriggerKindOnThisDay:
		return uc.ScanOnThisDay
	case types.TriggerKindSeasonal:
		return uc.ScanSeasonal
	default:
		return nil
	}
}

// CheckAll runs the detection for today
func (uc *TriggerUseCase) CheckAll(ctx context.Context) (*model.Trigger, error) {
	return uc.CheckOn(ctx, uc.Today())
}

// CheckOn detects the trigger for today and composes its presentation
func (uc *TriggerUseCase) CheckOn(ctx context.Context, today model.Date) (*model.Trigger, error) {
	trigger, err := uc.Detect(ctx, today)
	if err != nil || trigger == nil {
		return nil, err
	}
	uc.Compose(ctx, trigger)
	return trigger, nil
}

// Detect tries anniversary, on-this-day and seasonal in that order and
// returns the first non-empty trigger without a presentation. A failing
// scanner is logged and skipped; an error is returned only when every
// scanner failed.
func (uc *TriggerUseCase) Detect(ctx context.Context, today model.Date) (*model.Trigger, error) {
	kinds := uc.Strategies()
	var lastErr error
	failures := 0

	for _, kind := range kinds {
		trigger, err := uc.scanner(kind)(ctx, today)
		if err != nil {
			_ = errutil.Handle(ctx, err, "trigger scan failed")
			lastErr = err
			failures++
			continue
		}
		if trigger == nil {
			continue
		}

		logging.From(ctx).Info("trigger detected",
			"kind", trigger.Kind,
			"date", trigger.Date,
			"memories", len(trigger.Memories))
		return trigger, nil
	}

	if failures == len(kinds) {
		return nil, goerr.Wrap(lastErr, "every trigger scan failed", goerr.V("date", today))
	}
	return nil, nil
}

// Compose asks the AI service for a presentation seeded with the trigger's
// memories. On failure the trigger keeps no presentation.
func (uc *TriggerUseCase) Compose(ctx context.Context, trigger *model.Trigger) {
	res := uc.companion.Chat(ctx, companion.ChatInput{
		Query:            trigger.Title,
		ConversationType: ConversationTypeProactive,
		Memories:         trigger.Memories,
	})
	if !res.OK() {
		logging.From(ctx).Warn("trigger composition failed",
			"kind", trigger.Kind,
			"memory_ids", trigger.MemoryIDs(),
			"status", res.Status,
			"error", res.Err)
		return
	}
	trigger.Presentation = res.Value
}

// ScanAnniversary finds classified memories that happened on this month-day in a
// past year.
func (uc *TriggerUseCase) ScanAnniversary(ctx context.Context, today model.Date) (*model.Trigger, error) {
	memories, err := uc.repo.Memory().FindByDateKeys(ctx, today.DateKeys())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find memories by date",
			goerr.V("kind", types.TriggerKindAnniversary), goerr.V("date", today))
	}

	var matched []*model.Memory
	for _, m := range memories {
		if !m.AnniversaryType.IsSet() || !inPastYear(m, today) {
			continue
		}
		matched = append(matched, m)
	}
	if len(matched) == 0 {
		return nil, nil
	}

	model.SortByScoreThenRecency(matched)
	matched = capMemories(matched, uc.cfg.AnniversaryLimit)
	first := matched[0]

	return &model.Trigger{
		Kind:        types.TriggerKindAnniversary,
		Date:        today,
		Memories:    matched,
		Title:       anniversaryTitle(first.AnniversaryType.Normalize()),
		Description: fmt.Sprintf("%s ago today", yearsPhrase(today.Year-first.HappenedAt.Year)),
	}, nil
}

// ScanOnThisDay finds worthwhile memories that happened on this month-day in a
// past year.
func (uc *TriggerUseCase) ScanOnThisDay(ctx context.Context, today model.Date) (*model.Trigger, error) {
	memories, err := uc.repo.Memory().FindByDateKeys(ctx, today.DateKeys())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find memories by date",
			goerr.V("kind", types.TriggerKindOnThisDay), goerr.V("date", today))
	}

	var matched []*model.Memory
	for _, m := range memories {
		if m.ProactiveScore < uc.cfg.OnThisDayMinScore || !inPastYear(m, today) {
			continue
		}
		matched = append(matched, m)
	}
	if len(matched) == 0 {
		return nil, nil
	}

	model.SortByScoreThenRecency(matched)
	matched = capMemories(matched, uc.cfg.OnThisDayLimit)

	minYears := today.Year - matched[0].HappenedAt.Year
	for _, m := range matched[1:] {
		if n := today.Year - m.HappenedAt.Year; n < minYears {
			minYears = n
		}
	}

	return &model.Trigger{
		Kind:        types.TriggerKindOnThisDay,
		Date:        today,
		Memories:    matched,
		Title:       fmt.Sprintf("On This Day, %s Ago", titleYears(minYears)),
		Description: "Memories from this day in past years",
	}, nil
}

// ScanSeasonal finds high scoring memories whose seasonal tags match this month
func (uc *TriggerUseCase) ScanSeasonal(ctx context.Context, today model.Date) (*model.Trigger, error) {
	season, ok := uc.cfg.Season(today.Month)
	if !ok {
		return nil, nil
	}

	memories, err := uc.repo.Memory().FindByScoreThreshold(ctx, uc.cfg.SeasonalMinScore)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find memories by score",
			goerr.V("kind", types.TriggerKindSeasonal), goerr.V("min_score", uc.cfg.SeasonalMinScore))
	}

	var matched []*model.Memory
	for _, m := range memories {
		if m.SeasonalTags == nil || !m.HasSeasonalTag(season.Keywords) {
			continue
		}
		matched = append(matched, m)
	}
	if len(matched) == 0 {
		return nil, nil
	}

	model.SortByScoreThenRecency(matched)
	matched = capMemories(matched, uc.cfg.SeasonalLimit)

	return &model.Trigger{
		Kind:        types.TriggerKindSeasonal,
		Date:        today,
		Memories:    matched,
		Title:       season.Phrase,
		Description: "Memories from this time of year",
	}, nil
}

// inPastYear reports whether m has a known date in a year before today
func inPastYear(m *model.Memory, today model.Date) bool {
	return m.HappenedAt != nil && m.HappenedAt.Year < today.Year
}

func anniversaryTitle(a types.AnniversaryType) string {
	switch a {
	case types.AnniversaryWedding:
		return "Your Wedding Anniversary"
	case types.AnniversaryGraduation:
		return "Graduation Anniversary"
	case types.AnniversaryBirthday:
		return "A Birthday to Remember"
	case types.AnniversaryWork:
		return "Work Anniversary"
	default:
		return "A Special Anniversary"
	}
}

func yearsPhrase(n int) string {
	if n == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", n)
}

func titleYears(n int) string {
	if n == 1 {
		return "1 Year"
	}
	return fmt.Sprintf("%d Years", n)
}

func capMemories(memories []*model.Memory, limit int) []*model.Memory {
	if limit > 0 && len(memories) > limit {
		return memories[:limit]
	}
	return memories
}
