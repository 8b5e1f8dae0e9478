package usecase

import (
	"context"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/interfaces"
	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/model/config"
	"github.com/hearth-archive/hearth/pkg/service/companion"
	"github.com/hearth-archive/hearth/pkg/service/realtime"
)

// Notifier tells caregivers out of band that a trigger is waiting for a patient device
type Notifier interface {
	NotifyQueued(ctx context.Context, trigger *model.Trigger, record *model.DeliveryRecord) error
}

// Clock returns the current instant
type Clock func() time.Time

type UseCases struct {
	repo            interfaces.Repository
	companion       companion.Service
	notifier        Notifier
	hub             *realtime.Hub
	proactiveConfig *config.ProactiveConfig
	rankerConfig    *config.RankerConfig
	clock           Clock

	Trigger   *TriggerUseCase
	Ranker    *RankerUseCase
	Delivery  *DeliveryUseCase
	Proactive *ProactiveUseCase
	Chat      *ChatUseCase
}

type Option func(*UseCases)

// WithCompanion sets the AI service. Without it every AI call degrades.
func WithCompanion(svc companion.Service) Option {
	return func(uc *UseCases) {
		uc.companion = svc
	}
}

// WithNotifier sets the out-of-band caregiver notifier
func WithNotifier(n Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = n
	}
}

// WithHub sets the realtime hub shared with the websocket controller
func WithHub(hub *realtime.Hub) Option {
	return func(uc *UseCases) {
		uc.hub = hub
	}
}

func WithProactiveConfig(cfg *config.ProactiveConfig) Option {
	return func(uc *UseCases) {
		uc.proactiveConfig = cfg
	}
}

func WithRankerConfig(cfg *config.RankerConfig) Option {
	return func(uc *UseCases) {
		uc.rankerConfig = cfg
	}
}

// WithClock replaces time.Now
func WithClock(clock Clock) Option {
	return func(uc *UseCases) {
		uc.clock = clock
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:  repo,
		clock: time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.companion == nil {
		uc.companion = companion.Disabled{}
	}
	if uc.proactiveConfig == nil {
		uc.proactiveConfig = config.DefaultProactiveConfig()
	}
	if uc.rankerConfig == nil {
		uc.rankerConfig = config.DefaultRankerConfig()
	}
	if uc.hub == nil {
		uc.hub = realtime.NewHub(realtime.WithClock(uc.clock))
	}

	uc.Trigger = NewTriggerUseCase(repo, uc.companion, uc.proactiveConfig, uc.clock)
	uc.Ranker = NewRankerUseCase(repo, uc.companion, uc.rankerConfig)
	uc.Delivery = NewDeliveryUseCase(repo, uc.hub, uc.notifier, uc.proactiveConfig, uc.clock)
	uc.Proactive = NewProactiveUseCase(uc.Trigger, uc.Delivery)
	uc.Chat = NewChatUseCase(uc.Ranker, uc.companion, uc.rankerConfig)

	return uc
}

// Hub returns the realtime hub used for delivery
func (uc *UseCases) Hub() *realtime.Hub {
	return uc.hub
}
