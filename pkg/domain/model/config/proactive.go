package config

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Season maps a calendar month to the tag keywords that count as seasonal for it
type Season struct {
	Keywords []string `toml:"keywords"`
	Phrase   string   `toml:"phrase"`
}

// ProactiveConfig holds the tunables of trigger detection and delivery bookkeeping.
type ProactiveConfig struct {
	// Interval between scheduled detection cycles
	Interval time.Duration

	// TimeZone determines what "today" is
	TimeZone *time.Location

	OnThisDayMinScore float64
	SeasonalMinScore  float64

	AnniversaryLimit int
	OnThisDayLimit   int
	SeasonalLimit    int

	// LedgerRetention is how long delivery records are kept
	LedgerRetention time.Duration
	// QueueRetention is how long an offline queue entry waits for a client
	QueueRetention time.Duration

	// Seasons is indexed by month
	Seasons map[time.Month]Season
}

// DefaultProactiveConfig returns the hand-tuned defaults.
func DefaultProactiveConfig() *ProactiveConfig {
	return &ProactiveConfig{
		Interval:          15 * time.Minute,
		TimeZone:          time.UTC,
		OnThisDayMinScore: 1,
		SeasonalMinScore:  2,
		AnniversaryLimit:  3,
		OnThisDayLimit:    5,
		SeasonalLimit:     3,
		LedgerRetention:   30 * 24 * time.Hour,
		QueueRetention:    24 * time.Hour,
		Seasons:           DefaultSeasons(),
	}
}

// DefaultSeasons returns the built-in month to keyword table
func DefaultSeasons() map[time.Month]Season {
	return map[time.Month]Season{
		time.January:   {Keywords: []string{"winter", "snow", "new year", "skiing"}, Phrase: "Winter Memories"},
		time.February:  {Keywords: []string{"winter", "snow", "valentine", "love"}, Phrase: "Winter Memories"},
		time.March:     {Keywords: []string{"spring", "flowers", "easter", "garden"}, Phrase: "Spring Memories"},
		time.April:     {Keywords: []string{"spring", "flowers", "easter", "rain"}, Phrase: "Spring Memories"},
		time.May:       {Keywords: []string{"spring", "garden", "mother", "flowers"}, Phrase: "Spring Memories"},
		time.June:      {Keywords: []string{"summer", "beach", "graduation", "father"}, Phrase: "Summer Memories"},
		time.July:      {Keywords: []string{"summer", "beach", "fireworks", "vacation"}, Phrase: "Summer Memories"},
		time.August:    {Keywords: []string{"summer", "beach", "vacation", "picnic"}, Phrase: "Summer Memories"},
		time.September: {Keywords: []string{"fall", "school", "harvest", "leaves"}, Phrase: "Autumn Memories"},
		time.October:   {Keywords: []string{"fall", "halloween", "costume", "spooky"}, Phrase: "Autumn Memories"},
		time.November:  {Keywords: []string{"fall", "thanksgiving", "harvest", "family"}, Phrase: "Autumn Memories"},
		time.December:  {Keywords: []string{"winter", "christmas", "holiday", "snow"}, Phrase: "Holiday Memories"},
	}
}

// Season returns the configured season for month. ok is false when the month has no keywords.
func (c *ProactiveConfig) Season(month time.Month) (Season, bool) {
	s, ok := c.Seasons[month]
	if !ok || len(s.Keywords) == 0 {
		return Season{}, false
	}
	return s, true
}

// Validate checks the configuration
func (c *ProactiveConfig) Validate() error {
	if c.Interval <= 0 {
		return goerr.New("interval must be positive", goerr.V("interval", c.Interval))
	}
	if c.TimeZone == nil {
		return goerr.New("time zone is required")
	}
	if c.OnThisDayMinScore < 0 || c.SeasonalMinScore < 0 {
		return goerr.New("score thresholds must not be negative",
			goerr.V("on_this_day", c.OnThisDayMinScore),
			goerr.V("seasonal", c.SeasonalMinScore))
	}
	for name, limit := range map[string]int{
		"anniversary": c.AnniversaryLimit,
		"on_this_day": c.OnThisDayLimit,
		"seasonal":    c.SeasonalLimit,
	} {
		if limit <= 0 {
			return goerr.New("limit must be positive", goerr.V("kind", name), goerr.V("limit", limit))
		}
	}
	if c.LedgerRetention <= 0 || c.QueueRetention <= 0 {
		return goerr.New("retention must be positive",
			goerr.V("ledger", c.LedgerRetention),
			goerr.V("queue", c.QueueRetention))
	}
	for month, s := range c.Seasons {
		if month < time.January || month > time.December {
			return goerr.New("invalid season month", goerr.V("month", int(month)))
		}
		for _, kw := range s.Keywords {
			if strings.TrimSpace(kw) == "" {
				return goerr.New("empty season keyword", goerr.V("month", int(month)))
			}
		}
		if len(s.Keywords) > 0 && s.Phrase == "" {
			return goerr.New("season phrase is required", goerr.V("month", int(month)))
		}
	}
	return nil
}
