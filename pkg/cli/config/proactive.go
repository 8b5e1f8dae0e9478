package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	domainConfig "github.com/hearth-archive/hearth/pkg/domain/model/config"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Proactive holds the path of the tuning file for detection, ranking and
// delivery bookkeeping. Without a file the built-in defaults apply.
type Proactive struct {
	path     string
	timeZone string
}

func (x *Proactive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "proactive-config",
			Usage:       "TOML file overriding proactive thresholds, caps, retention and seasons",
			Category:    "Proactive",
			Sources:     cli.EnvVars("HEARTH_PROACTIVE_CONFIG"),
			Destination: &x.path,
		},
		&cli.StringFlag{
			Name:        "time-zone",
			Usage:       "IANA time zone that decides the current calendar day (overrides the file)",
			Category:    "Proactive",
			Sources:     cli.EnvVars("HEARTH_TIME_ZONE"),
			Destination: &x.timeZone,
		},
	}
}

func (x Proactive) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", x.path),
		slog.String("time_zone", x.timeZone),
	)
}

// proactiveFile is the TOML layout. Absent keys keep the defaults.
type proactiveFile struct {
	Interval          string   `toml:"interval"`
	TimeZone          string   `toml:"time_zone"`
	OnThisDayMinScore *float64 `toml:"on_this_day_min_score"`
	SeasonalMinScore  *float64 `toml:"seasonal_min_score"`
	AnniversaryLimit  *int     `toml:"anniversary_limit"`
	OnThisDayLimit    *int     `toml:"on_this_day_limit"`
	SeasonalLimit     *int     `toml:"seasonal_limit"`
	LedgerRetention   string   `toml:"ledger_retention"`
	QueueRetention    string   `toml:"queue_retention"`

	Ranker  rankerFile                     `toml:"ranker"`
	Seasons map[string]domainConfig.Season `toml:"seasons"`
}

type rankerFile struct {
	SimilarityThreshold *float64 `toml:"similarity_threshold"`
	TopN                *int     `toml:"top_n"`
	EmbedTimeout        string   `toml:"embed_timeout"`
	ScanTimeout         string   `toml:"scan_timeout"`
	ChatTimeout         string   `toml:"chat_timeout"`
}

// Configure loads and validates the proactive and ranker configuration
func (x *Proactive) Configure() (*domainConfig.ProactiveConfig, *domainConfig.RankerConfig, error) {
	proactive := domainConfig.DefaultProactiveConfig()
	ranker := domainConfig.DefaultRankerConfig()

	if x.path != "" {
		// #nosec G304 - path is expected to be provided by CLI argument
		data, err := os.ReadFile(x.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil, goerr.Wrap(ErrConfigNotFound, "proactive config not found", goerr.V(ConfigPathKey, x.path))
			}
			return nil, nil, goerr.Wrap(err, "failed to read proactive config", goerr.V(ConfigPathKey, x.path))
		}
		if err := applyProactiveTOML(data, proactive, ranker); err != nil {
			return nil, nil, goerr.Wrap(err, "failed to load proactive config", goerr.V(ConfigPathKey, x.path))
		}
	}

	if x.timeZone != "" {
		loc, err := time.LoadLocation(x.timeZone)
		if err != nil {
			return nil, nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid time zone", goerr.V("time_zone", x.timeZone))
		}
		proactive.TimeZone = loc
	}

	if err := proactive.Validate(); err != nil {
		return nil, nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid proactive config")
	}
	if err := ranker.Validate(); err != nil {
		return nil, nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid ranker config")
	}
	return proactive, ranker, nil
}

func applyProactiveTOML(data []byte, proactive *domainConfig.ProactiveConfig, ranker *domainConfig.RankerConfig) error {
	var file proactiveFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return goerr.Wrap(errors.Join(ErrInvalidConfig, err), "failed to parse TOML")
	}

	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"interval", file.Interval, &proactive.Interval},
		{"ledger_retention", file.LedgerRetention, &proactive.LedgerRetention},
		{"queue_retention", file.QueueRetention, &proactive.QueueRetention},
		{"ranker.embed_timeout", file.Ranker.EmbedTimeout, &ranker.EmbedTimeout},
		{"ranker.scan_timeout", file.Ranker.ScanTimeout, &ranker.ScanTimeout},
		{"ranker.chat_timeout", file.Ranker.ChatTimeout, &ranker.ChatTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid duration", goerr.V("key", d.key), goerr.V("value", d.value))
		}
		*d.dst = v
	}

	if file.TimeZone != "" {
		loc, err := time.LoadLocation(file.TimeZone)
		if err != nil {
			return goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid time zone", goerr.V("time_zone", file.TimeZone))
		}
		proactive.TimeZone = loc
	}

	setFloat(&proactive.OnThisDayMinScore, file.OnThisDayMinScore)
	setFloat(&proactive.SeasonalMinScore, file.SeasonalMinScore)
	setInt(&proactive.AnniversaryLimit, file.AnniversaryLimit)
	setInt(&proactive.OnThisDayLimit, file.OnThisDayLimit)
	setInt(&proactive.SeasonalLimit, file.SeasonalLimit)
	setFloat(&ranker.SimilarityThreshold, file.Ranker.SimilarityThreshold)
	setInt(&ranker.TopN, file.Ranker.TopN)

	// listed months replace the built-in entry; an empty keyword list disables the month
	for name, season := range file.Seasons {
		month, err := parseMonth(name)
		if err != nil {
			return err
		}
		proactive.Seasons[month] = season
	}

	return nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// parseMonth accepts an English month name or its number
func parseMonth(s string) (time.Month, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(key); err == nil {
		if n >= 1 && n <= 12 {
			return time.Month(n), nil
		}
	} else {
		for m := time.January; m <= time.December; m++ {
			name := strings.ToLower(m.String())
			if key == name || key == name[:3] {
				return m, nil
			}
		}
	}
	return 0, goerr.Wrap(ErrInvalidConfig, "unknown season month", goerr.V("month", s))
}
