package config

import (
	domainConfig "github.com/hearth-archive/hearth/pkg/domain/model/config"
	"github.com/hearth-archive/hearth/pkg/service/companion"
	"github.com/m-mizutani/gollem"
)

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, channelID string) *Slack {
	return &Slack{botToken: botToken, channelID: channelID}
}

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{projectID: projectID, location: location}
}

func NewProactiveForTest(path, timeZone string) *Proactive {
	return &Proactive{path: path, timeZone: timeZone}
}

func NewRepositoryForTest(backend, sqlitePath string) *Repository {
	return &Repository{backend: backend, sqlitePath: sqlitePath}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewCompanion(llmClient gollem.LLMClient, ranker *domainConfig.RankerConfig, cacheElements int64) (companion.Service, func(), error) {
	return newCompanion(llmClient, ranker, cacheElements)
}

var ParseMonth = parseMonth

func NewSentryForTest(dsn string) *Sentry {
	return &Sentry{dsn: dsn}
}
