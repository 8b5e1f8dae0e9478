package slack

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

// maxSectionBytes is the Slack limit for a section text object
const maxSectionBytes = 3000

// Notifier tells caregivers that a trigger is waiting for a patient device
type Notifier struct {
	svc       Service
	channelID string
}

// NewNotifier creates a notifier posting to channelID
func NewNotifier(svc Service, channelID string) *Notifier {
	return &Notifier{svc: svc, channelID: channelID}
}

// NotifyQueued posts a short message about a trigger that was queued
func (n *Notifier) NotifyQueued(ctx context.Context, trigger *model.Trigger, record *model.DeliveryRecord) error {
	if n == nil || n.svc == nil || n.channelID == "" {
		return nil
	}

	blocks := buildQueuedBlocks(trigger, record)
	text := fmt.Sprintf("Memory waiting for the patient device: %s", trigger.Title)

	if _, err := n.svc.PostMessage(ctx, n.channelID, blocks, text); err != nil {
		return goerr.Wrap(err, "failed to notify caregivers",
			goerr.V("delivery_id", record.ID),
			goerr.V("trigger", trigger.Key().String()))
	}
	return nil
}

func buildQueuedBlocks(trigger *model.Trigger, record *model.DeliveryRecord) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, ":hourglass: "+trigger.Title, true, false),
		),
	}

	body := trigger.Description
	if len(trigger.Memories) > 0 {
		titles := make([]string, 0, len(trigger.Memories))
		for _, m := range trigger.Memories {
			titles = append(titles, "• "+m.Title)
		}
		if body != "" {
			body += "\n"
		}
		body += strings.Join(titles, "\n")
	}
	if body != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, truncateToMaxBytes(body, maxSectionBytes), false, false),
			nil, nil,
		))
	}

	contextText := strings.Join([]string{
		fmt.Sprintf("Kind: %s", trigger.Kind),
		fmt.Sprintf("Date: %s", trigger.Date),
		fmt.Sprintf("Delivery: `%s`", record.ID),
		"No patient device is connected",
	}, "  |  ")
	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, contextText, false, false),
	))

	return blocks
}

// truncateToMaxBytes cuts s to at most max bytes without splitting a UTF-8 rune
func truncateToMaxBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
