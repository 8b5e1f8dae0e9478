package companion

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/gollem"
)

func buildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a gentle companion helping a person with memory loss revisit their own memories.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Use only the memories listed in the request. Never invent people, places or events.\n")
	sb.WriteString("2. Choose response_type \"cinematic_show\" when several memories can be shown one after another, otherwise \"narrative\".\n")
	sb.WriteString("3. For cinematic_show, return one scene per memory with its memory_id and a short, warm caption.\n")
	sb.WriteString("4. Keep sentences short and simple. Address the person directly.\n")

	return sb.String()
}

func buildUserPrompt(input ChatInput) string {
	var sb strings.Builder

	if input.ConversationType != "" {
		fmt.Fprintf(&sb, "Conversation type: %s\n", input.ConversationType)
	}
	if input.PatientContext != "" {
		fmt.Fprintf(&sb, "About the person: %s\n", input.PatientContext)
	}
	if input.Query != "" {
		fmt.Fprintf(&sb, "Request: %s\n", input.Query)
	}

	sb.WriteString("\n## Memories:\n\n")
	for _, m := range input.Memories {
		fmt.Fprintf(&sb, "### Memory ID: %s\n", m.ID)
		if m.Title != "" {
			fmt.Fprintf(&sb, "**Title:** %s\n", m.Title)
		}
		if m.HappenedAt != nil {
			fmt.Fprintf(&sb, "**When:** %s\n", m.HappenedAt.String())
		}
		if m.Where != "" {
			fmt.Fprintf(&sb, "**Where:** %s\n", m.Where)
		}
		if len(m.People) > 0 {
			names := make([]string, 0, len(m.People))
			for _, p := range m.People {
				if p.Relationship != "" {
					names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.Relationship))
				} else {
					names = append(names, p.Name)
				}
			}
			fmt.Fprintf(&sb, "**People:** %s\n", strings.Join(names, ", "))
		}
		if m.Description != "" {
			fmt.Fprintf(&sb, "**Description:** %s\n", m.Description)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func buildResponseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "PresentationResponse",
		Description: "How to present the given memories",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"response_type": {
				Type:        gollem.TypeString,
				Description: "Either \"narrative\" or \"cinematic_show\"",
				Required:    true,
			},
			"title": {
				Type:        gollem.TypeString,
				Description: "A short title for the presentation",
				Required:    true,
			},
			"narrative": {
				Type:        gollem.TypeString,
				Description: "The story told to the person",
				Required:    true,
			},
			"scenes": {
				Type:        gollem.TypeArray,
				Description: "Ordered scenes of a cinematic show",
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"memory_id": {
							Type:        gollem.TypeString,
							Description: "ID of the memory shown in this scene",
							Required:    true,
						},
						"caption": {
							Type:        gollem.TypeString,
							Description: "Caption for the scene",
							Required:    true,
						},
					},
				},
			},
		},
	}
}
