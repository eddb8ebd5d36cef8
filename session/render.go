package session

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Snaptraks/FateBot/catalog"
	"github.com/Snaptraks/FateBot/constants"
	"github.com/Snaptraks/FateBot/models"
)

// BuildEmbed renders the roster embed for an event. The render is a pure
// function of the event row, the template and the participant list, so
// re-rendering the same state always produces the same embed.
func BuildEmbed(event *models.Event, tpl *catalog.Template, participants []models.Participant, mention func(string) string) *discordgo.MessageEmbed {
	byRole := make(map[string][]string)
	for _, p := range participants {
		byRole[p.Role] = append(byRole[p.Role], mention(p.UserID))
	}

	embed := &discordgo.MessageEmbed{
		Title:       tpl.Title,
		Description: tpl.Description,
		URL:         tpl.URL,
		Color:       constants.EmbedColor,
		Timestamp:   event.TriggerAt.Format("2006-01-02T15:04:05Z07:00"),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Event ID %d | Happening on", event.ID),
		},
	}
	if tpl.Image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: tpl.Image}
	}

	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  fmt.Sprintf("%s Leader", constants.Buttons[models.RoleLeader]),
		Value: roleValue(byRole[models.RoleLeader]),
	})

	for _, slot := range tpl.Roles {
		// Capacity 0 slots are not offered for this event.
		if slot.Capacity == 0 {
			continue
		}
		holders := byRole[slot.Key]
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%s %s %d/%d",
				constants.Buttons[slot.Key], slot.Name, len(holders), slot.Capacity),
			Value: roleValue(holders),
		})
	}

	fills := byRole[models.RoleFill]
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  fmt.Sprintf("%s Fill %d", constants.Buttons[models.RoleFill], len(fills)),
		Value: roleValue(fills),
	})

	if tpl.Guides != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Guides",
			Value: tpl.Guides,
		})
	}
	if tpl.Requirements != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Requirements",
			Value: tpl.Requirements,
		})
	}

	return embed
}

func roleValue(mentions []string) string {
	if len(mentions) == 0 {
		return constants.MsgNobodyYet
	}
	return strings.Join(mentions, "\n")
}
