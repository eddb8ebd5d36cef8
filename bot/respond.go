package bot

import (
	"github.com/Snaptraks/FateBot/constants"
	apperrors "github.com/Snaptraks/FateBot/errors"
	"github.com/Snaptraks/FateBot/utils"
)

// sendInfo, sendSuccess and sendError are the reply helpers for command
// responses. Send failures are logged, never propagated; a reply that
// cannot be delivered has nowhere else to go.
func (ch *CommandHandler) sendInfo(channelID, text string) {
	if _, err := ch.deps.Gateway.SendMessage(channelID, constants.EmojiInfo+" "+text); err != nil {
		utils.Error("Failed to send info response: %v", err)
	}
}

func (ch *CommandHandler) sendSuccess(channelID, text string) {
	if _, err := ch.deps.Gateway.SendMessage(channelID, constants.EmojiSuccess+" "+text); err != nil {
		utils.Error("Failed to send success response: %v", err)
	}
}

func (ch *CommandHandler) sendPlain(channelID, text string) {
	if _, err := ch.deps.Gateway.SendMessage(channelID, text); err != nil {
		utils.Error("Failed to send response: %v", err)
	}
}

// respondError logs err and sends its user-facing message. Unstructured
// errors get a generic reply; the detail stays in the logs.
func (ch *CommandHandler) respondError(channelID string, err error) {
	utils.Error("Command failed: %v", err)

	text := "Something went wrong. Please try again."
	if appErr, ok := apperrors.AsAppError(err); ok {
		text = appErr.GetUserMessage()
	}
	if _, sendErr := ch.deps.Gateway.SendMessage(channelID, constants.EmojiError+" "+text); sendErr != nil {
		utils.Error("Failed to send error response: %v", sendErr)
	}
}
