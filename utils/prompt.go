package utils

import (
	"encoding/json"
	"fmt"
)

// NoTemplatePlaceholder is inserted into the prompt when a campaign has no
// template bound.
const NoTemplatePlaceholder = "No template provided"

// DefaultDraftSubject is used for drafts generated without a template.
const DefaultDraftSubject = "Subject"

// BuildGenerationPrompt assembles the completion prompt in a fixed order:
// template body, custom instructions, recipient data. The recipient map is
// rendered as JSON (keys sorted by the encoder), so the same inputs always
// produce the same prompt.
func BuildGenerationPrompt(templateBody, customPrompt string, recipientData map[string]interface{}) string {
	if templateBody == "" {
		templateBody = NoTemplatePlaceholder
	}

	recipientJSON, err := json.Marshal(recipientData)
	if err != nil {
		recipientJSON = []byte("{}")
	}

	return fmt.Sprintf(
		"Generate a professional email based on the following template and customization:\n"+
			"Template: %s\n"+
			"Custom Instructions: %s\n"+
			"Recipient Details: %s\n",
		templateBody, customPrompt, recipientJSON)
}
