// internal/workers/support/generate-answer/prompt.go
package generateanswer

import (
	"regexp"
	"strings"

	"support-agent/internal/models"
)

const groundingRules = `
Ground rules:
- Answer only from the Retrieved Information and the previous conversation.
- Never invent tracking numbers, dates, prices, order details, features or specifications.
- If the information needed is not there, say so plainly instead of guessing.
- Keep the answer short, friendly and professional.`

var systemPrompts = map[models.Intent]string{
	models.IntentOrderDetails: `You are a customer support agent for an online store, answering questions about order status, shipping and delivery.
Quote statuses, dates and tracking numbers exactly as they appear in the retrieved information.` + groundingRules,

	models.IntentProductDetails: `You are a customer support agent for an online store, answering questions about products in the catalog.
Point out the key features, use the exact prices given, and compare products when more than one is listed.` + groundingRules,

	models.IntentOrderProductDetails: `You are a customer support agent for an online store, answering questions about products the customer already bought.
Mention the purchase naturally (what was ordered and when), and compare the price paid with the current price when both are available.
Use the previous conversation to work out which product the customer means.` + groundingRules,
}

const genericPrompt = `You are a customer support agent for an online store.` + groundingRules

func systemPromptFor(intent models.Intent) string {
	if p, ok := systemPrompts[intent]; ok {
		return p
	}
	return genericPrompt
}

// buildUserPrompt lays out the trailing history window, the retrieved
// context, then the current question.
func buildUserPrompt(query, context string, history []models.ConversationTurn, window int) string {
	var b strings.Builder

	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	if len(history) > 0 {
		b.WriteString("Previous Conversation:\n")
		for _, turn := range history {
			label := "Customer"
			if turn.Role == models.RoleAssistant {
				label = "Agent"
			}
			b.WriteString(label + ": " + turn.Content + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Retrieved Information:\n")
	b.WriteString(context)
	b.WriteString("\n\nCurrent Customer Question: ")
	b.WriteString(query)
	return b.String()
}

// trackingToken matches tracking-number-shaped codes like TRACK123456 or
// UPS-1234567, in any letter case.
var trackingToken = regexp.MustCompile(`(?i)\b[A-Z]{2,}-?[0-9]{6,}\b`)

const redacted = "[not available]"

// guardFabrication replaces tracking-shaped tokens that the model could not
// have seen in the context or the question. Codes compare case-insensitively.
func guardFabrication(answer, context, query string) (string, []string) {
	context, query = strings.ToUpper(context), strings.ToUpper(query)
	var replaced []string
	out := trackingToken.ReplaceAllStringFunc(answer, func(tok string) string {
		upper := strings.ToUpper(tok)
		if strings.Contains(context, upper) || strings.Contains(query, upper) {
			return tok
		}
		replaced = append(replaced, tok)
		return redacted
	})
	return out, replaced
}
