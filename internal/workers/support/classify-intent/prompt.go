// internal/workers/support/classify-intent/prompt.go
package classifyintent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"support-agent/internal/common/validation"
	"support-agent/internal/models"
)

const systemPrompt = `You are the intent classifier for an e-commerce customer support assistant.

Classify the customer's message into exactly ONE intent:

ORDER_DETAILS: orders, shipping, delivery status or tracking.
  Examples: "Where is my order?", "Track order TRACK123456", "When will my package arrive?", "Show me my recent orders"
PRODUCT_DETAILS: products in the catalog, their features, prices, availability or comparisons.
  Examples: "Tell me about Samsung Galaxy S23", "Do you have wireless headphones?", "Show me phones under $1000"
ORDER_PRODUCT_DETAILS: a product the customer has already bought.
  Examples: "What's the current price of the phone I bought?", "Does the laptop I purchased support fast charging?", "Tell me about the headphones I ordered last month"

Rules:
- Use ORDER_PRODUCT_DETAILS only when the message refers to a past purchase ("I bought", "I ordered", "my recent purchase").
- A product question without a past-purchase reference is PRODUCT_DETAILS.
- An order or delivery question that does not ask about product features or prices is ORDER_DETAILS.

Extract these entities when the message contains them, and omit the rest:
- tracking_number: a tracking code such as TRACK123456
- product_name: a product the customer names
- time_reference: a time phrase such as "last month" or "recently"

Reply with one JSON object and nothing else:
{"intent": "<INTENT>", "reasoning": "<one short sentence>", "entities": {"tracking_number": "...", "product_name": "...", "time_reference": "..."}}`

var outputSchema = validation.MustCompile(fmt.Sprintf(`{
  "type": "object",
  "required": ["intent"],
  "properties": {
    "intent": {"type": "string", "enum": %s},
    "reasoning": {"type": "string"},
    "entities": {
      "type": ["object", "null"],
      "additionalProperties": {"type": ["string", "null"]}
    }
  }
}`, intentEnum()))

func intentEnum() string {
	labels, err := json.Marshal(models.Intents)
	if err != nil {
		panic(err)
	}
	return string(labels)
}

var errNoJSONObject = errors.New("no JSON object in model output")

func buildUserPrompt(query string) string {
	return "Customer message: " + query
}

// parseClassification decodes model output into a Classification. The output
// is treated as untrusted data: only a schema-valid JSON object is accepted.
func parseClassification(raw string) (models.Classification, error) {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return models.Classification{}, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		return models.Classification{}, fmt.Errorf("decode model output: %w", err)
	}
	if s, ok := doc["intent"].(string); ok {
		doc["intent"] = strings.ToUpper(strings.TrimSpace(s))
	}

	if result := outputSchema.ValidateValue(doc); !result.Valid {
		return models.Classification{}, fmt.Errorf("model output rejected: %s", result.Summary())
	}

	intent, _ := models.ParseIntent(doc["intent"].(string))
	reasoning, _ := doc["reasoning"].(string)

	entities := models.EntityBag{}
	if raw, ok := doc["entities"].(map[string]interface{}); ok {
		for k, v := range raw {
			s, _ := v.(string)
			if s = strings.TrimSpace(s); s != "" {
				entities[k] = s
			}
		}
	}

	return models.Classification{
		Intent:    intent,
		Reasoning: strings.TrimSpace(reasoning),
		Entities:  entities,
	}, nil
}

// extractJSONObject returns the first balanced {...} in s, ignoring braces
// inside JSON strings and any surrounding code fences or prose.
func extractJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", errNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", errNoJSONObject
}
