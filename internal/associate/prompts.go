package associate

import "fmt"

// SystemPrompt frames every collaborator call.
const SystemPrompt = "You help people build memory palaces. Answer with plain text only, no preamble."

func bulletPrompt(topic string) string {
	return fmt.Sprintf("Provide important bullet points about %s:", topic)
}

func imageryPrompt(item, info string) string {
	return fmt.Sprintf("Using the memory palace method, create a simple mental imagery to associate the phrase '%s' with the item '%s': "+
		"Make the associations interesting, obvious and in one sentence.", info, item)
}
