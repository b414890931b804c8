package summarize

// System instructions, one per task. The list and title prompts are terse
// and rule-heavy because small local models otherwise answer with code.
const (
	summaryPrompt = "You are a professional meeting notes assistant. " +
		"Generate a clear, concise summary of the meeting transcript. " +
		"Focus on decisions made, topics discussed, and overall outcomes. " +
		"Write in a professional tone using past tense."

	keyPointsPrompt = "OUTPUT FORMAT: JSON array only. Example: [\"Point 1\", \"Point 2\"]\n" +
		"RULES: No code. No explanation. No markdown. No imports. No variables.\n" +
		"TASK: Extract the most important key points from the meeting transcript below."

	actionItemsPrompt = "OUTPUT FORMAT: JSON array only. Example: [\"Action 1\", \"Action 2\"]\n" +
		"RULES: No code. No explanation. No markdown. No imports. No variables.\n" +
		"TASK: Extract all action items and follow-ups from the meeting transcript below."

	titlePrompt = "OUTPUT FORMAT: Plain text title only, max 10 words.\n" +
		"RULES: No code. No explanation. No markdown. No quotes.\n" +
		"TASK: Generate a short descriptive title for the meeting transcript below."

	answerPrompt = "You are a professional meeting notes assistant. " +
		"Answer the user's question based ONLY on the meeting transcript provided. " +
		"If the answer is not in the transcript, say so clearly."
)

// transcriptPrefix starts every user message.
const transcriptPrefix = "Meeting transcript:\n\n"

func transcriptMessage(transcript string) string {
	return transcriptPrefix + transcript
}

func questionMessage(transcript, question string) string {
	return transcriptPrefix + transcript + "\n\nQuestion: " + question
}
