package rag

// Templates are data, not code: the prompt shape is a lookup by query
// type, kept here so tuning wording never touches pipeline.go.

const instructionBlock = "Cite documents by number using [Document N] when you use them, prefer the retrieved context over prior knowledge, and say so plainly when the context is insufficient to answer."

var systemBlocks = map[string]string{
	"default":       "You are a careful personal knowledge assistant. Answer the user's question using the retrieved context below.",
	"analytical":    "You are an analytical assistant. Identify patterns, trends, or frequencies across the retrieved context and explain your reasoning before concluding.",
	"conversational": "You are a friendly personal assistant with memory of the user's messages, calendar, and music. Answer conversationally, referencing specific retrieved items.",
	"no_context":    "You are a careful personal knowledge assistant. No relevant context was found for this question.",
}

// queryTypeTemplates names the system block used for each query.Processed
// QueryType; any query type not listed here uses "default".
var queryTypeTemplates = map[string]string{
	"pattern":       "analytical",
	"memory_recall": "conversational",
}

func systemBlockFor(queryType string) string {
	if name, ok := queryTypeTemplates[queryType]; ok {
		queryType = name
	}
	if b, ok := systemBlocks[queryType]; ok {
		return b
	}
	return systemBlocks["default"]
}
