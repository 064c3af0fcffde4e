package models

const (
	// ChunkLabelFormat labels each context chunk with its 1-based position
	// so generated answers can cite back into the source list.
	ChunkLabelFormat = "[Chunk %d]: %s"

	// ContextJoiner separates labeled chunks inside a context block.
	ContextJoiner = "\n\n"

	// SourcePreviewRunes caps the chunk text echoed back in Answer.Sources.
	SourcePreviewRunes = 200

	// NoContextAnswer is returned when retrieval finds nothing relevant.
	NoContextAnswer = "I couldn't find any relevant information in the document to answer your question."

	// LowConfidenceAnswerFormat is returned when the best hit stays below
	// the similarity threshold. The verb takes the top similarity score.
	LowConfidenceAnswerFormat = "I found some information but it doesn't seem very relevant to your question (confidence: %.2f). Please try rephrasing your question."

	// DegradedAnswer stands in for generated text when the generation
	// backend kept failing but retrieval succeeded.
	DegradedAnswer = "Answer generation is currently unavailable. The most relevant passages are listed as sources."
)

var (
	// AnswerPromptTemplate is the grounding prompt handed to the
	// generation backend: first the context block, then the question.
	AnswerPromptTemplate = `You are a helpful assistant answering questions based on the provided document context.

Context from the document:
%s

User Question: %s

Instructions:
- Answer the question using ONLY the information from the provided context
- If the context doesn't contain enough information to fully answer the question, say so
- Be concise and specific
- If you're making inferences, clearly indicate that
- Do not make up information that's not in the context

Answer:`
)
