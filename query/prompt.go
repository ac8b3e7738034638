package query

// DefaultTemplate renders the user's question followed by the retrieved context.
// It expects the variables "question" and "context".
const DefaultTemplate = `{{.question}}

Context information is below, surrounded by ---------------------

---------------------
{{.context}}
---------------------

Given the context and provided history information and not prior knowledge,
reply to the user comment. If the answer is not in the context, inform
the user that you can't answer the question.
`

// DefaultSystemPrompt is sent ahead of the augmented prompt.
const DefaultSystemPrompt = "You are a helpful assistant that answers questions using the supplied document context."
