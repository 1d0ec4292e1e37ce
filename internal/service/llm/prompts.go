package llm

import (
	"fmt"
	"strings"

	reviewModels "lexcorpus/internal/domain/models/review"
)

const extractionSystemPrompt = `You extract one field from a legal document.
Answer with a single JSON object and nothing else:
{"value": <the field>, "confidence": <0..1>, "source_excerpt": "<short verbatim quote supporting the value>"}
Use null for value when the document does not contain the field, with confidence 0.
Never invent content that is not in the document.`

const querySystemPrompt = `You answer questions about a review table extracted from legal documents.
Use only the rows given. Rows are labelled [R1], [R2], ... and list their cells as "column: value".
Answer with a single JSON object and nothing else:
{"answer": "<answer in the language of the question>", "citations": [{"row": "R1", "column": "<column name>"}]}
Cite every row you relied on; omit column when the whole row supports the answer.
If the rows do not answer the question, say so and return no citations.`

var typeHints = map[reviewModels.ColumnType]string{
	reviewModels.ColumnText:    "a short text",
	reviewModels.ColumnDate:    "a date formatted YYYY-MM-DD",
	reviewModels.ColumnNumber:  "a number without currency symbols or thousands separators",
	reviewModels.ColumnBoolean: "true or false",
	reviewModels.ColumnList:    "a JSON array of strings",
}

func buildExtractionPrompt(documentName, text string, column reviewModels.ColumnDef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Field: %s\n", column.Name)
	fmt.Fprintf(&b, "Expected value: %s\n", typeHints[column.Type])
	fmt.Fprintf(&b, "Instruction: %s\n\n", column.ExtractionPrompt)
	fmt.Fprintf(&b, "<document name=%q>\n%s\n</document>", documentName, text)
	return b.String()
}

func buildQuestionPrompt(tableContext, question string) string {
	return tableContext + "\nQuestion: " + question
}
