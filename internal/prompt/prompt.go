// Package prompt composes the text handed to the model on stdin
package prompt

import "fmt"

const (
	instruction = "Extract the following fields from the provided HTML content: %s. "
	directive   = "Respond strictly with a valid JSON object containing the extracted fields and their values. " +
		"Do not include explanations, tables, or any other text. Only return the JSON object in this format: "
	example = `{"Pillows": ["Pillow 1", "Pillow 2"], "Prices": ["Price 1", "Price 2"]}.`
)

// Build returns the extraction instructions followed by a newline and the
// HTML, untouched.
func Build(fieldSpec, html string) string {
	return fmt.Sprintf(instruction, fieldSpec) + directive + example + "\n" + html
}
