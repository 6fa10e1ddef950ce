// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"bytes"
	"text/template"
)

// briefPromptTmpl asks for a three-bullet digest of an abstract.
var briefPromptTmpl = template.Must(template.New("brief").Parse(
	`Summarize the following abstract in 3 bullet points: {{.Text}}`))

// detailedPromptTmpl asks for an analytical digest of the paper body.
var detailedPromptTmpl = template.Must(template.New("detailed").Parse(`You are an expert research analyst. Read the following excerpt from an academic paper and write an analytical digest for a technical reader.

Structure the digest under these headings:
- Problem: what question the paper addresses and why it matters.
- Approach: the method, architecture, or technique proposed.
- Key results: the main quantitative or qualitative findings.
- Limitations: weaknesses, assumptions, or open issues the paper leaves.
- Significance: how the work relates to agentic and language-model research.

Base the digest only on the text provided. If the excerpt ends mid-section, summarize what is present.

PAPER TEXT:
{{.Text}}
`))

// renderPrompt executes tmpl with text.
func renderPrompt(tmpl *template.Template, text string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Text string }{Text: text}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
