// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package prompt

// Built-in prompt templates, keyed by Kind. Each template receives
// .Instruction (the caller's request) and .Items (pre-rendered item lines).

const selectTemplate = `You are ranking tuples by how well they satisfy a request.

Each tuple below is prefixed with a numeric identifier in square brackets.

Tuples:
{{.Items}}
Request: {{.Instruction}}

Pick the single tuple that is the {{.Relevance}} relevant to the request.
Respond with a JSON object holding only its identifier, for example {"selected": 0}.
Do not add any other text.
`

const reduceTemplate = `You are combining tuples into a single answer for a request.

Each entry below is prefixed with a numeric identifier in square brackets.
An entry may be a raw tuple or the answer you produced for earlier tuples.

Tuples:
{{.Items}}
Request: {{.Instruction}}

Merge every entry into one answer to the request.
Respond with a JSON object of the form {"output": <answer>}.
Do not add any other text.
`

const rerankTemplate = `You are ordering tuples by how well they satisfy a request.

Each tuple below is prefixed with a numeric identifier in square brackets.

Tuples:
{{.Items}}
Request: {{.Instruction}}

Order all tuples from most to least relevant to the request.
Respond with a JSON object of the form {"ranking": [id, id, ...]} that lists
every identifier exactly once, most relevant first.
Do not add any other text.
`

const completeTemplate = `You are answering a request for each tuple independently.

Each tuple below is prefixed with a numeric identifier in square brackets.

Tuples:
{{.Items}}
Request: {{.Instruction}}

Respond with a JSON object of the form {"tuples": [answer, answer, ...]} that
holds exactly one answer per tuple, in identifier order.
Do not add any other text.
`

const filterTemplate = `You are deciding, for each tuple independently, whether it satisfies a request.

Each tuple below is prefixed with a numeric identifier in square brackets.

Tuples:
{{.Items}}
Request: {{.Instruction}}

Respond with a JSON object of the form {"tuples": [true, false, ...]} that
holds exactly one boolean per tuple, in identifier order.
Do not add any other text.
`
