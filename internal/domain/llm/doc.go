// Package llm models LLM conversation tracking: conversations as aggregate
// roots with a gapless message sequence and token accounting, and their
// messages as child entities. Provider invocation itself lives outside this
// package; only the bookkeeping of what happened is modelled here.
package llm
