// Package layout defines the typed document schema read from work item
// sources and the result records written back.
//
// Sources are JSON Lines: one document per line, each with a path and a list
// of pages carrying detected layout regions. Only the fields the pipeline
// needs are typed; every other document or page field is kept verbatim in
// Extra and re-emitted in the result line, and each region keeps its complete
// raw JSON so that it can be handed to inference untouched.
package layout
