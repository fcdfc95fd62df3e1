// Package inference is the HTTP client for the recognition service.
//
// POST /infer takes {"units":[{"doc","page","region","payload"}]} and answers
// {"results":[{"doc","page","region","value"}]}; GET /health answers 2xx when
// the model is loaded. Client satisfies both batching.Inferencer and
// batching.Preparer: Prepare encodes one unit to its wire form ahead of time
// so the request body for a batch is a plain concatenation.
package inference
