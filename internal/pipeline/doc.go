// Package pipeline post-processes assistant replies into diagram markup.
//
// Chat models frequently wrap the requested markup in Markdown code fences
// or surround it with a sentence of prose. The extractor parses the reply as
// Markdown with goldmark and returns the fenced diagram block, falling back
// to the raw @start...@end span and finally the trimmed reply.
package pipeline
