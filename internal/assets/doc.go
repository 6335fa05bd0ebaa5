// Package assets holds the built-in diagram templates and the assistant's
// system instruction, and lets a user directory override either.
//
// Layout, for both the embedded tree and a custom directory:
//
//	prompts/system.txt        assistant instruction
//	templates/default.json    default template set (name → markup object)
//
// AssetResolver looks in the custom directory first and uses the embedded
// copy only when the file is absent there. Names are bare stems; symlinks
// that leave the custom directory are refused.
package assets
