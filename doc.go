// Package umledit edits, renders and drafts PlantUML diagrams.
//
// # Quick Start
//
// Render markup with a renderer pointed at a PlantUML jar:
//
//	r := umledit.NewRenderer(umledit.WithJar("/opt/plantuml/plantuml.jar"))
//
//	path, err := r.Render(ctx, "@startuml\nA -> B\n@enduml", umledit.FormatPNG)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("rendered to", path)
//
// Render keeps the markup source next to the artifact in the work directory.
// Export removes it and returns only the artifact path. FormatTXT never
// starts a process: the markup itself is written as the artifact.
//
// # Components
//
//   - TemplateStore: named starter diagrams kept in display order and
//     persisted to a JSON object file. A missing or corrupt file falls back
//     to the built-in set.
//   - Renderer: runs `java -jar plantuml.jar` on a work file, one job at a
//     time per renderer, with a per-job timeout.
//   - RendererPool: several renderers for parallel batch rendering.
//   - Vault: stores one API key protected by the platform (DPAPI on
//     Windows, a local key file with AES-GCM elsewhere).
//   - Assistant: asks an OpenAI-compatible chat endpoint for diagram
//     markup, optionally continuing a Conversation.
//
// # Error Handling
//
// Errors fall into categories matched with errors.Is:
//
//	ErrValidation       bad input; fix the arguments
//	ErrRenderFailed     the renderer could not produce an artifact
//	ErrAssistantFailed  the chat endpoint failed or answered badly
//	ErrPersistence      a file write failed; memory state is still updated
//
// RenderError and AssistantError carry details (renderer stderr, HTTP
// status) for callers that need them.
package umledit
