package pipeline

// Notes:
// - Extraction is tested through ExtractMarkup and MarkupExtractor.Extract
//   only; blockContent is covered indirectly.
// - Indented (non-fenced) code blocks are deliberately not treated as markup
//   and are not tested separately.

import "testing"

// ---------------------------------------------------------------------------
// TestExtractMarkup - Reply post-processing
// ---------------------------------------------------------------------------

func TestExtractMarkup(t *testing.T) {
	t.Parallel()

	const diagram = "@startuml\nAlice -> Bob: hi\n@enduml"

	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{
			name:  "bare markup is returned trimmed",
			reply: "\n  " + diagram + "\n\n",
			want:  diagram,
		},
		{
			name:  "plantuml fence",
			reply: "Here you go:\n\n```plantuml\n" + diagram + "\n```\n\nEnjoy.",
			want:  diagram,
		},
		{
			name:  "untagged fence",
			reply: "```\n" + diagram + "\n```",
			want:  diagram,
		},
		{
			name:  "tilde fence",
			reply: "~~~puml\n" + diagram + "\n~~~",
			want:  diagram,
		},
		{
			name:  "diagram fence preferred over earlier code",
			reply: "```bash\njava -jar plantuml.jar\n```\n\n```\n" + diagram + "\n```",
			want:  diagram,
		},
		{
			name:  "first fence when none looks like a diagram",
			reply: "```text\nfirst\n```\n\n```text\nsecond\n```",
			want:  "first",
		},
		{
			name:  "empty fence skipped",
			reply: "```\n```\n\n```uml\n" + diagram + "\n```",
			want:  diagram,
		},
		{
			name:  "unfenced markup inside prose",
			reply: "Sure! " + diagram + " Let me know if you need changes.",
			want:  diagram,
		},
		{
			name:  "mindmap span",
			reply: "Result:\n@startmindmap\n* root\n@endmindmap\nDone",
			want:  "@startmindmap\n* root\n@endmindmap",
		},
		{
			name:  "plain prose without markup",
			reply: "  I cannot help with that.  ",
			want:  "I cannot help with that.",
		},
		{
			name:  "blank reply",
			reply: " \n\t",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ExtractMarkup(tt.reply); got != tt.want {
				t.Errorf("ExtractMarkup() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarkupExtractor_Reusable(t *testing.T) {
	t.Parallel()

	e := NewMarkupExtractor()
	for i := 0; i < 3; i++ {
		if got := e.Extract("```\n@startuml\n@enduml\n```"); got != "@startuml\n@enduml" {
			t.Fatalf("call %d: Extract() = %q", i, got)
		}
	}
}
