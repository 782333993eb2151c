package browser

import (
	"reflect"
	"testing"
)

func TestDecodeReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  map[string]any
	}{
		{
			name:  "plain json",
			reply: `{"script": "document.title"}`,
			want:  map[string]any{"script": "document.title"},
		},
		{
			name:  "fenced json",
			reply: "```json\n{\"script\": \"x\"}\n```",
			want:  map[string]any{"script": "x"},
		},
		{
			name:  "fenced without language",
			reply: "```\n{\"a\": 1}\n```",
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "surrounding whitespace",
			reply: "  {\"a\": 1}  \n",
			want:  map[string]any{"a": float64(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			if err := decodeReply(tt.reply, &got); err != nil {
				t.Fatalf("decodeReply: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeReplyErrors(t *testing.T) {
	var v any
	if err := decodeReply("", &v); err == nil {
		t.Error("expected error for empty reply")
	}
	if err := decodeReply("not json", &v); err == nil {
		t.Error("expected error for non-json reply")
	}
	if err := decodeReply("```\n```", &v); err == nil {
		t.Error("expected error for empty fenced block")
	}
}
