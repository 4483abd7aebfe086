package punct

import (
	"context"
	"strings"
	"testing"
)

// ends returns the byte offset just past each marker in text.
func ends(text string, markers ...string) []int {
	var out []int
	from := 0
	for _, m := range markers {
		i := strings.Index(text[from:], m)
		if i < 0 {
			panic("marker not found: " + m)
		}
		from += i + len(m)
		out = append(out, from)
	}
	return out
}

func TestBoundaries(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{
			name: "spanish questions",
			text: "Hola a todos. ¿Cómo están? Bien.",
			want: ends("Hola a todos. ¿Cómo están? Bien.", "todos.", "están?", "Bien."),
		},
		{
			name: "abbreviation",
			text: "El Sr. García llegó. Vale.",
			want: ends("El Sr. García llegó. Vale.", "llegó.", "Vale."),
		},
		{
			name: "decimal number",
			text: "Cuesta 3.5 euros. Sí.",
			want: ends("Cuesta 3.5 euros. Sí.", "euros.", "Sí."),
		},
		{
			name: "lowercase continuation",
			text: "hola. y luego nada",
			want: nil,
		},
		{
			name: "ellipsis and closing quote",
			text: `Dijo "basta..." Luego se fue!`,
			want: ends(`Dijo "basta..." Luego se fue!`, `basta..."`, "fue!"),
		},
		{
			name: "trailing whitespace",
			text: "Fin.  ",
			want: ends("Fin.  ", "Fin."),
		},
		{
			name: "cjk",
			text: "你好。再见。",
			want: ends("你好。再见。", "你好。", "再见。"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Boundaries(context.Background(), tt.text)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
