package normalize

import "testing"

func TestFindJSONCandidates(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "single object",
			in:   `prose {"a": 1} prose`,
			want: []string{`{"a": 1}`},
		},
		{
			name: "nested braces stay one candidate",
			in:   `{"a": {"b": 2}}`,
			want: []string{`{"a": {"b": 2}}`},
		},
		{
			name: "two top-level objects",
			in:   `{"a": 1} and {"b": 2}`,
			want: []string{`{"a": 1}`, `{"b": 2}`},
		},
		{
			name: "braces inside strings ignored",
			in:   `{"msg": "一个 } 在字符串里 {"}`,
			want: []string{`{"msg": "一个 } 在字符串里 {"}`},
		},
		{
			name: "escaped quote inside string",
			in:   `{"msg": "he said \"}\" loudly"}`,
			want: []string{`{"msg": "he said \"}\" loudly"}`},
		},
		{
			name: "unclosed object dropped",
			in:   `{"a": 1`,
			want: nil,
		},
		{
			name: "chinese prose around object",
			in:   "故事开始了。{\"message\": \"你好\"}完。",
			want: []string{`{"message": "你好"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findJSONCandidates(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d (%v)", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("candidate[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
