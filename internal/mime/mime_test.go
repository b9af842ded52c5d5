package mime

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		expect      MediaType
	}{
		{"mod.ts", "", TypeScript},
		{"mod.d.ts", "", Dts},
		{"App.tsx", "", TSX},
		{"mod.mjs", "text/plain", JavaScript},
		{"data.json", "", JSON},
		{"/x/mod", "application/typescript; charset=utf-8", TypeScript},
		{"/x/mod", "video/mp2t", TypeScript},
		{"/x/mod", "Text/JavaScript", JavaScript},
		{"/x/mod", "text/html", Unknown},
	}
	for _, tt := range tests {
		if got := Resolve(tt.filename, tt.contentType); got != tt.expect {
			t.Fatalf("%s (%s): expected %s, got %s", tt.filename, tt.contentType, tt.expect, got)
		}
	}
	if Dts.Ext() != ".d.ts" || !Dts.IsTypeScript() || JavaScript.IsTypeScript() {
		t.Fatal("unexpected media type helpers")
	}
}
