package errors

import "testing"

func TestValidateIdentity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "octocat", false},
		{"hyphen", "matze-huels", false},
		{"npm scope-like", "some.user_1", false},
		{"empty", "", true},
		{"slash", "octo/cat", true},
		{"query", "octocat?x=1", true},
		{"space", "octo cat", true},
		{"control", "octo\x00cat", true},
		{"traversal", "..", true},
		{"too long", string(make([]byte, 215)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentity("github user", tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateIdentity(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidIdentity) {
				t.Errorf("error code = %v, want %v", GetCode(err), ErrCodeInvalidIdentity)
			}
		})
	}
}

func TestValidateLimit(t *testing.T) {
	tests := []struct {
		limit   int
		wantErr bool
	}{
		{1, false},
		{30, false},
		{100, false},
		{0, true},
		{-1, true},
		{101, true},
	}

	for _, tt := range tests {
		err := ValidateLimit(tt.limit, 100)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateLimit(%d) error = %v, wantErr %v", tt.limit, err, tt.wantErr)
		}
	}
}
