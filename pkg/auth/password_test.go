package auth

import (
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		shouldFail bool
	}{
		{
			name:       "valid strong password",
			password:   "SecureP@ss123",
			shouldFail: false,
		},
		{
			name:       "too short",
			password:   "Pass@1",
			shouldFail: true,
		},
		{
			name:       "missing uppercase",
			password:   "securepass@123",
			shouldFail: true,
		},
		{
			name:       "missing lowercase",
			password:   "SECUREPASS@123",
			shouldFail: true,
		},
		{
			name:       "missing digit",
			password:   "SecurePass@xyz",
			shouldFail: true,
		},
		{
			name:       "missing special character",
			password:   "SecurePass123",
			shouldFail: true,
		},
		{
			name:       "common password rejected",
			password:   "password123",
			shouldFail: true,
		},
		{
			name:       "valid with symbols",
			password:   "MyP@ssw0rd!",
			shouldFail: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.shouldFail && err == nil {
				t.Errorf("ValidatePassword(%q) = nil, want error", tt.password)
			}
			if !tt.shouldFail && err != nil {
				t.Errorf("ValidatePassword(%q) = %v, want nil", tt.password, err)
			}
		})
	}
}

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("SecureP@ss123")
	if err != nil {
		t.Fatalf("HashPassword() = %v, want nil", err)
	}

	if err := ComparePassword(hash, "SecureP@ss123"); err != nil {
		t.Errorf("ComparePassword() with correct password = %v, want nil", err)
	}

	if err := ComparePassword(hash, "WrongP@ss123"); err == nil {
		t.Error("ComparePassword() with wrong password = nil, want error")
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("HashPassword(\"\") = nil, want error")
	}
}

func TestGenerateStateToken_Unique(t *testing.T) {
	a, err := GenerateStateToken()
	if err != nil {
		t.Fatalf("GenerateStateToken() = %v, want nil", err)
	}
	b, err := GenerateStateToken()
	if err != nil {
		t.Fatalf("GenerateStateToken() = %v, want nil", err)
	}
	if a == b {
		t.Error("two state tokens are identical")
	}
}
