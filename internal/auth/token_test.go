package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/expensetrack/expensetrack/internal/model"
)

func TestGenerateTokens_Format(t *testing.T) {
	t.Parallel()

	access, err := GenerateAccessToken()
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if !strings.HasPrefix(access, AccessTokenPrefix) || !ValidateAccessToken(access) {
		t.Errorf("unexpected access token format: %s", access)
	}
	if ValidateRefreshToken(access) {
		t.Error("access token should not validate as a refresh token")
	}

	refresh, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}
	if !ValidateRefreshToken(refresh) {
		t.Errorf("unexpected refresh token format: %s", refresh)
	}
	if ValidateAccessToken(refresh) {
		t.Error("refresh token should not validate as an access token")
	}
}

func TestGenerateTokens_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := GenerateAccessToken()
		if err != nil {
			t.Fatalf("GenerateAccessToken failed: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %s", tok)
		}
		seen[tok] = true
	}
}

func TestValidateAccessToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid", "at_" + strings.Repeat("a", 64), true},
		{"too short", "at_" + strings.Repeat("a", 63), false},
		{"uppercase hex", "at_" + strings.Repeat("A", 64), false},
		{"wrong prefix", "xx_" + strings.Repeat("a", 64), false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ValidateAccessToken(tt.token); got != tt.want {
				t.Errorf("ValidateAccessToken(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestHashToken(t *testing.T) {
	t.Parallel()

	h1 := HashToken("rt_abc")
	h2 := HashToken("rt_abc")
	h3 := HashToken("rt_abd")

	if h1 != h2 {
		t.Error("HashToken should be deterministic")
	}
	if h1 == h3 {
		t.Error("different tokens should hash differently")
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
}

func TestContextWithAuth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if UserIDFromContext(ctx) != uuid.Nil {
		t.Error("expected nil user ID on empty context")
	}
	if AuthFromContext(ctx) != nil {
		t.Error("expected nil auth on empty context")
	}

	id := uuid.New()
	ctx = ContextWithAuth(ctx, &model.AuthContext{UserID: id, RefreshTokenID: "01HX"})

	if got := UserIDFromContext(ctx); got != id {
		t.Errorf("UserIDFromContext = %s, want %s", got, id)
	}
	if got := MustAuthFromContext(ctx).RefreshTokenID; got != "01HX" {
		t.Errorf("RefreshTokenID = %s, want 01HX", got)
	}
}

func TestMustAuthFromContext_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic without auth context")
		}
	}()
	MustAuthFromContext(context.Background())
}
