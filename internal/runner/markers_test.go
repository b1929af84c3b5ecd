package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkerExpr(t *testing.T) {
	cases := []struct {
		name    string
		expr    string
		markers []string
		want    bool
	}{
		{"empty matches everything", "", nil, true},
		{"single name present", "smoke", []string{"smoke", "auth"}, true},
		{"single name absent", "smoke", []string{"auth"}, false},
		{"not", "not smoke", []string{"auth"}, true},
		{"not excludes", "not smoke", []string{"smoke"}, false},
		{"and needs both", "smoke and auth", []string{"smoke", "auth"}, true},
		{"and fails on one", "smoke and auth", []string{"smoke"}, false},
		{"or needs one", "smoke or auth", []string{"auth"}, true},
		{"or fails on none", "smoke or auth", []string{"cart"}, false},
		{"not binds tighter than and", "not smoke and auth", []string{"auth"}, true},
		{"and binds tighter than or", "smoke or cart and auth", []string{"cart", "auth"}, true},
		{"parentheses override", "(smoke or cart) and auth", []string{"cart"}, false},
		{"nested not", "not not smoke", []string{"smoke"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := ParseMarkerExpr(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, expr.Matches(tc.markers))
		})
	}
}

func TestParseMarkerExprErrors(t *testing.T) {
	for _, expr := range []string{
		"and",
		"smoke and",
		"not",
		"(smoke",
		"smoke)",
		"smoke or or auth",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseMarkerExpr(expr)
			assert.Error(t, err)
		})
	}
}
