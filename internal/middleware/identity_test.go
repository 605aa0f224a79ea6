package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/utils"
)

// A token issued by this service carries a numeric subject claim; the
// rate-limit key must resolve it to the user's id, not fall back to the
// anonymous bucket and lump all authenticated users together.
func TestCurrentUserIDFromIssuedToken(t *testing.T) {
	at, err := utils.NewAccessToken("test-secret", 5, "CUSTOMER", 5)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+at.Token)
	c := e.NewContext(req, httptest.NewRecorder())

	var got string
	h := JWTAuth("test-secret")(func(c echo.Context) error {
		got = currentUserID(c)
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, "5", got)
}

func TestCurrentUserIDVariants(t *testing.T) {
	e := echo.New()
	cases := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"unauthenticated", nil, "anon"},
		{"jwt numeric claim", float64(42), "42"},
		{"string id", "7", "7"},
		{"empty string", "", "anon"},
		{"uint64", uint64(9), "9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
			if tc.value != nil {
				c.Set("user_id", tc.value)
			}
			assert.Equal(t, tc.want, currentUserID(c))
		})
	}
}
