package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                      "/",
		"/metrics":              "/metrics",
		"/auth/login":           "/auth/login",
		"/auth/refresh":         "/auth/refresh",
		"/tenants":              "/tenants",
		"/tenants/42":           "/tenants/:id",
		"/tenants/42/extra":     "/tenants/42/extra",
		"/users/7":              "/users/:id",
		"/users/7?role=manager": "/users/:id",
		"/users":                "/users",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
