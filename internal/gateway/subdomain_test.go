package gateway

import "testing"

func TestSubdomainFromHost(t *testing.T) {
	cases := []struct {
		name       string
		host       string
		baseDomain string
		want       string
	}{
		{"tenant under base domain", "myshop.storeflow.app", "storeflow.app", "myshop"},
		{"port stripped", "myshop.storeflow.app:8080", "storeflow.app", "myshop"},
		{"host case folded", "MyShop.Storeflow.App", "storeflow.app", "myshop"},
		{"bare base domain", "storeflow.app", "storeflow.app", ""},
		{"nested label rejected", "a.b.storeflow.app", "storeflow.app", ""},
		{"unrelated host", "example.com", "storeflow.app", ""},
		{"heuristic with three labels", "myshop.localtest.me", "", "myshop"},
		{"heuristic with port", "myshop.localtest.me:3000", "", "myshop"},
		{"heuristic needs three labels", "localhost", "", ""},
		{"heuristic two labels", "storeflow.app", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SubdomainFromHost(tc.host, tc.baseDomain)
			if got != tc.want {
				t.Errorf("SubdomainFromHost(%q, %q) = %q, want %q", tc.host, tc.baseDomain, got, tc.want)
			}
		})
	}
}
