package access

import "testing"

func TestAllowListIsAllowed(t *testing.T) {
	a := NewAllowList([]int64{1001, -100200300}, []string{"@Ops_Lead", "warehouse"})

	cases := []struct {
		name string
		id   ChatIdentity
		want bool
	}{
		{"chat id without username", ChatIdentity{ChatID: 1001}, true},
		{"negative group chat id", ChatIdentity{ChatID: -100200300}, true},
		{"chat id wins over unknown username", ChatIdentity{ChatID: 1001, Username: "stranger"}, true},
		{"username plain", ChatIdentity{ChatID: 42, Username: "warehouse"}, true},
		{"username with at and mixed case", ChatIdentity{ChatID: 42, Username: "@WareHouse"}, true},
		{"configured with at", ChatIdentity{ChatID: 42, Username: "ops_lead"}, true},
		{"unknown chat no username", ChatIdentity{ChatID: 9999}, false},
		{"unknown chat unknown username", ChatIdentity{ChatID: 9999, Username: "someone"}, false},
		{"nothing at all", ChatIdentity{}, false},
		{"only at sign", ChatIdentity{Username: "@"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.IsAllowed(tc.id); got != tc.want {
				t.Fatalf("IsAllowed(%+v) = %v, want %v", tc.id, got, tc.want)
			}
		})
	}
}

func TestNilAllowListRejects(t *testing.T) {
	var a *AllowList
	if a.IsAllowed(ChatIdentity{ChatID: 1}) {
		t.Fatalf("nil allowlist must reject")
	}
	if !a.Empty() {
		t.Fatalf("nil allowlist must be empty")
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got := NormalizeUsername("@@Alice"); got != "alice" {
		t.Fatalf("NormalizeUsername = %q, want %q", got, "alice")
	}
}
