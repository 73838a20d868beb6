package domain

import "testing"

func TestFollowerPage_IsLast(t *testing.T) {
	tests := []struct {
		name string
		page FollowerPage
		want bool
	}{
		{"empty list", FollowerPage{}, true},
		{"final page", FollowerPage{Total: 2, Count: 2, OpenIDs: []string{"a", "b"}}, true},
		{"more pages", FollowerPage{Total: 5, Count: 2, OpenIDs: []string{"a", "b"}, NextOpenID: "b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.IsLast(); got != tt.want {
				t.Errorf("Expected IsLast %v, got %v", tt.want, got)
			}
		})
	}
}
