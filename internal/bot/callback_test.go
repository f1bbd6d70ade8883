package bot

import "testing"

func TestParseCallbackRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data string
		want callbackCommand
	}{
		{"toggle", encodeToggle(17), callbackCommand{kind: cbToggle, taskID: 17}},
		{"delete", encodeDelete(3), callbackCommand{kind: cbDelete, taskID: 3}},
		{"assign", encodeAssign(123456789), callbackCommand{kind: cbAssign, userID: 123456789}},
		{"view", encodeView(-42), callbackCommand{kind: cbView, userID: -42}},
		{"users first page", encodeUsersPage(0), callbackCommand{kind: cbUsersPage, offset: 0}},
		{"users later page", encodeUsersPage(40), callbackCommand{kind: cbUsersPage, offset: 40}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseCallback(tc.data)
			if err != nil {
				t.Fatalf("parseCallback(%q): %v", tc.data, err)
			}
			if got != tc.want {
				t.Errorf("parseCallback(%q) = %+v, want %+v", tc.data, got, tc.want)
			}
		})
	}
}

func TestParseCallbackRejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no separator", "toggle17"},
		{"unknown verb", "promote:17"},
		{"empty", ""},
		{"non-numeric task id", "toggle:abc"},
		{"negative task id", "delete:-1"},
		{"non-numeric user id", "view:abc"},
		{"negative page offset", "users:-20"},
		{"non-numeric page offset", "users:abc"},
		{"trailing garbage", "toggle:17x"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseCallback(tc.data); err == nil {
				t.Errorf("parseCallback(%q) accepted bad data", tc.data)
			}
		})
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a rather long task description", 10, "a rather …"},
		{"multi\nline text", 20, "multi line text"},
	}
	for _, tc := range tests {
		if got := clip(tc.in, tc.n); got != tc.want {
			t.Errorf("clip(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestDescribeWindow(t *testing.T) {
	tests := []struct {
		start, end int
		want       string
	}{
		{0, 24, "always active"},
		{9, 9, "never active (zero-length window)"},
		{22, 6, "22:00–06:00 (overnight)"},
		{9, 21, "09:00–21:00"},
	}
	for _, tc := range tests {
		if got := describeWindow(tc.start, tc.end); got != tc.want {
			t.Errorf("describeWindow(%d, %d) = %q, want %q", tc.start, tc.end, got, tc.want)
		}
	}
}
