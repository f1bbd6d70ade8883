package dispatch

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{
			name:      "blocked by user",
			err:       &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"},
			permanent: true,
		},
		{
			name:      "deactivated account",
			err:       &tgbotapi.Error{Code: 403, Message: "Forbidden: user is deactivated"},
			permanent: true,
		},
		{
			name:      "chat not found",
			err:       &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"},
			permanent: true,
		},
		{
			name:      "rate limited",
			err:       &tgbotapi.Error{Code: 429, Message: "Too Many Requests: retry after 5"},
			permanent: false,
		},
		{
			name:      "server error",
			err:       &tgbotapi.Error{Code: 500, Message: "Internal Server Error"},
			permanent: false,
		},
		{
			name:      "other 400",
			err:       &tgbotapi.Error{Code: 400, Message: "Bad Request: message is too long"},
			permanent: false,
		},
		{
			name:      "network failure",
			err:       errors.New("dial tcp: i/o timeout"),
			permanent: false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			if got.Permanent != tc.permanent {
				t.Errorf("classify(%v).Permanent = %v, want %v", tc.err, got.Permanent, tc.permanent)
			}
			if IsPermanent(got) != tc.permanent {
				t.Errorf("IsPermanent mismatch for %v", tc.err)
			}
			if !errors.Is(got, tc.err) {
				t.Errorf("classify(%v) does not unwrap to the original error", tc.err)
			}
		})
	}
}

func TestIsPermanentIgnoresOtherErrors(t *testing.T) {
	if IsPermanent(errors.New("plain failure")) {
		t.Error("plain error reported as permanent delivery failure")
	}
	if IsPermanent(nil) {
		t.Error("nil reported as permanent delivery failure")
	}
}

func TestIsNotModified(t *testing.T) {
	notModified := &tgbotapi.Error{Code: 400, Message: "Bad Request: message is not modified"}
	if !isNotModified(notModified) {
		t.Error("not-modified edit response treated as a failure")
	}
	if isNotModified(&tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}) {
		t.Error("unrelated 400 treated as not-modified")
	}
	if isNotModified(errors.New("dial tcp: i/o timeout")) {
		t.Error("network error treated as not-modified")
	}
}
