package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback data is parsed into a closed set of tagged commands before any
// handler runs. Unknown or malformed data fails parsing instead of silently
// half-matching a prefix.
type callbackKind int

const (
	cbToggle callbackKind = iota + 1
	cbDelete
	cbAssign
	cbView
	cbUsersPage
)

type callbackCommand struct {
	kind   callbackKind
	taskID uint
	userID int64
	offset int
}

func encodeToggle(taskID uint) string { return fmt.Sprintf("toggle:%d", taskID) }
func encodeDelete(taskID uint) string { return fmt.Sprintf("delete:%d", taskID) }
func encodeAssign(userID int64) string {
	return fmt.Sprintf("assign:%d", userID)
}
func encodeView(userID int64) string { return fmt.Sprintf("view:%d", userID) }
func encodeUsersPage(offset int) string {
	return fmt.Sprintf("users:%d", offset)
}

func parseCallback(data string) (callbackCommand, error) {
	head, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return callbackCommand{}, fmt.Errorf("malformed callback %q", data)
	}

	switch head {
	case "toggle", "delete":
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			return callbackCommand{}, fmt.Errorf("bad task id in callback %q: %w", data, err)
		}
		kind := cbToggle
		if head == "delete" {
			kind = cbDelete
		}
		return callbackCommand{kind: kind, taskID: uint(id)}, nil
	case "assign", "view":
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return callbackCommand{}, fmt.Errorf("bad user id in callback %q: %w", data, err)
		}
		kind := cbAssign
		if head == "view" {
			kind = cbView
		}
		return callbackCommand{kind: kind, userID: id}, nil
	case "users":
		offset, err := strconv.Atoi(rawID)
		if err != nil || offset < 0 {
			return callbackCommand{}, fmt.Errorf("bad page offset in callback %q", data)
		}
		return callbackCommand{kind: cbUsersPage, offset: offset}, nil
	default:
		return callbackCommand{}, fmt.Errorf("unknown callback %q", data)
	}
}
