package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ltask/internal/store"
)

// ErrRefRequired is returned when a command expects a task number and got
// none.
var ErrRefRequired = errors.New("task number required")

// parseRef reads a 1-based task number from the positional arguments.
// Numbers refer to the position-ordered listing, completed tasks included,
// which is what a bare `ltask list` shows.
func parseRef(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrRefRequired
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid task number: %s", args[0])
	}
	if n < 1 {
		return 0, fmt.Errorf("task number out of range: %d", n)
	}
	return n, nil
}

// taskByNumber resolves a 1-based listing number to the task itself.
func taskByNumber(ctx context.Context, st *store.Store, num int) (*store.Task, error) {
	tasks, err := st.List(ctx, store.ByPos, true)
	if err != nil {
		return nil, err
	}
	if num < 1 || num > len(tasks) {
		return nil, fmt.Errorf("task number out of range: %d", num)
	}
	return tasks[num-1], nil
}
