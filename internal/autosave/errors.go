package autosave

import "fmt"

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("saver panicked: %v", e.value)
}
