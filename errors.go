package spritevk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// NewError wraps a non-success vulkan result into an error, nil otherwise.
func NewError(ret vk.Result) error {
	if ret != vk.Success {
		return fmt.Errorf("vulkan error: %s (%d)", vk.Error(ret), ret)
	}
	return nil
}

// Fatal logs the error at fatal severity and aborts, running any finalizers
// first. A nil error is a no-op so results can be passed through directly.
func Fatal(err error, finalizers ...func()) {
	if err == nil {
		return
	}
	for _, fn := range finalizers {
		fn()
	}
	logMessage(SeverityFatal, 2, "%v", err)
}

func checkErr(err *error) {
	if v := recover(); v != nil {
		*err = fmt.Errorf("%+v", v)
	}
}
