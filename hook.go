package exitz

import "sync"

// Hook represents a handle to a registered exit hook.
// It provides a way to unregister the hook before termination.
//
// Hook handles are returned by OnExit() and OnAsyncExit(). Unhook is
// idempotent: calling it more than once, or after the termination
// sequence already consumed the hook, does nothing.
//
// Example:
//
//	hook, err := exitz.OnExit(func(code int) {
//	    cleanupTempFiles()
//	})
//	if err != nil {
//	    return err
//	}
//
//	// Later, when the temp files are gone anyway
//	hook.Unhook()
type Hook struct {
	once   *sync.Once
	unhook func()
}

// Unhook removes this hook from the registry. Once Unhook returns, the
// hook is guaranteed not to be invoked, unless it had already started.
func (h Hook) Unhook() {
	if h.once == nil {
		return
	}
	h.once.Do(h.unhook)
}

func newHook(unhook func()) Hook {
	return Hook{once: &sync.Once{}, unhook: unhook}
}
