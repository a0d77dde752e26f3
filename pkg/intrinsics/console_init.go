package intrinsics

import (
	"prebake/pkg/runtime"
)

// ConsoleInitializer installs console. Console calls are externally
// observable: each one is recorded on the effect generator and re-emitted
// in the residual program at the corresponding position.
type ConsoleInitializer struct{}

func (c *ConsoleInitializer) Name() string  { return "console" }
func (c *ConsoleInitializer) Priority() int { return PriorityConsole }

func (c *ConsoleInitializer) Init(r *runtime.Realm) error {
	consoleObj := r.NewObject(r.Intrinsics.ObjectPrototype)
	consoleObj.OriginalName = "console"

	for _, method := range []string{"log", "error", "warn", "info", "debug", "trace"} {
		m := method
		defineMethod(r, consoleObj, m, 0, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
			snapshot := make([]runtime.Value, len(args))
			copy(snapshot, args)
			r.Generator.EmitConsoleLog(m, snapshot)
			return runtime.Undefined, nil
		})
	}

	defineGlobal(r, "console", consoleObj)
	return nil
}
