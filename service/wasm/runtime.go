// Package wasm runs an optional operator-supplied WebAssembly module once at
// daemon startup. The module can seed derived tables or register external
// webhooks before ingestion begins.
package wasm

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// startupExport is the entry point looked up in the module. Modules without
// it rely on their _start function alone.
const startupExport = "start"

// RunStartup compiles and runs the module at path. The runtime is torn down
// before returning; nothing from the module outlives the call.
func RunStartup(ctx context.Context, path string, logger *slog.Logger) error {
	bin, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read wasm module %s: %w", path, err)
	}

	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)

	config := wazero.NewModuleConfig().
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithName("startup")

	module, err := runtime.InstantiateWithConfig(ctx, bin, config)
	if err != nil {
		return fmt.Errorf("instantiate wasm module %s: %w", path, err)
	}
	defer module.Close(ctx)

	if fn := module.ExportedFunction(startupExport); fn != nil {
		if _, err := fn.Call(ctx); err != nil {
			return fmt.Errorf("call %s in %s: %w", startupExport, path, err)
		}
	}

	logger.Info("startup wasm module completed", "path", path)
	return nil
}
