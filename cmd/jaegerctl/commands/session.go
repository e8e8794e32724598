package commands

import (
	"context"
	"fmt"

	"github.com/albireox/jaeger-core/fps"
)

// withFPS loads configuration, brings up an FPS instance (initialising the
// fleet), runs fn against it and tears the instance down again. Every
// one-shot subcommand (goto, status, unlock, ...) shares this lifecycle:
// jaegerctl has no long-lived daemon process to attach to outside of the
// actor command, so each invocation owns its own fleet initialisation.
func withFPS(ctx context.Context, keepDisabled bool, fn func(*fps.FPS) error) error {
	initLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("jaegerctl: %w", err)
	}

	f := getOrCreateFPS(cfg)
	if err := f.Start(ctx, keepDisabled); err != nil {
		return fmt.Errorf("jaegerctl: fps startup failed: %w", err)
	}
	defer func() {
		_ = f.Shutdown(ctx)
	}()

	return fn(f)
}
