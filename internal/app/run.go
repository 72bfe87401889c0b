package app

import (
	"context"
	"fmt"

	"github.com/vk/fieldgrid/internal/builder"
	"github.com/vk/fieldgrid/internal/ctxlog"
	"github.com/vk/fieldgrid/internal/region"
)

// RootRegionName names the region every description is built into.
const RootRegionName = "root"

// Run loads the field description, builds it into a new root region and
// then evaluates, samples or prints the configured field.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "mode", a.config.Mode())

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
		defer func() {
			if cerr := a.closeHealthcheckServer(ctx); err == nil {
				err = cerr
			}
		}()
	}

	model, err := a.loader.Load(ctx, a.config.Paths...)
	if err != nil {
		return fmt.Errorf("failed to load field description: %w", err)
	}
	a.logger.Debug("Field description loaded.", "fields", len(model.Fields), "meshes", len(model.Meshes))

	root := region.NewRoot(ctx, RootRegionName)
	root.Manager().SetObserver(a.metrics)

	result, err := builder.Build(ctx, model, root, a.registry)
	if err != nil {
		return fmt.Errorf("failed to build region: %w", err)
	}
	a.logger.Info("Region built.", "described", len(result.Order), "fields", root.Manager().Len())

	switch a.config.Mode() {
	case ModeTree:
		err = a.printTree(root)
	case ModeSample:
		err = a.sample(ctx, root, meshNames(model))
	default:
		err = a.evaluate(root, meshNames(model))
	}
	if err != nil {
		return err
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
