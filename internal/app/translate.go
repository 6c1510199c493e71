package app

import (
	"context"

	"github.com/vk/cxfgo/internal/codegen"
)

// runTranslate resolves the model and writes deterministic Go source for
// every network in it, leaf-first.
func (a *App) runTranslate(ctx context.Context) error {
	res, err := a.resolve(ctx)
	if err != nil {
		return err
	}

	gen := codegen.New(a.cat, a.config.Package)
	files, err := gen.Generate(res.Order)
	if err != nil {
		return err
	}

	if err := codegen.WriteFiles(a.config.OutDir, files); err != nil {
		return err
	}

	for _, f := range files {
		a.logger.Debug("Wrote artifact.", "file", f.Name, "bytes", len(f.Content))
	}
	a.logger.Info("Translation complete.", "model", res.Root.Name, "files", len(files), "dir", a.config.OutDir)
	return nil
}
