// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	"github.com/jwagner/imagevault/internal/app/system/timeouts"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// Upload sessions are tracked in memory, so any staging directories left on
// disk belong to a previous process and will never be finalized. They are
// swept here rather than accumulating.
//
// Returning a non-nil error aborts startup and prevents the server from
// starting.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("applied timeout overrides from environment", zap.Int("count", n))
	}

	if err := os.MkdirAll(appCfg.UploadStagingPath, 0o700); err != nil {
		logger.Error("failed to create upload staging directory",
			zap.String("path", appCfg.UploadStagingPath),
			zap.Error(err))
		return err
	}

	entries, err := os.ReadDir(appCfg.UploadStagingPath)
	if err != nil {
		logger.Error("failed to read upload staging directory", zap.Error(err))
		return err
	}
	swept := 0
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(appCfg.UploadStagingPath, e.Name())); err != nil {
			logger.Warn("failed to sweep stale staging entry",
				zap.String("entry", e.Name()),
				zap.Error(err))
			continue
		}
		swept++
	}
	if swept > 0 {
		logger.Info("swept stale upload staging entries", zap.Int("count", swept))
	}

	return nil
}
