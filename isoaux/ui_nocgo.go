//go:build tinygo || !cgo

package isoaux

import (
	"errors"
	"log/slog"

	"github.com/soypat/isosurf/march"
)

func ui(cubes *march.Cubes, cfg UIConfig, log *slog.Logger) error {
	return errors.New("require cgo for UI rendering")
}
