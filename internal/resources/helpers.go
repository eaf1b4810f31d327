package resources

import (
	"fmt"
	"os"

	"github.com/HendryAvila/planmcp/internal/config"
)

// findRoot returns root when set, otherwise the nearest project above the
// working directory.
func findRoot(root string) (string, error) {
	if root != "" {
		return root, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return config.FindProjectRoot(dir), nil
}
