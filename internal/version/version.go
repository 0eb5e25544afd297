// ABOUTME: Version information for pcmstream
// ABOUTME: Version can be overridden at build time with -ldflags
package version

import "fmt"

// Version is set with -ldflags "-X github.com/harperreed/pcmstream/internal/version.Version=..."
var Version = "0.1.0"

const (
	Product      = "pcmstream"
	Manufacturer = "harperreed"
)

// String returns the product and version for display
func String() string {
	return fmt.Sprintf("%s %s (%s)", Product, Version, Manufacturer)
}
