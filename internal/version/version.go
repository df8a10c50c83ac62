// ABOUTME: Build and product identification
// ABOUTME: Version is overridden at link time with -ldflags "-X"
package version

// Version is the release version
var Version = "0.1.0"

// Product names the client in logs and -version output
const Product = "kikitori"

// String returns "product version"
func String() string {
	return Product + " " + Version
}
