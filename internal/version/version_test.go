// ABOUTME: Tests for version information
// ABOUTME: Checks the product name and the version banner
package version

import (
	"regexp"
	"testing"
)

func TestProduct(t *testing.T) {
	if Product != "kikitori" {
		t.Errorf("Product = %q, want kikitori", Product)
	}
}

func TestVersionIsSemver(t *testing.T) {
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)
	if !semver.MatchString(Version) {
		t.Errorf("Version %q is not major.minor.patch", Version)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"0.1.0", "kikitori 0.1.0"},
		{"1.2.3-rc.1", "kikitori 1.2.3-rc.1"},
	}

	saved := Version
	defer func() { Version = saved }()

	for _, tt := range tests {
		Version = tt.version
		if got := String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
