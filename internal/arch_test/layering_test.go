package arch_test

import (
	"path/filepath"
	"testing"
)

// internalLayers assigns each internal package to a numeric layer. Lower
// layers are more foundational; higher layers may depend on lower ones but
// not vice versa. A package at layer N may only import internal packages at
// layer N or below.
var internalLayers = map[string]int{
	"config":   0,
	"memstore": 0,

	"scenario": 1,

	"cli": 2,
}

// publicLayers does the same for the public packages, keyed by directory
// name with the root stride package as "stride". The engine core must stay
// a DAG: access at the bottom, the facade at the top, and no public package
// ever reaching into internal/.
var publicLayers = map[string]int{
	"access":    0,
	"blit":      0,
	"telemetry": 0,
	"work":      0,

	"query":    1,
	"schedule": 1,

	"stride": 2,
}

// publicDirs maps public package names to their directories relative to the
// repository root.
var publicDirs = map[string]string{
	"access":    "access",
	"blit":      "blit",
	"telemetry": "telemetry",
	"work":      "work",
	"query":     "query",
	"schedule":  "schedule",
	"stride":    ".",
}

// TestInternalDependencyLayering verifies that no internal package imports
// an internal package from a higher layer.
func TestInternalDependencyLayering(t *testing.T) {
	t.Parallel()

	dir := internalDirPath(t)

	for _, pkg := range internalPackages(t) {
		importerLayer, ok := internalLayers[pkg]
		if !ok {
			// Unknown packages are caught by TestNoUnknownPackages.
			continue
		}

		for _, imp := range importsOf(t, filepath.Join(dir, pkg)) {
			importedLayer, ok := internalLayers[imp]
			if !ok {
				continue
			}
			if importerLayer >= importedLayer {
				continue
			}
			t.Errorf("layer violation: internal/%s (layer %d) imports internal/%s (layer %d)",
				pkg, importerLayer, imp, importedLayer)
		}
	}
}

// TestPublicDependencyLayering verifies the same property for the public
// packages, and that none of them imports from internal/.
func TestPublicDependencyLayering(t *testing.T) {
	t.Parallel()

	root := repoRoot(t)

	for pkg, rel := range publicDirs {
		importerLayer := publicLayers[pkg]
		pkgDir := filepath.Join(root, rel)

		for _, imp := range publicImportsOf(t, pkgDir) {
			importedLayer, ok := publicLayers[imp]
			if !ok {
				t.Errorf("%s imports unknown public package %q; add it to publicLayers", pkg, imp)
				continue
			}
			if importerLayer >= importedLayer {
				continue
			}
			t.Errorf("layer violation: %s (layer %d) imports %s (layer %d)",
				pkg, importerLayer, imp, importedLayer)
		}

		if imps := importsOf(t, pkgDir); len(imps) > 0 {
			t.Errorf("public package %s imports internal packages %v; the engine core must not depend on internal/", pkg, imps)
		}
	}
}

// TestNoUnknownPackages verifies that every internal package has an assigned
// layer. This forces developers to place new packages in the dependency DAG.
func TestNoUnknownPackages(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		if _, ok := internalLayers[pkg]; !ok {
			t.Errorf("package %s has no layer assignment; add it to the internalLayers map", pkg)
		}
	}
}
