package builder

import (
	"strings"
)

// ignoreList renders the `.npmignore` text. The test files and vendored
// modules are sorted source paths.
func ignoreList(testFiles []string, testOnlyDeps []string, umd bool, testRunner bool) string {
	var sb strings.Builder
	sb.WriteString("src/\n")
	writePair := func(p string) {
		sb.WriteString(ESM.Dir + "/" + jsPath(p) + "\n")
		if umd {
			sb.WriteString(UMD.Dir + "/" + jsPath(p) + "\n")
		}
	}
	for _, p := range testFiles {
		writePair(p)
	}
	for _, p := range testOnlyDeps {
		writePair(p)
	}
	if testRunner {
		sb.WriteString(testRunnerFile + "\n")
	}
	return sb.String()
}
