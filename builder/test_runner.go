package builder

import (
	"bytes"
	_ "embed"

	"github.com/goccy/go-json"
)

const testRunnerFile = "test_runner.js"

//go:embed test_runner.js
var testRunnerTemplate []byte

// generateTestRunner renders the CommonJS script that runs the emitted umd
// test files. The test files are source paths.
func generateTestRunner(testFiles []string) ([]byte, error) {
	paths := make([]string, len(testFiles))
	for i, p := range testFiles {
		paths[i] = jsPath(p)
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return nil, err
	}
	return bytes.ReplaceAll(testRunnerTemplate, []byte("{TEST_FILES}"), data), nil
}
