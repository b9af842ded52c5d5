package compiler

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
)

// ScriptTarget is a semantic ECMAScript edition name, e.g. "ES2021".
type ScriptTarget string

// DefaultScriptTarget is used when no target is configured.
const DefaultScriptTarget ScriptTarget = "ES2021"

// ScriptTargets lists the supported edition names from oldest to newest.
// ES3 is left out, the emitter can not lower code that far.
var ScriptTargets = []ScriptTarget{
	"ES5",
	"ES2015",
	"ES2016",
	"ES2017",
	"ES2018",
	"ES2019",
	"ES2020",
	"ES2021",
	"ES2022",
	"ES2023",
	"ES2024",
	"Latest",
}

var targets = map[ScriptTarget]api.Target{
	"ES5":    api.ES5,
	"ES2015": api.ES2015,
	"ES2016": api.ES2016,
	"ES2017": api.ES2017,
	"ES2018": api.ES2018,
	"ES2019": api.ES2019,
	"ES2020": api.ES2020,
	"ES2021": api.ES2021,
	"ES2022": api.ES2022,
	"ES2023": api.ES2023,
	"ES2024": api.ES2024,
	"Latest": api.ESNext,
}

// UnknownTargetError is returned by ResolveScriptTarget for a name outside
// the supported enumeration.
type UnknownTargetError struct {
	Name string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("unknown script target %q", e.Name)
}

// ResolveScriptTarget maps a semantic target name to the emitter's target.
// An empty name resolves to DefaultScriptTarget.
func ResolveScriptTarget(name ScriptTarget) (api.Target, error) {
	if name == "" {
		name = DefaultScriptTarget
	}
	target, ok := targets[name]
	if !ok {
		return 0, &UnknownTargetError{Name: string(name)}
	}
	return target, nil
}
