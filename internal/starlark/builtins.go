package starlark

import (
	"go.starlark.net/starlark"
)

// featureBuiltin returns the feature(name) builtin, true when name is enabled.
func featureBuiltin(features []string) *starlark.Builtin {
	enabled := make(map[string]bool, len(features))
	for _, f := range features {
		enabled[f] = true
	}
	return starlark.NewBuiltin("feature", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
			return nil, err
		}
		return starlark.Bool(enabled[name]), nil
	})
}

// Predeclared returns the globals every predicate can see:
//
//	configuration  the build configuration name ("debug", "release", ...)
//	features       list of enabled feature names
//	feature(name)  reports whether a feature is enabled
//	cfg            dict of user supplied values
//	target         struct(device, cpu, priority_bits, interrupts, has_interrupt(name))
func Predeclared(b *BuildContext) (starlark.StringDict, error) {
	cfg, err := GoToStarlark(b.Values)
	if err != nil {
		return nil, err
	}
	if b.Values == nil {
		cfg = starlark.NewDict(0)
	}
	features, _ := GoToStarlark(append([]string{}, b.Features...))

	target := b.Target
	if target == nil {
		target = &TargetInfo{}
	}

	globals := starlark.StringDict{
		"configuration": starlark.String(b.Configuration),
		"features":      features,
		"feature":       featureBuiltin(b.Features),
		"cfg":           cfg,
		"target":        target.ToStarlark(),
	}
	for _, v := range globals {
		v.Freeze()
	}
	return globals, nil
}
