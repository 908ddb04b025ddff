// Package data bundles the default story shipped with the binary.
package data

import _ "embed"

// StoryJSON is the built-in story used when no override file is present.
//
//go:embed story.json
var StoryJSON []byte
