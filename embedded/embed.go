// Package embedded provides the hooks manifest embedded in the auto-handoff
// binary, so `auto-handoff hooks install` works without a repo checkout.
package embedded

import _ "embed"

// HooksJSON contains the raw hooks.json manifest.
//
//go:embed hooks/hooks.json
var HooksJSON []byte
