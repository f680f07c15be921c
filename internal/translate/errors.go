package translate

import "errors"

// ErrTranslate wraps bulk-translation failures that triggered the
// per-turn fallback. Per-turn failures do not return this error; they
// silently preserve the original text for that turn instead.
var ErrTranslate = errors.New("translate: bulk translation failed")
