package gamification

import "errors"

// Caller-correctable lookup failures.
var (
	ErrDefinitionNotFound = errors.New("gamification: definition not found")
	ErrProgressNotFound   = errors.New("gamification: no progress record")
)

// Conflicts: recoverable only by the caller changing intent.
var (
	ErrAlreadyStarted   = errors.New("gamification: adventure already started")
	ErrAlreadyCompleted = errors.New("gamification: already completed")
	ErrWrongGame        = errors.New("gamification: wrong game for current step")
	ErrNoAlternative    = errors.New("gamification: no alternative game available")
)

// Transient: may succeed later as the catalog or library changes.
var ErrNoEligibleGames = errors.New("gamification: no eligible games for this adventure")

// ErrExhausted is the selector's signal that no candidate remains under the
// current exclusion tier. The engines translate it into ErrNoEligibleGames,
// ErrNoAlternative, or an early completion depending on the operation.
var ErrExhausted = errors.New("gamification: selection pool exhausted")
