package chat

import "github.com/rs/zerolog"

// Fatalf logs msg at fatal level and terminates the process (zerolog's
// Fatal level calls os.Exit(1) after writing the event). It is the Go
// analogue of the original server's ASSERT_LIVE: an invariant violation
// inside the core dispatch engine (e.g. a sector coordinate that somehow
// escaped bounds checking) is not recoverable locally and the original
// contract is to abort rather than run on in a state the lock hierarchy no
// longer guarantees is consistent.
func Fatalf(log zerolog.Logger, msg string, args ...any) {
	log.Fatal().Msgf(msg, args...)
}
