package back

import "github.com/xyproto/env/v2"

type Config struct {
	// Comments annotates the text form with IR value ids.
	Comments bool

	// SkipVerify trusts the input to be well formed.
	SkipVerify bool
}

// ConfigFromEnv reads ISEL_COMMENTS and ISEL_SKIP_VERIFY.
func ConfigFromEnv() Config {
	return Config{
		Comments:   env.Bool("ISEL_COMMENTS"),
		SkipVerify: env.Bool("ISEL_SKIP_VERIFY"),
	}
}
