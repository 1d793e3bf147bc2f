package skillquiz

import "log"

// Verbose mode is a package-level switch so the quiz lifecycle can narrate
// generation and submission events without the binaries threading a logger
// through every call.
var verboseMode bool

// SetVerbose turns verbose lifecycle logging on or off. The command binaries
// wire it to their -verbose flag.
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// VerboseLog writes a log line only in verbose mode; normal operation stays
// quiet.
func VerboseLog(format string, v ...interface{}) {
	if verboseMode {
		log.Printf(format, v...)
	}
}
