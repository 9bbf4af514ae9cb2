package mainboilerplate

import (
	"os"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
)

// MustParseArgs parses os.Args[1:] with parser, exiting the process with an
// appropriate status on failure or on --help, mirroring the teacher's
// mbp.MustParseArgs used in examples/word-count/wordcountctl/main.go.
func MustParseArgs(parser *flags.Parser) {
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.WithField("err", err).Error("failed to parse arguments")
		os.Exit(1)
	}
}
