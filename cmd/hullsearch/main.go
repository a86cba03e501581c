// Command hullsearch estimates differential and linear hulls of SPN block
// ciphers by solving their CRHS equation systems.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	goerrors "github.com/go-errors/errors"

	"github.com/mahdiidarabi/crhs-hull/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root, opts := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		stackTrace := goerrors.Wrap(err, 0).ErrorStack()
		log := opts.logger
		if log == nil {
			log = logging.NewLogger(logging.Options{})
		}
		log.Error(stackTrace)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		opts.close()
		stop()
		os.Exit(1)
	}
	opts.close()
}
