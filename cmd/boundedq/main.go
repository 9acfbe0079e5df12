package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/OCAP2/boundedqueue/internal/config"
	"github.com/OCAP2/boundedqueue/internal/logging"
	intOtel "github.com/OCAP2/boundedqueue/internal/otel"
	"github.com/OCAP2/boundedqueue/internal/pool"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// AppName is used for the log file name and as the Graylog facility.
const AppName = "boundedq"

var (
	SessionStartTime time.Time
	LogFilePath      string
	LogFile          *os.File

	// Logging
	SlogManager   *logging.SlogManager
	Logger        *slog.Logger
	ZLogger       zerolog.Logger
	ComponentLog  componentLogger
	GraylogWriter *gelf.Writer

	// OTel
	OTelProvider *intOtel.Provider

	// activePool is the pool of a running pool command; log records carry
	// its queue depth
	activePool atomic.Pointer[pool.Pool]
)

// componentLogger is what the bounded, pool and stress packages accept.
type componentLogger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type command struct {
	summary string
	run     func(ctx context.Context, out io.Writer, args []string) error
}

var commands = map[string]command{
	"demo":    {"fill, overflow and drain a channel, printing its state", demoCommand},
	"stress":  {"run the producer/consumer harness and record the result", stressCommand},
	"pool":    {"run one task per worker on the worker pool", poolCommand},
	"history": {"list recorded harness runs: history [limit]", historyCommand},
}

// errUsage makes run exit with status 2.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.SetOutput(out)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	fs.Usage = func() { usage(out, fs) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	name := strings.ToLower(fs.Arg(0))
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(out, "unknown command %q\n\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	setup(*configDir, name)
	defer teardown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	Logger.Info("Running command", "command", name)
	err := cmd.run(ctx, out, fs.Args()[1:])
	switch {
	case errors.Is(err, errUsage):
		fs.Usage()
		return 2
	case err != nil:
		Logger.Error("Command failed", "command", name, "error", err)
		fmt.Fprintf(out, "%s: %v\n", name, err)
		return 1
	}
	Logger.Info("Command complete", "command", name)
	return 0
}

func usage(out io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(out, "Usage: %s [-config dir] <command> [args]\n\nCommands:\n", AppName)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(out, "\nFlags:")
	fs.PrintDefaults()
}
