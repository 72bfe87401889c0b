package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/vk/fieldgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// floatList is a comma separated list of numbers, e.g. "0.5,0.25".
type floatList []float64

func (l *floatList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (l *floatList) Set(s string) error {
	*l = nil
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", part)
		}
		*l = append(*l, v)
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("fieldgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
fieldgrid - evaluates computed fields described in HCL.

Usage:
  fieldgrid [options] PATH...

Arguments:
  PATH
    Path to a single .hcl file or a directory containing .hcl files.

Examples:
  fieldgrid -field temperature -element 1 -xi 0.5,0.5 plate.hcl
  fieldgrid -field temperature -element 1 -derivative 1 plate.hcl
  fieldgrid -field temperature -sample -divisions 4 plate.hcl
  fieldgrid -tree plate.hcl

Options:
`)
		flagSet.PrintDefaults()
	}

	var xi, coordinates floatList
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Number of sampling workers. 0 uses one per CPU.")
	fieldFlag := flagSet.String("field", "", "Field to evaluate: 'name', 'name.component' or 'name[n]'.")
	meshFlag := flagSet.String("mesh", "", "Mesh holding -element; may be omitted when only one mesh is described.")
	elementFlag := flagSet.Int("element", 0, "Evaluate in this element.")
	flagSet.Var(&xi, "xi", "Comma separated element chart coordinates. Defaults to the element centre.")
	nodeFlag := flagSet.Int("node", 0, "Evaluate at this node.")
	flagSet.Var(&coordinates, "coordinates", "Evaluate at these comma separated field coordinates.")
	timeFlag := flagSet.Float64("time", 0, "Evaluation time.")
	derivativeFlag := flagSet.Int("derivative", 0, "Print xi derivatives of this order instead of values.")
	sampleFlag := flagSet.Bool("sample", false, "Sample the field over every element of the mesh.")
	divisionsFlag := flagSet.Int("divisions", 2, "Sampling divisions per xi direction. 0 samples element centres.")
	treeFlag := flagSet.Bool("tree", false, "Print the source tree of -field, or of every unused field.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No description path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		Paths:           flagSet.Args(),
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
		WorkerCount:     *workersFlag,
		Field:           *fieldFlag,
		Mesh:            *meshFlag,
		Element:         *elementFlag,
		Xi:              xi,
		Node:            *nodeFlag,
		Coordinates:     coordinates,
		Time:            *timeFlag,
		Derivative:      *derivativeFlag,
		Sample:          *sampleFlag,
		Divisions:       *divisionsFlag,
		Tree:            *treeFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
