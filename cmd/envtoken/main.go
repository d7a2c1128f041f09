package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/animalet/envtoken-go/logger"
	"github.com/animalet/envtoken-go/pkg/config"
	"github.com/animalet/envtoken-go/pkg/environment"
	"github.com/animalet/envtoken-go/pkg/server"
	"github.com/animalet/envtoken-go/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Version information set during build
var (
	version = "dev"
)

var hostLookup tokens.HostLookup = tokens.SystemHostLookup{}

type options struct {
	configPath  string
	debug       bool
	showVersion bool
	showHelp    bool
	serve       bool
	print       bool
	property    string
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("envtoken", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file (.yaml, .yml or .toml)")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug mode")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.showHelp, "help", false, "Show usage")
	fs.BoolVar(&opts.serve, "serve", false, "Serve the environment over HTTP")
	fs.BoolVar(&opts.print, "print", false, "Print the resolved environment and tokens as YAML")
	fs.StringVar(&opts.property, "property", "", "Print the substituted value of a configured property")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.serve && opts.print {
		return nil, errors.New("-serve and -print are mutually exclusive")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.showHelp {
		printUsage(os.Stdout)
		return
	}
	if opts.showVersion {
		fmt.Printf("%s %s\n", "envtoken", version)
		return
	}

	logger.Setup(opts.debug, nil)
	server.SetDebug(opts.debug)

	if err := run(context.Background(), opts, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("envtoken failed")
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, `Usage: envtoken [flags] < input > output

Reads text from stdin and writes it to stdout with environment tokens substituted.

Flags:
  -config path     configuration file (.yaml, .yml or .toml)
  -debug           enable debug logging
  -print           print the resolved environment and tokens as YAML
  -property name   print the substituted value of a configured property
  -serve           serve the environment over HTTP
  -version         show version information
`)
}

// run resolves the environment and performs the action selected by opts.
// A non-local environment without a URL prefix is an error.
func run(ctx context.Context, opts *options, stdin io.Reader, stdout io.Writer) error {
	cfg, releaseResolvers, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	defer releaseResolvers()

	source, closeSource, err := openSource(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to open entry source")
	}
	defer func() {
		if err := closeSource(); err != nil {
			log.Error().Err(err).Msg("Failed to close entry source")
		}
	}()

	env, err := environment.NewResolver(source).Environment(ctx)
	if err != nil {
		return err
	}

	engine, err := tokens.NewEngine(env, environment.NewConnection(env), tokens.WithHostLookup(hostLookup))
	if err != nil {
		return err
	}

	properties, err := config.Get[config.Properties](cfg, "properties")
	if err != nil {
		return errors.Wrap(err, "failed to load properties")
	}
	if properties == nil {
		properties = &config.Properties{}
	}

	switch {
	case opts.print:
		return printEnvironment(stdout, engine)
	case opts.property != "":
		return printProperty(stdout, engine, *properties, opts.property)
	case opts.serve:
		return serve(cfg, engine, *properties)
	default:
		return substitute(stdin, stdout, engine)
	}
}

func substitute(stdin io.Reader, stdout io.Writer, engine *tokens.Engine) error {
	text, err := io.ReadAll(stdin)
	if err != nil {
		return errors.Wrap(err, "failed to read input")
	}
	if _, err = io.WriteString(stdout, engine.Substitute(string(text))); err != nil {
		return errors.Wrap(err, "failed to write output")
	}
	return nil
}

type report struct {
	Environment *environment.Environment `yaml:"environment"`
	Connection  *environment.Connection  `yaml:"connection"`
	Tokens      map[string]string        `yaml:"tokens"`
}

func printEnvironment(stdout io.Writer, engine *tokens.Engine) error {
	encoder := yaml.NewEncoder(stdout)
	encoder.SetIndent(2)
	if err := encoder.Encode(report{
		Environment: engine.Environment(),
		Connection:  engine.Connection(),
		Tokens:      engine.Tokens(),
	}); err != nil {
		return errors.Wrap(err, "failed to write environment")
	}
	return encoder.Close()
}

func printProperty(stdout io.Writer, engine *tokens.Engine, properties config.Properties, name string) error {
	prop, exists := properties[name]
	if !exists {
		return errors.Errorf("property %q is not configured", name)
	}
	value, ok := engine.SelectAndSubstitute(prop.Local, prop.Managed)
	if !ok {
		return errors.Errorf("property %q has no value for this environment", name)
	}
	_, err := fmt.Fprintln(stdout, value)
	return err
}

func serve(cfg *config.Config, engine *tokens.Engine, properties config.Properties) error {
	serverCfg, err := config.Get[server.Config](cfg, "server")
	if err != nil {
		return errors.Wrap(err, "failed to load server configuration")
	}
	if serverCfg == nil {
		return errors.New("server configuration is required to serve")
	}
	return server.NewServer(*serverCfg, engine, properties).StartAndWaitForSignal()
}
