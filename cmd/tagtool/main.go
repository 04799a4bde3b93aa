// Command tagtool inspects and converts files holding tag trees.
//
//	tagtool dump FILE
//	tagtool get FILE PATH
//	tagtool check FILE
//	tagtool convert IN OUT --to gzip
//	tagtool bolt DB BUCKET [KEY]
//
// Defaults come from TAGTOOL_COMPRESSION, TAGTOOL_MMAP, TAGTOOL_MAX_DEPTH and
// TAGTOOL_LOG_LEVEL; flags override them.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cespare/xxhash/v2"
	flag "github.com/spf13/pflag"
	"go.etcd.io/bbolt"

	"github.com/andreyvit/tagtree"
)

type config struct {
	Compression tagtree.Compression `env:"TAGTOOL_COMPRESSION" envDefault:"none"`
	Mmap        bool                `env:"TAGTOOL_MMAP"`
	MaxDepth    int                 `env:"TAGTOOL_MAX_DEPTH" envDefault:"512"`
	LogLevel    slog.Level          `env:"TAGTOOL_LOG_LEVEL" envDefault:"warn"`
}

var errUsage = errors.New("usage: tagtool [flags] dump|get|check|convert|bolt ARGS...")

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "tagtool: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("tagtool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	compression := fs.String("compression", cfg.Compression.String(), "compression of input files: none, gzip or zlib")
	to := fs.String("to", "", "compression of the output file (convert)")
	fs.BoolVar(&cfg.Mmap, "mmap", cfg.Mmap, "map input files into memory instead of reading them")
	fs.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "maximum nesting depth")
	logLevel := fs.String("log-level", cfg.LogLevel.String(), "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Compression.UnmarshalText([]byte(*compression)); err != nil {
		return err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(*logLevel)); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	opt := tagtree.Options{
		Compression: cfg.Compression,
		MaxDepth:    cfg.MaxDepth,
		Logger:      logger,
	}

	pos := fs.Args()
	if len(pos) == 0 {
		return errUsage
	}
	switch cmd, pos := pos[0], pos[1:]; cmd {
	case "dump":
		if len(pos) != 1 {
			return errUsage
		}
		root, err := load(pos[0], cfg, opt)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, tagtree.Format(root))
	case "get":
		if len(pos) != 2 {
			return errUsage
		}
		root, err := load(pos[0], cfg, opt)
		if err != nil {
			return err
		}
		v, err := tagtree.Lookup(root, pos[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, tagtree.Format(v))
	case "check":
		if len(pos) != 1 {
			return errUsage
		}
		return check(stdout, pos[0], cfg, opt)
	case "convert":
		if len(pos) != 2 {
			return errUsage
		}
		var out tagtree.Compression
		if err := out.UnmarshalText([]byte(*to)); err != nil {
			return err
		}
		root, err := load(pos[0], cfg, opt)
		if err != nil {
			return err
		}
		opt.Compression = out
		if err := tagtree.WriteFile(pos[1], root, opt); err != nil {
			return err
		}
		logger.Info("converted", "in", pos[0], "out", pos[1], "compression", out)
	case "bolt":
		if len(pos) != 2 && len(pos) != 3 {
			return errUsage
		}
		return dumpBolt(stdout, pos[0], pos[1], pos[2:], opt)
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
	return nil
}

func load(path string, cfg config, opt tagtree.Options) (*tagtree.Compound, error) {
	s := &tagtree.FileStorage{Path: path, Mmap: cfg.Mmap}
	var root *tagtree.Compound
	err := s.Read(func(data []byte) error {
		var err error
		_, root, err = tagtree.UnmarshalNamed(data, decodeOptions(opt))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	opt.Logger.Debug("loaded", "path", path, "entries", root.Len())
	return root, nil
}

func check(w io.Writer, path string, cfg config, opt tagtree.Options) error {
	s := &tagtree.FileStorage{Path: path, Mmap: cfg.Mmap}
	return s.Read(func(data []byte) error {
		_, root, err := tagtree.UnmarshalNamed(data, decodeOptions(opt))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(w, "%s: ok, %d values, %d bytes, xxhash64 %016x\n", path, countValues(root), len(data), xxhash.Sum64(data))
		return nil
	})
}

func dumpBolt(w io.Writer, path, bucket string, key []string, opt tagtree.Options) error {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer db.Close()

	if len(key) == 0 {
		out, err := tagtree.DumpBolt(db, bucket, tagtree.DumpAll, decodeOptions(opt))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
	s := tagtree.NewBoltStorage(db, bucket, key[0])
	return s.Read(func(data []byte) error {
		_, root, err := tagtree.UnmarshalNamed(data, decodeOptions(opt))
		if err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
		fmt.Fprintln(w, tagtree.Format(root))
		return nil
	})
}

func decodeOptions(opt tagtree.Options) tagtree.DecodeOptions {
	return tagtree.DecodeOptions{
		Compression: opt.Compression,
		MaxDepth:    opt.MaxDepth,
	}
}

func countValues(v tagtree.Value) int {
	n := 1
	switch v := v.(type) {
	case *tagtree.Compound:
		for _, child := range v.All() {
			n += countValues(child)
		}
	case *tagtree.List:
		for _, child := range v.All() {
			n += countValues(child)
		}
	}
	return n
}
