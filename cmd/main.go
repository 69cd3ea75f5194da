package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/tokenpipe/tokenpipe"
	"github.com/tokenpipe/tokenpipe/options"
	"github.com/tokenpipe/tokenpipe/util"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var definitionPath string
var inputPath string
var outputPath string
var direction string
var batchSize int
var maxLength int
var skipSpecial bool

type inputRecord struct {
	Input string  `json:"input"`
	IDs   []int32 `json:"ids"`
}

type outputRecord struct {
	Input  string  `json:"input,omitempty"`
	IDs    []int32 `json:"ids,omitempty"`
	Output string  `json:"output,omitempty"`
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Run a converted tokenizer pipeline on input data",
	Description: `Run expects a path to a file with input in .jsonl format. For the tokenize
direction each json line must be {"input": "raw text"}; for detokenize it
must be {"ids": [1, 2, 3]}. If --input is omitted and stdin is piped, lines
are read from stdin.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "definition",
			Usage:       "Path to the tokenizer definition json",
			Aliases:     []string{"d"},
			Destination: &definitionPath,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "direction",
			Usage:       "tokenize or detokenize",
			Aliases:     []string{"t"},
			Destination: &direction,
			Value:       "tokenize",
		},
		&cli.StringFlag{
			Name:        "input",
			Usage:       "Path to the input data",
			Aliases:     []string{"i"},
			Destination: &inputPath,
		},
		&cli.StringFlag{
			Name:        "output",
			Usage:       "Path to output. If omitted, output goes to stdout",
			Aliases:     []string{"o"},
			Destination: &outputPath,
		},
		&cli.IntFlag{
			Name:        "batchSize",
			Usage:       "Number of inputs to process in a batch",
			Aliases:     []string{"b"},
			Destination: &batchSize,
			Value:       20,
		},
		&cli.IntFlag{
			Name:        "maxLength",
			Usage:       "Truncate/pad rows to this many tokens",
			Aliases:     []string{"l"},
			Destination: &maxLength,
		},
		&cli.BoolFlag{
			Name:        "skipSpecialTokens",
			Usage:       "Drop special tokens when detokenizing",
			Destination: &skipSpecial,
		},
	},
	Action: func(ctx *cli.Context) error {
		var opts []options.WithOption
		if maxLength > 0 {
			opts = append(opts, options.WithMaxLength(maxLength))
		}
		if skipSpecial {
			opts = append(opts, options.WithSkipSpecialTokens())
		}

		session := tokenpipe.NewSession()
		config := tokenpipe.PipelineConfig{
			Name:    "cli",
			Path:    definitionPath,
			Options: opts,
		}

		records, err := readRecords()
		if err != nil {
			return err
		}

		var out strings.Builder
		switch direction {
		case "tokenize":
			pipe, err := tokenpipe.NewTokenizer(session, config)
			if err != nil {
				return err
			}
			for lo := 0; lo < len(records); lo += batchSize {
				hi := min(lo+batchSize, len(records))
				inputs := make([]string, 0, hi-lo)
				for _, r := range records[lo:hi] {
					inputs = append(inputs, r.Input)
				}
				result, err := pipe.Run(inputs)
				if err != nil {
					return err
				}
				for i, row := range result.IDs.Rows() {
					if err := writeRecord(&out, outputRecord{Input: inputs[i], IDs: row}); err != nil {
						return err
					}
				}
			}
		case "detokenize":
			pipe, err := tokenpipe.NewDetokenizer(session, config, nil)
			if err != nil {
				return err
			}
			for lo := 0; lo < len(records); lo += batchSize {
				hi := min(lo+batchSize, len(records))
				rows := make([][]int32, 0, hi-lo)
				for _, r := range records[lo:hi] {
					rows = append(rows, r.IDs)
				}
				outputs, err := pipe.Run(rows)
				if err != nil {
					return err
				}
				for i, s := range outputs {
					if err := writeRecord(&out, outputRecord{IDs: rows[i], Output: s}); err != nil {
						return err
					}
				}
			}
		default:
			return fmt.Errorf("unknown direction %q, expected tokenize or detokenize", direction)
		}

		if outputPath != "" {
			return util.WriteFileBytes(outputPath, []byte(out.String()))
		}
		_, err = os.Stdout.WriteString(out.String())
		return err
	},
}

func readRecords() ([]inputRecord, error) {
	var reader *bufio.Reader
	if inputPath != "" {
		file, err := util.OpenFile(inputPath)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		reader = bufio.NewReader(file)
	} else {
		if isatty.IsTerminal(os.Stdin.Fd()) {
			return nil, fmt.Errorf("no input file provided and stdin is a terminal")
		}
		reader = bufio.NewReader(os.Stdin)
	}

	var records []inputRecord
	for {
		line, err := util.ReadLine(reader)
		if len(line) > 0 {
			var r inputRecord
			if jsonErr := json.Unmarshal(line, &r); jsonErr != nil {
				return nil, fmt.Errorf("parsing input line %d: %w", len(records)+1, jsonErr)
			}
			records = append(records, r)
		}
		if err != nil {
			break
		}
	}
	return records, nil
}

func writeRecord(out *strings.Builder, r outputRecord) error {
	line, err := json.Marshal(r)
	if err != nil {
		return err
	}
	out.Write(line)
	out.WriteByte('\n')
	return nil
}

func main() {
	app := &cli.App{
		Name:     "tokenpipe",
		Usage:    "run converted tokenizer pipelines",
		Commands: []*cli.Command{runCommand},
	}
	if err := app.Run(os.Args); err != nil {
		_, writeErr := os.Stderr.WriteString(err.Error() + "\n")
		if writeErr != nil {
			panic(writeErr)
		}
		os.Exit(1)
	}
}
