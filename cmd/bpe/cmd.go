package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/bpe/internal/bpe"
	"github.com/born-ml/bpe/internal/corpus"
	"github.com/born-ml/bpe/internal/envconfig"
	"github.com/born-ml/bpe/internal/logutil"
	"github.com/born-ml/bpe/internal/pretokenize"
	"github.com/born-ml/bpe/internal/serialization"
	"github.com/born-ml/bpe/internal/tokenizer"
	"github.com/born-ml/bpe/internal/version"
)

const extTiktoken = ".tiktoken"

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bpe",
		Short: "Byte-level BPE tokenizer trainer",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), logutil.Level(envconfig.Debug, envconfig.Trace)))
		},
	}

	cobra.EnableCommandSorting = false

	trainCmd := &cobra.Command{
		Use:   "train [flags] CORPUS...",
		Short: "Train a tokenizer on text and parquet files",
		Long: "Train a tokenizer on .txt files (one document per paragraph), .parquet shards " +
			"(one document per row of the \"text\" column) or directories of them.",
		Args: cobra.MinimumNArgs(1),
		RunE: trainHandler,
	}
	trainCmd.Flags().StringP("config", "c", "", "YAML training config")
	trainCmd.Flags().IntP("vocab-size", "v", 0, "Target vocabulary size, including the 256 byte tokens")
	trainCmd.Flags().String("pattern", "", "Pre-tokenization regex (default: GPT-4 pattern)")
	trainCmd.Flags().Int64("min-pair-count", 0, "Stop when the best pair occurs fewer times than this")
	trainCmd.Flags().Int64("max-chars", 0, "Stop reading the corpus after this many characters")
	trainCmd.Flags().Int("doc-cap", 0, "Truncate each document to this many characters")
	trainCmd.Flags().Int("workers", 0, "Worker goroutines for pre-tokenization and counting")
	trainCmd.Flags().StringP("output", "o", "", "Output .bpe file")
	trainCmd.Flags().String("tiktoken", "", "Also write the rank table to this .tiktoken file")

	encodeCmd := &cobra.Command{
		Use:   "encode [flags] [TEXT...]",
		Short: "Encode text to token ids",
		Long:  "Encode the arguments joined by spaces, or standard input when no text is given.",
		RunE:  encodeHandler,
	}
	addModelFlags(encodeCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode [flags] [ID...]",
		Short: "Decode token ids to text",
		Long:  "Decode the ids given as arguments, or whitespace separated ids read from standard input.",
		RunE:  decodeHandler,
	}
	addModelFlags(decodeCmd)

	ranksCmd := &cobra.Command{
		Use:   "ranks [flags]",
		Short: "Show the rank table",
		Args:  cobra.NoArgs,
		RunE:  ranksHandler,
	}
	addModelFlags(ranksCmd)
	ranksCmd.Flags().Int("offset", bpe.NumBytes, "First rank to show")
	ranksCmd.Flags().IntP("limit", "n", 50, "Number of ranks to show (0 for all)")

	evalCmd := &cobra.Command{
		Use:   "eval [flags] CORPUS...",
		Short: "Compare compression against tiktoken encodings",
		Args:  cobra.MinimumNArgs(1),
		RunE:  evalHandler,
	}
	addModelFlags(evalCmd)
	evalCmd.Flags().StringSlice("compare", nil, "tiktoken encodings to compare with (e.g. cl100k_base)")
	evalCmd.Flags().Int64("max-chars", 10_000_000, "Characters of corpus to evaluate on")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bpe version %s\n", version.Version)
		},
	}

	rootCmd.AddCommand(
		trainCmd,
		encodeCmd,
		decodeCmd,
		ranksCmd,
		evalCmd,
		versionCmd,
	)

	return rootCmd
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "tokenizer.bpe", "Tokenizer file (.bpe or .tiktoken)")
	cmd.Flags().String("pattern", pretokenize.GPT4Pattern, "Pre-tokenization regex for .tiktoken files")
}

func loadModel(cmd *cobra.Command) (*bpe.Tokenizer, error) {
	path, err := cmd.Flags().GetString("model")
	if err != nil {
		return nil, err
	}

	if filepath.Ext(path) == extTiktoken {
		pattern, err := cmd.Flags().GetString("pattern")
		if err != nil {
			return nil, err
		}
		re, err := pretokenize.Compile(pattern)
		if err != nil {
			return nil, err
		}
		return serialization.LoadTiktoken(path, re)
	}

	tok, header, err := serialization.Load(path, serialization.ReaderOptions{})
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded tokenizer", "path", path, "vocab_size", header.VocabSize, "run", header.RunID, "created", header.CreatedAt)
	return tok, nil
}

func trainHandler(cmd *cobra.Command, args []string) error {
	cfg := defaultTrainConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := loadTrainConfig(path, &cfg); err != nil {
			return err
		}
	}
	if err := cfg.applyFlags(cmd.Flags()); err != nil {
		return err
	}

	splitter, err := pretokenize.Compile(cfg.Pattern)
	if err != nil {
		return fmt.Errorf("%w: %w", bpe.ErrInvalidConfig, err)
	}
	session, err := bpe.NewTrainingSession(splitter, cfg.VocabSize, cfg.bpeConfig())
	if err != nil {
		return err
	}

	loader := &corpus.Loader{MaxChars: cfg.MaxChars, DocCap: cfg.DocCap}
	if err := session.Init(cmd.Context(), loader.Documents(args...)); err != nil {
		return err
	}
	if err := loader.Err(); err != nil {
		return err
	}
	slog.Info("corpus read", "summary", loader.Describe())

	start := time.Now()
	runErr := session.Run(cmd.Context())
	tok, err := session.Finish()
	if err != nil {
		return err
	}
	if runErr != nil {
		if !errors.Is(runErr, cmd.Context().Err()) {
			return runErr
		}
		slog.Warn("training interrupted, saving merges learned so far", "vocab_size", tok.VocabSize())
	}

	header := serialization.Header{RunID: session.ID().String(), Metadata: cfg.Metadata}
	if err := serialization.Save(cfg.Output, tok, header); err != nil {
		return err
	}
	if cfg.Tiktoken != "" {
		if err := serialization.SaveTiktoken(cfg.Tiktoken, tok); err != nil {
			return err
		}
	}

	slog.Info("training finished", "run", session.ID(), "vocab_size", tok.VocabSize(),
		"merges", tok.VocabSize()-bpe.NumBytes, "output", cfg.Output)
	fmt.Fprintf(cmd.OutOrStdout(), "trained %d tokens (%d merges) in %s, wrote %s\n",
		tok.VocabSize(), tok.VocabSize()-bpe.NumBytes, time.Since(start).Round(time.Millisecond), cfg.Output)
	return runErr
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	return string(b), err
}

func encodeHandler(cmd *cobra.Command, args []string) error {
	tok, err := loadModel(cmd)
	if err != nil {
		return err
	}
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	ids := tok.Encode(text)
	out := bufio.NewWriter(cmd.OutOrStdout())
	for i, id := range ids {
		if i > 0 {
			_ = out.WriteByte(' ')
		}
		_, _ = out.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	_ = out.WriteByte('\n')
	return out.Flush()
}

func decodeHandler(cmd *cobra.Command, args []string) error {
	tok, err := loadModel(cmd)
	if err != nil {
		return err
	}
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	fields := strings.Fields(text)
	ids := make([]bpe.Rank, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return fmt.Errorf("token %d: %w", i, err)
		}
		ids[i] = bpe.Rank(n)
	}

	b, err := tok.Decode(ids)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(b)
	return err
}

func ranksHandler(cmd *cobra.Command, args []string) error {
	tok, err := loadModel(cmd)
	if err != nil {
		return err
	}
	offset, _ := cmd.Flags().GetInt("offset")
	limit, _ := cmd.Flags().GetInt("limit")

	merges := make(map[bpe.Rank]bpe.Pair, tok.VocabSize()-bpe.NumBytes)
	for _, m := range tok.Merges() {
		merges[m.Rank] = m.Pair
	}

	var data [][]string
	for _, e := range tok.MergeableRanks() {
		if int(e.Rank) < offset {
			continue
		}
		if limit > 0 && len(data) == limit {
			break
		}
		left, right := "", ""
		if p, ok := merges[e.Rank]; ok {
			left, right = strconv.Itoa(int(p.Left)), strconv.Itoa(int(p.Right))
		}
		data = append(data, []string{strconv.Itoa(int(e.Rank)), strconv.Quote(string(e.Bytes)), left, right})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"RANK", "BYTES", "LEFT", "RIGHT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

func evalHandler(cmd *cobra.Command, args []string) error {
	tok, err := loadModel(cmd)
	if err != nil {
		return err
	}
	model, _ := cmd.Flags().GetString("model")
	encodings, _ := cmd.Flags().GetStringSlice("compare")
	maxChars, _ := cmd.Flags().GetInt64("max-chars")

	loader := &corpus.Loader{MaxChars: maxChars}
	var texts []string
	for doc := range loader.Documents(args...) {
		texts = append(texts, doc)
	}
	if err := loader.Err(); err != nil {
		return err
	}

	encoders := []tokenizer.Tokenizer{tokenizer.NewBPE(filepath.Base(model), tok)}
	for _, name := range encodings {
		enc, err := tokenizer.NewTikToken(name)
		if err != nil {
			return err
		}
		encoders = append(encoders, enc)
	}

	var data [][]string
	for _, enc := range encoders {
		stats, err := tokenizer.Compression(enc, texts)
		if err != nil {
			return err
		}
		data = append(data, []string{
			stats.Name,
			strconv.Itoa(stats.VocabSize),
			strconv.Itoa(stats.Bytes),
			strconv.Itoa(stats.Tokens),
			strconv.FormatFloat(stats.Ratio(), 'f', 2, 64),
		})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"TOKENIZER", "VOCAB", "BYTES", "TOKENS", "BYTES/TOKEN"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}
