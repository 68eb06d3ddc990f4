package main

// Run one resume through extraction and the configured model without the API:
//   go run ./cmd/prompttest -resume ./cv.pdf [-role "backend engineering"] [-provider gemini] [-text]

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"internship-portal/internal/bootstrap"
	"internship-portal/internal/extract"
	"internship-portal/internal/llm"
	"internship-portal/internal/shared/config"
)

func main() {
	cfg := config.Load()

	resumePath := flag.String("resume", "", "Path to a PDF resume")
	role := flag.String("role", cfg.AnalysisTargetRole, "Target role context (optional)")
	provider := flag.String("provider", cfg.AI.Provider, "Model provider: gemini, openai or static")
	model := flag.String("model", "", "Model name (defaults to the provider's configured model)")
	outPath := flag.String("out", "", "Path to write the JSON result (optional)")
	textOnly := flag.Bool("text", false, "Print the extracted text and exit")
	flag.Parse()

	if strings.TrimSpace(*resumePath) == "" {
		exitErr("resume path is required")
	}
	if !strings.EqualFold(filepath.Ext(*resumePath), ".pdf") {
		exitErr(fmt.Sprintf("unsupported resume file type: %s", filepath.Ext(*resumePath)))
	}

	ctx := context.Background()
	text, err := extract.New().Extract(ctx, *resumePath)
	if err != nil {
		exitErr(fmt.Sprintf("extract resume text: %v", err))
	}
	if *textOnly {
		fmt.Println(text)
		return
	}
	if !extract.Validate(text) {
		exitErr("extracted text does not look like a resume or is too short")
	}

	ai := cfg.AI
	if *provider != ai.Provider {
		// provider keys and default model are resolved by config
		_ = os.Setenv("LLM_PROVIDER", *provider)
		ai = config.Load().AI
	}
	if strings.TrimSpace(*model) != "" {
		ai.Model = *model
	}
	gen, err := bootstrap.BuildGenerator(ctx, ai)
	if err != nil {
		exitErr(err.Error())
	}
	analyzer := llm.NewAnalyzer(gen, llm.Options{
		TargetRole:     *role,
		MaxAttempts:    ai.MaxAttempts,
		AttemptTimeout: ai.Timeout,
	})

	result, err := analyzer.Analyze(ctx, text, "")
	if err != nil {
		exitErr(fmt.Sprintf("analyze: %v", err))
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	pretty = append(pretty, '\n')

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
