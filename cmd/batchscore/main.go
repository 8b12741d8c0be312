// batchscore scores a JSON-lines file of property records offline and writes
// one result per line to stdout. It runs against whatever models are
// configured; with none, every record is scored by the fallback estimator.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"homeval/internal/cfg"
	"homeval/internal/encode"
	"homeval/internal/model"
	"homeval/internal/predict"
	"homeval/internal/schema"
)

type lineResult struct {
	Line         int     `json:"line"`
	Price        float64 `json:"price,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	Tier         string  `json:"tier,omitempty"`
	UsedFallback bool    `json:"used_fallback,omitempty"`
	Error        string  `json:"error,omitempty"`
}

func main() {
	_ = godotenv.Load()

	input := flag.String("input", "", "JSON-lines file of property records")
	flag.Parse()
	if *input == "" {
		log.Fatal().Msg("-input is required")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	encoder := encode.New(encode.DefaultTierTable())
	client := resty.New().SetTimeout(c.FetchTimeout)
	registry := model.Load(c.ModelSources(), encoder.Width(), client)
	fallback := model.NewFallback(c.Fallback, encoder.Tiers())
	svc := predict.New(encoder, registry, fallback, nil, nil)

	f, err := os.Open(*input)
	if err != nil {
		log.Fatal().Err(err).Str("input", *input).Msg("failed to open input")
	}
	defer f.Close()

	out := json.NewEncoder(os.Stdout)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var rec schema.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			_ = out.Encode(lineResult{Line: lineNo, Error: "invalid JSON: " + err.Error()})
			continue
		}

		res, err := svc.Predict(rec)
		if err != nil {
			_ = out.Encode(lineResult{Line: lineNo, Error: err.Error()})
			continue
		}
		_ = out.Encode(lineResult{
			Line:         lineNo,
			Price:        res.Price,
			Confidence:   res.Confidence,
			Tier:         res.Tier.String(),
			UsedFallback: res.UsedFallback,
		})
	}
	if err := scanner.Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to read input")
	}
}
