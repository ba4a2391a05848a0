/**
 * diktim - Albanian dictation analysis service
 *
 * Photographs of handwritten or printed dictation exercises are normalized,
 * transcribed by Tesseract (with an optional vision OCR fallback), optionally
 * refined by an LLM and checked against the exercise corpus for spelling
 * issues.
 *
 * Commands:
 * - serve: HTTP API (synchronous analysis, job submission, metrics)
 * - worker: asynq consumer for queued analysis jobs
 * - analyze: one-off analysis of a local image
 */

package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/adverant/nexus/diktim-ocr/cmd/diktim/cmd"
)

func main() {
	// Load environment variables; a missing .env is fine
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
