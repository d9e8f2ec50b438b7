// lightclient-sim stands in for the real data-availability light client
// during development: it emits the same line-delimited JSON event stream
// pkg/das.Verifier expects from a production light-client binary, on a
// synthetic, ever-increasing sequence of block hashes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
)

type event struct {
	Type string    `json:"type"`
	Data eventData `json:"data"`
}

type eventData struct {
	BlockHash     string  `json:"block_hash,omitempty"`
	BlockNumber   int64   `json:"block_number,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
	CellsTotal    int     `json:"cells_total,omitempty"`
	CellsVerified int     `json:"cells_verified,omitempty"`
	Progress      float64 `json:"progress,omitempty"`
	Message       string  `json:"message,omitempty"`
}

func main() {
	network := flag.String("network", "", "DA network to simulate sampling against")
	logFormat := flag.String("log-format", "json-lines", "event log format, only json-lines is supported")
	blockInterval := flag.Duration("block-interval", 2*time.Second, "simulated time between new blocks")
	failureRate := flag.Float64("failure-rate", 0.0, "fraction of blocks that fail sampling, in [0,1]")
	flag.Parse()

	if *logFormat != "json-lines" {
		fmt.Fprintf(os.Stderr, "unsupported log format %q\n", *logFormat)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	const cellsTotal = 256

	var blockNumber int64 = 1
	for {
		blockHash := fmt.Sprintf("0x%s-%d", *network, blockNumber)

		if rand.Float64() < *failureRate {
			emit(enc, event{Type: "error", Data: eventData{
				BlockHash: blockHash,
				Message:   "sample reconstruction failed below confidence threshold",
			}})
			blockNumber++
			time.Sleep(*blockInterval)
			continue
		}

		verified := 0
		for verified < cellsTotal {
			verified += 64
			if verified > cellsTotal {
				verified = cellsTotal
			}
			progress := float64(verified) / float64(cellsTotal)
			emit(enc, event{Type: "verification_progress", Data: eventData{
				BlockHash:     blockHash,
				Progress:      progress,
				CellsVerified: verified,
			}})
			time.Sleep(*blockInterval / 4)
		}

		emit(enc, event{Type: "block_verified", Data: eventData{
			BlockHash:     blockHash,
			BlockNumber:   blockNumber,
			Confidence:    0.999,
			CellsTotal:    cellsTotal,
			CellsVerified: cellsTotal,
		}})

		blockNumber++
		time.Sleep(*blockInterval)
	}
}

func emit(enc *json.Encoder, e event) {
	if err := enc.Encode(e); err != nil {
		fmt.Fprintf(os.Stderr, "encode event: %v\n", err)
		return
	}
}
