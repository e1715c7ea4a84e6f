// Package main - agitator
// Load generator for the visitor WebSocket: K clients sending random actions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	ResultsPath    string
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Errors           int64
	// Rejections counts error frames, mostly rate limiting.
	Rejections int64
	Latencies  []time.Duration
	mu         sync.Mutex
}

// Visitor messages the server understands.
var actionTypes = []string{
	"encourage",
	"philosophize",
	"mock",
	"requestTermination",
	"witness",
	"state",
}

func main() {
	var config Config

	cmd := &cobra.Command{
		Use:   "agitator",
		Short: "Stress test the visitor WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&config.ServerURL, "url", "ws://localhost:8080/ws", "WebSocket server URL")
	cmd.Flags().IntVar(&config.NumClients, "clients", 50, "Number of concurrent clients")
	cmd.Flags().DurationVar(&config.ActionInterval, "interval", 500*time.Millisecond, "Action interval per client")
	cmd.Flags().DurationVar(&config.TestDuration, "duration", 60*time.Second, "Test duration")
	cmd.Flags().StringVar(&config.ResultsPath, "results", "stress_test_results.json", "Where to write the JSON results (empty to skip)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(config Config) error {
	if config.NumClients < 1 || config.ActionInterval <= 0 {
		return fmt.Errorf("need at least one client and a positive interval")
	}

	fmt.Println("=========================================")
	fmt.Println("AGITATOR - Visitor stress test")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	started := time.Now()
	stats := runStressTest(ctx, config)
	return printResults(stats, config, time.Since(started))
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\nStarting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: Sent=%d Recv=%d Rejected=%d Errors=%d\n",
					atomic.LoadInt64(&stats.MessagesSent),
					atomic.LoadInt64(&stats.MessagesReceived),
					atomic.LoadInt64(&stats.Rejections),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			var msg struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(data, &msg) == nil && msg.Type == "error" {
				atomic.AddInt64(&stats.Rejections, 1)
			}
		}
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(clientID)))
	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			action := map[string]string{"type": actionTypes[rng.Intn(len(actionTypes))]}
			start := time.Now()

			if err := conn.WriteJSON(action); err != nil {
				if ctx.Err() == nil {
					atomic.AddInt64(&stats.Errors, 1)
				}
				return
			}

			latency := time.Since(start)
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, latency)
			stats.mu.Unlock()
		}
	}
}

func printResults(stats *Stats, config Config, elapsed time.Duration) error {
	fmt.Println("\n=========================================")
	fmt.Println("STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	rejected := atomic.LoadInt64(&stats.Rejections)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Messages Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Rejected:          %d\n", rejected)
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / elapsed.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	stats.mu.Lock()
	latencies := stats.Latencies
	stats.mu.Unlock()
	if len(latencies) > 0 {
		var total time.Duration
		lo, hi := latencies[0], latencies[0]
		for _, l := range latencies {
			total += l
			lo = min(lo, l)
			hi = max(hi, l)
		}

		fmt.Printf("\nWrite latency:\n")
		fmt.Printf("  Min: %v\n", lo)
		fmt.Printf("  Avg: %v\n", total/time.Duration(len(latencies)))
		fmt.Printf("  Max: %v\n", hi)
	}

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0:
		fmt.Println("TEST PASSED: System handled the load")
	case float64(errs)/float64(sent+1) < 0.05:
		fmt.Println("TEST WARNING: Some errors detected")
	default:
		fmt.Println("TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	if config.ResultsPath == "" {
		return nil
	}
	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"rejected":           rejected,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(config.ResultsPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	fmt.Printf("\nResults saved to %s\n", config.ResultsPath)
	return nil
}
