// Binary console is the interactive operator menu: inspect and edit the
// configuration, manage subscribers, and launch the signal pipeline.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/config"
)

const defaultConfigPath = "config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== Aventa Signal Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit risk knobs")
		fmt.Println("3) Edit broadcast filters")
		fmt.Println("4) Manage subscribers")
		fmt.Println("5) Save config")
		fmt.Println("6) Launch signal pipeline")
		fmt.Println("7) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editRisk(reader, cfg)
		case "3":
			editBroadcast(reader, cfg)
		case "4":
			editSubscribers(reader, cfg)
		case "5":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "6":
			launchSignals(reader)
		case "7":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Println("Symbols:", strings.Join(cfg.Market.Symbols, ", "))
	fmt.Printf("Provider: %s | interval: %ds\n", cfg.Market.Provider, cfg.Market.IntervalSecs)
	fmt.Printf("Max positions: %d | daily trades: %d | daily loss: $%.2f\n",
		cfg.Risk.MaxPositions, cfg.Risk.MaxDailyTrades, cfg.Risk.MaxDailyLoss)
	fmt.Printf("SL/TP ATR multipliers: %.2f / %.2f\n", cfg.Risk.SLATRMult, cfg.Risk.TPATRMult)
	fmt.Printf("Broadcasting: %v | direction: %s | min confidence: %.4f\n",
		cfg.Broadcast.Enabled, cfg.Broadcast.DirectionFilter, cfg.Broadcast.MinConfidence)
	fmt.Printf("TP/SL preview: +%.2f%% / -%.2f%% | max per hour: %d\n",
		cfg.Broadcast.TakeProfitPct*100, cfg.Broadcast.StopLossPct*100, cfg.Broadcast.MaxPerHour)
	fmt.Printf("Subscribers: %d\n", len(cfg.Broadcast.Subscribers))
}

func editRisk(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Risk ---")
	cfg.Risk.MaxPositions = int(promptFloat(reader, "Max open positions", float64(cfg.Risk.MaxPositions)))
	cfg.Risk.MaxDailyTrades = int(promptFloat(reader, "Max daily trades", float64(cfg.Risk.MaxDailyTrades)))
	cfg.Risk.MaxDailyLoss = promptFloat(reader, "Max daily loss (USD)", cfg.Risk.MaxDailyLoss)
	cfg.Risk.SLATRMult = promptFloat(reader, "Stop-loss ATR multiplier", cfg.Risk.SLATRMult)
	cfg.Risk.TPATRMult = promptFloat(reader, "Take-profit ATR multiplier", cfg.Risk.TPATRMult)
}

func editBroadcast(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Broadcast Filters ---")
	fmt.Printf("Direction filter (ALL/BUY/SELL) [%s]: ", cfg.Broadcast.DirectionFilter)
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		cfg.Broadcast.DirectionFilter = strings.ToUpper(strings.TrimSpace(line))
	}
	cfg.Broadcast.MinConfidence = promptFloat(reader, "Min confidence", cfg.Broadcast.MinConfidence)
	cfg.Broadcast.TakeProfitPct = promptPercent(reader, "Take profit (%)", cfg.Broadcast.TakeProfitPct)
	cfg.Broadcast.StopLossPct = promptPercent(reader, "Stop loss (%)", cfg.Broadcast.StopLossPct)
	cfg.Broadcast.MaxPerHour = int(promptFloat(reader, "Max signals per hour", float64(cfg.Broadcast.MaxPerHour)))
}

func editSubscribers(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Manage Subscribers ---")
	fmt.Println("Current:", strings.Join(cfg.Broadcast.Subscribers, ", "))
	fmt.Print("Add chat ID (blank to skip): ")
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		id := strings.TrimSpace(line)
		for _, existing := range cfg.Broadcast.Subscribers {
			if existing == id {
				fmt.Println("already subscribed")
				return
			}
		}
		cfg.Broadcast.Subscribers = append(cfg.Broadcast.Subscribers, id)
	}
	fmt.Print("Remove chat ID (blank to skip): ")
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		id := strings.TrimSpace(line)
		kept := cfg.Broadcast.Subscribers[:0]
		for _, existing := range cfg.Broadcast.Subscribers {
			if existing != id {
				kept = append(kept, existing)
			}
		}
		cfg.Broadcast.Subscribers = kept
	}
}

func launchSignals(reader *bufio.Reader) {
	fmt.Println("Launching signal pipeline (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/signals")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start pipeline: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the pipeline and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func promptPercent(reader *bufio.Reader, label string, current float64) float64 {
	pct := promptFloat(reader, label, current*100)
	return pct / 100
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}
