package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/routekit/editor/v2/internal/geo"
	"github.com/routekit/editor/v2/pkg/streaming"
	"github.com/routekit/editor/v2/pkg/surface"
)

// scriptLine is one executable line of a replay script.
type scriptLine struct {
	num     int
	raw     string
	sleep   time.Duration
	command string
	args    []string
}

// readScript parses a replay script. Each line is a command in bridge
// wire format, "CMD|arg|arg". Blank lines and #-comments are skipped.
// A "sleep <ms>" line pauses the replay, which is how scripts let
// gesture and animation timers fire.
func readScript(path string) ([]scriptLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	var lines []scriptLine
	scanner := bufio.NewScanner(f)
	num := 0
	for scanner.Scan() {
		num++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		if ms, ok := strings.CutPrefix(raw, "sleep "); ok {
			v, err := strconv.Atoi(strings.TrimSpace(ms))
			if err != nil || v < 0 {
				return nil, fmt.Errorf("line %d: bad sleep duration %q", num, ms)
			}
			lines = append(lines, scriptLine{
				num:   num,
				raw:   raw,
				sleep: time.Duration(v) * time.Millisecond,
			})
			continue
		}

		parts := strings.Split(raw, "|")
		lines = append(lines, scriptLine{
			num:     num,
			raw:     raw,
			command: parts[0],
			args:    parts[1:],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return lines, nil
}

// runScript replays a script through the dispatcher, echoing every
// command, its response, and the envelopes the engine emits.
func runScript(path string) error {
	lines, err := readScript(path)
	if err != nil {
		return err
	}

	Logger.Info("Replaying script", "path", path, "commands", len(lines))
	start := time.Now()
	failed := 0

	for _, line := range lines {
		if line.sleep > 0 {
			fmt.Printf("%4d  %s\n", line.num, line.raw)
			time.Sleep(line.sleep)
			printEnvelopes(drainEnvelopes())
			continue
		}

		result := surface.CallArgs(line.command, line.args)
		switch {
		case strings.HasPrefix(result, `["error"`):
			failed++
			fmt.Printf("%4d  %s\n      !! %s\n", line.num, line.raw, result)
		case result != `["ok"]`:
			fmt.Printf("%4d  %s\n      = %s\n", line.num, line.raw, result)
		default:
			fmt.Printf("%4d  %s\n", line.num, line.raw)
		}
		printEnvelopes(drainEnvelopes())
	}

	// Detached timers may still be emitting right after the last line.
	time.Sleep(50 * time.Millisecond)
	printEnvelopes(drainEnvelopes())

	printFinalState(time.Since(start), len(lines), failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d commands failed", failed, len(lines))
	}
	return nil
}

// drainEnvelopes empties the outbound channel without blocking.
func drainEnvelopes() []streaming.Envelope {
	var out []streaming.Envelope
	for envelopes.Len() > 0 {
		out = append(out, <-envelopes.Receive())
	}
	return out
}

func printEnvelopes(envs []streaming.Envelope) {
	for _, e := range envs {
		fmt.Printf("      -> %s %s\n", e.Type, string(e.Payload))
	}
}

// printFinalState dumps the working route and the session counters
// after the script finishes, so acceptance runs can diff the output.
func printFinalState(elapsed time.Duration, total, failed int) {
	meta := sessionCtx.GetMeta()
	points := editorService.Points()
	stats := editorService.Stats()

	fmt.Println()
	fmt.Println("Final route state:")
	fmt.Printf("  name:       %s\n", meta.Name)
	fmt.Printf("  tag:        %s\n", meta.Tag)
	fmt.Printf("  mode:       %s\n", sessionCtx.GetMode())
	fmt.Printf("  zoom:       %.1f\n", headless.Zoom())
	fmt.Printf("  points:     %d\n", len(points))
	fmt.Printf("  distance:   %.1f m\n", geo.RouteDistance(points))
	fmt.Printf("  undo depth: %d\n", editorService.UndoDepth())
	for i, p := range points {
		fmt.Printf("  %3d  %11.6f %11.6f\n", i, p.Lat, p.Lng)
	}

	fmt.Printf("Edits: %d adds, %d inserts, %d moves, %d deletes, %d round trips, %d undos\n",
		stats.Adds, stats.Inserts, stats.Moves, stats.Deletes, stats.RoundTrips, stats.Undos)
	fmt.Printf("Replayed %d commands in %s (%d failed)\n",
		total, elapsed.Round(time.Millisecond), failed)
}
