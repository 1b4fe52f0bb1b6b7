package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"erepbot/internal/bot"
	"erepbot/internal/journal"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

type battleView struct {
	BattleID     int64  `json:"battle_id"`
	Region       string `json:"region"`
	Division     int    `json:"division"`
	Air          bool   `json:"air"`
	Epic         bool   `json:"epic"`
	Side         int    `json:"side"`
	Defending    bool   `json:"defending"`
	TravelNeeded bool   `json:"travel_needed"`
}

type battlesPayload struct {
	Candidates []battleView `json:"candidates"`
}

type decisionPayload struct {
	Decision     bot.Decision `json:"decision"`
	ShouldTravel bool         `json:"should_travel"`
}

type journalPayload struct {
	Events []journal.Event `json:"events"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func getStatus(ctx context.Context, baseURL, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := (&http.Client{Timeout: 30 * time.Second}).Do(req)
	if err != nil {
		return fmt.Errorf("status api unreachable (is `erepbot run` up?): %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status api %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func renderBattles(rows []battleView) {
	if len(rows) == 0 {
		printWarn("No fightable battles.")
		return
	}
	accent.Printf("%-4s %-10s %-24s %-5s %-9s %-8s %s\n", "#", "BATTLE", "REGION", "DIV", "SIDE", "TRAVEL", "FLAGS")
	for i, b := range rows {
		side := fmt.Sprintf("%d", b.Side)
		if b.Defending {
			side += " def"
		} else {
			side += " inv"
		}
		travel := "-"
		if b.TravelNeeded {
			travel = "yes"
		}
		var flags []string
		if b.Air {
			flags = append(flags, "air")
		}
		if b.Epic {
			flags = append(flags, "epic")
		}
		line := fmt.Sprintf("%-4d %-10d %-24s %-5d %-9s %-8s %s", i+1, b.BattleID, truncate(b.Region, 24), b.Division, side, travel, strings.Join(flags, ","))
		if b.Epic {
			success.Println(line)
			continue
		}
		neutral.Println(line)
	}
}

func renderDecision(status bot.Snapshot, d decisionPayload) {
	e := status.Energy
	accent.Println("Energy")
	printInfo(fmt.Sprintf("  recovered %d / recoverable %d (limit %d, +%d per tick)", e.Recovered, e.Recoverable, e.Limit, e.Interval))
	printInfo(fmt.Sprintf("  available %d, %d food fights, full in %s", e.Available, e.FoodFights, e.TillFull.Truncate(time.Second)))
	accent.Println("Decision")
	switch {
	case d.Decision.Hits > 0 && d.Decision.Forced:
		warn.Printf("  %d hits (forced): %s\n", d.Decision.Hits, d.Decision.Reason)
	case d.Decision.Hits > 0:
		success.Printf("  %d hits: %s\n", d.Decision.Hits, d.Decision.Reason)
	default:
		printInfo("  no hits: " + d.Decision.Reason)
	}
	printInfo(fmt.Sprintf("  travel for battles: %t", d.ShouldTravel))
	if status.LastError != "" {
		printError("Last error: " + status.LastError)
	}
}

func renderJournal(events []journal.Event) {
	if len(events) == 0 {
		printWarn("Journal is empty.")
		return
	}
	accent.Printf("%-20s %-10s %s\n", "AT", "KIND", "MESSAGE")
	for _, e := range events {
		line := fmt.Sprintf("%-20s %-10s %s", e.At.Local().Format("2006-01-02 15:04:05"), e.Kind, e.Message)
		switch e.Kind {
		case "error", "fault":
			danger.Println(line)
		case "fight":
			success.Println(line)
		default:
			neutral.Println(line)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "~"
}
