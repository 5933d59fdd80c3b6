package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/freeeve/hexfront/internal/bot"
)

// civStats aggregates one civilization's results across games.
type civStats struct {
	Civ        string
	Difficulty string
	Games      int
	Wins       int
	Draws      int
	Units      int // surviving units summed over games
}

func (s civStats) avgUnits() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Units) / float64(s.Games)
}

type summary struct {
	Completed int
	Combats   int
	Kills     int
	Civs      []civStats
}

// summarize folds arena results into per-civ rows sorted by name. Failed
// games are nil and skipped.
func summarize(results []*bot.ArenaResult, civCfg map[string]string) summary {
	byCiv := make(map[string]*civStats)
	var sum summary
	for _, r := range results {
		if r == nil {
			continue
		}
		sum.Completed++
		sum.Combats += r.Combats
		sum.Kills += r.Kills
		for civ, n := range r.UnitCounts {
			s, ok := byCiv[civ]
			if !ok {
				s = &civStats{Civ: civ, Difficulty: difficultyOf(civCfg, civ)}
				byCiv[civ] = s
			}
			s.Games++
			s.Units += n
			switch r.Winner {
			case civ:
				s.Wins++
			case "":
				s.Draws++
			}
		}
	}
	for _, s := range byCiv {
		sum.Civs = append(sum.Civs, *s)
	}
	sort.Slice(sum.Civs, func(i, j int) bool { return sum.Civs[i].Civ < sum.Civs[j].Civ })
	return sum
}

func difficultyOf(civCfg map[string]string, civ string) string {
	if d, ok := civCfg[strings.ToLower(civ)]; ok {
		return d
	}
	if d, ok := civCfg["*"]; ok {
		return d
	}
	return "easy"
}

func printSummary(w io.Writer, sum summary, maxTurns, errCount int) {
	title := color.New(color.FgCyan, color.Bold)
	title.Fprintf(w, "\nResults (%d games, max %d turns)\n", sum.Completed, maxTurns)
	if errCount > 0 {
		color.New(color.FgRed).Fprintf(w, "  (%d games failed)\n", errCount)
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Civ", "Difficulty", "Wins", "Draws", "Avg Units"}),
	)
	for _, s := range sum.Civs {
		table.Append([]string{
			s.Civ,
			s.Difficulty,
			fmt.Sprint(s.Wins),
			fmt.Sprint(s.Draws),
			fmt.Sprintf("%.1f", s.avgUnits()),
		})
	}
	table.Render()
	fmt.Fprintf(w, "Combats: %d  Kills: %d\n", sum.Combats, sum.Kills)
}
