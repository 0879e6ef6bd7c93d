package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jllopis/roundtable/pkg/archive"
	"github.com/jllopis/roundtable/pkg/config"
)

type roundRow struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Turn      int       `json:"turn"`
	State     string    `json:"state"`
	Plan      string    `json:"plan"`
	Result    any       `json:"result,omitempty"`
	Score     any       `json:"score,omitempty"`
	Advice    string    `json:"advice,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// runRounds lists archived rounds, newest first.
func runRounds(ctx context.Context, flags globalFlags, cfg *config.Config, args []string) {
	cmd := flag.NewFlagSet("rounds", flag.ContinueOnError)
	sessionID := cmd.String("session", "", "Session ID filter")
	state := cmd.String("state", "", "Round state filter (accepted, rejected)")
	limit := cmd.Int("limit", 20, "Maximum rounds to list")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	ensureNoArgs(cmd.Args())

	store, closeStore, err := openArchive(cfg.Archive)
	if err != nil {
		fatal(err)
	}
	if store == nil {
		fatal(errors.New("archive is disabled; set archive.driver to sqlite or memory"))
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.List(ctx, archive.Filter{
		SessionID: *sessionID,
		State:     *state,
		Limit:     *limit,
	})
	if err != nil {
		fatal(err)
	}

	if flags.JSON {
		rows := make([]roundRow, 0, len(records))
		for _, rec := range records {
			rows = append(rows, roundRow{
				ID:        rec.ID,
				SessionID: rec.SessionID,
				Turn:      rec.Turn,
				State:     rec.State,
				Plan:      rec.Plan,
				Result:    rec.Result,
				Score:     rec.Score,
				Advice:    rec.Advice,
				CreatedAt: rec.CreatedAt,
			})
		}
		printJSON(rows)
		return
	}

	writer := newTabWriter()
	writeRow(writer, "CREATED", "SESSION", "TURN", "STATE", "SCORE", "PLAN")
	for _, rec := range records {
		writeRow(writer,
			formatTime(rec.CreatedAt),
			rec.SessionID,
			strconv.Itoa(rec.Turn),
			rec.State,
			formatScore(rec.Score),
			truncateMessage(rec.Plan, 60),
		)
	}
	_ = writer.Flush()
}

// formatScore renders an archived verdict for the table. Scores come back
// from SQLite as JSON values, so numeric series arrive as []any.
func formatScore(score any) string {
	switch v := score.(type) {
	case nil:
		return "-"
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	case []float64:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}
