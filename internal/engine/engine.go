// Package engine runs the triage conversation: it routes each message
// through slot filling, clarification and symptom collection, and locks a
// triage result into the case once enough is known.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hpungsan/triage/internal/cases"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/extract"
	"github.com/hpungsan/triage/internal/intent"
	"github.com/hpungsan/triage/internal/scoring"
	"github.com/hpungsan/triage/internal/session"
	"github.com/hpungsan/triage/internal/slots"
	"github.com/hpungsan/triage/internal/textnorm"
)

// Knowledge is the knowledge base surface the engine reads.
type Knowledge interface {
	extract.Lookup
	scoring.Definitions
}

// Saver persists case snapshots.
type Saver interface {
	SaveCase(ctx context.Context, c *cases.Case, sessionID string) error
}

// Options configure an Engine.
type Options struct {
	// BootID identifies this process run. Sessions last served under a
	// different boot id start a new case. Empty generates one.
	BootID string

	// Thresholds are the scoring cutoffs. Zero values use the defaults.
	Thresholds scoring.Thresholds

	// FuzzyThreshold is the minimum fuzzy alias similarity. Zero uses the default.
	FuzzyThreshold float64

	// Now returns the current time. Nil uses time.Now.
	Now func() time.Time
}

// Engine handles chat messages for any number of sessions.
type Engine struct {
	sessions  *session.Store
	saver     Saver
	extractor *extract.Extractor
	scorer    *scoring.Scorer
	bootID    string
	now       func() time.Time
}

// New creates an Engine. saver may be nil to disable persistence.
func New(kb Knowledge, sessions *session.Store, saver Saver, opts Options) *Engine {
	if opts.BootID == "" {
		opts.BootID = session.NewBootID()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if sessions == nil {
		sessions = session.NewStore()
	}
	return &Engine{
		sessions:  sessions,
		saver:     saver,
		extractor: extract.New(kb, opts.FuzzyThreshold),
		scorer:    scoring.New(kb, opts.Thresholds),
		bootID:    opts.BootID,
		now:       opts.Now,
	}
}

// BootID returns the boot id this engine serves under.
func (e *Engine) BootID() string {
	return e.bootID
}

// Handle processes one user message for a session and returns the reply.
// Messages for the same session are handled one at a time. The only error
// is the context ending before the session could be served.
func (e *Engine) Handle(ctx context.Context, sessionID, text string) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var reply *Reply
	err := e.sessions.With(ctx, sessionID, func(st *session.State) error {
		c, err := e.activeCase(ctx, st)
		if err != nil {
			return err
		}
		reply = e.turn(c, text)
		reply.attach(c)
		e.persist(ctx, c, st.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// Flush saves every session's active case that has notes. It returns the
// number of cases handed to the saver.
func (e *Engine) Flush(ctx context.Context) (int, error) {
	if e.saver == nil {
		return 0, nil
	}
	n := 0
	err := e.sessions.Each(ctx, func(st *session.State) error {
		if st.Active == nil || len(st.Active.Notes) == 0 {
			return nil
		}
		e.persist(ctx, st.Active, st.ID)
		n++
		return nil
	})
	slog.Info("flushed sessions", "cases", n)
	return n, err
}

// Prune drops sessions idle for at least idle whose case is finished: no
// notes recorded, or a locked case that has been saved. A locked case whose save
// fails stays in memory until a later pass succeeds.
func (e *Engine) Prune(ctx context.Context, idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	n := e.sessions.Prune(cutoff, func(st *session.State) bool {
		if st.Active == nil || len(st.Active.Notes) == 0 {
			return true
		}
		if !st.Active.Locked {
			return false
		}
		return e.save(ctx, st.Active, st.ID) == nil
	})
	if n > 0 {
		slog.Info("pruned sessions", "count", n, "remaining", e.sessions.Len())
	}
	return n
}

// RunJanitor prunes idle sessions every interval until ctx ends.
func (e *Engine) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Prune(ctx, idle)
		}
	}
}

// activeCase returns the session's case, replacing it when the session has
// none or was last served by another process run.
func (e *Engine) activeCase(ctx context.Context, st *session.State) (*cases.Case, error) {
	if st.Active != nil && st.BootSeen == e.bootID {
		return st.Active, nil
	}
	if st.Active != nil && len(st.Active.Notes) > 0 {
		e.persist(ctx, st.Active, st.ID)
	}

	id, err := cases.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	st.BootSeen = e.bootID
	st.Active = cases.New(id, e.now())
	slog.Info("new case started", "session_id", st.ID, "case_id", id)
	return st.Active, nil
}

func (e *Engine) persist(ctx context.Context, c *cases.Case, sessionID string) {
	if err := e.save(ctx, c, sessionID); err != nil {
		slog.Error("failed to persist case", "case_id", c.ID, "session_id", sessionID, "error", err)
	}
}

func (e *Engine) save(ctx context.Context, c *cases.Case, sessionID string) error {
	if e.saver == nil || len(c.Notes) == 0 {
		return nil
	}
	return e.saver.SaveCase(ctx, c, sessionID)
}

func (e *Engine) turn(c *cases.Case, raw string) *Reply {
	text := strings.TrimSpace(raw)
	if text == "" {
		return &Reply{Text: TextEmpty}
	}
	if c.Locked {
		return &Reply{Text: Summary(c)}
	}

	c.AddNote(text)
	for _, cand := range e.extractor.Extract(text) {
		c.Bump(cand.Code, cand.Confidence)
	}
	return e.route(c, textnorm.Normalize(text))
}

// route picks the reply for a recorded message and advances the case mode.
func (e *Engine) route(c *cases.Case, norm string) *Reply {
	_, hasDuration := slots.ParseDuration(norm)
	sev := slots.ExtractSeverity(norm)
	answering := (c.LastPrompt == cases.PromptAskDuration && hasDuration) ||
		(c.LastPrompt == cases.PromptAskSeverity && sev != slots.SeverityNone)
	unclear := !answering && intent.IsUnclear(norm)

	if len(c.Notes) == 1 {
		c.UnclearCount = 0
		ack := PickAck(c.ID)

		if intent.IsGreeting(norm) {
			return prompt(c, cases.PromptGreeting, TextGreeting, nil)
		}
		if unclear {
			c.Mode = cases.ModeClarifying
			c.UnclearCount = 1
			return prompt(c, cases.PromptClarifyFirst, withAck(ack, TextClarifyFirst), nil)
		}

		c.Mode = cases.ModeGatherInfo
		fillSlots(c, norm)
		return askNextMissing(c, ack)
	}

	if unclear {
		c.Mode = cases.ModeClarifying
		c.UnclearCount++
		switch {
		case c.UnclearCount >= clarifyFallbackMin:
			return prompt(c, cases.PromptClarifyFallback, TextClarifyFormat, nil)
		case c.LastPrompt == cases.PromptClarify:
			return prompt(c, cases.PromptClarifyAlt, TextClarifyAlt, nil)
		default:
			return prompt(c, cases.PromptClarify, TextClarify, nil)
		}
	}

	if c.Mode == cases.ModeClarifying {
		c.Mode = cases.ModeGatherInfo
		c.UnclearCount = 0
	}

	fillSlots(c, norm)
	if !c.SlotsFilled() {
		c.Mode = cases.ModeGatherInfo
		return askNextMissing(c, "")
	}

	c.Mode = cases.ModeCollectMore
	if scoring.Ready(c, norm) {
		out := e.scorer.Score(c)
		c.Lock(out.Result)
		slog.Info("triage complete", "case_id", c.ID, "level", out.Level,
			"confidence", out.Confidence, "score", out.Score, "red_flags", len(out.RedFlags))
		return &Reply{Text: Summary(c)}
	}

	if intent.SeemsDone(norm) {
		c.Mode = cases.ModeReady
		return &Reply{Text: Recap(c)}
	}
	return prompt(c, cases.PromptCollectMore, TextCollectMore, nil)
}

// fillSlots updates duration and severity from norm where the update policy allows.
func fillSlots(c *cases.Case, norm string) {
	if d, ok := slots.ParseDuration(norm); ok &&
		slots.ShouldUpdateDuration(c.DurationSlot(), d, norm, c.LastPrompt == cases.PromptAskDuration) {
		c.SetDuration(d)
	}
	if s := slots.ExtractSeverity(norm); s != slots.SeverityNone &&
		slots.ShouldUpdateSeverity(c.Severity, norm, c.LastPrompt == cases.PromptAskSeverity) {
		c.SetSeverity(s)
	}
}

// askNextMissing asks for duration, then severity, then more symptoms.
func askNextMissing(c *cases.Case, ack string) *Reply {
	switch {
	case c.Duration == "":
		return prompt(c, cases.PromptAskDuration, withAck(ack, TextAskDuration), DurationOptions)
	case c.Severity == slots.SeverityNone:
		return prompt(c, cases.PromptAskSeverity, withAck(ack, TextAskSeverity), SeverityOptions)
	default:
		return prompt(c, cases.PromptCollectMore, withAck(ack, TextListMore), nil)
	}
}

func prompt(c *cases.Case, kind cases.PromptKind, text string, options []string) *Reply {
	c.LastPrompt = kind
	var opts []string
	if len(options) > 0 {
		opts = append(opts, options...)
	}
	return &Reply{Text: text, Options: opts}
}
