package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/tcide/internal/auth"
	"git.home.luguber.info/inful/tcide/internal/challenge"
	"git.home.luguber.info/inful/tcide/internal/eligibility"
	"git.home.luguber.info/inful/tcide/internal/history"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// ChallengeList writes one row per active challenge.
func ChallengeList(w io.Writer, challenges []challenge.Summary) error {
	if len(challenges) == 0 {
		_, err := fmt.Fprintln(w, "No active challenges.")
		return err
	}
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tTRACK\tREGISTRANTS\tTOP PRIZE\tOPEN PHASES")
	for _, c := range challenges {
		top := "-"
		if len(c.Prizes) > 0 {
			top = Money(c.Prizes[0])
		}
		phases := strings.Join(c.OpenPhases(), ", ")
		if phases == "" {
			phases = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", c.ID, c.Name, orDash(c.SubTrack), c.Registrants, top, phases)
	}
	return tw.Flush()
}

// ChallengeDetails writes a challenge's overview, prizes, the caller's
// standing and the requirements text.
func ChallengeDetails(w io.Writer, d *challenge.Details, id auth.Identity) error {
	tw := newTable(w)
	_, _ = fmt.Fprintf(tw, "Challenge:\t%s\n", d.Title)
	_, _ = fmt.Fprintf(tw, "ID:\t%s\n", d.ChallengeID)
	if d.Type != "" {
		_, _ = fmt.Fprintf(tw, "Type:\t%s\n", d.Type)
	}
	_, _ = fmt.Fprintf(tw, "Status:\t%s\n", orDash(d.CurrentStatus))
	_, _ = fmt.Fprintf(tw, "Current phase:\t%s\n", orDash(d.CurrentPhaseName))
	_, _ = fmt.Fprintf(tw, "Registrants:\t%d\n", d.NumberOfRegistrants)
	_, _ = fmt.Fprintf(tw, "Submissions:\t%d\n", d.NumberOfSubmissions)
	if len(d.Technologies) > 0 {
		_, _ = fmt.Fprintf(tw, "Technologies:\t%s\n", strings.Join(d.Technologies, ", "))
	}
	if id.Handle != "" {
		_, _ = fmt.Fprintf(tw, "Registered:\t%s\n", yesNo(d.HasRegistrant(id.Handle)))
		_, _ = fmt.Fprintf(tw, "Can register:\t%s\n", yesNo(eligibility.CanRegister(d, id.Handle)))
	}
	_, _ = fmt.Fprintf(tw, "Submission phase:\t%s\n", openClosed(d.SubmissionOpen()))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(d.Prizes) > 0 {
		_, _ = fmt.Fprintln(w, "\nPrizes")
		tw = newTable(w)
		for i, p := range d.Prizes {
			_, _ = fmt.Fprintf(tw, "  %s\t%s\n", Ordinal(i+1), Money(p))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if req := HTMLText(d.Specification()); req != "" {
		_, _ = fmt.Fprintf(w, "\nRequirements\n%s\n", req)
	}
	if g := HTMLText(d.FinalSubmissionGuidelines); g != "" {
		_, _ = fmt.Fprintf(w, "\nSubmission guidelines\n%s\n", g)
	}
	return nil
}

// ActiveSubmissions lists the challenges the member has submitted to.
func ActiveSubmissions(w io.Writer, subs []challenge.ActiveSubmission) error {
	if len(subs) == 0 {
		_, err := fmt.Fprintln(w, "No submissions.")
		return err
	}
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "CHALLENGE\tNAME")
	for _, s := range subs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", s.ID, s.Name)
	}
	return tw.Flush()
}

// Reviews writes one row per submission with its score and artifacts.
func Reviews(w io.Writer, reviews []challenge.Review) error {
	if len(reviews) == 0 {
		_, err := fmt.Fprintln(w, "No submissions for this challenge.")
		return err
	}
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "SUBMISSION\tCREATED\tSCORE\tARTIFACTS")
	for _, r := range reviews {
		score := "pending"
		if r.Score != nil {
			score = fmt.Sprintf("%.2f", *r.Score)
		}
		artifacts := strings.Join(r.Artifacts, ", ")
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, formatTime(r.Created), score, orDash(artifacts))
	}
	return tw.Flush()
}

// History writes one row per recorded submission attempt.
func History(w io.Writer, attempts []history.AttemptSummary) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No submission attempts recorded.")
		return err
	}
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "STARTED\tCHALLENGE\tSTATUS\tFILES\tSUBMISSION\tDETAIL")
	for _, a := range attempts {
		detail := "-"
		if a.Status == history.StatusFailed {
			detail = a.FailedStage + ": " + a.Error
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			formatTime(a.StartedAt), orDash(a.ChallengeID), a.Status, a.Files, orDash(a.SubmissionID), detail)
	}
	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func openClosed(b bool) string {
	if b {
		return "open"
	}
	return "closed"
}
