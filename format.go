package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ro-array-designer/internal/optimizer"
)

// printTable writes a summary row per configuration, then the stage detail
// of the first limit configurations. limit <= 0 shows every one.
func printTable(w io.Writer, res DesignResult, limit int) {
	s := res.Spec
	fmt.Fprintf(w, "Feed %.2f m3/h, target recovery %.4f, %s, up to %d stage(s)",
		s.FeedFlow, s.TargetRecovery, s.Membrane, s.MaxStages)
	if s.AllowRecycle {
		fmt.Fprintf(w, ", recycle split <= %.2f", s.MaxRecycleRatio)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-3s %-12s %7s %9s %9s %8s %10s %8s\n",
		"#", "Array", "Vessels", "Recovery", "Error", "Recycle", "Area m2", "MaxDev")
	fmt.Fprintf(w, "%-3s %-12s %7s %9s %9s %8s %10s %8s\n",
		"---", "------------", "-------", "---------", "---------", "--------", "----------", "--------")
	for i, c := range res.Configurations {
		recycle := "-"
		if c.Recycle != nil {
			recycle = fmt.Sprintf("%.3f", c.Recycle.SplitRatio)
		}
		fmt.Fprintf(w, "%-3d %-12s %7d %9.4f %+9.4f %8s %10.1f %8.3f\n",
			i+1, c.ArrayNotation, c.TotalVessels, c.TotalRecovery, c.RecoveryError,
			recycle, c.TotalMembraneArea, c.MaxFluxDeviation)
	}

	n := len(res.Configurations)
	if limit > 0 && limit < n {
		n = limit
	}
	for i := 0; i < n; i++ {
		fmt.Fprintln(w)
		fmt.Fprint(w, formatConfiguration(i+1, res.Configurations[i]))
	}
	fmt.Fprintf(w, "\n%d configuration(s) in %.1fs\n", len(res.Configurations), float64(res.TimeMs)/1000)
}

// formatConfiguration renders the stage table of one configuration.
func formatConfiguration(rank int, c optimizer.Configuration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s  recovery %.4f (%+.4f)", rank, c.ArrayNotation, c.TotalRecovery, c.RecoveryError)
	if !c.MeetsTarget {
		b.WriteString("  outside tolerance")
	}
	b.WriteString("\n")
	if r := c.Recycle; r != nil {
		fmt.Fprintf(&b, "    recycle %.2f m3/h (split %.3f), disposal %.2f m3/h, effective feed %.2f m3/h at %.0f ppm",
			r.RecycleFlow, r.SplitRatio, r.DisposalFlow, r.EffectiveFeedFlow, r.EffectiveFeedSalinity)
		if !r.Converged {
			b.WriteString(", not converged")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "    %-5s %7s %9s %9s %9s %7s %7s %9s %8s\n",
		"Stage", "Vessels", "Feed", "Permeate", "Conc", "Flux", "Ratio", "Conc/PV", "Bar")
	for _, st := range c.Stages {
		bar := "-"
		if st.FeedPressureBar != nil {
			bar = fmt.Sprintf("%.1f", *st.FeedPressureBar)
		}
		fmt.Fprintf(&b, "    %-5d %7d %9.2f %9.2f %9.2f %7.2f %7.3f %9.2f %8s\n",
			st.StageNumber, st.NVessels, st.FeedFlow, st.PermeateFlow, st.ConcentrateFlow,
			st.Flux, st.FluxRatio, st.ConcentratePerVessel, bar)
	}
	return b.String()
}

// printBatch writes one row per batch item: the best array on success, the
// error otherwise.
func printBatch(w io.Writer, items []BatchItem) {
	fmt.Fprintf(w, "%-24s %-13s %-12s %9s %8s\n", "Spec", "Outcome", "Best", "Recovery", "Configs")
	fmt.Fprintf(w, "%-24s %-13s %-12s %9s %8s\n",
		"------------------------", "-------------", "------------", "---------", "--------")
	failed := 0
	for _, it := range items {
		if it.Result == nil || len(it.Result.Configurations) == 0 {
			failed++
			msg := ""
			if it.Error != nil {
				msg = it.Error.Error
			}
			fmt.Fprintf(w, "%-24s %-13s %s\n", it.Name, it.Outcome, msg)
			continue
		}
		best := it.Result.Configurations[0]
		fmt.Fprintf(w, "%-24s %-13s %-12s %9.4f %8d\n",
			it.Name, it.Outcome, best.ArrayNotation, best.TotalRecovery, len(it.Result.Configurations))
	}
	fmt.Fprintf(w, "%-24s %-13s %-12s %9s %8s\n",
		"------------------------", "-------------", "------------", "---------", "--------")
	fmt.Fprintf(w, "%d spec(s), %d failed\n", len(items), failed)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
