package notify

import (
	"fmt"
	"strings"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/report"
)

// RenderText formats a report payload as the plain-text mail body.
func RenderText(p report.Payload) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Daily report for %s\n", p.Date)
	fmt.Fprintf(&b, "Generated at %s\n\n", p.GeneratedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "Hardware (%d samples)\n", p.SampleCount)
	writeAggregate(&b, "CPU", p.CPU)
	writeAggregate(&b, "Memory", p.Memory)
	writeAggregate(&b, "Storage", p.Storage)
	fmt.Fprintf(&b, "  Estimated energy: %.2f Wh\n\n", p.EnergyWh)

	fmt.Fprintf(&b, "Upload audit (%d events)\n", p.FindingCount)
	fmt.Fprintf(&b, "  Normal:                 %d\n", p.Counts[models.FindingNormal])
	fmt.Fprintf(&b, "  Extension spoofed:      %d\n", p.Counts[models.FindingExtensionSpoofed])
	fmt.Fprintf(&b, "  Suspected empty script: %d\n", p.Counts[models.FindingSuspectedEmptyScript])

	if len(p.Flagged) > 0 {
		b.WriteString("\nFlagged files:\n")
		for _, f := range p.Flagged {
			fmt.Fprintf(&b, "  [%s] %s %s (%s)\n",
				f.Timestamp.Format("15:04:05"), f.Kind, f.FilePath, f.Detail)
		}
	} else {
		b.WriteString("\nNo suspicious uploads today.\n")
	}

	return b.String()
}

func writeAggregate(b *strings.Builder, name string, a report.Aggregate) {
	if a.Count == 0 {
		fmt.Fprintf(b, "  %-8s no data\n", name)
		return
	}
	fmt.Fprintf(b, "  %-8s min %.1f%%  avg %.1f%%  max %.1f%%\n", name, a.Min, a.Avg, a.Max)
}
