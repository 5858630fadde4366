package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ldco/Kroma-sub000/internal/domain"
	"github.com/ldco/Kroma-sub000/internal/runlog"
)

var titleCaser = cases.Title(language.English)

// outputBuffer accumulates the pipeline's stdout lines, ending with the
// legacy status block and the machine-parseable summary marker.
type outputBuffer struct {
	b strings.Builder
}

func (o *outputBuffer) linef(format string, args ...any) {
	fmt.Fprintf(&o.b, format+"\n", args...)
}

func (o *outputBuffer) header(stage domain.Stage, mode domain.Mode) {
	o.linef("Kroma pipeline: %s stage (%s mode)", titleCaser.String(string(stage)), mode)
}

// finish appends the legacy plain-text block and the summary marker line.
// jobState is "planned" for dry runs and "completed" for executed ones.
func (o *outputBuffer) finish(s runlog.Summary, jobState string) {
	for _, line := range runlog.LegacyLines(s, jobState) {
		o.linef("%s", line)
	}
	o.linef("%s", runlog.FormatSummaryLine(s))
}

func (o *outputBuffer) String() string { return o.b.String() }
