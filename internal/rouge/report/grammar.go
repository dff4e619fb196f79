package report

import (
	"regexp"

	"github.com/rouge-eval/backend/internal/rouge/table"
)

// The report lines this package understands, for order N:
//
//	ROUGE-N Eval <name> R:<v> P:<v> F:<v>
//	ROUGE-N Average_R: <v> (95%-conf.int. <lo> - <hi>)
//
// and the same average line for P and F. Every other line is ignored.
// Label spelling changes in ROUGE output only need to be handled here.

type lineKind int

const (
	lineOther lineKind = iota
	lineEval
	lineAverage
)

type grammar struct {
	eval    *regexp.Regexp
	average *regexp.Regexp
}

func grammarFor(order table.Order) grammar {
	prefix := `ROUGE-` + regexp.QuoteMeta(string(order)) + ` `
	return grammar{
		eval:    regexp.MustCompile(prefix + `Eval (.*?) R:(.*?) P:(.*?) F:(.*?)\s*$`),
		average: regexp.MustCompile(prefix + `Average_([RPF]): (.*?) \(95%-conf\.int\. (.*?) - (.*?)\)`),
	}
}

// classify reports which kind of line this is for the grammar's order and
// returns the captured fields without the full match.
func (g grammar) classify(line string) (lineKind, []string) {
	if m := g.eval.FindStringSubmatch(line); m != nil {
		return lineEval, m[1:]
	}
	if m := g.average.FindStringSubmatch(line); m != nil {
		return lineAverage, m[1:]
	}
	return lineOther, nil
}
