package classify

import (
	"bytes"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/BTBurke/smi/pkg/telemetry"
)

// Confusion is a 2x2 confusion matrix.  Rows are the actual class and columns the predicted class,
// index 0 is Operating and 1 is Failure.
type Confusion [2][2]int

// Total returns the number of classified rows
func (c Confusion) Total() int {
	return c[0][0] + c[0][1] + c[1][0] + c[1][1]
}

// NewConfusion tallies predicted against actual labels
func NewConfusion(actual []bool, predicted []bool) Confusion {
	var c Confusion
	for i := range actual {
		c[classOf(actual[i])][classOf(predicted[i])]++
	}
	return c
}

// ClassMetrics are the precision, recall and F1 score of one class, or an average over classes
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is a per class classification report.  Undefined ratios (no predictions or no support for a
// class) are reported as zero.
type Report struct {
	Classes     []ClassMetrics `json:"classes"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Total       int            `json:"total"`
}

// NewReport derives the classification report from a confusion matrix
func NewReport(c Confusion) Report {
	total := c.Total()
	r := Report{
		Classes:     make([]ClassMetrics, 0, 2),
		Total:       total,
		MacroAvg:    ClassMetrics{Label: "macro avg", Support: total},
		WeightedAvg: ClassMetrics{Label: "weighted avg", Support: total},
	}
	for k, status := range []telemetry.Status{telemetry.Operating, telemetry.Failure} {
		tp := c[k][k]
		predicted := c[0][k] + c[1][k]
		support := c[k][0] + c[k][1]

		m := ClassMetrics{Label: status.String(), Support: support}
		m.Precision = ratio(tp, predicted)
		m.Recall = ratio(tp, support)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes = append(r.Classes, m)

		r.MacroAvg.Precision += m.Precision / 2
		r.MacroAvg.Recall += m.Recall / 2
		r.MacroAvg.F1 += m.F1 / 2
		if total > 0 {
			share := float64(support) / float64(total)
			r.WeightedAvg.Precision += m.Precision * share
			r.WeightedAvg.Recall += m.Recall * share
			r.WeightedAvg.F1 += m.F1 * share
		}
	}
	r.Accuracy = ratio(c[0][0]+c[1][1], total)
	return r
}

func ratio(num int, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// String renders the report as a fixed width table
func (r Report) String() string {
	var b bytes.Buffer
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "\tprecision\trecall\tf1-score\tsupport\t\n")
	for _, m := range r.Classes {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%d\t\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	fmt.Fprintf(w, "\t\t\t\t\t\n")
	fmt.Fprintf(w, "accuracy\t\t\t%.2f\t%d\t\n", r.Accuracy, r.Total)
	for _, m := range []ClassMetrics{r.MacroAvg, r.WeightedAvg} {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%d\t\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	w.Flush()
	return b.String()
}

// Rank orders features by their model coefficient
type Rank int

const (
	// RankSigned sorts by coefficient, largest first, so strong negative predictors rank last
	RankSigned Rank = iota
	// RankMagnitude sorts by absolute coefficient, largest first
	RankMagnitude
)

func (r Rank) String() string {
	switch r {
	case RankMagnitude:
		return "magnitude"
	default:
		return "signed"
	}
}

// ParseRank parses "signed" or "magnitude"
func ParseRank(s string) (Rank, error) {
	switch s {
	case "signed", "":
		return RankSigned, nil
	case "magnitude":
		return RankMagnitude, nil
	default:
		return RankSigned, fmt.Errorf("unknown feature ranking: %s", s)
	}
}

// Importance is the coefficient of one feature
type Importance struct {
	Feature     telemetry.Column `json:"feature"`
	Coefficient float64          `json:"coefficient"`
}

// Importances pairs features with coefficients and orders them by rank.  Ties keep feature order.
func Importances(features []telemetry.Column, coef []float64, rank Rank) []Importance {
	out := make([]Importance, len(features))
	for i, f := range features {
		out[i] = Importance{Feature: f, Coefficient: coef[i]}
	}
	key := func(i int) float64 {
		if rank == RankMagnitude {
			if out[i].Coefficient < 0 {
				return -out[i].Coefficient
			}
		}
		return out[i].Coefficient
	}
	sort.SliceStable(out, func(i, j int) bool { return key(i) > key(j) })
	return out
}
