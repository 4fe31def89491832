package smi

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/BTBurke/smi/pkg/classify"
	"github.com/BTBurke/smi/pkg/metric"
	"github.com/BTBurke/smi/pkg/stat"
	"github.com/fatih/color"
	"github.com/go-logfmt/logfmt"
)

const windowLayout = "2006-01-02 15:04"

var (
	good = color.New(color.FgGreen).SprintFunc()
	bad  = color.New(color.FgRed, color.Bold).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
	head = color.New(color.Bold).SprintFunc()
)

// Render writes the analysis in format f
func Render(w io.Writer, a *Analysis, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, a)
	case FormatLogfmt:
		return renderLogfmt(w, a)
	default:
		return renderText(w, a)
	}
}

// Guidance is shown instead of the classifier results when the class guard fails
func Guidance(err classify.InsufficientData) string {
	return fmt.Sprintf("Not enough data to train the failure model (%d operating, %d failed readings). Widen the time window, choose another machine or regenerate the data.", err.Operating, err.Failed)
}

func renderText(out io.Writer, a *Analysis) error {
	b := &strings.Builder{}
	fmt.Fprintf(b, "%s %s  %s to %s  (%d readings)\n", head("Machine"), a.Machine, formatTime(a.From), formatTime(a.To), a.Rows)
	if a.Rows == 0 {
		fmt.Fprintf(b, "%s\n", warn("No readings in the selected window."))
	}

	section(b, "Operational indicators")
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  mean production\t%.2f\t\n", a.Indicators.MeanProduction)
	fmt.Fprintf(tw, "  mean temperature\t%.2f\t\n", a.Indicators.MeanTemperature)
	fmt.Fprintf(tw, "  mean energy\t%.2f\t\n", a.Indicators.MeanEnergy)
	fmt.Fprintf(tw, "  failures\t%d\t\n", a.Indicators.Failures)
	tw.Flush()

	section(b, "Descriptive statistics")
	tw = tabwriter.NewWriter(b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\tcount\tmean\tstd\tmin\t25%%\t50%%\t75%%\tmax\tcv_%%\t\n")
	for _, s := range a.Summary {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n", s.Column, s.Count, s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max, s.CV)
	}
	tw.Flush()

	section(b, "Correlation")
	tw = tabwriter.NewWriter(b, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, c := range a.Correlation.Columns {
		fmt.Fprintf(tw, "\t%s", c)
	}
	fmt.Fprintf(tw, "\t\n")
	for i, c := range a.Correlation.Columns {
		fmt.Fprintf(tw, "%s", c)
		for _, v := range a.Correlation.Values[i] {
			fmt.Fprintf(tw, "\t%.3f", v)
		}
		fmt.Fprintf(tw, "\t\n")
	}
	tw.Flush()

	section(b, fmt.Sprintf("Process control (%s)", a.Control.Column))
	fmt.Fprintf(b, "  mean %.2f  UCL %.2f  LCL %.2f\n", a.Control.Mean, a.Control.UCL, a.Control.LCL)
	switch {
	case !stat.IsDefined(a.Control.Std):
		fmt.Fprintf(b, "  %s\n", warn("limits undefined, fewer than two readings"))
	case a.Control.InControl():
		fmt.Fprintf(b, "  %s\n", good("in control"))
	default:
		fmt.Fprintf(b, "  %s\n", bad(fmt.Sprintf("%d readings outside the control limits", len(a.Control.Violations))))
		for _, i := range a.Control.Violations {
			p := a.Control.Series[i]
			fmt.Fprintf(b, "    %s  %.2f\n", formatTime(p.Timestamp), p.Value)
		}
	}

	section(b, fmt.Sprintf("Welch t-test (%s by failure)", a.TTest.Column))
	fmt.Fprintf(b, "  operating %d  failed %d  t %.4f  df %.2f  p %.4g\n", a.TTest.Operating, a.TTest.Failed, a.TTest.Statistic, a.TTest.DF, a.TTest.PValue)
	fmt.Fprintf(b, "  %s\n", verdict(a.TTest))

	section(b, fmt.Sprintf("%s by status", a.Column))
	tw = tabwriter.NewWriter(b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\tcount\tmean\tmin\tq1\tmedian\tq3\tmax\t\n")
	for _, g := range a.Groups {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n", g.Status, g.Count, g.Mean, g.Min, g.Q1, g.Median, g.Q3, g.Max)
	}
	tw.Flush()

	section(b, "Failure classifier")
	switch {
	case a.Guard != nil:
		fmt.Fprintf(b, "  %s\n", warn(Guidance(*a.Guard)))
	case a.Classifier != nil:
		renderClassifier(b, a.Classifier)
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func renderClassifier(b *strings.Builder, r *classify.Result) {
	fmt.Fprintf(b, "  trained on %d, tested on %d readings (%d iterations, %s)\n\n", r.Train, r.Test, r.Iterations, r.Status)
	b.WriteString(r.Report.String())

	b.WriteString("\n  confusion matrix (rows actual, columns predicted)\n")
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\tOperating\tFailure\t\n")
	fmt.Fprintf(tw, "Operating\t%d\t%d\t\n", r.Confusion[0][0], r.Confusion[0][1])
	fmt.Fprintf(tw, "Failure\t%d\t%d\t\n", r.Confusion[1][0], r.Confusion[1][1])
	tw.Flush()

	b.WriteString("\n  feature importance\n")
	tw = tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	for _, imp := range r.Importance {
		fmt.Fprintf(tw, "  %s\t%.4f\t\n", imp.Feature, imp.Coefficient)
	}
	tw.Flush()
}

func verdict(t stat.TTest) string {
	switch {
	case t.Insufficient:
		return warn(t.Verdict())
	case t.Significant():
		return bad(t.Verdict())
	default:
		return good(t.Verdict())
	}
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n%s\n", head(title))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(windowLayout)
}

// renderLogfmt writes one logfmt line per result.  The first pair names the result with its labels.
func renderLogfmt(w io.Writer, a *Analysis) error {
	e := logfmt.NewEncoder(w)
	base := metric.Labels{"machine": a.Machine}
	line := func(name metric.Name, keyvals ...interface{}) error {
		if err := e.EncodeKeyval("metric", name.String()); err != nil {
			return err
		}
		if err := e.EncodeKeyvals(keyvals...); err != nil {
			return err
		}
		return e.EndRecord()
	}

	var errs []error
	errs = append(errs, line(metric.NewName("window", base),
		"from", a.From, "to", a.To, "rows", a.Rows))
	errs = append(errs, line(metric.NewName("indicators", base),
		"mean_production", a.Indicators.MeanProduction,
		"mean_temperature", a.Indicators.MeanTemperature,
		"mean_energy", a.Indicators.MeanEnergy,
		"failures", a.Indicators.Failures))
	for _, s := range a.Summary {
		errs = append(errs, line(metric.NewName("summary", base).With(metric.Labels{"column": string(s.Column)}),
			"count", s.Count, "mean", s.Mean, "std", s.Std, "min", s.Min,
			"q25", s.Q25, "q50", s.Q50, "q75", s.Q75, "max", s.Max, "cv_pct", s.CV))
	}
	for i, c := range a.Correlation.Columns {
		for j := i + 1; j < len(a.Correlation.Columns); j++ {
			errs = append(errs, line(metric.NewName("correlation", base).With(metric.Labels{"a": string(c), "b": string(a.Correlation.Columns[j])}),
				"r", a.Correlation.Values[i][j]))
		}
	}

	control := metric.NewName("control", base).With(metric.Labels{"column": string(a.Control.Column)})
	if !a.Control.InControl() {
		control = control.Flag("violation")
	}
	errs = append(errs, line(control,
		"mean", a.Control.Mean, "std", a.Control.Std, "ucl", a.Control.UCL, "lcl", a.Control.LCL,
		"violations", len(a.Control.Violations)))

	ttest := metric.NewName("ttest", base).With(metric.Labels{"column": string(a.TTest.Column)})
	switch {
	case a.TTest.Insufficient:
		ttest = ttest.Flag("insufficient")
	case a.TTest.Significant():
		ttest = ttest.Flag("significant")
	}
	errs = append(errs, line(ttest,
		"operating", a.TTest.Operating, "failed", a.TTest.Failed,
		"t", a.TTest.Statistic, "df", a.TTest.DF, "p", a.TTest.PValue, "verdict", a.TTest.Verdict()))

	for _, g := range a.Groups {
		errs = append(errs, line(metric.NewName("group", base).With(metric.Labels{"column": string(a.Column), "status": g.Status.String()}),
			"count", g.Count, "mean", g.Mean, "min", g.Min, "q1", g.Q1, "median", g.Median, "q3", g.Q3, "max", g.Max))
	}

	switch {
	case a.Guard != nil:
		errs = append(errs, line(metric.NewName("classifier", base).Flag("insufficient"),
			"operating", a.Guard.Operating, "failed", a.Guard.Failed))
	case a.Classifier != nil:
		r := a.Classifier
		errs = append(errs, line(metric.NewName("classifier", base),
			"train", r.Train, "test", r.Test, "accuracy", r.Report.Accuracy,
			"tn", r.Confusion[0][0], "fp", r.Confusion[0][1], "fn", r.Confusion[1][0], "tp", r.Confusion[1][1]))
		for _, m := range r.Report.Classes {
			errs = append(errs, line(metric.NewName("classifier_class", base).With(metric.Labels{"class": m.Label}),
				"precision", m.Precision, "recall", m.Recall, "f1", m.F1, "support", m.Support))
		}
		for rank, imp := range r.Importance {
			errs = append(errs, line(metric.NewName("importance", base).With(metric.Labels{"feature": string(imp.Feature)}),
				"rank", rank+1, "coefficient", imp.Coefficient))
		}
	}
	return errors.Join(errs...)
}
