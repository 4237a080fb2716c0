// Package output provides utilities for formatting and displaying model results.
package output

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/iwvelando/keplerfit/internal/session"
	"github.com/iwvelando/keplerfit/pkg/epoch"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type labelled struct {
	label string
	pred  *session.Prediction
}

func predictions(res *session.Result) []labelled {
	var out []labelled
	for _, l := range []labelled{{"rv", res.RV}, {"transit", res.Transit}, {"eclipse", res.Eclipse}} {
		if l.pred != nil {
			out = append(out, l)
		}
	}
	return out
}

// PrettyFormat outputs a human-readable rather than machine-readable summary.
func PrettyFormat(s *session.Session, res *session.Result) {
	WritePretty(os.Stdout, s, res)
}

// WritePretty writes the PrettyFormat summary to w.
func WritePretty(w io.Writer, s *session.Session, res *session.Result) {
	p := message.NewPrinter(language.English)
	conf := s.Configuration()

	star := conf.System.StarName
	if star == "" {
		star = "unnamed star"
	}
	_, _ = fmt.Fprintf(w, "--- Solution for %s ---\n", star)
	_, _ = fmt.Fprintf(w, "Fitting basis: %s\n", res.Params.Basis().Name())
	_, _ = fmt.Fprintf(w, "Time base: %.6f | Light-curve kernel: %s\n", res.TimeBase, s.KernelName())
	if conf.Stellar.Mass > 0 {
		_, _ = fmt.Fprintf(w, "Stellar mass: %.3f +/- %.3f Msun\n", conf.Stellar.Mass, conf.Stellar.MassErr)
	}

	_, _ = fmt.Fprintf(w, "\nParameter    | Value              | Vary\n")
	_, _ = fmt.Fprintf(w, "_________    | __________________ | ____\n")
	for _, name := range res.Params.Names() {
		param, _ := res.Params.Get(name)
		_, _ = fmt.Fprintf(w, "%-12s | %18.8f | %t\n", name, param.Value, param.Vary)
	}

	_, _ = fmt.Fprintf(w, "\nPlanet | Per (d)      | Tc               | Tc (UTC)            | e      | w (deg)  | K (m/s)\n")
	_, _ = fmt.Fprintf(w, "______ | ____________ | ________________ | ___________________ | ______ | ________ | _______\n")
	for i, el := range res.Elements {
		tc := el.TransitTime()
		_, _ = fmt.Fprintf(w, "%-6s | %12.6f | %16.6f | %s | %6.4f | %8.3f | %7.3f\n",
			conf.PlanetLetter(i+1), el.Per, tc, epoch.Format(epoch.Expand(tc, conf.System.BJD0)),
			el.E, el.W*180/math.Pi, el.K)
	}

	preds := predictions(res)
	if len(preds) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "\nDataset | Points | Chi-squared | Reduced\n")
	_, _ = fmt.Fprintf(w, "_______ | ______ | ___________ | _______\n")
	for _, l := range preds {
		n := l.pred.Data.Len()
		_, _ = p.Fprintf(w, "%-7s | %6d | %11.2f | %7.3f\n", l.label, n, l.pred.ChiSquared, l.pred.ChiSquared/float64(n))
	}
	_, _ = p.Fprintf(w, "Total chi-squared: %.2f\n", res.ChiSquared())
}

// CsvFormat outputs one row per observation in comma-separated value format.
func CsvFormat(res *session.Result) {
	fmt.Print(CsvString(res))
}

// CsvString returns the CsvFormat output as a string. Residual and sigma
// columns are empty unless the result came from Session.Residuals.
func CsvString(res *session.Result) string {
	var b strings.Builder
	b.WriteString(`"dataset","time","instrument","value","uncertainty","model","residual","sigma"` + "\n")
	for _, l := range predictions(res) {
		d := l.pred.Data
		for i := 0; i < d.Len(); i++ {
			row := d.Row(i)
			fmt.Fprintf(&b, `"%s","%.6f","%s","%g","%g","%.10g"`, l.label, row.Time, row.Instrument, row.Value, row.Uncertainty, l.pred.Model[i])
			if l.pred.Residual != nil {
				fmt.Fprintf(&b, `,"%.10g","%.10g"`, l.pred.Residual[i], l.pred.Sigma[i])
			} else {
				b.WriteString(`,"",""`)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
