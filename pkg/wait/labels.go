package wait

import (
	"time"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	keyAnyMoment = "any moment now"
	keyUnderOne  = "less than a minute"
	keyMinutes   = "%d minutes"
	keyHoursMins = "%dh %dmin"
	backAtLayout = "15:04"
)

var (
	supported = []language.Tag{language.English, language.French}
	matcher   = language.NewMatcher(supported)
	labels    = newCatalog()
)

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	must(b.SetString(language.English, keyAnyMoment, "any moment now"))
	must(b.SetString(language.English, keyUnderOne, "less than a minute"))
	must(b.Set(language.English, keyMinutes, plural.Selectf(1, "%d",
		"one", "%d minute",
		"other", "%d minutes",
	)))
	must(b.SetString(language.English, keyHoursMins, "%dh %dmin"))

	must(b.SetString(language.French, keyAnyMoment, "d'un moment à l'autre"))
	must(b.SetString(language.French, keyUnderOne, "moins d'une minute"))
	must(b.Set(language.French, keyMinutes, plural.Selectf(1, "%d",
		"one", "%d minute",
		"other", "%d minutes",
	)))
	must(b.SetString(language.French, keyHoursMins, "%dh %dmin"))

	return b
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Printer returns a message printer for the closest supported language.
func Printer(lang string) *message.Printer {
	tag := language.English
	if t, err := language.Parse(lang); err == nil {
		_, idx, conf := matcher.Match(t)
		if conf != language.No {
			tag = supported[idx]
		}
	}
	return message.NewPrinter(tag, message.Catalog(labels))
}

// RemainingLabel renders the time left until the deadline for display:
// "any moment now", "less than a minute", "N minute(s)" or "Hh Mmin".
func (s *Scheduler) RemainingLabel(until time.Time, lang string) string {
	p := Printer(lang)
	diff := until.Sub(s.now())
	if diff <= 0 {
		return p.Sprintf(keyAnyMoment)
	}

	hours := int(diff.Hours())
	minutes := int(diff.Minutes()) % 60
	switch {
	case hours > 0:
		return p.Sprintf(keyHoursMins, hours, minutes)
	case minutes > 0:
		return p.Sprintf(keyMinutes, minutes)
	default:
		return p.Sprintf(keyUnderOne)
	}
}

// BackAt formats the deadline as a local wall-clock time, e.g. "14:30".
func BackAt(until time.Time) string {
	return until.Local().Format(backAtLayout)
}
