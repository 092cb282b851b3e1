package presenter

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// monthMarker stands in for the month abbreviation while the rest of the
// layout is handled by time.Format.
const monthMarker = "\x00"

// Format renders dates and times for one display locale.
type Format struct {
	Tag        language.Tag
	DateLayout string
	TimeLayout string
	Months     [12]string
}

var englishMonths = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var formats = []Format{
	{Tag: language.AmericanEnglish, DateLayout: "Jan 2, 2006", TimeLayout: "3:04 PM", Months: englishMonths},
	{Tag: language.BritishEnglish, DateLayout: "2 Jan 2006", TimeLayout: "15:04", Months: englishMonths},
	{
		Tag: language.German, DateLayout: "2. Jan. 2006", TimeLayout: "15:04",
		Months: [12]string{"Jan", "Feb", "Mär", "Apr", "Mai", "Jun", "Jul", "Aug", "Sep", "Okt", "Nov", "Dez"},
	},
	{
		Tag: language.French, DateLayout: "2 Jan 2006", TimeLayout: "15:04",
		Months: [12]string{"janv.", "févr.", "mars", "avr.", "mai", "juin", "juil.", "août", "sept.", "oct.", "nov.", "déc."},
	},
	{
		Tag: language.Spanish, DateLayout: "2 Jan 2006", TimeLayout: "15:04",
		Months: [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"},
	},
	{
		Tag: language.Italian, DateLayout: "2 Jan 2006", TimeLayout: "15:04",
		Months: [12]string{"gen", "feb", "mar", "apr", "mag", "giu", "lug", "ago", "set", "ott", "nov", "dic"},
	},
	{
		Tag: language.BrazilianPortuguese, DateLayout: "2 de Jan de 2006", TimeLayout: "15:04",
		Months: [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
	},
}

var matcher = language.NewMatcher(supportedTags())

func supportedTags() []language.Tag {
	tags := make([]language.Tag, 0, len(formats))
	for _, f := range formats {
		tags = append(tags, f.Tag)
	}
	return tags
}

// FormatFor picks the closest supported format for a BCP 47 locale string.
// Unknown or malformed input falls back to American English.
func FormatFor(locale string) Format {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	if err != nil {
		return formats[0]
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return formats[0]
	}
	return formats[idx]
}

func (f Format) Date(ts time.Time) string {
	layout := strings.Replace(f.DateLayout, "Jan", monthMarker, 1)
	return strings.Replace(ts.Format(layout), monthMarker, f.Months[ts.Month()-1], 1)
}

func (f Format) Time(ts time.Time) string {
	return ts.Format(f.TimeLayout)
}
